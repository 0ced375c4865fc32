package router

import (
	"github.com/labstack/echo/v4"

	"github.com/meit-app/meit/internal/handler"
	"github.com/meit-app/meit/internal/middleware"
)

// RegisterRoutes registers the unauthenticated health check.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers login, refresh and logout.  Only logout needs a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.JWTAuth(jwtSecret))
}

// RegisterClient registers the endpoints backed by the caller's client.
func RegisterClient(e *echo.Echo, h *handler.ClientHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret), limit)

	g.GET("/me", h.Me)
	g.POST("/me/profile", h.CompleteProfile)
	g.POST("/me/refresh", h.Refresh)

	g.GET("/merchants", h.ListMerchants)
	g.GET("/merchants/:id", h.GetMerchant)
	g.POST("/merchants/:id/favorite", h.ToggleFavorite)
	g.POST("/locations/:id/register", h.Register)

	g.GET("/points", h.Points)

	g.GET("/gift-cards", h.ListGiftCards)
	g.GET("/gift-cards/expiring", h.ExpiringGiftCards)
	g.GET("/gift-cards/:id", h.GetGiftCard)

	g.GET("/challenges", h.ListChallenges)
	g.GET("/challenges/:id", h.GetChallenge)

	g.GET("/notifications", h.ListNotifications)
	g.POST("/notifications/read-all", h.MarkAllNotificationsRead)
	g.POST("/notifications/:id/read", h.MarkNotificationRead)
	g.DELETE("/notifications/:id", h.DeleteNotification)

	g.POST("/scan", h.Scan)
	g.POST("/scan/resolve", h.ResolveScan)
	g.DELETE("/scan", h.StopScan)
}

// RegisterPublic registers cacheable lookups that need no session.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/public", limit)
	g.GET("/locations/:id", p.GetLocation, cache)
}
