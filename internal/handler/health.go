package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports whether the backing stores answer.  Nil stores
// are skipped.
type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{}
	healthy := true
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			checks["mysql"] = err.Error()
			healthy = false
		} else {
			checks["mysql"] = "ok"
		}
	}
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}
	if !healthy {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "checks": checks})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "checks": checks})
}
