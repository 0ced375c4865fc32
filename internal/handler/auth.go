package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/app"
	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/middleware"
	"github.com/meit-app/meit/internal/model"
)

// AuthHandler signs identities in and out and installs their client.
type AuthHandler struct {
	Auth     gateway.Auth
	Registry *app.Registry
	Log      *zap.Logger
}

func NewAuthHandler(auth gateway.Auth, reg *app.Registry, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Auth: auth, Registry: reg, Log: log.With(zap.String("component", "auth"))}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutReq refreshReq

type sessionResp struct {
	Session model.RawSession `json:"session"`
	Status  string           `json:"status"`
	Profile *model.Customer  `json:"profile,omitempty"`
}

// Login exchanges credentials for a session and loads the client state.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	raw, err := h.Auth.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	client, err := h.Registry.Open(ctx, raw)
	if err != nil {
		return fail(c, err)
	}
	snap := client.Session.Snapshot()
	h.Log.Info("signed in", zap.String("identity_id", raw.IdentityID), zap.Stringer("status", snap.Status))
	return c.JSON(http.StatusOK, sessionResp{Session: raw, Status: snap.Status.String(), Profile: snap.Profile})
}

// Refresh rotates a refresh token and reinstalls the client with the new
// session.  No access token is needed.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	raw, err := h.Auth.RefreshSession(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return fail(c, err)
	}
	client, err := h.Registry.Open(ctx, raw)
	if err != nil {
		return fail(c, err)
	}
	snap := client.Session.Snapshot()
	h.Log.Info("session refreshed", zap.String("identity_id", raw.IdentityID), zap.Stringer("status", snap.Status))
	return c.JSON(http.StatusOK, sessionResp{Session: raw, Status: snap.Status.String(), Profile: snap.Profile})
}

// Logout revokes the caller's session.  A refresh token passed in the body
// is revoked too, which covers clients rebuilt from an access token alone.
func (h *AuthHandler) Logout(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "auth"})
	}
	var req logoutReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var err error
	if _, live := h.Registry.Get(id.ID); live {
		err = h.Registry.SignOut(ctx, id.ID)
	}
	if tok := strings.TrimSpace(req.RefreshToken); tok != "" {
		err = multierr.Append(err, h.Auth.SignOut(ctx, tok))
	}
	if err != nil {
		h.Log.Warn("remote sign-out failed", zap.String("identity_id", id.ID), zap.Error(err))
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
