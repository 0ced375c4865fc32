package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/app"
	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/middleware"
	"github.com/meit-app/meit/internal/model"
	"github.com/meit-app/meit/internal/store"
)

// ClientHandler serves the per-identity endpoints.  Every request resolves
// the caller's client from the registry, reopening it from the access
// token when it was evicted.
type ClientHandler struct {
	Registry *app.Registry
	Log      *zap.Logger
	Now      func() time.Time
}

func NewClientHandler(reg *app.Registry, log *zap.Logger) *ClientHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ClientHandler{Registry: reg, Log: log, Now: time.Now}
}

type listResp[T any] struct {
	Items       []T    `json:"items"`
	IsLoading   bool   `json:"is_loading"`
	Initialized bool   `json:"initialized"`
	Error       string `json:"error,omitempty"`
}

// listOf renders items with the status of the cache they came from.
func listOf[S, T any](st store.State[S], items []T) listResp[T] {
	if items == nil {
		items = []T{}
	}
	return listResp[T]{
		Items:       items,
		IsLoading:   st.IsLoading,
		Initialized: st.Initialized,
		Error:       gateway.KindOf(st.Err),
	}
}

func (h *ClientHandler) client(c echo.Context) (*app.Client, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil, gateway.ErrAuth
	}
	if cl, ok := h.Registry.Get(id.ID); ok {
		return cl, nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	return h.Registry.Open(ctx, model.RawSession{
		IdentityID:  id.ID,
		Email:       id.Email,
		AccessToken: id.AccessToken,
	})
}

// customer resolves the client and its customer id.  It writes the error
// response itself; a nil client means the caller should return.
func (h *ClientHandler) customer(c echo.Context) (*app.Client, string, error) {
	cl, err := h.client(c)
	if err != nil {
		return nil, "", fail(c, err)
	}
	id, err := cl.CustomerID()
	if err != nil {
		return nil, "", c.JSON(http.StatusForbidden, echo.Map{"error": "profile_pending", "message": "complete your profile first"})
	}
	return cl, id, nil
}

type meResp struct {
	IdentityID string          `json:"identity_id"`
	Email      string          `json:"email"`
	Status     string          `json:"status"`
	IsLoading  bool            `json:"is_loading"`
	Profile    *model.Customer `json:"profile,omitempty"`
}

// Me returns the session state of the caller.
func (h *ClientHandler) Me(c echo.Context) error {
	cl, err := h.client(c)
	if err != nil {
		return fail(c, err)
	}
	snap := cl.Session.Snapshot()
	resp := meResp{IdentityID: cl.IdentityID, Status: snap.Status.String(), IsLoading: snap.IsLoading, Profile: snap.Profile}
	if snap.Identity != nil {
		resp.Email = snap.Identity.Email
	}
	return c.JSON(http.StatusOK, resp)
}

// CompleteProfile creates the caller's customer profile.
func (h *ClientHandler) CompleteProfile(c echo.Context) error {
	cl, err := h.client(c)
	if err != nil {
		return fail(c, err)
	}
	var in model.ProfileInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()
	cust, err := cl.Session.CompleteProfile(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, cust)
}

// Refresh reloads the profile and every cache.  Failed caches are listed
// by name; the rest of the refresh still applies.
func (h *ClientHandler) Refresh(c echo.Context) error {
	cl, id, err := h.customer(c)
	if cl == nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	failed := echo.Map{}
	if err := cl.Session.RefreshProfile(ctx); err != nil {
		failed["profile"] = gateway.KindOf(err)
	}
	for name, err := range cl.Caches.RefreshAll(ctx, id) {
		failed[name] = gateway.KindOf(err)
	}
	status := http.StatusOK
	if len(failed) > 0 {
		status = http.StatusMultiStatus
	}
	return c.JSON(status, echo.Map{"failed": failed})
}

func parseID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
