package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meit-app/meit/internal/model"
)

// ListMerchants returns the cached merchants; ?favorites=true narrows to
// favorites.
func (h *ClientHandler) ListMerchants(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	m := cl.Caches.Merchants
	st := m.Snapshot()
	items := st.Items
	if c.QueryParam("favorites") == "true" {
		items = m.Favorites()
	}
	return c.JSON(http.StatusOK, listOf(st, items))
}

func (h *ClientHandler) GetMerchant(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	m, ok := cl.Caches.Merchants.GetByID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}
	return c.JSON(http.StatusOK, m)
}

type toggleResp struct {
	Merchant model.Merchant `json:"merchant"`
	Phase    string         `json:"phase"`
	Error    string         `json:"error,omitempty"`
}

// ToggleFavorite flips the favorite flag of a relation.  A rejected update
// is reported with the reverted merchant and the gateway status.
func (h *ClientHandler) ToggleFavorite(c echo.Context) error {
	cl, id, err := h.customer(c)
	if cl == nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	t, err := cl.Caches.Merchants.ToggleFavorite(ctx, id, c.Param("id"))
	if err != nil && t.RelationID == "" {
		return fail(c, err)
	}
	m, _ := cl.Caches.Merchants.GetByID(t.RelationID)
	resp := toggleResp{Merchant: m, Phase: t.Phase.String()}
	if err != nil {
		resp.Error = err.Error()
		return c.JSON(statusOf(err), resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// Register joins the caller to a location.
func (h *ClientHandler) Register(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	loc, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid location id")
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 15*time.Second)
	defer cancel()
	res, err := cl.Register(ctx, loc)
	if err != nil {
		return fail(c, err)
	}
	status := http.StatusOK
	if res.IsNew {
		status = http.StatusCreated
	}
	return c.JSON(status, res)
}
