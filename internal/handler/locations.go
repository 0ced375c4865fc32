package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meit-app/meit/internal/gateway"
)

// PublicHandler serves unauthenticated lookups.
type PublicHandler struct {
	Merchants gateway.Merchants
}

// GetLocation returns a location's public card, as shown before
// registering.
func (h *PublicHandler) GetLocation(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid location id")
	}
	loc, err := h.Merchants.GetMerchantLocation(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, loc)
}
