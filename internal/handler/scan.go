package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meit-app/meit/internal/scanner"
)

type scanReq struct {
	Code string `json:"code"`
}

type resolveReq struct {
	Confirm bool `json:"confirm"`
}

// Scan feeds one decoded QR string to the caller's scanner, turning the
// camera on first when it is off.  Frames arriving while a previous match
// is unresolved answer 409.
func (h *ClientHandler) Scan(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	var req scanReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	sc, err := cl.Scanner()
	if err != nil {
		return fail(c, err)
	}
	sc.Start()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 15*time.Second)
	defer cancel()
	out := sc.Frame(ctx, req.Code)
	return c.JSON(scanStatus(out), out)
}

// ResolveScan answers the pending confirmation prompt.
func (h *ClientHandler) ResolveScan(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	var req resolveReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	sc, err := cl.Scanner()
	if err != nil {
		return fail(c, err)
	}
	out := sc.Resolve(req.Confirm)
	return c.JSON(scanStatus(out), out)
}

// StopScan turns the camera off.
func (h *ClientHandler) StopScan(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	sc, err := cl.Scanner()
	if err != nil {
		return fail(c, err)
	}
	sc.Stop()
	return c.NoContent(http.StatusNoContent)
}

func scanStatus(out scanner.Outcome) int {
	switch {
	case out.Suppressed, errors.Is(out.Err, scanner.ErrNothingPending):
		return http.StatusConflict
	case out.Err != nil:
		return statusOf(out.Err)
	}
	return http.StatusOK
}
