package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meit-app/meit/internal/model"
)

type notificationsResp struct {
	listResp[model.Notification]
	Unread int `json:"unread"`
}

// ListNotifications returns the cached notifications.  Filter parameters
// (unread, type, limit) or reload=true reload the cache from the backend
// first.
func (h *ClientHandler) ListNotifications(c echo.Context) error {
	cl, id, err := h.customer(c)
	if cl == nil {
		return err
	}
	n := cl.Caches.Notifications

	q := c.QueryParams()
	if q.Has("unread") || q.Has("type") || q.Has("limit") || q.Get("reload") == "true" {
		f := model.NotificationFilter{UnreadOnly: q.Get("unread") == "true"}
		if s := q.Get("type"); s != "" {
			t, err := model.ParseNotificationType(s)
			if err != nil {
				return badRequest(c, err.Error())
			}
			f.Type = t
		}
		if s := q.Get("limit"); s != "" {
			limit, err := strconv.Atoi(s)
			if err != nil || limit < 1 {
				return badRequest(c, "invalid limit")
			}
			f.Limit = limit
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
		defer cancel()
		// a failed load keeps the previous items and surfaces in the error field
		_ = n.Load(ctx, id, f)
	}

	st := n.Snapshot()
	return c.JSON(http.StatusOK, notificationsResp{listResp: listOf(st, st.Items), Unread: n.UnreadCount()})
}

func (h *ClientHandler) MarkNotificationRead(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	if err := cl.Caches.Notifications.MarkRead(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ClientHandler) MarkAllNotificationsRead(c echo.Context) error {
	cl, id, err := h.customer(c)
	if cl == nil {
		return err
	}
	if err := cl.Caches.Notifications.MarkAllRead(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ClientHandler) DeleteNotification(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	if err := cl.Caches.Notifications.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
