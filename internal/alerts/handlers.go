package alerts

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/skillflow/internal/db"
)

// Inbox is the read side of the notification store.
type Inbox interface {
	List(ctx context.Context, account string) ([]db.Notification, error)
	MarkRead(ctx context.Context, id, account string) (bool, error)
}

type Handler struct {
	inbox Inbox
}

func NewHandler(inbox Inbox) *Handler { return &Handler{inbox: inbox} }

// ListNotifications returns the caller's notifications, newest first.
func (h *Handler) ListNotifications(c echo.Context) error {
	account, ok := c.Get("user_id").(string)
	if !ok || account == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.inbox.List(c.Request().Context(), account)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load notifications"})
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// MarkNotificationRead marks one of the caller's notifications read.
func (h *Handler) MarkNotificationRead(c echo.Context) error {
	account, ok := c.Get("user_id").(string)
	if !ok || account == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing notification id"})
	}
	updated, err := h.inbox.MarkRead(c.Request().Context(), id, account)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update"})
	}
	if !updated {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found or already read"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
