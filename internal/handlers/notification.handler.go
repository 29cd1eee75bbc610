package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/xpensemate/internal/model"
	xhttp "github.com/nimasrn/xpensemate/pkg/http"
)

type NotificationService interface {
	List(ctx context.Context) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) (int64, error)
	UnreadCount(ctx context.Context) (int64, error)
}

type SettingsService interface {
	NotificationsEnabled(ctx context.Context) (bool, error)
	SetNotificationsEnabled(ctx context.Context, enabled bool) error
}

type NotificationHandler struct {
	notifications NotificationService
	settings      SettingsService
}

func RegisterNotificationRoutes(e *router.Group, h *NotificationHandler) {
	e.GET("/notifications", h.ListNotifications)
	e.POST("/notifications/read-all", h.MarkAllRead)
	e.POST("/notifications/{id}/read", h.MarkRead)
	e.GET("/settings/notifications", h.GetNotificationSetting)
	e.PUT("/settings/notifications", h.SetNotificationSetting)
}

func NewNotificationHandler(notifications NotificationService, settings SettingsService) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		settings:      settings,
	}
}

type notificationList struct {
	listResponse[*model.Notification]
	Unread int64 `json:"unread"`
}

type notificationSetting struct {
	Enabled *bool `json:"enabled"`
}

func (h *NotificationHandler) ListNotifications(ctx *xhttp.RequestCtx) {
	list, err := h.notifications.List(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	unread, err := h.notifications.UnreadCount(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, notificationList{listResponse: newList(list), Unread: unread})
}

func (h *NotificationHandler) MarkRead(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		fail(ctx, err)
		return
	}
	if err := h.notifications.MarkRead(ctx, id); err != nil {
		fail(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(ctx *xhttp.RequestCtx) {
	n, err := h.notifications.MarkAllRead(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]int64{"updated": n})
}

func (h *NotificationHandler) GetNotificationSetting(ctx *xhttp.RequestCtx) {
	enabled, err := h.settings.NotificationsEnabled(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, notificationSetting{Enabled: &enabled})
}

func (h *NotificationHandler) SetNotificationSetting(ctx *xhttp.RequestCtx) {
	var req notificationSetting
	if err := readJSON(ctx, &req); err != nil {
		fail(ctx, err)
		return
	}
	if req.Enabled == nil {
		fail(ctx, model.NewValidationError("enabled", "is required"))
		return
	}
	if err := h.settings.SetNotificationsEnabled(ctx, *req.Enabled); err != nil {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, req)
}
