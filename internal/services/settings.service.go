package services

import (
	"context"
	"strconv"

	"github.com/nimasrn/xpensemate/internal/model"
)

type SettingsService struct {
	settings SettingRepository
}

func NewSettingsService(settings SettingRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// NotificationsEnabled reads the process wide alert toggle. A missing setting
// is reported as model.ErrSettingNotFound.
func (s *SettingsService) NotificationsEnabled(ctx context.Context) (bool, error) {
	raw, err := s.settings.Get(ctx, model.SettingNotificationsEnabled)
	if err != nil {
		return false, fail("read notifications setting", err)
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, model.NewValidationError(model.SettingNotificationsEnabled, "is not a boolean")
	}
	return enabled, nil
}

func (s *SettingsService) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	if err := s.settings.Set(ctx, model.SettingNotificationsEnabled, strconv.FormatBool(enabled)); err != nil {
		return fail("write notifications setting", err)
	}
	return nil
}

type NotificationService struct {
	notifications NotificationRepository
}

func NewNotificationService(notifications NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List returns notifications newest first.
func (s *NotificationService) List(ctx context.Context) ([]*model.Notification, error) {
	list, err := s.notifications.List(ctx, 0)
	if err != nil {
		return nil, fail("list notifications", err)
	}
	return list, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id int64) error {
	if err := s.notifications.MarkRead(ctx, id); err != nil {
		return fail("mark notification read", err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx)
	if err != nil {
		return 0, fail("mark notifications read", err)
	}
	return n, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context) (int64, error) {
	n, err := s.notifications.CountUnread(ctx)
	if err != nil {
		return 0, fail("count unread notifications", err)
	}
	return n, nil
}
