package model

import "time"

type Notification struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	ReadStatus bool      `json:"read_status"`
	CategoryID *int64    `json:"category_id,omitempty"`
}

const SettingNotificationsEnabled = "notifications_enabled"

type Setting struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

const AlertTitleBudgetExceeded = "Budget Exceeded"

// AlertEvent is the queued form of a stored notification.
type AlertEvent struct {
	NotificationID int64     `json:"notification_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	CategoryID     *int64    `json:"category_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewAlertEvent(n *Notification) AlertEvent {
	return AlertEvent{
		NotificationID: n.ID,
		Title:          n.Title,
		Message:        n.Message,
		CategoryID:     n.CategoryID,
		CreatedAt:      n.Timestamp,
	}
}
