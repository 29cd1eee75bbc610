package repository

import (
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
)

type NotificationEntity struct {
	ID         int64     `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Title      string    `db:"title"       gorm:"column:title;not null"`
	Message    string    `db:"message"     gorm:"column:message;not null"`
	Timestamp  time.Time `db:"timestamp"   gorm:"column:timestamp;not null"`
	ReadStatus bool      `db:"read_status" gorm:"column:read_status;not null;default:false"`
	CategoryID *int64    `db:"category_id" gorm:"column:category_id"`
}

func (NotificationEntity) TableName() string {
	return "notifications"
}

type SettingEntity struct {
	Name  string `db:"setting_name"  gorm:"primaryKey;column:setting_name"`
	Value string `db:"setting_value" gorm:"column:setting_value;not null"`
}

func (SettingEntity) TableName() string {
	return "settings"
}

func toNotificationEntity(m *model.Notification) *NotificationEntity {
	if m == nil {
		return nil
	}
	return &NotificationEntity{
		ID:         m.ID,
		Title:      m.Title,
		Message:    m.Message,
		Timestamp:  model.NormalizeTime(m.Timestamp),
		ReadStatus: m.ReadStatus,
		CategoryID: m.CategoryID,
	}
}

func toNotificationModel(e *NotificationEntity) *model.Notification {
	if e == nil {
		return nil
	}
	return &model.Notification{
		ID:         e.ID,
		Title:      e.Title,
		Message:    e.Message,
		Timestamp:  e.Timestamp.UTC(),
		ReadStatus: e.ReadStatus,
		CategoryID: e.CategoryID,
	}
}

func toNotificationModels(entities []*NotificationEntity) []*model.Notification {
	models := make([]*model.Notification, len(entities))
	for i, e := range entities {
		models[i] = toNotificationModel(e)
	}
	return models
}
