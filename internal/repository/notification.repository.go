package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	*db.DB
}

func NewNotificationRepository(db *db.DB) *NotificationRepository {
	return &NotificationRepository{
		db,
	}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	entity := toNotificationEntity(n)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toNotificationModel(entity), nil
}

// List returns notifications newest first. limit <= 0 means no limit.
func (r *NotificationRepository) List(ctx context.Context, limit int) ([]*model.Notification, error) {
	var entities []*NotificationEntity
	q := r.Read(ctx).Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entities).Error; err != nil {
		return nil, err
	}
	return toNotificationModels(entities), nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) error {
	result := r.Write(ctx).
		Model(&NotificationEntity{}).
		Where("id = ?", id).
		Update("read_status", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context) (int64, error) {
	result := r.Write(ctx).
		Model(&NotificationEntity{}).
		Where("read_status = ?", false).
		Update("read_status", true)
	return result.RowsAffected, result.Error
}

func (r *NotificationRepository) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := r.Read(ctx).
		Model(&NotificationEntity{}).
		Where("read_status = ?", false).
		Count(&count).Error
	return count, err
}

type SettingRepository struct {
	*db.DB
}

func NewSettingRepository(db *db.DB) *SettingRepository {
	return &SettingRepository{
		db,
	}
}

func (r *SettingRepository) Get(ctx context.Context, name string) (string, error) {
	var entity SettingEntity
	err := r.Read(ctx).Where("setting_name = ?", name).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", model.ErrSettingNotFound
		}
		return "", err
	}
	return entity.Value, nil
}

func (r *SettingRepository) Set(ctx context.Context, name, value string) error {
	return r.Write(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"setting_value"}),
		}).
		Create(&SettingEntity{Name: name, Value: value}).Error
}
