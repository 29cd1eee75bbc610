package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CategoryRepository struct {
	*db.DB
}

func NewCategoryRepository(db *db.DB) *CategoryRepository {
	return &CategoryRepository{
		db,
	}
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) (*model.Category, error) {
	entity := toCategoryEntity(c)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toCategoryModel(entity), nil
}

// Get returns the category with id regardless of its status.
func (r *CategoryRepository) Get(ctx context.Context, id int64) (*model.Category, error) {
	var entity CategoryEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrCategoryNotFound
		}
		return nil, err
	}
	return toCategoryModel(&entity), nil
}

// Update overwrites every mutable column of the active category c.ID.
func (r *CategoryRepository) Update(ctx context.Context, c *model.Category) error {
	entity := toCategoryEntity(c)
	result := r.Write(ctx).
		Model(&CategoryEntity{}).
		Where("id = ? AND status = ?", c.ID, model.StatusActive).
		Select("name", "type", "budget", "description", "image", "updated_at").
		Updates(entity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) SetStatus(ctx context.Context, id int64, status model.RecordStatus) error {
	result := r.Write(ctx).
		Model(&CategoryEntity{}).
		Where("id = ?", id).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrCategoryNotFound
	}
	return nil
}

// activeOfType returns the active categories of typ, newest first. Names are
// matched in Go because SQLite's LOWER folds ASCII only.
func (r *CategoryRepository) activeOfType(ctx context.Context, typ model.CategoryType) ([]*CategoryEntity, error) {
	var entities []*CategoryEntity
	err := r.Read(ctx).
		Where("type = ? AND status = ?", string(typ), model.StatusActive).
		Order("id DESC").
		Find(&entities).Error
	return entities, err
}

// FindActive looks up an active category by name, ignoring case, and exact type.
func (r *CategoryRepository) FindActive(ctx context.Context, name string, typ model.CategoryType) (*model.Category, error) {
	entities, err := r.activeOfType(ctx, typ)
	if err != nil {
		return nil, err
	}
	key := model.NameKey(name)
	for _, e := range entities {
		if model.NameKey(e.Name) == key {
			return toCategoryModel(e), nil
		}
	}
	return nil, model.ErrCategoryNotFound
}

// ExistsActive reports whether another active category (id != excludeID) uses name and typ.
func (r *CategoryRepository) ExistsActive(ctx context.Context, name string, typ model.CategoryType, excludeID int64) (bool, error) {
	entities, err := r.activeOfType(ctx, typ)
	if err != nil {
		return false, err
	}
	key := model.NameKey(name)
	for _, e := range entities {
		if e.ID != excludeID && model.NameKey(e.Name) == key {
			return true, nil
		}
	}
	return false, nil
}

// ListActive returns active categories newest first, optionally of one type.
func (r *CategoryRepository) ListActive(ctx context.Context, typ *model.CategoryType) ([]*model.Category, error) {
	var entities []*CategoryEntity
	q := r.Read(ctx).Where("status = ?", model.StatusActive)
	if typ != nil {
		q = q.Where("type = ?", string(*typ))
	}
	if err := q.Order("id DESC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toCategoryModels(entities), nil
}

// ListAll returns every category, deleted ones included, oldest first.
func (r *CategoryRepository) ListAll(ctx context.Context) ([]*model.Category, error) {
	var entities []*CategoryEntity
	if err := r.Read(ctx).Order("id ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toCategoryModels(entities), nil
}

// InsertIgnore inserts the categories keeping their ids. Rows whose id already
// exists are left untouched. It returns the number of inserted rows.
func (r *CategoryRepository) InsertIgnore(ctx context.Context, categories []*model.Category) (int64, error) {
	if len(categories) == 0 {
		return 0, nil
	}
	entities := make([]*CategoryEntity, len(categories))
	for i, c := range categories {
		entities[i] = toCategoryEntity(c)
	}
	result := r.Write(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		CreateInBatches(&entities, insertBatchSize)
	if result.Error != nil {
		return 0, result.Error
	}
	if err := resyncSequence(ctx, r.DB, CategoryEntity{}.TableName()); err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}
