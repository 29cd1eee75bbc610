package repository

import (
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/shopspring/decimal"
)

type CategoryEntity struct {
	ID          int64     `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Name        string    `db:"name"        gorm:"column:name;not null"`
	Type        string    `db:"type"        gorm:"column:type;not null"`
	Budget      *string   `db:"budget"      gorm:"column:budget"`
	Description string    `db:"description" gorm:"column:description"`
	Image       *string   `db:"image"       gorm:"column:image"`
	Status      string    `db:"status"      gorm:"column:status;not null;default:Y"`
	CreatedAt   time.Time `db:"created_at"  gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `db:"updated_at"  gorm:"column:updated_at;autoUpdateTime"`
}

func (CategoryEntity) TableName() string {
	return "categories"
}

func toCategoryEntity(m *model.Category) *CategoryEntity {
	if m == nil {
		return nil
	}
	e := &CategoryEntity{
		ID:          m.ID,
		Name:        m.Name,
		Type:        string(m.Type),
		Description: m.Description,
		Image:       m.Image,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if e.Status == "" {
		e.Status = string(model.StatusActive)
	}
	if m.Budget != nil {
		b := m.Budget.StringFixed(2)
		e.Budget = &b
	}
	return e
}

func toCategoryModel(e *CategoryEntity) *model.Category {
	if e == nil {
		return nil
	}
	m := &model.Category{
		ID:          e.ID,
		Name:        e.Name,
		Type:        model.CategoryType(e.Type),
		Description: e.Description,
		Image:       e.Image,
		Status:      model.RecordStatus(e.Status),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	// rows imported from older exports may carry a non numeric budget
	if e.Budget != nil {
		if b, err := decimal.NewFromString(*e.Budget); err == nil {
			m.Budget = &b
		}
	}
	return m
}

func toCategoryModels(entities []*CategoryEntity) []*model.Category {
	if entities == nil {
		return nil
	}
	models := make([]*model.Category, len(entities))
	for i, e := range entities {
		models[i] = toCategoryModel(e)
	}
	return models
}
