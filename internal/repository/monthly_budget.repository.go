package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/pkg/db"
	"gorm.io/gorm"
)

type MonthlyBudgetRepository struct {
	*db.DB
}

func NewMonthlyBudgetRepository(db *db.DB) *MonthlyBudgetRepository {
	return &MonthlyBudgetRepository{
		db,
	}
}

func (r *MonthlyBudgetRepository) Create(ctx context.Context, b *model.MonthlyBudget) (*model.MonthlyBudget, error) {
	entity := &MonthlyBudgetEntity{
		Month:  b.Month,
		Year:   b.Year,
		Budget: b.Budget,
		Status: string(model.StatusActive),
	}
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toMonthlyBudgetModel(entity), nil
}

func (r *MonthlyBudgetRepository) Get(ctx context.Context, month, year int) (*model.MonthlyBudget, error) {
	var entity MonthlyBudgetEntity
	err := r.Read(ctx).
		Where("month = ? AND year = ?", month, year).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrMonthlyBudgetNotFound
		}
		return nil, err
	}
	return toMonthlyBudgetModel(&entity), nil
}

func (r *MonthlyBudgetRepository) Exists(ctx context.Context, month, year int) (bool, error) {
	var count int64
	err := r.Read(ctx).
		Model(&MonthlyBudgetEntity{}).
		Where("month = ? AND year = ?", month, year).
		Count(&count).Error
	return count > 0, err
}

// List returns budgets latest period first.
func (r *MonthlyBudgetRepository) List(ctx context.Context) ([]*model.MonthlyBudget, error) {
	var entities []*MonthlyBudgetEntity
	if err := r.Read(ctx).Order("year DESC, month DESC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toMonthlyBudgetModels(entities), nil
}
