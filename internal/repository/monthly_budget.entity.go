package repository

import (
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/shopspring/decimal"
)

type MonthlyBudgetEntity struct {
	ID        int64           `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Month     int             `db:"month"      gorm:"column:month;not null"`
	Year      int             `db:"year"       gorm:"column:year;not null"`
	Budget    decimal.Decimal `db:"budget"     gorm:"column:budget;type:real;not null"`
	Status    string          `db:"status"     gorm:"column:status;not null;default:Y"`
	CreatedAt time.Time       `db:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `db:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (MonthlyBudgetEntity) TableName() string {
	return "monthly_budget"
}

func toMonthlyBudgetModel(e *MonthlyBudgetEntity) *model.MonthlyBudget {
	if e == nil {
		return nil
	}
	return &model.MonthlyBudget{
		ID:        e.ID,
		Month:     e.Month,
		Year:      e.Year,
		Budget:    e.Budget,
		Status:    model.RecordStatus(e.Status),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func toMonthlyBudgetModels(entities []*MonthlyBudgetEntity) []*model.MonthlyBudget {
	models := make([]*model.MonthlyBudget, len(entities))
	for i, e := range entities {
		models[i] = toMonthlyBudgetModel(e)
	}
	return models
}
