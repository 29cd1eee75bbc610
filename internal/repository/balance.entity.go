package repository

import (
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/shopspring/decimal"
)

type OpeningBalanceEntity struct {
	ID        int64           `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Amount    decimal.Decimal `db:"amount"     gorm:"column:amount;type:real;not null"`
	Date      time.Time       `db:"date"       gorm:"column:date;not null"`
	Status    string          `db:"status"     gorm:"column:status;not null;default:OB"`
	CreatedAt time.Time       `db:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `db:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (OpeningBalanceEntity) TableName() string {
	return "opening_balance"
}

type AdjustmentEntity struct {
	ID        int64           `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Amount    decimal.Decimal `db:"amount"     gorm:"column:amount;type:real;not null"`
	Date      time.Time       `db:"date"       gorm:"column:date;not null"`
	Status    string          `db:"status"     gorm:"column:status;not null;default:OB"`
	CreatedAt time.Time       `db:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `db:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (AdjustmentEntity) TableName() string {
	return "adjustments"
}

func toOpeningBalanceModel(e *OpeningBalanceEntity) *model.OpeningBalance {
	if e == nil {
		return nil
	}
	return &model.OpeningBalance{
		ID:        e.ID,
		Amount:    e.Amount,
		Date:      e.Date.UTC(),
		Status:    model.BalanceStatus(e.Status),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func toOpeningBalanceModels(entities []*OpeningBalanceEntity) []*model.OpeningBalance {
	models := make([]*model.OpeningBalance, len(entities))
	for i, e := range entities {
		models[i] = toOpeningBalanceModel(e)
	}
	return models
}

func toAdjustmentModel(e *AdjustmentEntity) *model.Adjustment {
	if e == nil {
		return nil
	}
	return &model.Adjustment{
		ID:        e.ID,
		Amount:    e.Amount,
		Date:      e.Date.UTC(),
		Status:    model.BalanceStatus(e.Status),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
