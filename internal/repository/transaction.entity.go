package repository

import (
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/shopspring/decimal"
)

type TransactionEntity struct {
	ID           int64           `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Amount       decimal.Decimal `db:"amount"        gorm:"column:amount;type:real;not null"`
	CategoryType string          `db:"category_type" gorm:"column:category_type;not null"`
	Category     string          `db:"category"      gorm:"column:category;not null"`
	Description  string          `db:"description"   gorm:"column:description"`
	Status       string          `db:"status"        gorm:"column:status;not null;default:Y"`
	Date         time.Time       `db:"date"          gorm:"column:date;not null"`
	CreatedAt    time.Time       `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `db:"updated_at"    gorm:"column:updated_at;autoUpdateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

// transactionRow is a transaction joined with its active category's image.
type transactionRow struct {
	TransactionEntity `gorm:"embedded"`
	CategoryImage     *string `gorm:"column:category_image"`
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	e := &TransactionEntity{
		ID:           m.ID,
		Amount:       m.Amount,
		CategoryType: string(m.Type),
		Category:     m.Category,
		Description:  m.Description,
		Status:       string(m.Status),
		Date:         model.NormalizeTime(m.Date),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if e.Status == "" {
		e.Status = string(model.StatusActive)
	}
	return e
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:          e.ID,
		Amount:      e.Amount,
		Type:        model.TransactionType(e.CategoryType),
		Category:    e.Category,
		Description: e.Description,
		Status:      model.RecordStatus(e.Status),
		Date:        e.Date.UTC(),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}

func rowsToTransactionModels(rows []*transactionRow) []*model.Transaction {
	models := make([]*model.Transaction, len(rows))
	for i, r := range rows {
		m := toTransactionModel(&r.TransactionEntity)
		m.CategoryImage = r.CategoryImage
		models[i] = m
	}
	return models
}
