package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type MonthlyBudget struct {
	ID        int64           `json:"id"`
	Month     int             `json:"month"`
	Year      int             `json:"year"`
	Budget    decimal.Decimal `json:"budget"`
	Status    RecordStatus    `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type MonthlyBudgetRequest struct {
	Month  int    `json:"month"`
	Year   int    `json:"year"`
	Amount string `json:"amount"`
}

func (p MonthlyBudgetRequest) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return NewValidationError("month", "must be between 1 and 12")
	}
	if p.Year < 1 {
		return NewValidationError("year", "is required")
	}
	if _, err := ParseAmount("amount", p.Amount); err != nil {
		return err
	}
	return nil
}

// BudgetStatus compares a monthly budget with the expenses recorded in its month.
type BudgetStatus struct {
	Month     int             `json:"month"`
	Year      int             `json:"year"`
	Budget    decimal.Decimal `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Exceeded  bool            `json:"exceeded"`
}
