package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OpeningBalance struct {
	ID        int64           `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Status    BalanceStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Adjustment is the audit row written alongside every opening balance.
type Adjustment struct {
	ID        int64           `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Status    BalanceStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type OpeningBalanceRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

func (p OpeningBalanceRequest) Validate() error {
	if _, err := ParseAmount("amount", p.Amount); err != nil {
		return err
	}
	if _, err := ParseDate("date", p.Date); err != nil {
		return err
	}
	return nil
}
