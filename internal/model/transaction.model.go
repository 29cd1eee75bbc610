package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return TransactionIncome, nil
	case "expense":
		return TransactionExpense, nil
	case "":
		return "", NewValidationError("type", "is required")
	}
	return "", NewValidationError("type", "must be income or expense")
}

func (t TransactionType) CategoryType() CategoryType {
	if t == TransactionIncome {
		return CategoryIncome
	}
	return CategoryExpense
}

type Transaction struct {
	ID            int64           `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TransactionType `json:"type"`
	Category      string          `json:"category"`
	CategoryImage *string         `json:"category_image,omitempty"`
	Description   string          `json:"description"`
	Status        RecordStatus    `json:"status"`
	Date          time.Time       `json:"date"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type TransactionCreateRequest struct {
	Type        string `json:"type"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

func (p TransactionCreateRequest) Validate() error {
	if _, err := ParseTransactionType(p.Type); err != nil {
		return err
	}
	if strings.TrimSpace(p.Category) == "" {
		return NewValidationError("category", "is required")
	}
	if _, err := ParsePositiveAmount("amount", p.Amount); err != nil {
		return err
	}
	if _, err := ParseDate("date", p.Date); err != nil {
		return err
	}
	return nil
}

type TransactionUpdateRequest struct {
	Type        *string `json:"type,omitempty"`
	Category    *string `json:"category,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	Date        *string `json:"date,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (p TransactionUpdateRequest) Validate() error {
	if p.Type != nil {
		if _, err := ParseTransactionType(*p.Type); err != nil {
			return err
		}
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return NewValidationError("category", "is required")
	}
	if p.Amount != nil {
		if _, err := ParsePositiveAmount("amount", *p.Amount); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if _, err := ParseDate("date", *p.Date); err != nil {
			return err
		}
	}
	return nil
}

func (p TransactionUpdateRequest) Empty() bool {
	return p.Type == nil && p.Category == nil && p.Amount == nil && p.Date == nil && p.Description == nil
}
