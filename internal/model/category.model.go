package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CategoryType string

const (
	CategoryIncome  CategoryType = "Income"
	CategoryExpense CategoryType = "Expense"
)

// ParseCategoryType is case-insensitive and returns the canonical spelling.
func ParseCategoryType(s string) (CategoryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return CategoryIncome, nil
	case "expense":
		return CategoryExpense, nil
	case "":
		return "", NewValidationError("type", "is required")
	}
	return "", NewValidationError("type", "must be Income or Expense")
}

// TransactionType is the matching transaction type for the category.
func (t CategoryType) TransactionType() TransactionType {
	if t == CategoryIncome {
		return TransactionIncome
	}
	return TransactionExpense
}

// NameKey is the form category names are compared in. Names that differ only
// in case, in any script, share a key.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type Category struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Type        CategoryType     `json:"type"`
	Budget      *decimal.Decimal `json:"budget,omitempty"`
	Description string           `json:"description,omitempty"`
	Image       *string          `json:"image,omitempty"`
	Status      RecordStatus     `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type CategoryCreateRequest struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Budget      *string `json:"budget,omitempty"`
	Description string  `json:"description,omitempty"`
	ImagePath   *string `json:"image,omitempty"`
}

func (p CategoryCreateRequest) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if _, err := ParseCategoryType(p.Type); err != nil {
		return err
	}
	if p.Budget != nil && strings.TrimSpace(*p.Budget) != "" {
		if _, err := ParseAmount("budget", *p.Budget); err != nil {
			return err
		}
	}
	return nil
}

// CategoryUpdateRequest carries only the fields to change. An empty Budget
// string clears the budget; an empty ImagePath removes the image.
type CategoryUpdateRequest struct {
	Type        *string `json:"type,omitempty"`
	Name        *string `json:"name,omitempty"`
	Budget      *string `json:"budget,omitempty"`
	Description *string `json:"description,omitempty"`
	ImagePath   *string `json:"image,omitempty"`
}

func (p CategoryUpdateRequest) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if p.Type != nil {
		if _, err := ParseCategoryType(*p.Type); err != nil {
			return err
		}
	}
	if p.Budget != nil && strings.TrimSpace(*p.Budget) != "" {
		if _, err := ParseAmount("budget", *p.Budget); err != nil {
			return err
		}
	}
	return nil
}

func (p CategoryUpdateRequest) Empty() bool {
	return p.Type == nil && p.Name == nil && p.Budget == nil && p.Description == nil && p.ImagePath == nil
}
