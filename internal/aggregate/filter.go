package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
)

var (
	ErrNoCategories = fmt.Errorf("%w: select at least one category", model.ErrValidation)
	ErrInvalidRange = fmt.Errorf("%w: start date is after end date", model.ErrValidation)
	ErrEmptyReport  = fmt.Errorf("%w: no transactions match the report filter", model.ErrPrecondition)
)

// ReportFilter scopes a printable report. Type is "all", "income" or
// "expense"; empty means all. Dates are inclusive at day granularity.
type ReportFilter struct {
	Type       string     `json:"type"`
	Categories []string   `json:"categories"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

func (f ReportFilter) Validate() error {
	if len(f.Categories) == 0 {
		return ErrNoCategories
	}
	switch strings.ToLower(f.Type) {
	case "", "all", string(model.TransactionIncome), string(model.TransactionExpense):
	default:
		return model.NewValidationError("type", "must be all, income or expense")
	}
	if f.StartDate != nil && f.EndDate != nil && dayOf(*f.StartDate).After(dayOf(*f.EndDate)) {
		return ErrInvalidRange
	}
	return nil
}

// Filter keeps the transactions matching every criterion of f, preserving order.
func Filter(txs []model.Transaction, f ReportFilter) ([]model.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	typ := strings.ToLower(f.Type)
	categories := make(map[string]struct{}, len(f.Categories))
	for _, c := range f.Categories {
		categories[c] = struct{}{}
	}

	var out []model.Transaction
	for _, t := range txs {
		if typ != "" && typ != "all" && string(t.Type) != typ {
			continue
		}
		if _, ok := categories[t.Category]; !ok {
			continue
		}
		day := dayOf(t.Date)
		if f.StartDate != nil && day.Before(dayOf(*f.StartDate)) {
			continue
		}
		if f.EndDate != nil && day.After(dayOf(*f.EndDate)) {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, ErrEmptyReport
	}
	return out, nil
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
