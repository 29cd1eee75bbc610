package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/shopspring/decimal"
)

type Granularity string

const (
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Week, Month, Year:
		return g, nil
	}
	return "", model.NewValidationError("granularity", "must be week, month or year")
}

type Bucket struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// BucketByPeriod spreads the expenses of the period containing now over
// fixed buckets: days Sun..Sat of the current week, weeks 1..4 of the current
// month (days 22 and later fall in week 4), or months of the current year.
// Transactions are compared in now's location.
func BucketByPeriod(txs []model.Transaction, g Granularity, now time.Time) []Bucket {
	var buckets []Bucket
	var slot func(time.Time) int

	switch g {
	case Week:
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		start := day.AddDate(0, 0, -int(day.Weekday()))
		end := start.AddDate(0, 0, 7)
		for i := 0; i < 7; i++ {
			buckets = append(buckets, Bucket{Label: time.Weekday(i).String()[:3]})
		}
		slot = func(d time.Time) int {
			if d.Before(start) || !d.Before(end) {
				return -1
			}
			return int(d.Weekday())
		}
	case Month:
		for i := 1; i <= 4; i++ {
			buckets = append(buckets, Bucket{Label: fmt.Sprintf("Week %d", i)})
		}
		slot = func(d time.Time) int {
			if d.Year() != now.Year() || d.Month() != now.Month() {
				return -1
			}
			return min((d.Day()-1)/7, 3)
		}
	case Year:
		for m := time.January; m <= time.December; m++ {
			buckets = append(buckets, Bucket{Label: m.String()[:3]})
		}
		slot = func(d time.Time) int {
			if d.Year() != now.Year() {
				return -1
			}
			return int(d.Month()) - 1
		}
	default:
		return nil
	}

	for i := range buckets {
		buckets[i].Amount = decimal.Zero
	}
	for _, t := range txs {
		if t.Type != model.TransactionExpense {
			continue
		}
		if i := slot(t.Date.In(now.Location())); i >= 0 {
			buckets[i].Amount = buckets[i].Amount.Add(t.Amount)
		}
	}
	return buckets
}
