package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var amountPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// ParseAmount accepts a non-negative decimal with at most two fraction digits.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, NewValidationError(field, "is required")
	}
	if !amountPattern.MatchString(s) {
		return decimal.Zero, NewValidationError(field, "must be a number with at most two decimals")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError(field, "must be a number with at most two decimals")
	}
	return d, nil
}

// ParsePositiveAmount is ParseAmount rejecting zero.
func ParsePositiveAmount(field, s string) (decimal.Decimal, error) {
	d, err := ParseAmount(field, s)
	if err != nil {
		return d, err
	}
	if !d.IsPositive() {
		return decimal.Zero, NewValidationError(field, "must be greater than zero")
	}
	return d, nil
}

const DateLayout = "2006-01-02"

// ParseDate accepts a calendar date or an RFC 3339 timestamp and returns it in UTC.
func ParseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, NewValidationError(field, "is required")
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, NewValidationError(field, "must be YYYY-MM-DD or RFC 3339")
	}
	return NormalizeTime(t), nil
}

// NormalizeTime is the form every timestamp is persisted in.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// MonthRange returns the half-open range [first of month, first of next month) in UTC.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
