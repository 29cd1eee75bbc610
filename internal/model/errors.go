package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the ledger matches exactly one of them
// under errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrDuplicate    = errors.New("already exists")
	ErrPrecondition = errors.New("precondition failed")
	ErrNotFound     = errors.New("not found")
	ErrStorage      = errors.New("storage failure")
)

var (
	ErrDuplicateCategory    = fmt.Errorf("%w: an active category with this name and type", ErrDuplicate)
	ErrOpeningBalanceExists = fmt.Errorf("%w: an opening balance is already set", ErrDuplicate)
	ErrMonthlyBudgetExists  = fmt.Errorf("%w: a budget for this month", ErrDuplicate)

	ErrBudgetRequired   = fmt.Errorf("%w: set a monthly budget for the current month before adding expenses", ErrPrecondition)
	ErrCategoryInUse    = fmt.Errorf("%w: category has active transactions", ErrPrecondition)
	ErrCategoryInactive = fmt.Errorf("%w: category does not exist or is not active", ErrPrecondition)

	ErrCategoryNotFound       = fmt.Errorf("category %w", ErrNotFound)
	ErrTransactionNotFound    = fmt.Errorf("transaction %w", ErrNotFound)
	ErrOpeningBalanceNotFound = fmt.Errorf("opening balance %w", ErrNotFound)
	ErrMonthlyBudgetNotFound  = fmt.Errorf("monthly budget %w", ErrNotFound)
	ErrNotificationNotFound   = fmt.Errorf("notification %w", ErrNotFound)
	ErrSettingNotFound        = fmt.Errorf("setting %w", ErrNotFound)
)

type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type storageError struct {
	op  string
	err error
}

// StorageError marks err as a failure of the underlying store while running op.
// Errors that already carry a ledger kind are returned unchanged.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrValidation, ErrDuplicate, ErrPrecondition, ErrNotFound, ErrStorage} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return &storageError{op: op, err: err}
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *storageError) Is(target error) bool {
	return target == ErrStorage
}

func (e *storageError) Unwrap() error {
	return e.err
}
