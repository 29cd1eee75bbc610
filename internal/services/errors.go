package services

import (
	"errors"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/pkg/logger"
)

// fail converts err into a ledger error. Raw store failures are logged here and
// nowhere else.
func fail(op string, err error) error {
	err = model.StorageError(op, err)
	if errors.Is(err, model.ErrStorage) {
		logger.Error("storage failure", "op", op, "error", err)
	}
	return err
}

func values[T any](ptrs []*T) []T {
	out := make([]T, 0, len(ptrs))
	for _, p := range ptrs {
		out = append(out, *p)
	}
	return out
}
