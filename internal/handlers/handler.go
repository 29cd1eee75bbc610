package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/internal/state"
	xhttp "github.com/nimasrn/xpensemate/pkg/http"
	"github.com/nimasrn/xpensemate/pkg/logger"
)

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Total: len(items)}
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return model.NewValidationError("", "request body is empty")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return model.NewValidationError("", "invalid JSON: "+err.Error())
	}
	return nil
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// errorStatus maps a ledger error kind to its HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return xhttp.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return xhttp.StatusNotFound
	case errors.Is(err, model.ErrDuplicate):
		return xhttp.StatusConflict
	case errors.Is(err, model.ErrPrecondition):
		return xhttp.StatusUnprocessableEntity
	}
	return xhttp.StatusInternalServerError
}

// fail writes err. Store failures and unknown errors are logged and reported
// without detail.
func fail(ctx *xhttp.RequestCtx, err error) {
	status := errorStatus(err)
	if status == xhttp.StatusInternalServerError {
		logger.Error("request failed", "path", string(ctx.Path()), "error", err)
		writeError(ctx, status, "something went wrong")
		return
	}
	writeError(ctx, status, err.Error())
}

// written tells whether a store mutation committed. A stale cache after a
// committed write is logged by the store and not reported to the client.
func written(err error) bool {
	return err == nil || errors.Is(err, state.ErrStale)
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	raw := fmt.Sprint(ctx.UserValue(name))
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, model.NewValidationError(name, "must be a positive integer")
	}
	return n, nil
}

func pathInt(ctx *xhttp.RequestCtx, name string) (int, error) {
	n, err := pathInt64(ctx, name)
	return int(n), err
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}
