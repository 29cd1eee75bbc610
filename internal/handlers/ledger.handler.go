package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/internal/state"
	xhttp "github.com/nimasrn/xpensemate/pkg/http"
)

// LedgerStore is the shared read model with its write-then-refetch mutations.
type LedgerStore interface {
	Snapshot() state.Snapshot
	AddCategory(ctx context.Context, p model.CategoryCreateRequest) (*model.Category, error)
	UpdateCategory(ctx context.Context, id int64, p model.CategoryUpdateRequest) (*model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	AddTransaction(ctx context.Context, p model.TransactionCreateRequest) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, p model.TransactionUpdateRequest) (*model.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

type LedgerHandler struct {
	store LedgerStore
}

func RegisterLedgerRoutes(e *router.Group, h *LedgerHandler) {
	e.GET("/categories", h.ListCategories)
	e.POST("/categories", h.CreateCategory)
	e.GET("/categories/{id}", h.GetCategory)
	e.PUT("/categories/{id}", h.UpdateCategory)
	e.DELETE("/categories/{id}", h.DeleteCategory)

	e.GET("/transactions", h.ListTransactions)
	e.POST("/transactions", h.CreateTransaction)
	e.GET("/transactions/{id}", h.GetTransaction)
	e.PUT("/transactions/{id}", h.UpdateTransaction)
	e.DELETE("/transactions/{id}", h.DeleteTransaction)
}

func NewLedgerHandler(store LedgerStore) *LedgerHandler {
	return &LedgerHandler{
		store: store,
	}
}

/* ------------------------------- Categories --------------------------------- */

func (h *LedgerHandler) ListCategories(ctx *xhttp.RequestCtx) {
	snap := h.store.Snapshot()
	items := snap.Categories
	if v := query(ctx, "type"); v != "" {
		typ, err := model.ParseCategoryType(v)
		if err != nil {
			fail(ctx, err)
			return
		}
		if typ == model.CategoryIncome {
			items = snap.IncomeCategories
		} else {
			items = snap.ExpenseCategories
		}
	}
	writeJSON(ctx, xhttp.StatusOK, newList(items))
}

func (h *LedgerHandler) GetCategory(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		fail(ctx, err)
		return
	}
	for _, c := range h.store.Snapshot().Categories {
		if c.ID == id {
			writeJSON(ctx, xhttp.StatusOK, c)
			return
		}
	}
	fail(ctx, model.ErrCategoryNotFound)
}

func (h *LedgerHandler) CreateCategory(ctx *xhttp.RequestCtx) {
	var req model.CategoryCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		fail(ctx, err)
		return
	}
	c, err := h.store.AddCategory(ctx, req)
	if !written(err) {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, c)
}

func (h *LedgerHandler) UpdateCategory(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		fail(ctx, err)
		return
	}
	var req model.CategoryUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		fail(ctx, err)
		return
	}
	c, err := h.store.UpdateCategory(ctx, id, req)
	if !written(err) {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, c)
}

func (h *LedgerHandler) DeleteCategory(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		fail(ctx, err)
		return
	}
	if err := h.store.DeleteCategory(ctx, id); !written(err) {
		fail(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

/* ------------------------------ Transactions -------------------------------- */

func (h *LedgerHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, xhttp.StatusOK, newList(h.store.Snapshot().Transactions))
}

func (h *LedgerHandler) GetTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		fail(ctx, err)
		return
	}
	for _, t := range h.store.Snapshot().Transactions {
		if t.ID == id {
			writeJSON(ctx, xhttp.StatusOK, t)
			return
		}
	}
	fail(ctx, model.ErrTransactionNotFound)
}

func (h *LedgerHandler) CreateTransaction(ctx *xhttp.RequestCtx) {
	var req model.TransactionCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		fail(ctx, err)
		return
	}
	t, err := h.store.AddTransaction(ctx, req)
	if !written(err) {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, t)
}

func (h *LedgerHandler) UpdateTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		fail(ctx, err)
		return
	}
	var req model.TransactionUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		fail(ctx, err)
		return
	}
	t, err := h.store.UpdateTransaction(ctx, id, req)
	if !written(err) {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, t)
}

func (h *LedgerHandler) DeleteTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		fail(ctx, err)
		return
	}
	if err := h.store.DeleteTransaction(ctx, id); !written(err) {
		fail(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}
