package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/xpensemate/internal/model"
	xhttp "github.com/nimasrn/xpensemate/pkg/http"
)

type OpeningBalanceService interface {
	SetOpeningBalance(ctx context.Context, p model.OpeningBalanceRequest) (*model.OpeningBalance, error)
	CreateOpeningBalanceOnce(ctx context.Context, p model.OpeningBalanceRequest) (*model.OpeningBalance, error)
	Current(ctx context.Context) (*model.OpeningBalance, error)
	History(ctx context.Context) ([]*model.OpeningBalance, error)
}

type MonthlyBudgetService interface {
	Add(ctx context.Context, p model.MonthlyBudgetRequest) (*model.MonthlyBudget, error)
	List(ctx context.Context) ([]*model.MonthlyBudget, error)
	Status(ctx context.Context, month, year int) (*model.BudgetStatus, error)
}

type BudgetHandler struct {
	balances OpeningBalanceService
	budgets  MonthlyBudgetService
}

func RegisterBudgetRoutes(e *router.Group, h *BudgetHandler) {
	e.GET("/opening-balance", h.GetOpeningBalance)
	e.POST("/opening-balance", h.SetOpeningBalance)
	e.GET("/opening-balance/history", h.OpeningBalanceHistory)

	e.GET("/budgets", h.ListBudgets)
	e.POST("/budgets", h.CreateBudget)
	e.GET("/budgets/{year}/{month}", h.BudgetStatus)
}

func NewBudgetHandler(balances OpeningBalanceService, budgets MonthlyBudgetService) *BudgetHandler {
	return &BudgetHandler{
		balances: balances,
		budgets:  budgets,
	}
}

func (h *BudgetHandler) GetOpeningBalance(ctx *xhttp.RequestCtx) {
	ob, err := h.balances.Current(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, ob)
}

// SetOpeningBalance replaces the current opening balance, or with ?mode=once
// refuses to when one is already set.
func (h *BudgetHandler) SetOpeningBalance(ctx *xhttp.RequestCtx) {
	var req model.OpeningBalanceRequest
	if err := readJSON(ctx, &req); err != nil {
		fail(ctx, err)
		return
	}

	var (
		ob  *model.OpeningBalance
		err error
	)
	switch query(ctx, "mode") {
	case "", "replace":
		ob, err = h.balances.SetOpeningBalance(ctx, req)
	case "once":
		ob, err = h.balances.CreateOpeningBalanceOnce(ctx, req)
	default:
		err = model.NewValidationError("mode", "must be replace or once")
	}
	if err != nil {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, ob)
}

func (h *BudgetHandler) OpeningBalanceHistory(ctx *xhttp.RequestCtx) {
	history, err := h.balances.History(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, newList(history))
}

func (h *BudgetHandler) ListBudgets(ctx *xhttp.RequestCtx) {
	budgets, err := h.budgets.List(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, newList(budgets))
}

func (h *BudgetHandler) CreateBudget(ctx *xhttp.RequestCtx) {
	var req model.MonthlyBudgetRequest
	if err := readJSON(ctx, &req); err != nil {
		fail(ctx, err)
		return
	}
	b, err := h.budgets.Add(ctx, req)
	if err != nil {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, b)
}

func (h *BudgetHandler) BudgetStatus(ctx *xhttp.RequestCtx) {
	year, err := pathInt(ctx, "year")
	if err != nil {
		fail(ctx, err)
		return
	}
	month, err := pathInt(ctx, "month")
	if err != nil {
		fail(ctx, err)
		return
	}
	status, err := h.budgets.Status(ctx, month, year)
	if err != nil {
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, status)
}
