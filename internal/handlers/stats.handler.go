package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/fasthttp/router"
	"github.com/nimasrn/xpensemate/internal/aggregate"
	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/internal/state"
	xhttp "github.com/nimasrn/xpensemate/pkg/http"
	"github.com/shopspring/decimal"
)

type SnapshotReader interface {
	Snapshot() state.Snapshot
}

type OpeningBalanceReader interface {
	Current(ctx context.Context) (*model.OpeningBalance, error)
}

// StatsHandler serves the dashboard figures computed over the cached transactions.
type StatsHandler struct {
	store    SnapshotReader
	balances OpeningBalanceReader
	now      func() time.Time
}

func RegisterStatsRoutes(e *router.Group, h *StatsHandler) {
	e.GET("/stats/summary", h.Summary)
	e.GET("/stats/buckets", h.Buckets)
	e.GET("/stats/categories", h.CategoryShares)
	e.GET("/stats/wallet", h.Wallet)
}

func NewStatsHandler(store SnapshotReader, balances OpeningBalanceReader) *StatsHandler {
	return &StatsHandler{
		store:    store,
		balances: balances,
		now:      time.Now,
	}
}

type summaryResponse struct {
	aggregate.Summary
	Balance decimal.Decimal `json:"balance"`
}

func (h *StatsHandler) Summary(ctx *xhttp.RequestCtx) {
	txs := h.store.Snapshot().Transactions
	writeJSON(ctx, xhttp.StatusOK, summaryResponse{
		Summary: aggregate.Summarize(txs),
		Balance: aggregate.Balance(txs),
	})
}

func (h *StatsHandler) Buckets(ctx *xhttp.RequestCtx) {
	g, err := aggregate.ParseGranularity(query(ctx, "granularity"))
	if err != nil {
		fail(ctx, err)
		return
	}
	buckets := aggregate.BucketByPeriod(h.store.Snapshot().Transactions, g, h.now())
	writeJSON(ctx, xhttp.StatusOK, newList(buckets))
}

func (h *StatsHandler) CategoryShares(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, xhttp.StatusOK, newList(aggregate.CategoryShares(h.store.Snapshot().Transactions)))
}

// Wallet reports a zero opening balance until one is set.
func (h *StatsHandler) Wallet(ctx *xhttp.RequestCtx) {
	opening := decimal.Zero
	ob, err := h.balances.Current(ctx)
	switch {
	case err == nil:
		opening = ob.Amount
	case !errors.Is(err, model.ErrNotFound):
		fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, aggregate.Wallet(opening, h.store.Snapshot().Transactions))
}
