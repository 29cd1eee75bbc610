package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/nimasrn/xpensemate/internal/aggregate"
	"github.com/nimasrn/xpensemate/internal/services"
	xhttp "github.com/nimasrn/xpensemate/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func reportRoutes(h *ReportHandler) func(r *xhttp.Router) {
	return func(r *xhttp.Router) {
		RegisterReportRoutes(r.Group("/api/v1"), h)
	}
}

func TestReportHandler_Report(t *testing.T) {
	reports := new(MockReportService)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	want := aggregate.ReportFilter{Type: "All", Categories: []string{"Food"}, StartDate: &start, EndDate: &end}
	reports.On("Render", mock.Anything, mock.Anything, want).Return(nil, "<html>report</html>").Once()
	reports.On("Render", mock.Anything, mock.Anything, mock.Anything).Return(aggregate.ErrEmptyReport, "").Once()

	h := NewReportHandler(reports, new(MockExchangeService), new(MockRefresher))

	ctx := serve(reportRoutes(h), "POST", "/api/v1/reports",
		[]byte(`{"type":"All","categories":["Food"],"start_date":"2025-03-01","end_date":"2025-03-31"}`))
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, "text/html; charset=utf-8", string(ctx.Response.Header.ContentType()))
	assert.Equal(t, "<html>report</html>", string(ctx.Response.Body()))

	ctx = serve(reportRoutes(h), "POST", "/api/v1/reports", []byte(`{"categories":["Rent"]}`))
	assert.Equal(t, 422, ctx.Response.StatusCode())

	ctx = serve(reportRoutes(h), "POST", "/api/v1/reports", []byte(`{"categories":["Rent"],"start_date":"yesterday"}`))
	assert.Equal(t, 400, ctx.Response.StatusCode())

	reports.AssertExpectations(t)
}

func TestReportHandler_Export(t *testing.T) {
	exchange := new(MockExchangeService)
	exchange.On("Export", mock.Anything, mock.Anything).Return(nil)

	h := NewReportHandler(new(MockReportService), exchange, new(MockRefresher))
	h.now = func() time.Time { return time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC) }

	ctx := serve(reportRoutes(h), "GET", "/api/v1/export", nil)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, xlsxContentType, string(ctx.Response.Header.ContentType()))
	assert.Equal(t, `attachment; filename="xpensemate-20250315.xlsx"`, string(ctx.Response.Header.Peek("Content-Disposition")))
	assert.Equal(t, "xlsx-bytes", string(ctx.Response.Body()))
}

func TestReportHandler_Import(t *testing.T) {
	exchange := new(MockExchangeService)
	store := new(MockRefresher)
	result := services.ImportResult{
		Categories:   services.ImportCounts{Inserted: 2},
		Transactions: services.ImportCounts{Inserted: 3, Skipped: 1},
	}
	exchange.On("Import", mock.Anything, mock.Anything).Return(result, nil).Once()
	store.On("Refresh", mock.Anything).Return(errors.New("busy")).Once()

	h := NewReportHandler(new(MockReportService), exchange, store)

	ctx := serve(reportRoutes(h), "POST", "/api/v1/import", []byte("PK..."))
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"categories":{"inserted":2,"skipped":0},"transactions":{"inserted":3,"skipped":1}}`, string(ctx.Response.Body()))

	ctx = serve(reportRoutes(h), "POST", "/api/v1/import", nil)
	assert.Equal(t, 400, ctx.Response.StatusCode())

	exchange.AssertExpectations(t)
	store.AssertExpectations(t)
}
