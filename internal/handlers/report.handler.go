package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fasthttp/router"
	"github.com/nimasrn/xpensemate/internal/aggregate"
	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/internal/services"
	xhttp "github.com/nimasrn/xpensemate/pkg/http"
	"github.com/nimasrn/xpensemate/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportService interface {
	Render(ctx context.Context, w io.Writer, f aggregate.ReportFilter) error
}

type ExchangeService interface {
	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.Reader) (services.ImportResult, error)
}

type Refresher interface {
	Refresh(ctx context.Context) error
}

type ReportHandler struct {
	reports  ReportService
	exchange ExchangeService
	store    Refresher
	now      func() time.Time
}

func RegisterReportRoutes(e *router.Group, h *ReportHandler) {
	e.POST("/reports", h.Report)
	e.GET("/export", h.Export)
	e.POST("/import", h.Import)
}

func NewReportHandler(reports ReportService, exchange ExchangeService, store Refresher) *ReportHandler {
	return &ReportHandler{
		reports:  reports,
		exchange: exchange,
		store:    store,
		now:      time.Now,
	}
}

type reportRequest struct {
	Type       string   `json:"type"`
	Categories []string `json:"categories"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
}

func (r reportRequest) filter() (aggregate.ReportFilter, error) {
	f := aggregate.ReportFilter{Type: r.Type, Categories: r.Categories}
	if r.StartDate != "" {
		t, err := model.ParseDate("start_date", r.StartDate)
		if err != nil {
			return f, err
		}
		f.StartDate = &t
	}
	if r.EndDate != "" {
		t, err := model.ParseDate("end_date", r.EndDate)
		if err != nil {
			return f, err
		}
		f.EndDate = &t
	}
	return f, nil
}

func (h *ReportHandler) Report(ctx *xhttp.RequestCtx) {
	var req reportRequest
	if err := readJSON(ctx, &req); err != nil {
		fail(ctx, err)
		return
	}
	f, err := req.filter()
	if err != nil {
		fail(ctx, err)
		return
	}

	var buf bytes.Buffer
	if err := h.reports.Render(ctx, &buf, f); err != nil {
		fail(ctx, err)
		return
	}
	ctx.Response.Header.Set("Content-Type", "text/html; charset=utf-8")
	ctx.SetStatusCode(xhttp.StatusOK)
	ctx.SetBody(buf.Bytes())
}

func (h *ReportHandler) Export(ctx *xhttp.RequestCtx) {
	var buf bytes.Buffer
	if err := h.exchange.Export(ctx, &buf); err != nil {
		fail(ctx, err)
		return
	}
	name := fmt.Sprintf("xpensemate-%s.xlsx", h.now().UTC().Format("20060102"))
	ctx.Response.Header.Set("Content-Type", xlsxContentType)
	ctx.Response.Header.Set("Content-Disposition", `attachment; filename="`+name+`"`)
	ctx.SetStatusCode(xhttp.StatusOK)
	ctx.SetBody(buf.Bytes())
}

// Import takes the workbook as the raw request body.
func (h *ReportHandler) Import(ctx *xhttp.RequestCtx) {
	body := ctx.PostBody()
	if len(body) == 0 {
		fail(ctx, model.NewValidationError("file", "request body is empty"))
		return
	}
	result, err := h.exchange.Import(ctx, bytes.NewReader(body))
	if err != nil {
		fail(ctx, err)
		return
	}
	if err := h.store.Refresh(ctx); err != nil {
		logger.Warn("refresh after import failed", "error", err)
	}
	writeJSON(ctx, xhttp.StatusOK, result)
}
