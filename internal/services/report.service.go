package services

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/nimasrn/xpensemate/internal/aggregate"
	"github.com/nimasrn/xpensemate/internal/model"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>XpenseMate report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
td.amount { text-align: right; }
</style>
</head>
<body>
<h1>XpenseMate report</h1>
<p>Generated {{.GeneratedAt}}{{if .Period}} for {{.Period}}{{end}}</p>
<table>
<tr><th>Total income</th><td class="amount">{{.Currency}} {{.Income}}</td></tr>
<tr><th>Total expense</th><td class="amount">{{.Currency}} {{.Expense}}</td></tr>
<tr><th>Savings</th><td class="amount">{{.Currency}} {{.Savings}}</td></tr>
</table>
<h2>Transactions</h2>
<table>
<tr><th>Date</th><th>Type</th><th>Category</th><th>Description</th><th>Amount</th></tr>
{{range .Rows}}<tr><td>{{.Date}}</td><td>{{.Type}}</td><td>{{.Category}}</td><td>{{.Description}}</td><td class="amount">{{$.Currency}} {{.Amount}}</td></tr>
{{end}}</table>
</body>
</html>
`))

type reportRow struct {
	Date        string
	Type        string
	Category    string
	Description string
	Amount      string
}

type reportView struct {
	GeneratedAt string
	Period      string
	Currency    string
	Income      string
	Expense     string
	Savings     string
	Rows        []reportRow
}

type ReportService struct {
	transactions   TransactionRepository
	currencySymbol string
	now            func() time.Time
}

func NewReportService(transactions TransactionRepository, currencySymbol string) *ReportService {
	return &ReportService{
		transactions:   transactions,
		currencySymbol: currencySymbol,
		now:            time.Now,
	}
}

// Render writes an HTML report of the active transactions matching f. Totals
// are computed over the filtered set only.
func (s *ReportService) Render(ctx context.Context, w io.Writer, f aggregate.ReportFilter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	all, err := s.transactions.ListActive(ctx)
	if err != nil {
		return fail("report transactions", err)
	}
	txs, err := aggregate.Filter(values(all), f)
	if err != nil {
		return err
	}

	summary := aggregate.Summarize(txs)
	view := reportView{
		GeneratedAt: s.now().UTC().Format(model.DateLayout),
		Period:      period(f),
		Currency:    s.currencySymbol,
		Income:      summary.Income.StringFixed(2),
		Expense:     summary.Expense.StringFixed(2),
		Savings:     summary.Savings.StringFixed(2),
		Rows:        make([]reportRow, 0, len(txs)),
	}
	for _, t := range txs {
		view.Rows = append(view.Rows, reportRow{
			Date:        t.Date.UTC().Format(model.DateLayout),
			Type:        string(t.Type),
			Category:    t.Category,
			Description: t.Description,
			Amount:      t.Amount.StringFixed(2),
		})
	}

	if err := reportTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func period(f aggregate.ReportFilter) string {
	switch {
	case f.StartDate != nil && f.EndDate != nil:
		return f.StartDate.UTC().Format(model.DateLayout) + " to " + f.EndDate.UTC().Format(model.DateLayout)
	case f.StartDate != nil:
		return "from " + f.StartDate.UTC().Format(model.DateLayout)
	case f.EndDate != nil:
		return "until " + f.EndDate.UTC().Format(model.DateLayout)
	}
	return ""
}
