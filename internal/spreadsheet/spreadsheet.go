// Package spreadsheet reads and writes the two-sheet ledger workbook.
package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	TransactionsSheet = "Transactions"
	CategoriesSheet   = "Categories"
)

var (
	transactionColumns = []string{"ID", "Amount", "Type", "Category", "Description", "Date", "UpdatedAt", "CreatedAt", "Status"}
	categoryColumns    = []string{"ID", "Name", "Type", "Image", "Budget", "CreatedAt", "UpdatedAt", "Status"}
)

// Workbook is the decoded content of an export file.
type Workbook struct {
	Transactions []*model.Transaction
	Categories   []*model.Category
}

// Encode writes txs and cats as an xlsx workbook to w.
func Encode(w io.Writer, txs []*model.Transaction, cats []*model.Category) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), TransactionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRow(f, TransactionsSheet, 1, toCells(transactionColumns)); err != nil {
		return err
	}
	for i, t := range txs {
		row := []interface{}{
			t.ID,
			t.Amount.InexactFloat64(),
			string(t.Type),
			t.Category,
			t.Description,
			formatTime(t.Date),
			formatTime(t.UpdatedAt),
			formatTime(t.CreatedAt),
			string(t.Status),
		}
		if err := writeRow(f, TransactionsSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(CategoriesSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeRow(f, CategoriesSheet, 1, toCells(categoryColumns)); err != nil {
		return err
	}
	for i, c := range cats {
		budget := ""
		if c.Budget != nil {
			budget = c.Budget.StringFixed(2)
		}
		image := ""
		if c.Image != nil {
			image = *c.Image
		}
		row := []interface{}{
			c.ID,
			c.Name,
			string(c.Type),
			image,
			budget,
			formatTime(c.CreatedAt),
			formatTime(c.UpdatedAt),
			string(c.Status),
		}
		if err := writeRow(f, CategoriesSheet, i+2, row); err != nil {
			return err
		}
	}

	f.SetColWidth(TransactionsSheet, "A", "A", 8)
	f.SetColWidth(TransactionsSheet, "D", "E", 24)
	f.SetColWidth(TransactionsSheet, "F", "H", 22)
	f.SetColWidth(CategoriesSheet, "B", "B", 24)
	f.SetColWidth(CategoriesSheet, "D", "D", 40)
	f.SetColWidth(CategoriesSheet, "F", "G", 22)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Decode reads a workbook produced by Encode. Both sheets must be present. A
// missing Status column marks every row active.
func Decode(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, model.NewValidationError("file", "is not a readable xlsx workbook")
	}
	defer f.Close()

	sheets := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		sheets[name] = true
	}
	for _, name := range []string{TransactionsSheet, CategoriesSheet} {
		if !sheets[name] {
			return nil, model.NewValidationError("file", fmt.Sprintf("sheet %q is missing", name))
		}
	}

	wb := &Workbook{}

	rows, err := f.GetRows(TransactionsSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TransactionsSheet, err)
	}
	if len(rows) > 0 {
		cols, err := header(TransactionsSheet, rows[0], transactionColumns[:len(transactionColumns)-1])
		if err != nil {
			return nil, err
		}
		for i, row := range rows[1:] {
			if blank(row) {
				continue
			}
			t, err := parseTransaction(cols, row)
			if err != nil {
				return nil, rowError(TransactionsSheet, i+2, err)
			}
			wb.Transactions = append(wb.Transactions, t)
		}
	}

	rows, err = f.GetRows(CategoriesSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", CategoriesSheet, err)
	}
	if len(rows) > 0 {
		cols, err := header(CategoriesSheet, rows[0], categoryColumns[:len(categoryColumns)-1])
		if err != nil {
			return nil, err
		}
		for i, row := range rows[1:] {
			if blank(row) {
				continue
			}
			c, err := parseCategory(cols, row)
			if err != nil {
				return nil, rowError(CategoriesSheet, i+2, err)
			}
			wb.Categories = append(wb.Categories, c)
		}
	}

	return wb, nil
}

type columns map[string]int

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func header(sheet string, row []string, required []string) (columns, error) {
	cols := make(columns, len(row))
	for i, name := range row {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, model.NewValidationError(sheet, fmt.Sprintf("column %q is missing", name))
		}
	}
	return cols, nil
}

func parseTransaction(cols columns, row []string) (*model.Transaction, error) {
	id, err := parseID(cols.get(row, "ID"))
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(cols.get(row, "Amount"))
	if err != nil {
		return nil, err
	}
	typ, err := model.ParseTransactionType(cols.get(row, "Type"))
	if err != nil {
		return nil, err
	}
	category := cols.get(row, "Category")
	if category == "" {
		return nil, model.NewValidationError("Category", "is required")
	}
	date, err := parseTime("Date", cols.get(row, "Date"))
	if err != nil {
		return nil, err
	}
	created, err := parseOptionalTime("CreatedAt", cols.get(row, "CreatedAt"), date)
	if err != nil {
		return nil, err
	}
	updated, err := parseOptionalTime("UpdatedAt", cols.get(row, "UpdatedAt"), created)
	if err != nil {
		return nil, err
	}
	status, err := parseStatus(cols.get(row, "Status"))
	if err != nil {
		return nil, err
	}
	return &model.Transaction{
		ID:          id,
		Amount:      amount,
		Type:        typ,
		Category:    category,
		Description: cols.get(row, "Description"),
		Status:      status,
		Date:        date,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

func parseCategory(cols columns, row []string) (*model.Category, error) {
	id, err := parseID(cols.get(row, "ID"))
	if err != nil {
		return nil, err
	}
	name := cols.get(row, "Name")
	if name == "" {
		return nil, model.NewValidationError("Name", "is required")
	}
	typ, err := model.ParseCategoryType(cols.get(row, "Type"))
	if err != nil {
		return nil, err
	}
	var budget *decimal.Decimal
	if raw := cols.get(row, "Budget"); raw != "" && typ == model.CategoryExpense {
		d, err := parseNumber("Budget", raw)
		if err != nil {
			return nil, err
		}
		budget = &d
	}
	var image *string
	if raw := cols.get(row, "Image"); raw != "" {
		image = &raw
	}
	created, err := parseOptionalTime("CreatedAt", cols.get(row, "CreatedAt"), time.Time{})
	if err != nil {
		return nil, err
	}
	updated, err := parseOptionalTime("UpdatedAt", cols.get(row, "UpdatedAt"), created)
	if err != nil {
		return nil, err
	}
	status, err := parseStatus(cols.get(row, "Status"))
	if err != nil {
		return nil, err
	}
	return &model.Category{
		ID:        id,
		Name:      name,
		Type:      typ,
		Budget:    budget,
		Image:     image,
		Status:    status,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError("ID", "must be a positive integer")
	}
	return id, nil
}

// parseNumber accepts any non-negative number and keeps two decimals.
func parseNumber(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, model.NewValidationError(field, "must be a non-negative number")
	}
	return d.Round(2), nil
}

// parseAmount accepts positive numbers only, like a transaction entered by hand.
func parseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.Round(2).IsPositive() {
		return decimal.Zero, model.NewValidationError("Amount", "must be a positive number")
	}
	return d.Round(2), nil
}

func parseTime(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, model.NewValidationError(field, "is required")
	}
	return model.ParseDate(field, raw)
}

func parseOptionalTime(field, raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return model.ParseDate(field, raw)
}

func parseStatus(raw string) (model.RecordStatus, error) {
	if raw == "" {
		return model.StatusActive, nil
	}
	s := model.RecordStatus(strings.ToUpper(raw))
	if !s.Valid() {
		return "", model.NewValidationError("Status", "must be Y or N")
	}
	return s, nil
}

func rowError(sheet string, row int, err error) error {
	return fmt.Errorf("%s row %d: %w", sheet, row, err)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(names []string) []interface{} {
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
