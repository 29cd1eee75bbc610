package services

import (
	"context"
	"io"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/internal/spreadsheet"
	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/nimasrn/xpensemate/pkg/prom"
)

type ImportCounts struct {
	Inserted int64 `json:"inserted"`
	Skipped  int64 `json:"skipped"`
}

type ImportResult struct {
	Categories   ImportCounts `json:"categories"`
	Transactions ImportCounts `json:"transactions"`
}

// ExchangeService moves the whole ledger in and out of spreadsheet workbooks.
type ExchangeService struct {
	tx           Transactor
	categories   CategoryRepository
	transactions TransactionRepository
}

func NewExchangeService(tx Transactor, categories CategoryRepository, transactions TransactionRepository) *ExchangeService {
	return &ExchangeService{tx: tx, categories: categories, transactions: transactions}
}

// Export writes every category and transaction, deleted rows included.
func (s *ExchangeService) Export(ctx context.Context, w io.Writer) error {
	var (
		txs  []*model.Transaction
		cats []*model.Category
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if txs, err = s.transactions.ListAll(ctx); err != nil {
			return err
		}
		cats, err = s.categories.ListAll(ctx)
		return err
	})
	if err != nil {
		return fail("export ledger", err)
	}
	return spreadsheet.Encode(w, txs, cats)
}

// Import inserts the workbook rows whose ids are not taken yet. Existing rows
// are never overwritten. Active categories clashing by name with another
// active category, and active transactions whose category does not resolve,
// are skipped. The whole import is one unit of work.
func (s *ExchangeService) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	wb, err := spreadsheet.Decode(r)
	if err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cats, err := s.admissibleCategories(ctx, wb.Categories)
		if err != nil {
			return err
		}
		n, err := s.categories.InsertIgnore(ctx, cats)
		if err != nil {
			return err
		}
		result.Categories = ImportCounts{Inserted: n, Skipped: int64(len(wb.Categories)) - n}

		txs, err := s.admissibleTransactions(ctx, wb.Transactions)
		if err != nil {
			return err
		}
		n, err = s.transactions.InsertIgnore(ctx, txs)
		if err != nil {
			return err
		}
		result.Transactions = ImportCounts{Inserted: n, Skipped: int64(len(wb.Transactions)) - n}
		return nil
	})
	if err != nil {
		return ImportResult{}, fail("import ledger", err)
	}

	prom.IncLedgerWrite("ledger", "import")
	logger.Info("ledger imported",
		"categories_inserted", result.Categories.Inserted,
		"categories_skipped", result.Categories.Skipped,
		"transactions_inserted", result.Transactions.Inserted,
		"transactions_skipped", result.Transactions.Skipped,
	)
	return result, nil
}

func categoryKey(typ model.CategoryType, name string) string {
	return string(typ) + "/" + model.NameKey(name)
}

// admissibleCategories drops active rows whose name is already used by
// another active category of the same type, in the ledger or earlier in
// the workbook.
func (s *ExchangeService) admissibleCategories(ctx context.Context, in []*model.Category) ([]*model.Category, error) {
	out := make([]*model.Category, 0, len(in))
	seen := make(map[string]bool)
	for _, c := range in {
		if c.Status != model.StatusActive {
			out = append(out, c)
			continue
		}
		key := categoryKey(c.Type, c.Name)
		if seen[key] {
			continue
		}
		taken, err := s.categories.ExistsActive(ctx, c.Name, c.Type, c.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			logger.Warn("import skipped duplicate category", "id", c.ID, "name", c.Name, "type", c.Type)
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out, nil
}

// admissibleTransactions drops active rows whose category is not an active
// category of the matching type, and points the rest at the category's
// stored spelling.
func (s *ExchangeService) admissibleTransactions(ctx context.Context, in []*model.Transaction) ([]*model.Transaction, error) {
	active, err := s.categories.ListActive(ctx, nil)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(active))
	for _, c := range active {
		names[categoryKey(c.Type, c.Name)] = c.Name
	}

	out := make([]*model.Transaction, 0, len(in))
	for _, t := range in {
		if t.Status != model.StatusActive {
			out = append(out, t)
			continue
		}
		name, ok := names[categoryKey(t.Type.CategoryType(), t.Category)]
		if !ok {
			logger.Warn("import skipped transaction without active category", "id", t.ID, "category", t.Category, "type", t.Type)
			continue
		}
		t.Category = name
		out = append(out, t)
	}
	return out, nil
}
