package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/pkg/prom"
)

// AlertEvaluator runs after an expense has been committed.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, categoryName, currencySymbol string)
}

type TransactionService struct {
	tx             Transactor
	transactions   TransactionRepository
	categories     CategoryRepository
	budgets        MonthlyBudgetRepository
	alerts         AlertEvaluator
	currencySymbol string
	now            func() time.Time
}

type TransactionOption func(*TransactionService)

// WithClock replaces time.Now as the source of the current month.
func WithClock(now func() time.Time) TransactionOption {
	return func(s *TransactionService) {
		s.now = now
	}
}

func WithAlerts(alerts AlertEvaluator, currencySymbol string) TransactionOption {
	return func(s *TransactionService) {
		s.alerts = alerts
		s.currencySymbol = currencySymbol
	}
}

func NewTransactionService(tx Transactor, transactions TransactionRepository, categories CategoryRepository, budgets MonthlyBudgetRepository, opts ...TransactionOption) *TransactionService {
	s := &TransactionService{
		tx:           tx,
		transactions: transactions,
		categories:   categories,
		budgets:      budgets,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requireBudget fails unless a monthly budget exists for the current month.
func (s *TransactionService) requireBudget(ctx context.Context) error {
	now := s.now().UTC()
	ok, err := s.budgets.Exists(ctx, int(now.Month()), now.Year())
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrBudgetRequired
	}
	return nil
}

// activeCategory resolves name to the canonical spelling of an active category of typ.
func (s *TransactionService) activeCategory(ctx context.Context, name string, typ model.TransactionType) (*model.Category, error) {
	c, err := s.categories.FindActive(ctx, name, typ.CategoryType())
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrCategoryInactive
		}
		return nil, err
	}
	return c, nil
}

func (s *TransactionService) Add(ctx context.Context, p model.TransactionCreateRequest) (*model.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	typ, _ := model.ParseTransactionType(p.Type)
	amount, _ := model.ParsePositiveAmount("amount", p.Amount)
	date, _ := model.ParseDate("date", p.Date)

	var created *model.Transaction
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if typ == model.TransactionExpense {
			if err := s.requireBudget(ctx); err != nil {
				return err
			}
		}
		c, err := s.activeCategory(ctx, p.Category, typ)
		if err != nil {
			return err
		}
		created, err = s.transactions.Create(ctx, &model.Transaction{
			Amount:      amount,
			Type:        typ,
			Category:    c.Name,
			Description: strings.TrimSpace(p.Description),
			Status:      model.StatusActive,
			Date:        date,
		})
		return err
	})
	if err != nil {
		return nil, fail("add transaction", err)
	}

	prom.IncLedgerWrite("transaction", "create")
	if typ == model.TransactionExpense {
		s.evaluate(ctx, created.Category)
	}
	return created, nil
}

// Update applies the set fields of p to an active transaction. The category is
// checked again whenever the category or the type changes.
func (s *TransactionService) Update(ctx context.Context, id int64, p model.TransactionUpdateRequest) (*model.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Empty() {
		return nil, model.NewValidationError("", "no fields to update")
	}

	var updated *model.Transaction
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.transactions.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != model.StatusActive {
			return model.ErrTransactionNotFound
		}

		next := *current
		if p.Type != nil {
			next.Type, _ = model.ParseTransactionType(*p.Type)
		}
		if p.Category != nil {
			next.Category = strings.TrimSpace(*p.Category)
		}
		if p.Amount != nil {
			next.Amount, _ = model.ParsePositiveAmount("amount", *p.Amount)
		}
		if p.Date != nil {
			next.Date, _ = model.ParseDate("date", *p.Date)
		}
		if p.Description != nil {
			next.Description = strings.TrimSpace(*p.Description)
		}

		if next.Type == model.TransactionExpense && current.Type != model.TransactionExpense {
			if err := s.requireBudget(ctx); err != nil {
				return err
			}
		}
		if p.Category != nil || next.Type != current.Type {
			c, err := s.activeCategory(ctx, next.Category, next.Type)
			if err != nil {
				return err
			}
			next.Category = c.Name
		}

		if err := s.transactions.Update(ctx, &next); err != nil {
			return err
		}
		updated, err = s.transactions.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fail("update transaction", err)
	}

	prom.IncLedgerWrite("transaction", "update")
	return updated, nil
}

func (s *TransactionService) SoftDelete(ctx context.Context, id int64) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		t, err := s.transactions.Get(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != model.StatusActive {
			return model.ErrTransactionNotFound
		}
		return s.transactions.SetStatus(ctx, id, model.StatusDeleted)
	})
	if err != nil {
		return fail("delete transaction", err)
	}
	prom.IncLedgerWrite("transaction", "delete")
	return nil
}

// List returns active transactions newest first.
func (s *TransactionService) List(ctx context.Context) ([]*model.Transaction, error) {
	txs, err := s.transactions.ListActive(ctx)
	if err != nil {
		return nil, fail("list transactions", err)
	}
	return txs, nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	t, err := s.transactions.Get(ctx, id)
	if err != nil {
		return nil, fail("get transaction", err)
	}
	if t.Status != model.StatusActive {
		return nil, model.ErrTransactionNotFound
	}
	return t, nil
}

func (s *TransactionService) evaluate(ctx context.Context, category string) {
	if s.alerts == nil {
		return
	}
	s.alerts.Evaluate(ctx, category, s.currencySymbol)
}
