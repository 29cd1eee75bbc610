package services

import (
	"context"
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/pkg/prom"
)

type MonthlyBudgetService struct {
	tx           Transactor
	budgets      MonthlyBudgetRepository
	transactions TransactionRepository
}

func NewMonthlyBudgetService(tx Transactor, budgets MonthlyBudgetRepository, transactions TransactionRepository) *MonthlyBudgetService {
	return &MonthlyBudgetService{tx: tx, budgets: budgets, transactions: transactions}
}

func (s *MonthlyBudgetService) Add(ctx context.Context, p model.MonthlyBudgetRequest) (*model.MonthlyBudget, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	amount, _ := model.ParseAmount("amount", p.Amount)

	var created *model.MonthlyBudget
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.budgets.Exists(ctx, p.Month, p.Year)
		if err != nil {
			return err
		}
		if exists {
			return model.ErrMonthlyBudgetExists
		}
		created, err = s.budgets.Create(ctx, &model.MonthlyBudget{
			Month:  p.Month,
			Year:   p.Year,
			Budget: amount,
			Status: model.StatusActive,
		})
		return err
	})
	if err != nil {
		return nil, fail("add monthly budget", err)
	}
	prom.IncLedgerWrite("monthly_budget", "create")
	return created, nil
}

func (s *MonthlyBudgetService) Get(ctx context.Context, month, year int) (*model.MonthlyBudget, error) {
	b, err := s.budgets.Get(ctx, month, year)
	if err != nil {
		return nil, fail("get monthly budget", err)
	}
	return b, nil
}

func (s *MonthlyBudgetService) List(ctx context.Context) ([]*model.MonthlyBudget, error) {
	budgets, err := s.budgets.List(ctx)
	if err != nil {
		return nil, fail("list monthly budgets", err)
	}
	return budgets, nil
}

// Status compares the month's budget with the expenses recorded in that month.
func (s *MonthlyBudgetService) Status(ctx context.Context, month, year int) (*model.BudgetStatus, error) {
	if month < 1 || month > 12 {
		return nil, model.NewValidationError("month", "must be between 1 and 12")
	}
	b, err := s.budgets.Get(ctx, month, year)
	if err != nil {
		return nil, fail("monthly budget status", err)
	}
	from, to := model.MonthRange(year, time.Month(month))
	spent, err := s.transactions.SumInRange(ctx, model.TransactionExpense, "", from, to)
	if err != nil {
		return nil, fail("monthly budget status", err)
	}
	return &model.BudgetStatus{
		Month:     month,
		Year:      year,
		Budget:    b.Budget,
		Spent:     spent,
		Remaining: b.Budget.Sub(spent),
		Exceeded:  spent.GreaterThan(b.Budget),
	}, nil
}
