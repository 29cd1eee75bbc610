package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nimasrn/xpensemate/internal/migrations"
	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/internal/repository"
	"github.com/nimasrn/xpensemate/pkg/db"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type ledger struct {
	db            *db.DB
	categories    *repository.CategoryRepository
	transactions  *repository.TransactionRepository
	balances      *repository.OpeningBalanceRepository
	budgets       *repository.MonthlyBudgetRepository
	notifications *repository.NotificationRepository
	settings      *repository.SettingRepository
}

func setupLedger(t *testing.T) *ledger {
	t.Helper()

	name := "services_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := db.NewSQLiteMemory(name)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(d, migrations.FS))
	t.Cleanup(func() { _ = d.Close() })

	return &ledger{
		db:            d,
		categories:    repository.NewCategoryRepository(d),
		transactions:  repository.NewTransactionRepository(d),
		balances:      repository.NewOpeningBalanceRepository(d),
		budgets:       repository.NewMonthlyBudgetRepository(d),
		notifications: repository.NewNotificationRepository(d),
		settings:      repository.NewSettingRepository(d),
	}
}

func (l *ledger) evaluator(opts ...AlertOption) *BudgetAlertEvaluator {
	opts = append([]AlertOption{WithAlertClock(func() time.Time { return testNow })}, opts...)
	return NewBudgetAlertEvaluator(l.settings, l.categories, l.transactions, l.notifications, opts...)
}

func (l *ledger) transactionService(alerts AlertEvaluator) *TransactionService {
	opts := []TransactionOption{WithClock(func() time.Time { return testNow })}
	if alerts != nil {
		opts = append(opts, WithAlerts(alerts, "$"))
	}
	return NewTransactionService(l.db, l.transactions, l.categories, l.budgets, opts...)
}

func (l *ledger) addCategory(t *testing.T, typ, name, budget string) *model.Category {
	t.Helper()
	p := model.CategoryCreateRequest{Type: typ, Name: name}
	if budget != "" {
		p.Budget = &budget
	}
	c, err := NewCategoryService(l.db, l.categories, l.transactions, nil).Add(context.Background(), p)
	require.NoError(t, err)
	return c
}

func (l *ledger) addBudget(t *testing.T, month time.Month, year int, amount string) {
	t.Helper()
	_, err := NewMonthlyBudgetService(l.db, l.budgets, l.transactions).Add(context.Background(), model.MonthlyBudgetRequest{
		Month:  int(month),
		Year:   year,
		Amount: amount,
	})
	require.NoError(t, err)
}

func (l *ledger) countRows(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, l.db.Read(context.Background()).Table(table).Count(&n).Error)
	return n
}

func strPtr(s string) *string {
	return &s
}
