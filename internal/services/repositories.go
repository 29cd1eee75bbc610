package services

import (
	"context"
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/shopspring/decimal"
)

// Transactor runs fn in one unit of work. Repositories called with the ctx
// passed to fn join it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) (*model.Category, error)
	Get(ctx context.Context, id int64) (*model.Category, error)
	Update(ctx context.Context, c *model.Category) error
	SetStatus(ctx context.Context, id int64, status model.RecordStatus) error
	FindActive(ctx context.Context, name string, typ model.CategoryType) (*model.Category, error)
	ExistsActive(ctx context.Context, name string, typ model.CategoryType, excludeID int64) (bool, error)
	ListActive(ctx context.Context, typ *model.CategoryType) ([]*model.Category, error)
	ListAll(ctx context.Context) ([]*model.Category, error)
	InsertIgnore(ctx context.Context, categories []*model.Category) (int64, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	Get(ctx context.Context, id int64) (*model.Transaction, error)
	Update(ctx context.Context, txn *model.Transaction) error
	SetStatus(ctx context.Context, id int64, status model.RecordStatus) error
	ListActive(ctx context.Context) ([]*model.Transaction, error)
	ListAll(ctx context.Context) ([]*model.Transaction, error)
	CountActiveByCategory(ctx context.Context, name string, typ model.TransactionType) (int64, error)
	RenameCategory(ctx context.Context, oldName, newName string, typ model.TransactionType) (int64, error)
	SumInRange(ctx context.Context, typ model.TransactionType, category string, from, to time.Time) (decimal.Decimal, error)
	InsertIgnore(ctx context.Context, txns []*model.Transaction) (int64, error)
}

type OpeningBalanceRepository interface {
	Current(ctx context.Context) (*model.OpeningBalance, error)
	SupersedeCurrent(ctx context.Context) error
	CreatePair(ctx context.Context, amount decimal.Decimal, date time.Time) (*model.OpeningBalance, *model.Adjustment, error)
	History(ctx context.Context) ([]*model.OpeningBalance, error)
}

type MonthlyBudgetRepository interface {
	Create(ctx context.Context, b *model.MonthlyBudget) (*model.MonthlyBudget, error)
	Get(ctx context.Context, month, year int) (*model.MonthlyBudget, error)
	Exists(ctx context.Context, month, year int) (bool, error)
	List(ctx context.Context) ([]*model.MonthlyBudget, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) (*model.Notification, error)
	List(ctx context.Context, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) (int64, error)
	CountUnread(ctx context.Context) (int64, error)
}

type SettingRepository interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
}
