// Package state holds the in-memory read model of active categories and
// transactions shared by the API and the CLI.
package state

import (
	"context"
	"sync"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/pkg/logger"
)

type CategoryLedger interface {
	Add(ctx context.Context, p model.CategoryCreateRequest) (*model.Category, error)
	Update(ctx context.Context, id int64, p model.CategoryUpdateRequest) (*model.Category, error)
	SoftDelete(ctx context.Context, id int64) error
	List(ctx context.Context, typ *model.CategoryType) ([]*model.Category, error)
}

type TransactionLedger interface {
	Add(ctx context.Context, p model.TransactionCreateRequest) (*model.Transaction, error)
	Update(ctx context.Context, id int64, p model.TransactionUpdateRequest) (*model.Transaction, error)
	SoftDelete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*model.Transaction, error)
}

// Snapshot is a private copy of the cached collections, newest id first.
type Snapshot struct {
	Transactions      []model.Transaction
	Categories        []model.Category
	IncomeCategories  []model.Category
	ExpenseCategories []model.Category
}

// Store is the single writer of the cached collections. Every mutation is
// followed by a refetch of the collections it affects.
type Store struct {
	categories   CategoryLedger
	transactions TransactionLedger

	// writeMu serializes mutation and refetch; mu guards the collections.
	writeMu sync.Mutex
	mu      sync.RWMutex

	txs  []model.Transaction
	cats []model.Category
}

func NewStore(categories CategoryLedger, transactions TransactionLedger) *Store {
	return &Store{
		categories:   categories,
		transactions: transactions,
	}
}

// FetchTransactions replaces the cached transactions. Results of a fetch whose
// ctx ended meanwhile are dropped.
func (s *Store) FetchTransactions(ctx context.Context) error {
	list, err := s.transactions.List(ctx)
	if err != nil {
		return err
	}
	fresh := make([]model.Transaction, 0, len(list))
	for _, t := range list {
		fresh = append(fresh, copyTransaction(*t))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		logger.Debug("dropping transaction fetch", "error", err)
		return err
	}
	s.txs = fresh
	return nil
}

// FetchCategories replaces the cached categories.
func (s *Store) FetchCategories(ctx context.Context) error {
	list, err := s.categories.List(ctx, nil)
	if err != nil {
		return err
	}
	fresh := make([]model.Category, 0, len(list))
	for _, c := range list {
		fresh = append(fresh, copyCategory(*c))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		logger.Debug("dropping category fetch", "error", err)
		return err
	}
	s.cats = fresh
	return nil
}

func (s *Store) Refresh(ctx context.Context) error {
	if err := s.FetchCategories(ctx); err != nil {
		return err
	}
	return s.FetchTransactions(ctx)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Transactions:      make([]model.Transaction, 0, len(s.txs)),
		Categories:        make([]model.Category, 0, len(s.cats)),
		IncomeCategories:  []model.Category{},
		ExpenseCategories: []model.Category{},
	}
	for _, t := range s.txs {
		snap.Transactions = append(snap.Transactions, copyTransaction(t))
	}
	for _, c := range s.cats {
		c = copyCategory(c)
		snap.Categories = append(snap.Categories, c)
		switch c.Type {
		case model.CategoryIncome:
			snap.IncomeCategories = append(snap.IncomeCategories, c)
		case model.CategoryExpense:
			snap.ExpenseCategories = append(snap.ExpenseCategories, c)
		}
	}
	return snap
}

func (s *Store) Transactions() []model.Transaction {
	return s.Snapshot().Transactions
}

func (s *Store) AddCategory(ctx context.Context, p model.CategoryCreateRequest) (*model.Category, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	c, err := s.categories.Add(ctx, p)
	if err != nil {
		return nil, err
	}
	return c, s.refetch(ctx, s.FetchCategories)
}

// UpdateCategory refetches transactions too: a rename is carried to them.
func (s *Store) UpdateCategory(ctx context.Context, id int64, p model.CategoryUpdateRequest) (*model.Category, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	c, err := s.categories.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	return c, s.refetch(ctx, s.FetchCategories, s.FetchTransactions)
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.categories.SoftDelete(ctx, id); err != nil {
		return err
	}
	return s.refetch(ctx, s.FetchCategories)
}

func (s *Store) AddTransaction(ctx context.Context, p model.TransactionCreateRequest) (*model.Transaction, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	t, err := s.transactions.Add(ctx, p)
	if err != nil {
		return nil, err
	}
	return t, s.refetch(ctx, s.FetchTransactions)
}

func (s *Store) UpdateTransaction(ctx context.Context, id int64, p model.TransactionUpdateRequest) (*model.Transaction, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	t, err := s.transactions.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	return t, s.refetch(ctx, s.FetchTransactions)
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.transactions.SoftDelete(ctx, id); err != nil {
		return err
	}
	return s.refetch(ctx, s.FetchTransactions)
}

// refetch runs after a committed write. Its failure leaves the cache stale but
// does not undo the write, so it is logged and returned as ErrStale.
func (s *Store) refetch(ctx context.Context, fetches ...func(context.Context) error) error {
	for _, fetch := range fetches {
		if err := fetch(ctx); err != nil {
			logger.Warn("refetch after write failed", "error", err)
			return ErrStale
		}
	}
	return nil
}

func copyTransaction(t model.Transaction) model.Transaction {
	if t.CategoryImage != nil {
		img := *t.CategoryImage
		t.CategoryImage = &img
	}
	return t
}

func copyCategory(c model.Category) model.Category {
	if c.Budget != nil {
		b := *c.Budget
		c.Budget = &b
	}
	if c.Image != nil {
		img := *c.Image
		c.Image = &img
	}
	return c
}
