package services

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEvaluator struct {
	mock.Mock
}

func (m *mockEvaluator) Evaluate(ctx context.Context, categoryName, currencySymbol string) {
	m.Called(ctx, categoryName, currencySymbol)
}

func TestTransactionService_ExpenseRequiresBudget(t *testing.T) {
	l := setupLedger(t)
	svc := l.transactionService(nil)
	ctx := context.Background()

	l.addCategory(t, "Expense", "Food", "")
	l.addBudget(t, time.February, 2025, "500")

	_, err := svc.Add(ctx, model.TransactionCreateRequest{Type: "expense", Category: "Food", Amount: "12.50", Date: "2025-03-02"})
	assert.ErrorIs(t, err, model.ErrBudgetRequired)
	assert.ErrorIs(t, err, model.ErrPrecondition)
	assert.Zero(t, l.countRows(t, "transactions"))

	l.addBudget(t, time.March, 2025, "500")
	created, err := svc.Add(ctx, model.TransactionCreateRequest{Type: "expense", Category: "Food", Amount: "12.50", Date: "2025-03-02"})
	require.NoError(t, err)
	assert.Equal(t, "12.50", created.Amount.StringFixed(2))
}

func TestTransactionService_IncomeNeedsNoBudget(t *testing.T) {
	l := setupLedger(t)
	svc := l.transactionService(nil)

	l.addCategory(t, "Income", "Salary", "")
	created, err := svc.Add(context.Background(), model.TransactionCreateRequest{Type: "Income", Category: "salary", Amount: "2000", Date: "2025-03-01", Description: " March "})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionIncome, created.Type)
	assert.Equal(t, "Salary", created.Category, "category name is stored in its canonical spelling")
	assert.Equal(t, "March", created.Description)
}

func TestTransactionService_CategoryMustBeActive(t *testing.T) {
	l := setupLedger(t)
	svc := l.transactionService(nil)
	ctx := context.Background()

	gifts := l.addCategory(t, "Income", "Gifts", "")
	l.addCategory(t, "Expense", "Food", "")

	tests := []struct {
		name string
		req  model.TransactionCreateRequest
	}{
		{"unknown", model.TransactionCreateRequest{Type: "income", Category: "Lottery", Amount: "5", Date: "2025-03-01"}},
		{"type mismatch", model.TransactionCreateRequest{Type: "income", Category: "Food", Amount: "5", Date: "2025-03-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, tt.req)
			assert.ErrorIs(t, err, model.ErrCategoryInactive)
		})
	}

	require.NoError(t, NewCategoryService(l.db, l.categories, l.transactions, nil).SoftDelete(ctx, gifts.ID))
	_, err := svc.Add(ctx, model.TransactionCreateRequest{Type: "income", Category: "Gifts", Amount: "5", Date: "2025-03-01"})
	assert.ErrorIs(t, err, model.ErrCategoryInactive)
	assert.Zero(t, l.countRows(t, "transactions"))
}

func TestTransactionService_AddValidation(t *testing.T) {
	l := setupLedger(t)
	svc := l.transactionService(nil)

	tests := []struct {
		name string
		req  model.TransactionCreateRequest
	}{
		{"bad type", model.TransactionCreateRequest{Type: "transfer", Category: "Food", Amount: "5", Date: "2025-03-01"}},
		{"missing category", model.TransactionCreateRequest{Type: "income", Amount: "5", Date: "2025-03-01"}},
		{"zero amount", model.TransactionCreateRequest{Type: "income", Category: "Food", Amount: "0", Date: "2025-03-01"}},
		{"three decimals", model.TransactionCreateRequest{Type: "income", Category: "Food", Amount: "1.234", Date: "2025-03-01"}},
		{"bad date", model.TransactionCreateRequest{Type: "income", Category: "Food", Amount: "5", Date: "01/03/2025"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(context.Background(), tt.req)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestTransactionService_EvaluatesExpensesOnly(t *testing.T) {
	l := setupLedger(t)
	alerts := &mockEvaluator{}
	svc := l.transactionService(alerts)
	ctx := context.Background()

	l.addCategory(t, "Expense", "Food", "100")
	l.addCategory(t, "Income", "Salary", "")
	l.addBudget(t, time.March, 2025, "500")

	alerts.On("Evaluate", mock.Anything, "Food", "$").Once()

	_, err := svc.Add(ctx, model.TransactionCreateRequest{Type: "income", Category: "Salary", Amount: "100", Date: "2025-03-01"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, model.TransactionCreateRequest{Type: "expense", Category: "food", Amount: "20", Date: "2025-03-01"})
	require.NoError(t, err)

	alerts.AssertExpectations(t)
}

func TestTransactionService_UpdateAndSoftDelete(t *testing.T) {
	l := setupLedger(t)
	svc := l.transactionService(nil)
	ctx := context.Background()

	l.addCategory(t, "Income", "Salary", "")
	l.addCategory(t, "Income", "Bonus", "")
	l.addCategory(t, "Expense", "Food", "")
	created, err := svc.Add(ctx, model.TransactionCreateRequest{Type: "income", Category: "Salary", Amount: "100", Date: "2025-03-01"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, model.TransactionUpdateRequest{Category: strPtr("bonus"), Amount: strPtr("150.25")})
	require.NoError(t, err)
	assert.Equal(t, "Bonus", updated.Category)
	assert.Equal(t, "150.25", updated.Amount.StringFixed(2))

	_, err = svc.Update(ctx, created.ID, model.TransactionUpdateRequest{Type: strPtr("expense")})
	assert.ErrorIs(t, err, model.ErrBudgetRequired)

	l.addBudget(t, time.March, 2025, "500")
	_, err = svc.Update(ctx, created.ID, model.TransactionUpdateRequest{Type: strPtr("expense")})
	assert.ErrorIs(t, err, model.ErrCategoryInactive, "Bonus is not an expense category")

	moved, err := svc.Update(ctx, created.ID, model.TransactionUpdateRequest{Type: strPtr("expense"), Category: strPtr("Food")})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionExpense, moved.Type)

	require.NoError(t, svc.SoftDelete(ctx, created.ID))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	raw, err := l.transactions.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeleted, raw.Status)

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)
	assert.ErrorIs(t, svc.SoftDelete(ctx, created.ID), model.ErrTransactionNotFound)
	_, err = svc.Update(ctx, created.ID, model.TransactionUpdateRequest{Amount: strPtr("1")})
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)
}
