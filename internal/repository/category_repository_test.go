package repository

import (
	"context"
	"testing"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createCategory(t *testing.T, repo *CategoryRepository, name string, typ model.CategoryType, budget string) *model.Category {
	t.Helper()
	c := &model.Category{Name: name, Type: typ}
	if budget != "" {
		b := decimal.RequireFromString(budget)
		c.Budget = &b
	}
	created, err := repo.Create(context.Background(), c)
	require.NoError(t, err)
	return created
}

func TestCategoryRepository_CreateAndGet(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewCategoryRepository(testDB.DB)
	ctx := context.Background()

	created := createCategory(t, repo, "Food", model.CategoryExpense, "100")
	assert.NotZero(t, created.ID)
	assert.Equal(t, model.StatusActive, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Food", got.Name)
	assert.Equal(t, model.CategoryExpense, got.Type)
	require.NotNil(t, got.Budget)
	assert.Equal(t, "100.00", got.Budget.StringFixed(2))

	var raw CategoryEntity
	require.NoError(t, testDB.rawDB.First(&raw, created.ID).Error)
	require.NotNil(t, raw.Budget)
	assert.Equal(t, "100.00", *raw.Budget)

	_, err = repo.Get(ctx, 999)
	assert.ErrorIs(t, err, model.ErrCategoryNotFound)
}

func TestCategoryRepository_FindActiveIgnoresCase(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewCategoryRepository(testDB.DB)
	ctx := context.Background()

	created := createCategory(t, repo, "Groceries", model.CategoryExpense, "")

	got, err := repo.FindActive(ctx, "gROCERIES", model.CategoryExpense)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = repo.FindActive(ctx, "groceries", model.CategoryIncome)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, repo.SetStatus(ctx, created.ID, model.StatusDeleted))
	_, err = repo.FindActive(ctx, "Groceries", model.CategoryExpense)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCategoryRepository_FindActiveFoldsNonASCII(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewCategoryRepository(testDB.DB)
	ctx := context.Background()

	cafe := createCategory(t, repo, "CAFÉ", model.CategoryExpense, "")
	createCategory(t, repo, "Çay Evi", model.CategoryExpense, "")

	got, err := repo.FindActive(ctx, "café", model.CategoryExpense)
	require.NoError(t, err)
	assert.Equal(t, cafe.ID, got.ID)

	exists, err := repo.ExistsActive(ctx, "çay evi", model.CategoryExpense, 0)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCategoryRepository_ExistsActive(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewCategoryRepository(testDB.DB)
	ctx := context.Background()

	food := createCategory(t, repo, "Food", model.CategoryExpense, "")

	exists, err := repo.ExistsActive(ctx, "FOOD", model.CategoryExpense, 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsActive(ctx, "food", model.CategoryExpense, food.ID)
	require.NoError(t, err)
	assert.False(t, exists, "the row itself is excluded")

	exists, err = repo.ExistsActive(ctx, "food", model.CategoryIncome, 0)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCategoryRepository_ListActive(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewCategoryRepository(testDB.DB)
	ctx := context.Background()

	salary := createCategory(t, repo, "Salary", model.CategoryIncome, "")
	food := createCategory(t, repo, "Food", model.CategoryExpense, "")
	rent := createCategory(t, repo, "Rent", model.CategoryExpense, "")
	require.NoError(t, repo.SetStatus(ctx, rent.ID, model.StatusDeleted))

	all, err := repo.ListActive(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, food.ID, all[0].ID, "newest first")
	assert.Equal(t, salary.ID, all[1].ID)

	expense := model.CategoryExpense
	expenses, err := repo.ListActive(ctx, &expense)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Food", expenses[0].Name)

	everything, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, everything, 3)
}

func TestCategoryRepository_Update(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewCategoryRepository(testDB.DB)
	ctx := context.Background()

	c := createCategory(t, repo, "Food", model.CategoryExpense, "50")
	image := "/images/food.png"
	c.Name = "Dining"
	c.Image = &image
	c.Budget = nil

	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dining", got.Name)
	require.NotNil(t, got.Image)
	assert.Equal(t, image, *got.Image)
	assert.Nil(t, got.Budget)

	require.NoError(t, repo.SetStatus(ctx, c.ID, model.StatusDeleted))
	assert.ErrorIs(t, repo.Update(ctx, c), model.ErrCategoryNotFound)
}

func TestCategoryRepository_InsertIgnore(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewCategoryRepository(testDB.DB)
	ctx := context.Background()

	existing := createCategory(t, repo, "Food", model.CategoryExpense, "")

	inserted, err := repo.InsertIgnore(ctx, []*model.Category{
		{ID: existing.ID, Name: "Overwritten", Type: model.CategoryExpense},
		{ID: 40, Name: "Travel", Type: model.CategoryExpense},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)

	got, err := repo.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Food", got.Name)

	travel, err := repo.Get(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, "Travel", travel.Name)

	next := createCategory(t, repo, "Gifts", model.CategoryExpense, "")
	assert.Greater(t, next.ID, int64(40))
}
