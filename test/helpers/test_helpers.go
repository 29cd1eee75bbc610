package helpers

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/xpensemate/internal/migrations"
	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/internal/repository"
	"github.com/nimasrn/xpensemate/pkg/db"
	"github.com/nimasrn/xpensemate/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// SetupTestDB opens a private in-memory SQLite database with every migration applied.
func SetupTestDB(t *testing.T) *db.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := db.NewSQLiteMemory(fmt.Sprintf("%s_%d", name, time.Now().UnixNano()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(d, migrations.FS))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// SetupTestRedis starts miniredis and wraps a fresh client so adapters are never shared between tests.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redis.NewFromClient(client, "test:")
}

func CreateTestCategory(t *testing.T, d *db.DB, typ model.CategoryType, name string, budget *decimal.Decimal) *model.Category {
	t.Helper()
	c, err := repository.NewCategoryRepository(d).Create(context.Background(), &model.Category{
		Type:   typ,
		Name:   name,
		Budget: budget,
		Status: model.StatusActive,
	})
	require.NoError(t, err)
	return c
}

func CreateTestMonthlyBudget(t *testing.T, d *db.DB, month time.Month, year int, amount string) *model.MonthlyBudget {
	t.Helper()
	b, err := repository.NewMonthlyBudgetRepository(d).Create(context.Background(), &model.MonthlyBudget{
		Month:  int(month),
		Year:   year,
		Budget: decimal.RequireFromString(amount),
		Status: model.StatusActive,
	})
	require.NoError(t, err)
	return b
}

func EnableNotifications(t *testing.T, d *db.DB) {
	t.Helper()
	require.NoError(t, repository.NewSettingRepository(d).Set(context.Background(), model.SettingNotificationsEnabled, "true"))
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
