package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/xpensemate/internal/aggregate"
	gateway "github.com/nimasrn/xpensemate/internal/gateways"
	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/internal/processor"
	"github.com/nimasrn/xpensemate/internal/queue"
	"github.com/nimasrn/xpensemate/internal/repository"
	"github.com/nimasrn/xpensemate/internal/services"
	"github.com/nimasrn/xpensemate/internal/state"
	"github.com/nimasrn/xpensemate/pkg/db"
	"github.com/nimasrn/xpensemate/pkg/redis"
	"github.com/nimasrn/xpensemate/test/fixtures"
	"github.com/nimasrn/xpensemate/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStream = "test:alerts"

type TestEnvironment struct {
	DB           *db.DB
	Redis        *miniredis.Miniredis
	RedisAdapter redis.RedisAdapter
	Queue        *queue.Queue
	Ledger       *state.Store
	Budgets      *services.MonthlyBudgetService
	Notification *services.NotificationService
	Exchange     *services.ExchangeService
	Reports      *services.ReportService
	Now          time.Time
}

func queueConfig() queue.QueueConfig {
	return queue.QueueConfig{
		Name:              testStream,
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      50 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	d := helpers.SetupTestDB(t)
	mr, adapter := helpers.SetupTestRedis(t)

	q, err := queue.NewQueue(context.Background(), adapter, queueConfig())
	require.NoError(t, err)

	categoryRepo := repository.NewCategoryRepository(d)
	transactionRepo := repository.NewTransactionRepository(d)
	budgetRepo := repository.NewMonthlyBudgetRepository(d)
	notificationRepo := repository.NewNotificationRepository(d)

	evaluator := services.NewBudgetAlertEvaluator(
		repository.NewSettingRepository(d), categoryRepo, transactionRepo, notificationRepo,
		services.WithNotifier(services.NewQueueNotifier(q)),
		services.WithDeduper(services.NewRedisAlertDeduper(adapter)),
	)
	categories := services.NewCategoryService(d, categoryRepo, transactionRepo, services.NewImageStore(t.TempDir()))
	transactions := services.NewTransactionService(d, transactionRepo, categoryRepo, budgetRepo,
		services.WithAlerts(evaluator, "$"))

	ledger := state.NewStore(categories, transactions)
	require.NoError(t, ledger.Refresh(context.Background()))

	return &TestEnvironment{
		DB:           d,
		Redis:        mr,
		RedisAdapter: adapter,
		Queue:        q,
		Ledger:       ledger,
		Budgets:      services.NewMonthlyBudgetService(d, budgetRepo, transactionRepo),
		Notification: services.NewNotificationService(notificationRepo),
		Exchange:     services.NewExchangeService(d, categoryRepo, transactionRepo),
		Reports:      services.NewReportService(transactionRepo, "$"),
		Now:          time.Now().UTC(),
	}
}

// seedFoodBudget creates a Food category with a 100.00 budget, a monthly budget
// for the current month and enables notifications.
func (env *TestEnvironment) seedFoodBudget(t *testing.T) {
	ctx := context.Background()
	_, err := env.Ledger.AddCategory(ctx, fixtures.NewExpenseCategoryRequest("Food", "100"))
	require.NoError(t, err)
	_, err = env.Budgets.Add(ctx, fixtures.MonthlyBudgetRequest(env.Now.Month(), env.Now.Year(), "2000"))
	require.NoError(t, err)
	helpers.EnableNotifications(t, env.DB)
}

func (env *TestEnvironment) streamLen(t *testing.T) int64 {
	n, err := env.RedisAdapter.XLen(context.Background(), testStream)
	require.NoError(t, err)
	return n
}

// pushProvider records the alerts pushed to it.
type pushProvider struct {
	mu       sync.Mutex
	received []gateway.PushRequest
}

func (p *pushProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.received)
}

func (p *pushProvider) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/push", func(w http.ResponseWriter, r *http.Request) {
		var req gateway.PushRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		p.mu.Lock()
		p.received = append(p.received, req)
		p.mu.Unlock()
		_ = json.NewEncoder(w).Encode(gateway.PushResponse{
			PushID:      "push-" + strconv.FormatInt(req.NotificationID, 10),
			Status:      gateway.PushAccepted,
			ProviderID:  "test",
			ProcessedAt: time.Now(),
		})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestE2E_ExpenseWithinBudgetRaisesNoAlert(t *testing.T) {
	env := setupE2EEnvironment(t)
	env.seedFoodBudget(t)
	ctx := context.Background()

	_, err := env.Ledger.AddTransaction(ctx, fixtures.NewExpenseRequest("Food", "60", env.Now))
	require.NoError(t, err)

	list, err := env.Notification.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, env.streamLen(t))
	assert.Len(t, env.Ledger.Snapshot().Transactions, 1)
}

func TestE2E_ExpenseOverBudgetQueuesOneAlertPerMonth(t *testing.T) {
	env := setupE2EEnvironment(t)
	env.seedFoodBudget(t)
	ctx := context.Background()

	_, err := env.Ledger.AddTransaction(ctx, fixtures.NewExpenseRequest("Food", "60", env.Now))
	require.NoError(t, err)
	_, err = env.Ledger.AddTransaction(ctx, fixtures.NewExpenseRequest("Food", "50", env.Now))
	require.NoError(t, err)

	list, err := env.Notification.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.AlertTitleBudgetExceeded, list[0].Title)
	assert.Equal(t, "You have exceeded your budget for Food by $ 10.00", list[0].Message)
	assert.False(t, list[0].ReadStatus)
	assert.Equal(t, int64(1), env.streamLen(t))

	// a further expense in the same month is already covered by the first alert
	_, err = env.Ledger.AddTransaction(ctx, fixtures.NewExpenseRequest("Food", "10", env.Now))
	require.NoError(t, err)

	list, err = env.Notification.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(1), env.streamLen(t))
}

func TestE2E_ExpenseWithoutMonthlyBudgetIsRejected(t *testing.T) {
	env := setupE2EEnvironment(t)
	ctx := context.Background()

	_, err := env.Ledger.AddCategory(ctx, fixtures.NewExpenseCategoryRequest("Food", "100"))
	require.NoError(t, err)

	_, err = env.Ledger.AddTransaction(ctx, fixtures.NewExpenseRequest("Food", "10", env.Now))
	require.ErrorIs(t, err, model.ErrBudgetRequired)
	assert.Empty(t, env.Ledger.Snapshot().Transactions)

	// income needs no monthly budget
	_, err = env.Ledger.AddCategory(ctx, fixtures.NewIncomeCategoryRequest("Salary"))
	require.NoError(t, err)
	_, err = env.Ledger.AddTransaction(ctx, fixtures.NewIncomeRequest("Salary", "3000", env.Now))
	require.NoError(t, err)
	assert.Len(t, env.Ledger.Snapshot().Transactions, 1)
}

func TestE2E_AlertDeliveredThroughProcessor(t *testing.T) {
	env := setupE2EEnvironment(t)
	env.seedFoodBudget(t)

	provider := &pushProvider{}
	srv := provider.server(t)

	client, err := gateway.NewClient(&gateway.Config{
		Providers:  []gateway.ProviderConfig{{Name: "primary", URL: srv.URL, Weight: 100}},
		Timeout:    2 * time.Second,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer client.Close()

	idempotency := processor.NewIdempotencyService(env.RedisAdapter, processor.DefaultIdempotencyConfig())
	service := processor.NewProcessorService(env.RedisAdapter, processor.NewAlertProcessor(client, idempotency), processor.Options{
		Queue:     queueConfig(),
		Consumers: 1,
		Workers:   2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, service.Start(ctx))
	defer service.Stop()

	_, err = env.Ledger.AddTransaction(context.Background(), fixtures.NewExpenseRequest("Food", "150", env.Now))
	require.NoError(t, err)

	helpers.AssertEventually(t, 5*time.Second, func() bool {
		return provider.count() == 1
	}, "alert was not pushed")

	list, err := env.Notification.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	provider.mu.Lock()
	pushed := provider.received[0]
	provider.mu.Unlock()
	assert.Equal(t, list[0].ID, pushed.NotificationID)
	assert.Equal(t, model.AlertTitleBudgetExceeded, pushed.Title)

	helpers.AssertEventually(t, 2*time.Second, func() bool {
		done, err := idempotency.IsProcessed(context.Background(), strconv.FormatInt(pushed.NotificationID, 10))
		return err == nil && done
	}, "alert was not marked delivered")
}

func TestE2E_CategoryRenameCascadesToTransactions(t *testing.T) {
	env := setupE2EEnvironment(t)
	env.seedFoodBudget(t)
	ctx := context.Background()

	_, err := env.Ledger.AddTransaction(ctx, fixtures.NewExpenseRequest("Food", "20", env.Now))
	require.NoError(t, err)

	snap := env.Ledger.Snapshot()
	require.Len(t, snap.ExpenseCategories, 1)
	_, err = env.Ledger.UpdateCategory(ctx, snap.ExpenseCategories[0].ID, model.CategoryUpdateRequest{Name: helpers.Ptr("Groceries")})
	require.NoError(t, err)

	snap = env.Ledger.Snapshot()
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "Groceries", snap.Transactions[0].Category)
	assert.Equal(t, "Groceries", snap.ExpenseCategories[0].Name)
}

func TestE2E_ExportImportIntoFreshLedger(t *testing.T) {
	src := setupE2EEnvironment(t)
	src.seedFoodBudget(t)
	ctx := context.Background()

	_, err := src.Ledger.AddCategory(ctx, fixtures.NewIncomeCategoryRequest("Salary"))
	require.NoError(t, err)
	_, err = src.Ledger.AddTransaction(ctx, fixtures.NewIncomeRequest("Salary", "3000", src.Now))
	require.NoError(t, err)
	_, err = src.Ledger.AddTransaction(ctx, fixtures.NewExpenseRequest("Food", "42.50", src.Now))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.Exchange.Export(ctx, &buf))
	workbook := buf.Bytes()

	dst := setupE2EEnvironment(t)
	res, err := dst.Exchange.Import(ctx, bytes.NewReader(workbook))
	require.NoError(t, err)
	assert.Equal(t, services.ImportCounts{Inserted: 2}, res.Categories)
	assert.Equal(t, services.ImportCounts{Inserted: 2}, res.Transactions)

	require.NoError(t, dst.Ledger.Refresh(ctx))
	want, got := src.Ledger.Snapshot().Transactions, dst.Ledger.Snapshot().Transactions
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Type, got[i].Type)
		assert.Equal(t, want[i].Category, got[i].Category)
		assert.True(t, want[i].Amount.Equal(got[i].Amount), "amount of transaction %d", want[i].ID)
		assert.True(t, want[i].Date.Equal(got[i].Date), "date of transaction %d", want[i].ID)
	}

	// rows whose id already exists are skipped
	res, err = dst.Exchange.Import(ctx, bytes.NewReader(workbook))
	require.NoError(t, err)
	assert.Equal(t, services.ImportCounts{Skipped: 2}, res.Categories)
	assert.Equal(t, services.ImportCounts{Skipped: 2}, res.Transactions)
}

func TestE2E_ReportRendersSelectedCategories(t *testing.T) {
	env := setupE2EEnvironment(t)
	env.seedFoodBudget(t)
	ctx := context.Background()

	_, err := env.Ledger.AddCategory(ctx, fixtures.NewExpenseCategoryRequest("Rent", "1200"))
	require.NoError(t, err)
	_, err = env.Ledger.AddTransaction(ctx, fixtures.NewExpenseRequest("Food", "12.30", env.Now))
	require.NoError(t, err)
	_, err = env.Ledger.AddTransaction(ctx, fixtures.NewExpenseRequest("Rent", "900", env.Now))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = env.Reports.Render(ctx, &buf, aggregate.ReportFilter{Type: "expense", Categories: []string{"Food"}})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "Food")
	assert.Contains(t, html, "12.30")
	assert.NotContains(t, html, "Rent")

	err = env.Reports.Render(ctx, &buf, aggregate.ReportFilter{Type: "income", Categories: []string{"Food"}})
	assert.ErrorIs(t, err, aggregate.ErrEmptyReport)
}
