package handlers

import (
	"context"
	"io"

	"github.com/nimasrn/xpensemate/internal/aggregate"
	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/internal/services"
	"github.com/nimasrn/xpensemate/internal/state"
	xhttp "github.com/nimasrn/xpensemate/pkg/http"
	"github.com/stretchr/testify/mock"
	"github.com/valyala/fasthttp"
)

type MockLedgerStore struct {
	mock.Mock
}

func (m *MockLedgerStore) Snapshot() state.Snapshot {
	return m.Called().Get(0).(state.Snapshot)
}

func (m *MockLedgerStore) AddCategory(ctx context.Context, p model.CategoryCreateRequest) (*model.Category, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *MockLedgerStore) UpdateCategory(ctx context.Context, id int64, p model.CategoryUpdateRequest) (*model.Category, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *MockLedgerStore) DeleteCategory(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLedgerStore) AddTransaction(ctx context.Context, p model.TransactionCreateRequest) (*model.Transaction, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockLedgerStore) UpdateTransaction(ctx context.Context, id int64, p model.TransactionUpdateRequest) (*model.Transaction, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockLedgerStore) DeleteTransaction(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockOpeningBalanceService struct {
	mock.Mock
}

func (m *MockOpeningBalanceService) SetOpeningBalance(ctx context.Context, p model.OpeningBalanceRequest) (*model.OpeningBalance, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OpeningBalance), args.Error(1)
}

func (m *MockOpeningBalanceService) CreateOpeningBalanceOnce(ctx context.Context, p model.OpeningBalanceRequest) (*model.OpeningBalance, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OpeningBalance), args.Error(1)
}

func (m *MockOpeningBalanceService) Current(ctx context.Context) (*model.OpeningBalance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OpeningBalance), args.Error(1)
}

func (m *MockOpeningBalanceService) History(ctx context.Context) ([]*model.OpeningBalance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OpeningBalance), args.Error(1)
}

type MockMonthlyBudgetService struct {
	mock.Mock
}

func (m *MockMonthlyBudgetService) Add(ctx context.Context, p model.MonthlyBudgetRequest) (*model.MonthlyBudget, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MonthlyBudget), args.Error(1)
}

func (m *MockMonthlyBudgetService) List(ctx context.Context) ([]*model.MonthlyBudget, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MonthlyBudget), args.Error(1)
}

func (m *MockMonthlyBudgetService) Status(ctx context.Context, month, year int) (*model.BudgetStatus, error) {
	args := m.Called(ctx, month, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BudgetStatus), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Render(ctx context.Context, w io.Writer, f aggregate.ReportFilter) error {
	args := m.Called(ctx, w, f)
	if body := args.String(1); body != "" {
		_, _ = io.WriteString(w, body)
	}
	return args.Error(0)
}

type MockExchangeService struct {
	mock.Mock
}

func (m *MockExchangeService) Export(ctx context.Context, w io.Writer) error {
	args := m.Called(ctx, w)
	_, _ = io.WriteString(w, "xlsx-bytes")
	return args.Error(0)
}

func (m *MockExchangeService) Import(ctx context.Context, r io.Reader) (services.ImportResult, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(services.ImportResult), args.Error(1)
}

type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) List(ctx context.Context) ([]*model.Notification, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) NotificationsEnabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettingsService) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	return m.Called(ctx, enabled).Error(0)
}

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) Check(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

// serve dispatches one request through a router carrying the given registrations.
func serve(register func(r *xhttp.Router), method, uri string, body []byte) *fasthttp.RequestCtx {
	r := xhttp.CreateDefaultRouter()
	register(r)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	r.Handler(ctx)
	return ctx
}
