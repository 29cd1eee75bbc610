package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/nimasrn/xpensemate/pkg/prom"
	"github.com/nimasrn/xpensemate/pkg/redis"
)

// Notifier displays a stored notification to the user.
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
}

// LogNotifier is the display used when no delivery queue is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n *model.Notification) error {
	logger.Info("budget alert", "title", n.Title, "message", n.Message, "notification_id", n.ID)
	return nil
}

// Publisher is satisfied by *queue.Queue.
type Publisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

// QueueNotifier hands notifications to the alert delivery processor.
type QueueNotifier struct {
	publisher Publisher
}

func NewQueueNotifier(publisher Publisher) *QueueNotifier {
	return &QueueNotifier{publisher: publisher}
}

func (q *QueueNotifier) Notify(ctx context.Context, n *model.Notification) error {
	id, err := q.publisher.PublishJSON(ctx, model.NewAlertEvent(n), map[string]string{
		"type": "budget_alert",
	})
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	logger.Debug("budget alert queued", "notification_id", n.ID, "message_id", id)
	return nil
}

// AlertDeduper decides whether a category may alert again in a month.
type AlertDeduper interface {
	Claim(ctx context.Context, categoryID int64, month time.Time) (bool, error)
}

const alertDedupeTTL = 35 * 24 * time.Hour

// RedisAlertDeduper allows one alert per category and calendar month.
type RedisAlertDeduper struct {
	redis redis.RedisAdapter
}

func NewRedisAlertDeduper(r redis.RedisAdapter) *RedisAlertDeduper {
	return &RedisAlertDeduper{redis: r}
}

func (d *RedisAlertDeduper) Claim(ctx context.Context, categoryID int64, month time.Time) (bool, error) {
	key := fmt.Sprintf("alert:%d:%s", categoryID, month.UTC().Format("2006-01"))
	return d.redis.SetNX(ctx, key, []byte(month.UTC().Format(time.RFC3339)), alertDedupeTTL)
}

// BudgetAlertEvaluator records a notification when the month to date expenses
// of a category exceed its budget. It never returns an error: the expense that
// triggered it is already committed.
type BudgetAlertEvaluator struct {
	settings      SettingRepository
	categories    CategoryRepository
	transactions  TransactionRepository
	notifications NotificationRepository
	notifier      Notifier
	deduper       AlertDeduper
	now           func() time.Time
}

type AlertOption func(*BudgetAlertEvaluator)

func WithNotifier(n Notifier) AlertOption {
	return func(e *BudgetAlertEvaluator) {
		e.notifier = n
	}
}

func WithDeduper(d AlertDeduper) AlertOption {
	return func(e *BudgetAlertEvaluator) {
		e.deduper = d
	}
}

func WithAlertClock(now func() time.Time) AlertOption {
	return func(e *BudgetAlertEvaluator) {
		e.now = now
	}
}

func NewBudgetAlertEvaluator(settings SettingRepository, categories CategoryRepository, transactions TransactionRepository, notifications NotificationRepository, opts ...AlertOption) *BudgetAlertEvaluator {
	e := &BudgetAlertEvaluator{
		settings:      settings,
		categories:    categories,
		transactions:  transactions,
		notifications: notifications,
		notifier:      LogNotifier{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *BudgetAlertEvaluator) Evaluate(ctx context.Context, categoryName, currencySymbol string) {
	raw, err := e.settings.Get(ctx, model.SettingNotificationsEnabled)
	if err != nil {
		logger.Debug("budget alert skipped, notifications setting unavailable", "error", err)
		prom.IncBudgetAlert("skipped")
		return
	}
	if enabled, err := strconv.ParseBool(raw); err != nil || !enabled {
		prom.IncBudgetAlert("disabled")
		return
	}

	category, err := e.categories.FindActive(ctx, categoryName, model.CategoryExpense)
	if err != nil {
		logger.Debug("budget alert skipped, category unavailable", "category", categoryName, "error", err)
		prom.IncBudgetAlert("skipped")
		return
	}
	if category.Budget == nil {
		prom.IncBudgetAlert("no_budget")
		return
	}

	now := e.now().UTC()
	from, to := model.MonthRange(now.Year(), now.Month())
	spent, err := e.transactions.SumInRange(ctx, model.TransactionExpense, category.Name, from, to)
	if err != nil {
		logger.Warn("budget alert skipped, failed to sum expenses", "category", category.Name, "error", err)
		prom.IncBudgetAlert("error")
		return
	}
	if !spent.GreaterThan(*category.Budget) {
		prom.IncBudgetAlert("within_budget")
		return
	}

	if e.deduper != nil {
		claimed, err := e.deduper.Claim(ctx, category.ID, from)
		if err != nil {
			logger.Warn("budget alert de-dup unavailable", "category", category.Name, "error", err)
		} else if !claimed {
			prom.IncBudgetAlert("suppressed")
			return
		}
	}

	over := spent.Sub(*category.Budget)
	categoryID := category.ID
	n, err := e.notifications.Create(ctx, &model.Notification{
		Title:      model.AlertTitleBudgetExceeded,
		Message:    fmt.Sprintf("You have exceeded your budget for %s by %s %s", category.Name, currencySymbol, over.StringFixed(2)),
		Timestamp:  model.NormalizeTime(now),
		CategoryID: &categoryID,
	})
	if err != nil {
		logger.Warn("failed to store budget alert", "category", category.Name, "error", err)
		prom.IncBudgetAlert("error")
		return
	}
	prom.IncBudgetAlert("fired")

	if err := e.notifier.Notify(ctx, n); err != nil {
		logger.Warn("failed to display budget alert", "notification_id", n.ID, "error", err)
	}
}
