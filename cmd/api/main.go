package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nimasrn/xpensemate/internal/config"
	"github.com/nimasrn/xpensemate/internal/handlers"
	"github.com/nimasrn/xpensemate/internal/migrations"
	"github.com/nimasrn/xpensemate/internal/queue"
	"github.com/nimasrn/xpensemate/internal/repository"
	"github.com/nimasrn/xpensemate/internal/services"
	"github.com/nimasrn/xpensemate/internal/state"
	"github.com/nimasrn/xpensemate/pkg/db"
	xhttp "github.com/nimasrn/xpensemate/pkg/http"
	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/nimasrn/xpensemate/pkg/prom"
	"github.com/nimasrn/xpensemate/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	if err = logger.Configure(cfg.AppEnv, cfg.LogLevel); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}
	defer logger.Sync()
	logger.Info("starting ledger api", "version", version, "commit", commit, "date", date)

	dbConf := cfg.Database()
	if dbConf.Driver == db.DriverSQLite {
		if err = os.MkdirAll(filepath.Dir(dbConf.SQLitePath), 0o755); err != nil {
			logger.Error("failed to create data directory", "error", err)
			return
		}
	}
	store, err := db.Open(dbConf)
	if err != nil {
		logger.Error("failed to open database", "driver", dbConf.Driver, "error", err)
		return
	}
	defer store.Close()

	if err = db.Migrate(store, migrations.FS); err != nil {
		logger.Error("failed to migrate database", "error", err)
		return
	}

	categoryRepo := repository.NewCategoryRepository(store)
	transactionRepo := repository.NewTransactionRepository(store)
	balanceRepo := repository.NewOpeningBalanceRepository(store)
	budgetRepo := repository.NewMonthlyBudgetRepository(store)
	notificationRepo := repository.NewNotificationRepository(store)
	settingRepo := repository.NewSettingRepository(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// redis is optional: without it alerts are only logged
	var redisAdap redis.RedisAdapter
	alertOpts := []services.AlertOption{}
	if cfg.RedisEnabled() {
		redisAdap, err = redis.NewRedisAdapter("default", cfg.RedisKeyPrefix, &redis.Options{
			Addrs:      []string{cfg.RedisAddr},
			ClientName: cfg.AppName,
			DB:         cfg.RedisDatabase,
			Password:   cfg.RedisPassword,
			PoolSize:   cfg.RedisPoolSize,
		})
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}

		q, err := queue.NewQueue(ctx, redisAdap, queue.QueueConfig{
			Name:          cfg.QueueStream,
			ConsumerGroup: cfg.QueueGroup,
			MaxRetries:    cfg.QueueMaxRetries,
			BatchSize:     cfg.QueueBatchSize,
			MaxLen:        cfg.QueueMaxLen,
			EnableDLQ:     true,
		})
		if err != nil {
			logger.Error("failed creating alert queue", "error", err)
			return
		}
		alertOpts = append(alertOpts, services.WithNotifier(services.NewQueueNotifier(q)))
		if cfg.AlertDedupe {
			alertOpts = append(alertOpts, services.WithDeduper(services.NewRedisAlertDeduper(redisAdap)))
		}
	}

	images := services.NewImageStore(cfg.ImageDir)
	evaluator := services.NewBudgetAlertEvaluator(settingRepo, categoryRepo, transactionRepo, notificationRepo, alertOpts...)

	categoryService := services.NewCategoryService(store, categoryRepo, transactionRepo, images)
	transactionService := services.NewTransactionService(store, transactionRepo, categoryRepo, budgetRepo,
		services.WithAlerts(evaluator, cfg.CurrencySymbol))
	balanceService := services.NewOpeningBalanceService(store, balanceRepo)
	budgetService := services.NewMonthlyBudgetService(store, budgetRepo, transactionRepo)
	settingsService := services.NewSettingsService(settingRepo)
	notificationService := services.NewNotificationService(notificationRepo)
	reportService := services.NewReportService(transactionRepo, cfg.CurrencySymbol)
	exchangeService := services.NewExchangeService(store, categoryRepo, transactionRepo)
	healthService := services.NewHealthService(store, redisAdap)

	ledger := state.NewStore(categoryService, transactionService)
	if err = ledger.Refresh(ctx); err != nil {
		logger.Error("failed to load ledger", "error", err)
		return
	}

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	if cfg.MetricsListenAddr != "" {
		go prom.ListenAndServer(cfg.MetricsListenAddr, "/metrics")
	}

	s := xhttp.CreateServer(cfg.HttpReadTimeout, cfg.HttpWriteTimeout)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpWriteTimeout))

	g := s.Router.Group("/api/v1")
	handlers.RegisterLedgerRoutes(g, handlers.NewLedgerHandler(ledger))
	handlers.RegisterBudgetRoutes(g, handlers.NewBudgetHandler(balanceService, budgetService))
	handlers.RegisterStatsRoutes(g, handlers.NewStatsHandler(ledger, balanceService))
	handlers.RegisterReportRoutes(g, handlers.NewReportHandler(reportService, exchangeService, ledger))
	handlers.RegisterNotificationRoutes(g, handlers.NewNotificationHandler(notificationService, settingsService))
	handlers.RegisterHealthRoutes(s.Router, handlers.NewHealthHandler(healthService))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(cfg.HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
			c <- syscall.SIGTERM
		}
	}()

	<-c
	cancel()
	s.Shutdown()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			path := strings.TrimPrefix(v, "--env=")
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file", "path", path, "error", err)
				return ""
			}
			return path
		}
	}
	return ""
}
