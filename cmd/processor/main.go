package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimasrn/xpensemate/internal/config"
	gateway "github.com/nimasrn/xpensemate/internal/gateways"
	"github.com/nimasrn/xpensemate/internal/processor"
	"github.com/nimasrn/xpensemate/internal/queue"
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
	logger.Info("starting alert processor", "version", version, "commit", commit, "date", date)

	if !cfg.RedisEnabled() {
		logger.Error("REDIS_ADDR is required by the alert processor")
		return
	}
	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: cfg.AppName + "-processor",
		DB:         cfg.RedisDatabase,
		Password:   cfg.RedisPassword,
		PoolSize:   cfg.RedisPoolSize,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	providers := []gateway.ProviderConfig{
		{Name: "primary", URL: cfg.PushPrimaryURL, Weight: 100},
	}
	if cfg.PushSecondaryURL != "" {
		providers = append(providers, gateway.ProviderConfig{Name: "secondary", URL: cfg.PushSecondaryURL, Weight: 80})
	}
	client, err := gateway.NewClient(&gateway.Config{
		Providers:               providers,
		Timeout:                 cfg.PushTimeout,
		MaxRetries:              2,
		RetryDelay:              100 * time.Millisecond,
		MaxConns:                64,
		HealthCheckInterval:     30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
	})
	if err != nil {
		logger.Error("failed to create push gateway", "error", err)
		return
	}
	defer client.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	idempotencyConfig := processor.DefaultIdempotencyConfig()
	idempotencyConfig.ProcessedTTL = cfg.ProcessorIdempotencyTTL
	idempotencyConfig.MaxRetries = cfg.QueueMaxRetries
	idempotency := processor.NewIdempotencyService(redisAdap, idempotencyConfig)

	service := processor.NewProcessorService(redisAdap, processor.NewAlertProcessor(client, idempotency), processor.Options{
		Queue: queue.QueueConfig{
			Name:              cfg.QueueStream,
			ConsumerGroup:     cfg.QueueGroup,
			ConsumerName:      hostname,
			MaxRetries:        cfg.QueueMaxRetries,
			VisibilityTimeout: cfg.QueueRetryDelay,
			PollInterval:      cfg.QueuePollInterval,
			BatchSize:         cfg.QueueBatchSize,
			MaxLen:            cfg.QueueMaxLen,
			EnableDLQ:         true,
		},
		Consumers:         cfg.ProcessorConsumers,
		Workers:           cfg.ProcessorWorkers,
		ProcessingTimeout: cfg.PushTimeout * 2,
	})

	if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	metricsAddr := cfg.MetricsListenAddr
	if metricsAddr == "" {
		metricsAddr = ":9100"
	}
	go prom.ListenAndServer(metricsAddr, "/metrics")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err = service.Start(ctx); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}

	<-c
	cancel()
	service.Stop()
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
