package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/xpensemate/internal/queue"
	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/nimasrn/xpensemate/pkg/redis"
	"github.com/nimasrn/xpensemate/pkg/worker"
)

const (
	HealthInterval  = 30 * time.Second
	MetricsInterval = 30 * time.Second
	ShutdownTimeout = 30 * time.Second
	// pending entries above this are logged as lag
	lagThreshold = 1000
)

// Processor handles one queue message. A nil error acks it.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

type Options struct {
	Queue             queue.QueueConfig
	Consumers         int
	Workers           int
	ProcessingTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.Consumers < 1 {
		o.Consumers = 1
	}
	if o.Workers < 1 {
		o.Workers = 4
	}
	if o.ProcessingTimeout == 0 {
		o.ProcessingTimeout = 10 * time.Second
	}
}

// ProcessorService fans stream messages from several consumers into a worker pool.
type ProcessorService struct {
	adapter   redis.RedisAdapter
	options   Options
	processor Processor
	queues    []*queue.Queue
	metrics   *ServiceMetrics
	worker    *worker.WorkerManager
	wg        sync.WaitGroup
	cancel    context.CancelFunc
}

func NewProcessorService(adapter redis.RedisAdapter, processor Processor, options Options) *ProcessorService {
	options.setDefaults()
	return &ProcessorService{
		adapter:   adapter,
		options:   options,
		processor: processor,
		metrics:   NewServiceMetrics(),
		worker:    worker.NewWorkerManager(options.Workers*2, options.Workers),
	}
}

func (s *ProcessorService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.worker.SetWorker(s.workerHandler)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(ctx); err != nil {
			logger.Info("worker pool stopped", "reason", err)
		}
	}()

	for i := 0; i < s.options.Consumers; i++ {
		cfg := s.options.Queue
		cfg.ConsumerName = fmt.Sprintf("%s-%d", cfg.ConsumerName, i)

		q, err := queue.NewQueue(ctx, s.adapter, cfg)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to create consumer %d: %w", i, err)
		}
		if err := q.Consume(ctx, s.messageHandler); err != nil {
			cancel()
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}
		s.queues = append(s.queues, q)
	}

	s.wg.Add(2)
	go s.every(ctx, MetricsInterval, s.reportMetrics)
	go s.every(ctx, HealthInterval, s.performHealthCheck)

	logger.Info("processor service started",
		"type", s.processor.GetType(),
		"stream", s.options.Queue.Name,
		"consumers", len(s.queues),
		"workers", s.worker.Size())
	return nil
}

func (s *ProcessorService) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) reportMetrics(ctx context.Context) {
	m := s.metrics.Snapshot()
	logger.Info("processor metrics",
		"processed", m.Processed,
		"failed", m.Failed,
		"rate_per_second", m.RatePerSecond,
		"avg_duration_ms", m.AvgDuration.Milliseconds(),
		"uptime", m.Uptime.String())

	if len(s.queues) > 0 {
		if stats, err := s.queues[0].GetStats(ctx); err == nil {
			logger.Info("stream stats", "stream", s.queues[0].Name(), "total", stats.TotalMessages, "pending", stats.PendingMessages)
		}
	}
}

func (s *ProcessorService) performHealthCheck(ctx context.Context) {
	if err := s.adapter.Ping(ctx); err != nil {
		logger.Error("health check failed: redis unreachable", "error", err)
		return
	}
	if len(s.queues) == 0 {
		return
	}
	stats, err := s.queues[0].GetStats(ctx)
	if err != nil {
		logger.Warn("health check: stream stats unavailable", "error", err)
		return
	}
	if stats.PendingMessages > lagThreshold {
		logger.Warn("health check: stream has high lag", "pending", stats.PendingMessages)
	}
}

// Stop drains consumers, then the worker pool.
func (s *ProcessorService) Stop() {
	logger.Info("shutting down processor service")

	var qwg sync.WaitGroup
	for i, q := range s.queues {
		qwg.Add(1)
		go func(index int, q *queue.Queue) {
			defer qwg.Done()
			if err := q.Stop(ShutdownTimeout); err != nil {
				logger.Error("error stopping consumer", "consumer", index, "error", err)
			}
		}(i, q)
	}
	qwg.Wait()

	s.worker.Exit()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.reportMetrics(context.Background())
	logger.Info("processor service stopped")
}

type job struct {
	ctx    context.Context
	msg    *queue.Message
	result chan error
}

// messageHandler hands the message to the pool and waits for its outcome.
func (s *ProcessorService) messageHandler(ctx context.Context, msg *queue.Message) error {
	jctx, cancel := context.WithTimeout(ctx, s.options.ProcessingTimeout)
	defer cancel()

	j := &job{ctx: jctx, msg: msg, result: make(chan error, 1)}
	if err := s.worker.Enqueue(jctx, j); err != nil {
		return err
	}

	select {
	case err := <-j.result:
		return err
	case <-jctx.Done():
		return fmt.Errorf("timeout waiting for worker: %w", jctx.Err())
	}
}

func (s *ProcessorService) workerHandler(workerIndex int, payload interface{}) {
	j, ok := payload.(*job)
	if !ok {
		logger.Error("invalid job type in worker", "worker", workerIndex)
		return
	}
	if j.ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := s.processor.Process(j.ctx, j.msg)
	if err != nil {
		s.metrics.RecordFailure()
		logger.Error("failed to process message", "worker", workerIndex, "message_id", j.msg.ID, "error", err)
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}

	j.result <- err
}
