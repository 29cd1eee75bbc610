package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/nimasrn/xpensemate/pkg/redis"
)

var (
	ErrAlreadyProcessed   = errors.New("alert already delivered")
	ErrLockAcquireFailed  = errors.New("failed to acquire processing lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL      time.Duration
	ProcessedTTL time.Duration
	MaxRetries   int
	KeyPrefix    string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:      30 * time.Second,
		ProcessedTTL: 24 * time.Hour,
		MaxRetries:   3,
		KeyPrefix:    "alert:",
	}
}

// IdempotencyService guarantees an alert is pushed at most once across consumers.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

func (s *IdempotencyService) processedKey(id string) string {
	return s.config.KeyPrefix + "processed:" + id
}

func (s *IdempotencyService) lockKey(id string) string {
	return s.config.KeyPrefix + "lock:" + id
}

func (s *IdempotencyService) retryKey(id string) string {
	return s.config.KeyPrefix + "retry:" + id
}

type ProcessingContext struct {
	AlertID      string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
}

func (s *IdempotencyService) AcquireProcessingLock(ctx context.Context, alertID string) (*ProcessingContext, error) {
	processed, err := s.IsProcessed(ctx, alertID)
	if err != nil {
		// a missed check risks a duplicate push, never a lost one
		logger.Warn("failed to check processed marker", "alert_id", alertID, "error", err)
	} else if processed {
		return nil, ErrAlreadyProcessed
	}

	retryCount, err := s.GetRetryCount(ctx, alertID)
	if err != nil {
		logger.Warn("failed to read retry counter", "alert_id", alertID, "error", err)
	}
	if retryCount >= s.config.MaxRetries {
		return nil, fmt.Errorf("%w: alert_id=%s, retries=%d", ErrMaxRetriesExceeded, alertID, retryCount)
	}

	lockValue := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
	acquired, err := s.redis.SetNX(ctx, s.lockKey(alertID), lockValue, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		return nil, ErrLockAcquireFailed
	}

	logger.Debug("processing lock acquired", "alert_id", alertID, "retry_count", retryCount)

	return &ProcessingContext{
		AlertID:      alertID,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
	}, nil
}

// MarkSuccess sets the processed marker and clears the lock and retry counter.
func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	if err := s.redis.Set(ctx, s.processedKey(pc.AlertID), []byte("1"), s.config.ProcessedTTL); err != nil {
		return fmt.Errorf("failed to mark as processed: %w", err)
	}

	if err := s.redis.Del(ctx, s.lockKey(pc.AlertID), s.retryKey(pc.AlertID)); err != nil {
		logger.Warn("failed to clean up alert keys", "alert_id", pc.AlertID, "error", err)
	}
	pc.lockAcquired = false
	return nil
}

// MarkFailure bumps the retry counter and releases the lock so another attempt can run.
func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	count, err := s.redis.Incr(ctx, s.retryKey(pc.AlertID), s.config.ProcessedTTL)
	if err != nil {
		logger.Error("failed to increment retry counter", "alert_id", pc.AlertID, "error", err)
	}

	logger.Warn("alert delivery failed",
		"alert_id", pc.AlertID,
		"retry_count", count,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return s.ReleaseLock(ctx, pc)
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, pc *ProcessingContext) error {
	if pc == nil || !pc.lockAcquired {
		return nil
	}
	if err := s.redis.Del(ctx, s.lockKey(pc.AlertID)); err != nil {
		return err
	}
	pc.lockAcquired = false
	return nil
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, alertID string) (int, error) {
	raw, err := s.redis.Get(ctx, s.retryKey(alertID))
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.Atoi(string(raw))
}

func (s *IdempotencyService) IsProcessed(ctx context.Context, alertID string) (bool, error) {
	n, err := s.redis.Exist(ctx, s.processedKey(alertID))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
