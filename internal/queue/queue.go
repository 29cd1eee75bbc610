package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/nimasrn/xpensemate/pkg/prom"
	"github.com/nimasrn/xpensemate/pkg/redis"
)

var (
	ErrAlreadyAcked  = errors.New("message already acknowledged")
	ErrAlreadyNacked = errors.New("message already rejected")
)

const metaPrefix = "meta_"

// Message is one stream entry handed to a consumer.
type Message struct {
	ID        string
	Data      []byte
	Metadata  map[string]string
	Timestamp time.Time
	// Attempts counts earlier deliveries of this entry.
	Attempts int
	acked    bool
	nacked   bool
	queue    *Queue
}

// Ack explicitly acknowledges the message (marks as successfully processed)
func (m *Message) Ack(ctx context.Context) error {
	if m.acked {
		return ErrAlreadyAcked
	}
	if m.nacked {
		return ErrAlreadyNacked
	}

	m.acked = true
	return m.queue.ack(ctx, m.ID)
}

// Nack leaves the entry pending so that it is reclaimed after the visibility timeout.
func (m *Message) Nack() error {
	if m.acked {
		return ErrAlreadyAcked
	}
	if m.nacked {
		return ErrAlreadyNacked
	}

	m.nacked = true
	return nil
}

// MessageHandler processes one message. A nil return acks it; an error leaves it pending.
type MessageHandler func(ctx context.Context, msg *Message) error

type QueueConfig struct {
	Name              string
	ConsumerGroup     string
	ConsumerName      string
	MaxRetries        int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int64
	MaxLen            int64
	EnableDLQ         bool
}

func (c *QueueConfig) setDefaults() {
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = "default-group"
	}
	if c.ConsumerName == "" {
		c.ConsumerName = "consumer-" + uuid.NewString()
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.VisibilityTimeout == 0 {
		c.VisibilityTimeout = 30 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
}

type Queue struct {
	adapter redis.RedisAdapter
	config  QueueConfig
	handler MessageHandler
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

type QueueStats struct {
	TotalMessages   int64
	PendingMessages int64
	ConsumerCount   int64
}

// NewQueue creates the consumer group if needed and returns a queue bound to it.
func NewQueue(ctx context.Context, adapter redis.RedisAdapter, config QueueConfig) (*Queue, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	config.setDefaults()

	q := &Queue{
		adapter: adapter,
		config:  config,
	}

	if err := adapter.XGroupCreateMkStream(ctx, config.Name, config.ConsumerGroup, "0"); err != nil &&
		!strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return q, nil
}

func (q *Queue) Name() string {
	return q.config.Name
}

// Publish adds a message to the stream.
func (q *Queue) Publish(ctx context.Context, data []byte, metadata map[string]string) (string, error) {
	values := map[string]interface{}{
		"data":      string(data),
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range metadata {
		values[metaPrefix+k] = v
	}

	id, err := q.adapter.XAdd(ctx, q.config.Name, values)
	if err != nil {
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	if q.config.MaxLen > 0 {
		if err := q.adapter.XTrimApprox(ctx, q.config.Name, q.config.MaxLen); err != nil {
			logger.Warn("failed to trim stream", "stream", q.config.Name, "error", err)
		}
	}

	return id, nil
}

// PublishJSON publishes a JSON-encoded message
func (q *Queue) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return q.Publish(ctx, jsonData, metadata)
}

// Consume starts the poll loop. It runs until ctx is cancelled or Stop is called.
func (q *Queue) Consume(ctx context.Context, handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue %s is already consuming", q.config.Name)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	q.handler = handler
	q.cancel = cancel
	q.running = true

	q.wg.Add(1)
	go q.consumeLoop(loopCtx)

	return nil
}

func (q *Queue) consumeLoop(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.processNew(ctx)
			q.claimStuck(ctx)
		}
	}
}

func (q *Queue) processNew(ctx context.Context) {
	messages, err := q.adapter.XReadGroup(ctx,
		q.config.ConsumerGroup,
		q.config.ConsumerName,
		q.config.Name,
		">",
		q.config.BatchSize,
		-1,
	)
	if err != nil {
		if !errors.Is(err, redis.NilError) && ctx.Err() == nil {
			logger.Error("failed to read stream", "stream", q.config.Name, "error", err)
		}
		return
	}

	for _, streamMsg := range messages {
		q.handle(ctx, q.toMessage(streamMsg, 0))
	}
}

func (q *Queue) claimStuck(ctx context.Context) {
	pending, err := q.adapter.XPendingExt(ctx, q.config.Name, q.config.ConsumerGroup, 100)
	if err != nil || len(pending) == 0 {
		return
	}

	attempts := make(map[string]int, len(pending))
	var ids []string
	for _, p := range pending {
		if p.Idle >= q.config.VisibilityTimeout {
			ids = append(ids, p.ID)
			attempts[p.ID] = int(p.RetryCount)
		}
	}
	if len(ids) == 0 {
		return
	}

	messages, err := q.adapter.XClaim(ctx,
		q.config.Name,
		q.config.ConsumerGroup,
		q.config.ConsumerName,
		q.config.VisibilityTimeout,
		ids...,
	)
	if err != nil {
		logger.Warn("failed to claim pending messages", "stream", q.config.Name, "error", err)
		return
	}

	for _, streamMsg := range messages {
		q.handle(ctx, q.toMessage(streamMsg, attempts[streamMsg.ID]))
	}
}

func (q *Queue) handle(ctx context.Context, msg *Message) {
	if msg.Attempts >= q.config.MaxRetries {
		logger.Warn("message exceeded max retries", "stream", q.config.Name, "id", msg.ID, "attempts", msg.Attempts)
		q.deadLetter(ctx, msg)
		if err := q.ack(ctx, msg.ID); err != nil {
			logger.Error("failed to ack dead message", "id", msg.ID, "error", err)
		}
		return
	}

	hctx, cancel := context.WithTimeout(ctx, q.config.VisibilityTimeout)
	defer cancel()

	if err := q.handler(hctx, msg); err != nil {
		logger.Debug("message handler failed, leaving pending", "id", msg.ID, "error", err)
		return
	}
	if msg.acked || msg.nacked {
		return
	}
	if err := q.ack(ctx, msg.ID); err != nil {
		logger.Error("failed to ack message", "id", msg.ID, "error", err)
	}
}

func (q *Queue) ack(ctx context.Context, id string) error {
	return q.adapter.XAck(ctx, q.config.Name, q.config.ConsumerGroup, id)
}

// DeadLetterName is the stream receiving messages that ran out of retries.
func (q *Queue) DeadLetterName() string {
	return q.config.Name + ":dlq"
}

func (q *Queue) deadLetter(ctx context.Context, msg *Message) {
	if !q.config.EnableDLQ {
		return
	}

	values := map[string]interface{}{
		"data":           string(msg.Data),
		"original_id":    msg.ID,
		"attempts":       msg.Attempts,
		"failed_at":      time.Now().UTC().Format(time.RFC3339Nano),
		"original_queue": q.config.Name,
	}
	for k, v := range msg.Metadata {
		values[metaPrefix+k] = v
	}

	if _, err := q.adapter.XAdd(ctx, q.DeadLetterName(), values); err != nil {
		logger.Error("failed to move message to dead letter stream", "id", msg.ID, "error", err)
	}
}

func (q *Queue) toMessage(streamMsg redis.StreamMessage, attempts int) *Message {
	msg := &Message{
		ID:       streamMsg.ID,
		Metadata: make(map[string]string),
		Attempts: attempts,
		queue:    q,
	}

	for k, v := range streamMsg.Values {
		s := fmt.Sprint(v)
		switch {
		case k == "data":
			msg.Data = []byte(s)
		case k == "timestamp":
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				msg.Timestamp = ts
			} else if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
				msg.Timestamp = time.Unix(unix, 0).UTC()
			}
		case strings.HasPrefix(k, metaPrefix):
			msg.Metadata[strings.TrimPrefix(k, metaPrefix)] = s
		}
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	return msg
}

// Stop cancels the poll loop and waits up to timeout for the in-flight batch.
func (q *Queue) Stop(timeout time.Duration) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.cancel()
	q.running = false
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for queue to stop")
	}
}

// GetStats reports stream length and pending entries, and exports the pending gauge.
func (q *Queue) GetStats(ctx context.Context) (*QueueStats, error) {
	total, err := q.adapter.XLen(ctx, q.config.Name)
	if err != nil {
		return nil, err
	}

	stats := &QueueStats{TotalMessages: total}

	pending, err := q.adapter.XPending(ctx, q.config.Name, q.config.ConsumerGroup)
	if err == nil && pending != nil {
		stats.PendingMessages = pending.Count
		stats.ConsumerCount = int64(len(pending.Consumers))
	}
	prom.SetQueuePending(q.config.Name, stats.PendingMessages)

	return stats, nil
}
