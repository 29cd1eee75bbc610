package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	ErrNoAvailableProviders = errors.New("no available providers")
	ErrRejected             = errors.New("push rejected by provider")
)

const (
	pushPath   = "/api/v1/push"
	healthPath = "/health"
)

type PushStatus string

const (
	PushAccepted PushStatus = "ACCEPTED"
	PushRejected PushStatus = "REJECTED"
)

type PushRequest struct {
	NotificationID int64  `json:"notification_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	CategoryID     *int64 `json:"category_id,omitempty"`
}

type PushResponse struct {
	PushID      string     `json:"push_id"`
	Status      PushStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	ProviderID  string     `json:"provider_id"`
	ProcessedAt time.Time  `json:"processed_at"`
}

// PushClient delivers one alert to a device push provider.
type PushClient interface {
	SendPush(ctx context.Context, req *PushRequest) (*PushResponse, error)
}

type Config struct {
	Providers               []ProviderConfig
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	HealthCheckInterval     time.Duration
	EvaluateInterval        time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

type ProviderConfig struct {
	Name   string
	URL    string
	Weight int
}

func (c *Config) setDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxConns == 0 {
		c.MaxConns = 64
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = 30 * time.Second
	}
	if c.EvaluateInterval == 0 {
		c.EvaluateInterval = 30 * time.Second
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = 5
	}
	if c.CircuitBreakerTimeout == 0 {
		c.CircuitBreakerTimeout = 30 * time.Second
	}
}

// Client sends pushes to the best scored provider and fails over on error.
type Client struct {
	config    Config
	providers []*Provider
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	cfg := *config
	cfg.setDefaults()

	var providers []*Provider
	for _, pc := range cfg.Providers {
		if pc.URL == "" {
			continue
		}
		httpClient := &fasthttp.Client{
			MaxConnsPerHost:     cfg.MaxConns,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
		}
		providers = append(providers, NewProvider(pc.Name, pc.URL, pc.Weight, httpClient))
		logger.Info("push provider initialized", "name", pc.Name, "url", pc.URL, "weight", pc.Weight)
	}
	if len(providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}

	c := &Client{
		config:    cfg,
		providers: providers,
		stopCh:    make(chan struct{}),
	}

	c.wg.Add(2)
	go c.every(cfg.HealthCheckInterval, c.performHealthChecks)
	go c.every(cfg.EvaluateInterval, c.evaluateProviders)

	return c, nil
}

func (c *Client) SelectBestProvider() (*Provider, error) {
	var best *Provider
	var bestScore float64

	for _, p := range c.providers {
		if score := p.CalculateScore(); score > bestScore {
			best, bestScore = p, score
		}
	}
	if best == nil {
		return nil, ErrNoAvailableProviders
	}

	logger.Debug("selected push provider", "provider", best.name, "score", bestScore)
	return best, nil
}

// SendPush tries up to MaxRetries+1 times. A REJECTED answer is final and not retried.
func (c *Client) SendPush(ctx context.Context, req *PushRequest) (*PushResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		provider, err := c.SelectBestProvider()
		if err != nil {
			lastErr = err
			continue
		}

		start := time.Now()
		raw, err := c.doRequest(ctx, provider, fasthttp.MethodPost, pushPath, body)
		latency := time.Since(start).Milliseconds()
		if err != nil {
			provider.metrics.RecordFailure()
			c.checkCircuitBreaker(provider)
			logger.Warn("push request failed", "provider", provider.name, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}
		provider.metrics.RecordSuccess(latency)

		var resp PushResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal push response: %w", err)
		}
		if resp.Status == PushRejected {
			return &resp, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
		}

		logger.Info("push delivered to provider",
			"notification_id", req.NotificationID,
			"push_id", resp.PushID,
			"provider", provider.name,
			"latency_ms", latency)
		return &resp, nil
	}

	return nil, fmt.Errorf("push failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, provider *Provider, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.url + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}
	if err := provider.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if code := resp.StatusCode(); code != fasthttp.StatusOK && code != fasthttp.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", code, resp.Body())
	}

	return append([]byte(nil), resp.Body()...), nil
}

func (c *Client) checkCircuitBreaker(provider *Provider) {
	fails := provider.metrics.ConsecutiveFails.Load()
	if fails < int32(c.config.CircuitBreakerThreshold) {
		return
	}
	provider.openCircuit(c.config.CircuitBreakerTimeout)
	logger.Warn("push provider circuit opened", "provider", provider.name, "consecutive_fails", fails, "timeout", c.config.CircuitBreakerTimeout)
}

func (c *Client) every(interval time.Duration, fn func()) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Client) performHealthChecks() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	for _, provider := range c.providers {
		if provider.GetState() == StateCircuitOpen {
			continue
		}
		old := provider.GetState()
		next := StateUnhealthy
		if c.checkProviderHealth(ctx, provider) {
			next = StateHealthy
			if old == StateDegraded {
				next = StateDegraded
			}
		}
		if next != old {
			provider.SetState(next)
			logger.Info("push provider state changed", "provider", provider.name, "old_state", old.String(), "new_state", next.String())
		}
	}
}

func (c *Client) checkProviderHealth(ctx context.Context, provider *Provider) bool {
	raw, err := c.doRequest(ctx, provider, fasthttp.MethodGet, healthPath, nil)
	if err != nil {
		return false
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &health); err != nil {
		return false
	}
	return health.Status == "healthy"
}

// evaluateProviders degrades slow or failing providers and restores recovered ones.
func (c *Client) evaluateProviders() {
	for _, provider := range c.providers {
		state := provider.GetState()
		if state == StateCircuitOpen || state == StateUnhealthy {
			continue
		}

		rate := provider.metrics.SuccessRate()
		avg := provider.metrics.AvgLatencyMs()
		switch {
		case (rate < 0.8 || avg > 5000) && state != StateDegraded:
			provider.SetState(StateDegraded)
			logger.Warn("push provider degraded", "provider", provider.name, "success_rate", rate, "avg_latency_ms", avg)
		case rate > 0.95 && avg < 2000 && state == StateDegraded:
			provider.SetState(StateHealthy)
			logger.Info("push provider recovered", "provider", provider.name)
		}
	}
}

// GetProviderStats returns per-provider statistics, best score first.
func (c *Client) GetProviderStats() []ProviderStats {
	stats := make([]ProviderStats, 0, len(c.providers))
	for _, p := range c.providers {
		stats = append(stats, p.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Score > stats[j].Score })
	return stats
}

func (c *Client) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.wg.Wait()
		logger.Info("push client closed")
	})
	return nil
}
