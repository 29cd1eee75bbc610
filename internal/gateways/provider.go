package gateway

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

type ProviderState int32

const (
	StateHealthy ProviderState = iota
	StateDegraded
	StateUnhealthy
	StateCircuitOpen
)

func (s ProviderState) String() string {
	switch s {
	case StateHealthy:
		return "HEALTHY"
	case StateDegraded:
		return "DEGRADED"
	case StateUnhealthy:
		return "UNHEALTHY"
	case StateCircuitOpen:
		return "CIRCUIT_OPEN"
	default:
		return "UNKNOWN"
	}
}

const latencyWindow = 100

// ProviderMetrics tracks outcomes of push requests to one provider.
type ProviderMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	ConsecutiveFails atomic.Int32
	LastSuccessTime  atomic.Int64

	mu        sync.Mutex
	latencies []int64
}

func NewProviderMetrics() *ProviderMetrics {
	return &ProviderMetrics{latencies: make([]int64, 0, latencyWindow)}
}

func (m *ProviderMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())

	m.mu.Lock()
	if len(m.latencies) == latencyWindow {
		m.latencies = m.latencies[1:]
	}
	m.latencies = append(m.latencies, latencyMs)
	m.mu.Unlock()
}

func (m *ProviderMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
}

// AvgLatencyMs averages over successful requests only.
func (m *ProviderMetrics) AvgLatencyMs() int64 {
	ok := m.SuccessfulReqs.Load()
	if ok == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / ok
}

func (m *ProviderMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

func (m *ProviderMetrics) P95LatencyMs() int64 {
	m.mu.Lock()
	sorted := append([]int64(nil), m.latencies...)
	m.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Provider is one push endpoint.
type Provider struct {
	name             string
	url              string
	client           *fasthttp.Client
	metrics          *ProviderMetrics
	state            atomic.Int32
	weight           int
	circuitOpenUntil atomic.Int64
}

func NewProvider(name, url string, weight int, client *fasthttp.Client) *Provider {
	p := &Provider{
		name:    name,
		url:     url,
		client:  client,
		weight:  weight,
		metrics: NewProviderMetrics(),
	}
	p.state.Store(int32(StateHealthy))
	return p
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) GetState() ProviderState {
	return ProviderState(p.state.Load())
}

func (p *Provider) SetState(state ProviderState) {
	p.state.Store(int32(state))
}

// IsAvailable half-opens an expired circuit by moving it to degraded.
func (p *Provider) IsAvailable() bool {
	switch p.GetState() {
	case StateCircuitOpen:
		if time.Now().Unix() > p.circuitOpenUntil.Load() {
			p.state.CompareAndSwap(int32(StateCircuitOpen), int32(StateDegraded))
			return true
		}
		return false
	case StateUnhealthy:
		return false
	default:
		return true
	}
}

func (p *Provider) openCircuit(timeout time.Duration) {
	p.circuitOpenUntil.Store(time.Now().Add(timeout).Unix())
	p.SetState(StateCircuitOpen)
}

// CalculateScore ranks providers: success rate and latency weigh 40% each, base weight 20%.
func (p *Provider) CalculateScore() float64 {
	if !p.IsAvailable() {
		return 0
	}

	successScore := p.metrics.SuccessRate() * 100

	latencyScore := 100.0
	if avg := p.metrics.AvgLatencyMs(); avg > 0 {
		latencyScore = 100.0 * (1.0 - float64(avg)/5000.0)
		if latencyScore < 0 {
			latencyScore = 0
		}
	}

	recent := 1.0 - float64(p.metrics.ConsecutiveFails.Load())*0.1
	if recent < 0.1 {
		recent = 0.1
	}

	statePenalty := 1.0
	if p.GetState() == StateDegraded {
		statePenalty = 0.5
	}

	return (successScore*0.4 + latencyScore*0.4 + float64(p.weight)*0.2) * recent * statePenalty
}

type ProviderStats struct {
	Name             string  `json:"name"`
	URL              string  `json:"url"`
	State            string  `json:"state"`
	Score            float64 `json:"score"`
	TotalRequests    int64   `json:"total_requests"`
	FailedReqs       int64   `json:"failed_requests"`
	SuccessRate      float64 `json:"success_rate"`
	AvgLatencyMs     int64   `json:"avg_latency_ms"`
	P95LatencyMs     int64   `json:"p95_latency_ms"`
	ConsecutiveFails int32   `json:"consecutive_fails"`
}

func (p *Provider) Stats() ProviderStats {
	return ProviderStats{
		Name:             p.name,
		URL:              p.url,
		State:            p.GetState().String(),
		Score:            p.CalculateScore(),
		TotalRequests:    p.metrics.TotalRequests.Load(),
		FailedReqs:       p.metrics.FailedReqs.Load(),
		SuccessRate:      p.metrics.SuccessRate(),
		AvgLatencyMs:     p.metrics.AvgLatencyMs(),
		P95LatencyMs:     p.metrics.P95LatencyMs(),
		ConsecutiveFails: p.metrics.ConsecutiveFails.Load(),
	}
}
