package gateway

import (
	"context"
	"encoding/json"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// fakeProvider serves the push API on an in-memory listener.
type fakeProvider struct {
	ln     *fasthttputil.InmemoryListener
	calls  atomic.Int32
	status int
	reply  PushStatus
}

func newFakeProvider(t *testing.T, status int, reply PushStatus) *fakeProvider {
	f := &fakeProvider{ln: fasthttputil.NewInmemoryListener(), status: status, reply: reply}
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case healthPath:
			ctx.SetBodyString(`{"status":"healthy"}`)
		case pushPath:
			f.calls.Add(1)
			var req PushRequest
			if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
				ctx.SetStatusCode(fasthttp.StatusBadRequest)
				return
			}
			ctx.SetStatusCode(f.status)
			body, _ := json.Marshal(PushResponse{PushID: "push-1", Status: f.reply, ProviderID: "fake", ProcessedAt: time.Now()})
			ctx.SetBody(body)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}}
	go func() { _ = srv.Serve(f.ln) }()
	t.Cleanup(func() { _ = f.ln.Close() })
	return f
}

func (f *fakeProvider) attach(p *Provider) {
	p.client.Dial = func(string) (net.Conn, error) { return f.ln.Dial() }
}

func testConfig(providers ...ProviderConfig) *Config {
	return &Config{
		Providers:               providers,
		Timeout:                 time.Second,
		MaxRetries:              2,
		RetryDelay:              time.Millisecond,
		HealthCheckInterval:     time.Hour,
		EvaluateInterval:        time.Hour,
		CircuitBreakerThreshold: 2,
		CircuitBreakerTimeout:   time.Minute,
	}
}

func TestProviderMetrics(t *testing.T) {
	m := NewProviderMetrics()
	m.RecordSuccess(100)
	m.RecordSuccess(200)
	m.RecordFailure()

	assert.Equal(t, int64(3), m.TotalRequests.Load())
	assert.Equal(t, int64(150), m.AvgLatencyMs())
	assert.InDelta(t, 0.666, m.SuccessRate(), 0.01)
	assert.Equal(t, int32(1), m.ConsecutiveFails.Load())

	m.RecordSuccess(10)
	assert.Zero(t, m.ConsecutiveFails.Load())
}

func TestProviderMetrics_P95Latency(t *testing.T) {
	m := NewProviderMetrics()
	for i := int64(0); i < 150; i++ {
		m.RecordSuccess(i)
	}
	p95 := m.P95LatencyMs()
	assert.GreaterOrEqual(t, p95, int64(140))
	assert.LessOrEqual(t, p95, int64(149))
}

func TestProvider_IsAvailable(t *testing.T) {
	p := NewProvider("test", "http://push", 100, &fasthttp.Client{})

	tests := []struct {
		name      string
		state     ProviderState
		openUntil time.Time
		available bool
	}{
		{"healthy", StateHealthy, time.Time{}, true},
		{"degraded", StateDegraded, time.Time{}, true},
		{"unhealthy", StateUnhealthy, time.Time{}, false},
		{"circuit open", StateCircuitOpen, time.Now().Add(time.Minute), false},
		{"circuit expired", StateCircuitOpen, time.Now().Add(-2 * time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.SetState(tt.state)
			p.circuitOpenUntil.Store(tt.openUntil.Unix())
			assert.Equal(t, tt.available, p.IsAvailable())
		})
	}
	assert.Equal(t, StateDegraded, p.GetState())
}

func TestProvider_CalculateScore(t *testing.T) {
	healthy := NewProvider("a", "http://a", 100, &fasthttp.Client{})
	degraded := NewProvider("b", "http://b", 100, &fasthttp.Client{})
	degraded.SetState(StateDegraded)
	failing := NewProvider("c", "http://c", 100, &fasthttp.Client{})
	failing.metrics.ConsecutiveFails.Store(3)

	assert.Greater(t, healthy.CalculateScore(), degraded.CalculateScore())
	assert.Greater(t, healthy.CalculateScore(), failing.CalculateScore())

	failing.SetState(StateUnhealthy)
	assert.Zero(t, failing.CalculateScore())
}

func TestProviderState_String(t *testing.T) {
	assert.Equal(t, "HEALTHY", StateHealthy.String())
	assert.Equal(t, "CIRCUIT_OPEN", StateCircuitOpen.String())
	assert.Equal(t, "UNKNOWN", ProviderState(99).String())
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(testConfig())
	assert.Error(t, err)

	_, err = NewClient(testConfig(ProviderConfig{Name: "empty"}))
	assert.Error(t, err, "providers without url are skipped")
}

func TestClient_SendPush(t *testing.T) {
	fake := newFakeProvider(t, fasthttp.StatusOK, PushAccepted)

	client, err := NewClient(testConfig(ProviderConfig{Name: "primary", URL: "http://push", Weight: 100}))
	require.NoError(t, err)
	defer client.Close()
	fake.attach(client.providers[0])

	resp, err := client.SendPush(context.Background(), &PushRequest{NotificationID: 1, Title: "Budget Exceeded", Body: "over"})
	require.NoError(t, err)
	assert.Equal(t, PushAccepted, resp.Status)
	assert.Equal(t, "push-1", resp.PushID)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestClient_SendPushRejected(t *testing.T) {
	fake := newFakeProvider(t, fasthttp.StatusOK, PushRejected)

	client, err := NewClient(testConfig(ProviderConfig{Name: "primary", URL: "http://push", Weight: 100}))
	require.NoError(t, err)
	defer client.Close()
	fake.attach(client.providers[0])

	_, err = client.SendPush(context.Background(), &PushRequest{NotificationID: 1})
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestClient_FailoverAndCircuitBreaker(t *testing.T) {
	broken := newFakeProvider(t, fasthttp.StatusInternalServerError, PushAccepted)
	good := newFakeProvider(t, fasthttp.StatusOK, PushAccepted)

	cfg := testConfig(
		ProviderConfig{Name: "primary", URL: "http://primary", Weight: 100},
		ProviderConfig{Name: "secondary", URL: "http://secondary", Weight: 10},
	)
	cfg.CircuitBreakerThreshold = 1
	client, err := NewClient(cfg)
	require.NoError(t, err)
	defer client.Close()
	broken.attach(client.providers[0])
	good.attach(client.providers[1])

	for i := 0; i < 3; i++ {
		_, err := client.SendPush(context.Background(), &PushRequest{NotificationID: int64(i)})
		require.NoError(t, err)
	}

	assert.Equal(t, StateCircuitOpen, client.providers[0].GetState())
	assert.Equal(t, int32(3), good.calls.Load())

	stats := client.GetProviderStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "secondary", stats[0].Name)
}

func TestClient_NoProvidersAvailable(t *testing.T) {
	client, err := NewClient(testConfig(ProviderConfig{Name: "primary", URL: "http://push", Weight: 100}))
	require.NoError(t, err)
	defer client.Close()

	client.providers[0].SetState(StateUnhealthy)
	_, err = client.SendPush(context.Background(), &PushRequest{NotificationID: 1})
	assert.ErrorIs(t, err, ErrNoAvailableProviders)
}

func TestClient_HealthChecks(t *testing.T) {
	fake := newFakeProvider(t, fasthttp.StatusOK, PushAccepted)

	client, err := NewClient(testConfig(ProviderConfig{Name: "primary", URL: "http://push", Weight: 100}))
	require.NoError(t, err)
	defer client.Close()
	fake.attach(client.providers[0])

	client.providers[0].SetState(StateUnhealthy)
	client.performHealthChecks()
	assert.Equal(t, StateHealthy, client.providers[0].GetState())
}
