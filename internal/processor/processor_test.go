package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	gateway "github.com/nimasrn/xpensemate/internal/gateways"
	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPushClient struct {
	mock.Mock
}

func (m *mockPushClient) SendPush(ctx context.Context, req *gateway.PushRequest) (*gateway.PushResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*gateway.PushResponse)
	return resp, args.Error(1)
}

func alertMessage(t *testing.T, id int64) *queue.Message {
	data, err := json.Marshal(model.AlertEvent{
		NotificationID: id,
		Title:          model.AlertTitleBudgetExceeded,
		Message:        "You have exceeded your budget for Food by $ 20.00",
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)
	return &queue.Message{ID: fmt.Sprintf("%d-0", id), Data: data}
}

func matchAlert(id int64) interface{} {
	return mock.MatchedBy(func(r *gateway.PushRequest) bool {
		return r.NotificationID == id && r.Title == model.AlertTitleBudgetExceeded
	})
}

func TestAlertProcessor_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("pushes once and skips redelivery", func(t *testing.T) {
		idem, _ := newIdempotency(t, 3)
		client := &mockPushClient{}
		client.On("SendPush", mock.Anything, matchAlert(1)).
			Return(&gateway.PushResponse{PushID: "p1", Status: gateway.PushAccepted}, nil).Once()

		p := NewAlertProcessor(client, idem)
		require.NoError(t, p.Process(ctx, alertMessage(t, 1)))
		require.NoError(t, p.Process(ctx, alertMessage(t, 1)))

		client.AssertNumberOfCalls(t, "SendPush", 1)
	})

	t.Run("transport failure is retried", func(t *testing.T) {
		idem, _ := newIdempotency(t, 3)
		client := &mockPushClient{}
		client.On("SendPush", mock.Anything, matchAlert(2)).Return(nil, gateway.ErrNoAvailableProviders).Once()
		client.On("SendPush", mock.Anything, matchAlert(2)).
			Return(&gateway.PushResponse{PushID: "p2", Status: gateway.PushAccepted}, nil).Once()

		p := NewAlertProcessor(client, idem)
		assert.Error(t, p.Process(ctx, alertMessage(t, 2)))

		count, err := idem.GetRetryCount(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		assert.NoError(t, p.Process(ctx, alertMessage(t, 2)))
		client.AssertExpectations(t)
	})

	t.Run("rejection is final", func(t *testing.T) {
		idem, _ := newIdempotency(t, 3)
		client := &mockPushClient{}
		client.On("SendPush", mock.Anything, matchAlert(3)).
			Return(&gateway.PushResponse{Status: gateway.PushRejected}, fmt.Errorf("%w: bad token", gateway.ErrRejected)).Once()

		p := NewAlertProcessor(client, idem)
		assert.NoError(t, p.Process(ctx, alertMessage(t, 3)))
	})

	t.Run("malformed payload is dropped", func(t *testing.T) {
		idem, _ := newIdempotency(t, 3)
		client := &mockPushClient{}

		p := NewAlertProcessor(client, idem)
		assert.NoError(t, p.Process(ctx, &queue.Message{ID: "x", Data: []byte("{")}))
		client.AssertNotCalled(t, "SendPush", mock.Anything, mock.Anything)
	})

	t.Run("exhausted retries are dropped", func(t *testing.T) {
		idem, mr := newIdempotency(t, 1)
		require.NoError(t, mr.Set("alert:retry:4", "1"))
		client := &mockPushClient{}

		p := NewAlertProcessor(client, idem)
		assert.NoError(t, p.Process(ctx, alertMessage(t, 4)))
		client.AssertNotCalled(t, "SendPush", mock.Anything, mock.Anything)
	})
}

func TestProcessorService_DeliversQueuedAlerts(t *testing.T) {
	_, adapter := setupRedis(t)
	ctx := context.Background()

	delivered := make(chan int64, 4)
	client := &mockPushClient{}
	client.On("SendPush", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			delivered <- args.Get(1).(*gateway.PushRequest).NotificationID
		}).
		Return(&gateway.PushResponse{PushID: "p", Status: gateway.PushAccepted}, nil)

	qcfg := queue.QueueConfig{
		Name:          "alerts:test",
		ConsumerGroup: "processor",
		ConsumerName:  "test",
		PollInterval:  20 * time.Millisecond,
	}
	publisher, err := queue.NewQueue(ctx, adapter, qcfg)
	require.NoError(t, err)

	svc := NewProcessorService(adapter,
		NewAlertProcessor(client, NewIdempotencyService(adapter, DefaultIdempotencyConfig())),
		Options{Queue: qcfg, Consumers: 2, Workers: 2, ProcessingTimeout: time.Second})
	require.NoError(t, svc.Start(ctx))
	defer svc.Stop()

	for _, id := range []int64{10, 11} {
		n := &model.Notification{ID: id, Title: model.AlertTitleBudgetExceeded, Message: "over", Timestamp: time.Now()}
		_, err := publisher.PublishJSON(ctx, model.NewAlertEvent(n), nil)
		require.NoError(t, err)
	}

	got := map[int64]bool{}
	for len(got) < 2 {
		select {
		case id := <-delivered:
			got[id] = true
		case <-time.After(3 * time.Second):
			t.Fatalf("alerts not delivered, got %v", got)
		}
	}
	assert.True(t, got[10])
	assert.True(t, got[11])

	require.Eventually(t, func() bool {
		return svc.metrics.Snapshot().Processed == 2
	}, time.Second, 10*time.Millisecond)
}

func TestServiceMetrics_Snapshot(t *testing.T) {
	m := NewServiceMetrics()
	m.RecordSuccess(10 * time.Millisecond)
	m.RecordSuccess(30 * time.Millisecond)
	m.RecordFailure()

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Processed)
	assert.Equal(t, int64(1), s.Failed)
	assert.Equal(t, 20*time.Millisecond, s.AvgDuration)
}
