package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerManager_ProcessesJobs(t *testing.T) {
	w := NewWorkerManager(10, 3)
	var sum atomic.Int64
	w.SetWorker(func(_ int, job interface{}) {
		sum.Add(int64(job.(int)))
	})

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()

	for i := 1; i <= 10; i++ {
		require.NoError(t, w.Enqueue(context.Background(), i))
	}

	require.Eventually(t, func() bool { return sum.Load() == 55 }, time.Second, 10*time.Millisecond)

	w.Exit()
	w.Exit()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("workers did not stop")
	}

	assert.ErrorIs(t, w.Enqueue(context.Background(), 1), ErrStopped)
}

func TestWorkerManager_ContextCancel(t *testing.T) {
	w := NewWorkerManager(0, 2)
	w.SetWorker(func(int, interface{}) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("workers did not stop")
	}
}

func TestWorkerManager_RequiresHandler(t *testing.T) {
	w := NewWorkerManager(1, 1)
	assert.Error(t, w.Start(context.Background()))
}

func TestWorkerManager_EnqueueHonoursContext(t *testing.T) {
	w := NewWorkerManager(0, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Enqueue(ctx, 1), context.DeadlineExceeded)
}
