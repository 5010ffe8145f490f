package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := make([]string, 0)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "audit"}))
	}
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, int64(3), q.Stats().Processed)
}

func TestQueueRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	q := NewQueue("retry", func(_ context.Context, _ Job) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "x"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
	q.Stop()
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int64(1), q.Stats().Processed)
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	q := NewQueue("fail", func(_ context.Context, _ Job) error {
		calls.Add(1)
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "x"}))
	q.Stop()

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(1), q.Stats().Failed)
}

func TestQueueRejectsWhenNotRunning(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "early"}))

	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job{ID: "late"}))
}

func TestQueueDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, _ Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1, DrainTimeout: 50 * time.Millisecond})
	q.Start(context.Background())

	var full error
	for i := 0; i < 10 && full == nil; i++ {
		full = q.Enqueue(Job{ID: "j"})
	}
	assert.ErrorIs(t, full, ErrQueueFull)
	assert.GreaterOrEqual(t, q.Stats().Dropped, int64(1))

	close(block)
	q.Stop()
}
