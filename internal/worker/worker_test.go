package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
	"github.com/JakeFAU/shelter-mirror/internal/queue"
	"github.com/JakeFAU/shelter-mirror/internal/queue/memory"
)

func TestWorker_ProcessRequest_RepliesWithSummary(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := memory.NewQueue(1)
	syncer := &fakeSyncer{summary: mirror.Summary{Outcome: mirror.OutcomeUpdated, Inserted: 2}}
	w := New(q, syncer, zap.NewNop())
	go w.Run(ctx)

	reply := make(chan queue.Result, 1)
	require.NoError(t, q.Enqueue(ctx, queue.SyncRequest{ID: "req-1", Source: queue.SourceAPI, Reply: reply}))

	select {
	case res := <-reply:
		require.NoError(t, res.Err)
		assert.Equal(t, mirror.OutcomeUpdated, res.Summary.Outcome)
		assert.Equal(t, 2, res.Summary.Inserted)
	case <-time.After(time.Second):
		t.Fatal("worker did not reply")
	}
	assert.Equal(t, 1, syncer.callCount())
}

func TestWorker_ProcessRequest_PropagatesError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := memory.NewQueue(1)
	syncer := &fakeSyncer{
		summary: mirror.Summary{Outcome: mirror.OutcomeNotUpdated},
		err:     mirror.ErrNotConfigured,
	}
	w := New(q, syncer, nil)
	go w.Run(ctx)

	reply := make(chan queue.Result, 1)
	require.NoError(t, q.Enqueue(ctx, queue.SyncRequest{ID: "req-2", Reply: reply}))

	select {
	case res := <-reply:
		assert.True(t, errors.Is(res.Err, mirror.ErrNotConfigured))
		assert.Equal(t, mirror.OutcomeNotUpdated, res.Summary.Outcome)
	case <-time.After(time.Second):
		t.Fatal("worker did not reply")
	}
}

func TestWorker_FireAndForgetRequest(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := memory.NewQueue(2)
	syncer := &fakeSyncer{summary: mirror.Summary{Outcome: mirror.OutcomeUpdated}}
	w := New(q, syncer, zap.NewNop())
	go w.Run(ctx)

	require.NoError(t, q.Enqueue(ctx, queue.SyncRequest{ID: "tick-1", Source: queue.SourceSchedule}))
	require.NoError(t, q.Enqueue(ctx, queue.SyncRequest{ID: "tick-2", Source: queue.SourceSchedule}))

	require.Eventually(t, func() bool {
		return syncer.callCount() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestWorker_RunsSyncsSequentially(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := memory.NewQueue(4)
	syncer := &fakeSyncer{delay: 5 * time.Millisecond}
	w := New(q, syncer, zap.NewNop())
	go w.Run(ctx)

	for i := 0; i < 4; i++ {
		require.NoError(t, q.Enqueue(ctx, queue.SyncRequest{Source: queue.SourceCLI}))
	}
	require.Eventually(t, func() bool {
		return syncer.callCount() == 4
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, syncer.maxConcurrent())
}

func TestWorker_NoSyncerReportsFailure(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := memory.NewQueue(1)
	w := New(q, nil, zap.NewNop())
	go w.Run(ctx)

	reply := make(chan queue.Result, 1)
	require.NoError(t, q.Enqueue(ctx, queue.SyncRequest{Reply: reply}))
	res := <-reply
	require.Error(t, res.Err)
	assert.Equal(t, mirror.OutcomeNotUpdated, res.Summary.Outcome)
}

func TestWorker_RunStopsWhenQueueClosed(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(1)
	w := New(q, &fakeSyncer{}, zap.NewNop())
	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	q.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after queue close")
	}
}

type fakeSyncer struct {
	mu      sync.Mutex
	summary mirror.Summary
	err     error
	delay   time.Duration
	calls   int
	active  int
	peak    int
}

func (f *fakeSyncer) Sync(context.Context) (mirror.Summary, error) {
	f.mu.Lock()
	f.calls++
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()
	return f.summary, f.err
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSyncer) maxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}
