// Package memory provides the in-process sync request queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/shelter-mirror/internal/queue"
)

// ErrClosed aliases queue.ErrClosed.
var ErrClosed = queue.ErrClosed

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan queue.SyncRequest
	closeMu sync.RWMutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		ch: make(chan queue.SyncRequest, capacity),
	}
}

// Enqueue pushes a request or returns if the context ends first.
func (q *Queue) Enqueue(ctx context.Context, req queue.SyncRequest) error {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- req:
		return nil
	}
}

// Dequeue pops the next request, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (queue.SyncRequest, error) {
	select {
	case <-ctx.Done():
		return queue.SyncRequest{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case req, ok := <-q.ch:
		if !ok {
			return queue.SyncRequest{}, ErrClosed
		}
		return req, nil
	}
}

// Len reports the number of pending requests.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close closes the underlying channel. Producers blocked in Enqueue hold
// Close off until their context ends or the request is accepted.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
