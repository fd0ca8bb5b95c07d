// Package queue defines the sync request queue shared by the dispatcher and
// the single sync worker.
package queue

import (
	"context"
	"errors"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

// ErrClosed is returned once a queue has been closed.
var ErrClosed = errors.New("queue closed")

// Source identifiers for sync requests.
const (
	SourceSchedule = "schedule"
	SourceAPI      = "api"
	SourceCLI      = "cli"
)

// Result is delivered on a request's reply channel once the sync finishes.
type Result struct {
	Summary mirror.Summary
	Err     error
}

// SyncRequest asks the worker to run one reconciliation. Reply may be nil for
// fire-and-forget requests; when set it must have capacity for one Result.
type SyncRequest struct {
	ID     string
	Source string
	Reply  chan Result
}

// Queue moves sync requests from producers to the worker.
type Queue interface {
	Enqueue(ctx context.Context, req SyncRequest) error
	Dequeue(ctx context.Context) (SyncRequest, error)
}
