// Package worker runs the single sync loop that owns every write to the mirror.
package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
	"github.com/JakeFAU/shelter-mirror/internal/queue"
)

// Syncer runs one reconciliation.
type Syncer interface {
	Sync(ctx context.Context) (mirror.Summary, error)
}

// Worker consumes sync requests one at a time.
type Worker struct {
	queue  queue.Queue
	syncer Syncer
	logger *zap.Logger
}

// New constructs a Worker.
func New(q queue.Queue, syncer Syncer, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:  q,
		syncer: syncer,
		logger: logger.Named("worker"),
	}
}

// Run blocks, consuming sync requests until the context finishes or the
// queue is closed.
func (w *Worker) Run(ctx context.Context) {
	for {
		req, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, queue.ErrClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued sync request",
			zap.String("request_id", req.ID),
			zap.String("source", req.Source),
		)
		w.process(ctx, req)
	}
}

func (w *Worker) process(ctx context.Context, req queue.SyncRequest) {
	var res queue.Result
	if w.syncer == nil {
		res.Err = fmt.Errorf("no syncer configured")
		res.Summary.Outcome = mirror.OutcomeNotUpdated
	} else {
		res.Summary, res.Err = w.syncer.Sync(ctx)
	}

	fields := []zap.Field{
		zap.String("request_id", req.ID),
		zap.String("source", req.Source),
		zap.String("outcome", res.Summary.Outcome),
	}
	switch {
	case res.Err == nil:
		w.logger.Info("sync request finished", fields...)
	case errors.Is(res.Err, mirror.ErrNotConfigured):
		w.logger.Warn("sync skipped, remote credentials not configured", fields...)
	default:
		w.logger.Error("sync request failed", append(fields, zap.Error(res.Err))...)
	}

	if req.Reply == nil {
		return
	}
	select {
	case req.Reply <- res:
	default:
		w.logger.Warn("sync reply dropped", zap.String("request_id", req.ID))
	}
}
