// Package dispatcher owns the sync worker, the optional schedule, and the
// request/reply path used by the API and CLI.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
	"github.com/JakeFAU/shelter-mirror/internal/queue"
	"github.com/JakeFAU/shelter-mirror/internal/worker"
)

// Config controls the schedule. An Interval of zero disables it.
type Config struct {
	Interval time.Duration
}

// Dispatcher feeds sync requests to a single worker.
type Dispatcher struct {
	queue  queue.Queue
	worker *worker.Worker
	ids    mirror.IDGenerator
	cfg    Config
	logger *zap.Logger
}

// New creates a Dispatcher. ids may be nil, in which case requests carry no id.
func New(q queue.Queue, w *worker.Worker, ids mirror.IDGenerator, cfg Config, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:  q,
		worker: w,
		ids:    ids,
		cfg:    cfg,
		logger: logger.Named("dispatcher"),
	}
}

// Run starts the worker and the schedule and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	if d.worker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.worker.Run(ctx)
		}()
	}
	if d.cfg.Interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.schedule(ctx)
		}()
	}
	<-ctx.Done()
	wg.Wait()
}

func (d *Dispatcher) schedule(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	d.logger.Info("sync schedule started", zap.Duration("interval", d.cfg.Interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Enqueue(ctx, queue.SyncRequest{ID: d.newID(), Source: queue.SourceSchedule}); err != nil {
				if ctx.Err() != nil {
					return
				}
				d.logger.Error("scheduled sync not queued", zap.Error(err))
			}
		}
	}
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, req queue.SyncRequest) error {
	if err := d.queue.Enqueue(ctx, req); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

// Submit queues a sync and waits for its result.
func (d *Dispatcher) Submit(ctx context.Context, source string) (mirror.Summary, error) {
	reply := make(chan queue.Result, 1)
	req := queue.SyncRequest{ID: d.newID(), Source: source, Reply: reply}
	if err := d.Enqueue(ctx, req); err != nil {
		return mirror.Summary{Outcome: mirror.OutcomeNotUpdated}, err
	}
	select {
	case <-ctx.Done():
		return mirror.Summary{Outcome: mirror.OutcomeNotUpdated}, fmt.Errorf("await sync %s: %w", req.ID, ctx.Err())
	case res := <-reply:
		return res.Summary, res.Err
	}
}

func (d *Dispatcher) newID() string {
	if d.ids == nil {
		return ""
	}
	id, err := d.ids.NewID()
	if err != nil {
		d.logger.Warn("request id generation failed", zap.Error(err))
		return ""
	}
	return id
}
