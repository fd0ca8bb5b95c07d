// Package reconciler brings the local mirror in line with the remote listing.
//
// One Sync call fetches a bounded batch of active remote records, diffs it
// against a snapshot of the store taken before any write, updates rows that
// already exist, inserts the rest (enriching each with downloaded images) and
// finally purges every row carrying the removal status. Callers must not run
// two Syncs against the same store concurrently; the sync worker serializes
// them.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/shelter-mirror/internal/metrics"
	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

const defaultMaxCount = 400

// Config controls one reconciliation run.
type Config struct {
	MaxCount      int
	RemovalStatus string
	// Topic receives the run summary when a Publisher is configured.
	Topic string
}

// Deps bundles the collaborators of a Reconciler. Enricher and Publisher are optional.
type Deps struct {
	Store     mirror.Store
	Remote    mirror.RemoteFetcher
	Settings  mirror.SettingsStore
	Enricher  mirror.Enricher
	Publisher mirror.Publisher
	Clock     mirror.Clock
	IDs       mirror.IDGenerator
	Logger    *zap.Logger
}

// Reconciler runs the sync algorithm.
type Reconciler struct {
	cfg  Config
	deps Deps
	log  *zap.Logger
}

// New validates deps and builds a Reconciler.
func New(cfg Config, deps Deps) (*Reconciler, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("record store is required")
	case deps.Remote == nil:
		return nil, fmt.Errorf("remote fetcher is required")
	case deps.Settings == nil:
		return nil, fmt.Errorf("settings store is required")
	case deps.Clock == nil:
		return nil, fmt.Errorf("clock is required")
	case deps.IDs == nil:
		return nil, fmt.Errorf("id generator is required")
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = defaultMaxCount
	}
	cfg.RemovalStatus = mirror.NormalizeStatus(cfg.RemovalStatus)
	if cfg.RemovalStatus == "" {
		cfg.RemovalStatus = mirror.StatusRemoved
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{cfg: cfg, deps: deps, log: logger.Named("reconciler")}, nil
}

// Sync performs one reconciliation run. The summary Outcome is
// mirror.OutcomeUpdated only when the run completed; every error path
// reports mirror.OutcomeNotUpdated alongside the error.
func (r *Reconciler) Sync(ctx context.Context) (summary mirror.Summary, err error) {
	summary = mirror.Summary{Outcome: mirror.OutcomeNotUpdated, StartedAt: r.deps.Clock.Now()}
	runID, idErr := r.deps.IDs.NewID()
	if idErr != nil {
		return summary, fmt.Errorf("generate run id: %w", idErr)
	}
	summary.RunID = runID
	logger := r.log.With(zap.String("run_id", runID))

	metrics.SetSyncInProgress(true)
	defer func() {
		metrics.SetSyncInProgress(false)
		summary.FinishedAt = r.deps.Clock.Now()
		metrics.ObserveSync(summary, err)
		r.publish(ctx, logger, summary, err)
	}()

	creds, err := r.deps.Settings.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("load settings: %w", err)
	}
	if !creds.IsConfigured() {
		logger.Info("sync skipped, credentials not configured")
		return summary, mirror.ErrNotConfigured
	}

	result, err := r.deps.Remote.FetchRecords(ctx, creds, mirror.FetchQuery{
		ShelterID: strings.ToUpper(strings.TrimSpace(creds.ShelterID)),
		Status:    mirror.StatusActive,
		MaxCount:  r.cfg.MaxCount,
	})
	if err != nil {
		logger.Warn("remote fetch failed", zap.Error(err))
		var upstream *mirror.UpstreamError
		if !errors.As(err, &upstream) {
			err = &mirror.UpstreamError{Err: err}
		}
		return summary, err
	}
	summary.Fetched = len(result.Records)

	snapshot, err := r.deps.Store.ListAll(ctx)
	if err != nil {
		return summary, fmt.Errorf("snapshot store: %w", err)
	}
	existing := make(map[int64]struct{}, len(snapshot))
	for _, rec := range snapshot {
		existing[rec.ExternalID] = struct{}{}
	}

	fresh, err := r.applyUpdates(ctx, logger, result.Records, existing, &summary)
	if err != nil {
		return summary, err
	}
	if err := r.insertNew(ctx, logger, fresh, &summary); err != nil {
		return summary, err
	}

	purged, err := r.deps.Store.DeleteWhere(ctx, mirror.FieldStatus, r.cfg.RemovalStatus)
	if err != nil {
		return summary, fmt.Errorf("purge %s: %w", r.cfg.RemovalStatus, err)
	}
	summary.Purged = purged
	summary.Outcome = mirror.OutcomeUpdated

	logger.Info("sync complete",
		zap.Int("fetched", summary.Fetched),
		zap.Int("updated", summary.Updated),
		zap.Int("inserted", summary.Inserted),
		zap.Int("conflicts", summary.Conflicts),
		zap.Int("failed", summary.Failed),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int64("purged", summary.Purged),
		zap.Int("assets_stored", summary.AssetsStored),
	)
	return summary, nil
}

// applyUpdates writes status and description for records in the snapshot and
// returns the rest in response order. A repeated new id keeps its first
// position but takes the later values.
func (r *Reconciler) applyUpdates(
	ctx context.Context,
	logger *zap.Logger,
	records []mirror.RemoteRecord,
	existing map[int64]struct{},
	summary *mirror.Summary,
) ([]mirror.RemoteRecord, error) {
	var fresh []mirror.RemoteRecord
	position := make(map[int64]int)

	for _, remote := range records {
		if _, ok := existing[remote.ExternalID]; ok {
			status := mirror.NormalizeStatus(remote.Status)
			if err := r.deps.Store.UpdateExisting(ctx, remote.ExternalID, status, remote.Description); err != nil {
				return nil, fmt.Errorf("update existing %d: %w", remote.ExternalID, err)
			}
			summary.Updated++
			continue
		}
		if idx, seen := position[remote.ExternalID]; seen {
			logger.Warn("duplicate id in remote batch", zap.Int64("external_id", remote.ExternalID))
			fresh[idx] = remote
			summary.Duplicates++
			continue
		}
		position[remote.ExternalID] = len(fresh)
		fresh = append(fresh, remote)
	}
	return fresh, nil
}

func (r *Reconciler) insertNew(ctx context.Context, logger *zap.Logger, fresh []mirror.RemoteRecord, summary *mirror.Summary) error {
	for _, remote := range fresh {
		rec := remote.ToRecord()
		if err := r.deps.Store.Insert(ctx, rec); err != nil {
			if errors.Is(err, mirror.ErrConflict) {
				logger.Warn("insert conflict, record skipped", zap.Int64("external_id", rec.ExternalID), zap.Error(err))
				summary.Conflicts++
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("insert %d: %w", rec.ExternalID, ctxErr)
			}
			logger.Error("insert failed, record skipped", zap.Int64("external_id", rec.ExternalID), zap.Error(err))
			summary.Failed++
			continue
		}
		summary.Inserted++
		summary.AssetsStored += r.enrich(ctx, logger, rec, remote.PhotoURLs)
	}
	return nil
}

func (r *Reconciler) enrich(ctx context.Context, logger *zap.Logger, rec mirror.Record, urls []string) int {
	if r.deps.Enricher == nil || len(urls) == 0 {
		return 0
	}
	handles, err := r.deps.Enricher.Enrich(ctx, rec.ExternalID, rec.Name, urls)
	failed := 0
	if err != nil {
		failed = countAssetFailures(err)
		logger.Warn("asset enrichment incomplete",
			zap.Int64("external_id", rec.ExternalID),
			zap.Int("stored", len(handles)),
			zap.Error(err),
		)
	}
	metrics.ObserveAssets(len(handles), failed)
	return len(handles)
}

func (r *Reconciler) publish(ctx context.Context, logger *zap.Logger, summary mirror.Summary, runErr error) {
	if r.deps.Publisher == nil || r.cfg.Topic == "" || errors.Is(runErr, mirror.ErrNotConfigured) {
		return
	}
	id, err := r.deps.Publisher.Publish(ctx, r.cfg.Topic, summary)
	if err != nil {
		logger.Warn("publish summary failed", zap.String("topic", r.cfg.Topic), zap.Error(err))
		return
	}
	logger.Debug("summary published", zap.String("topic", r.cfg.Topic), zap.String("message_id", id))
}

func countAssetFailures(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
