// Package app builds the long-lived services of shelter-mirror from a Config,
// acting as the dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"

	gpubsub "cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/shelter-mirror/internal/api"
	"github.com/JakeFAU/shelter-mirror/internal/assets"
	"github.com/JakeFAU/shelter-mirror/internal/clock/system"
	"github.com/JakeFAU/shelter-mirror/internal/config"
	"github.com/JakeFAU/shelter-mirror/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/shelter-mirror/internal/fetcher/colly"
	"github.com/JakeFAU/shelter-mirror/internal/hash/sha256"
	"github.com/JakeFAU/shelter-mirror/internal/id/uuid"
	"github.com/JakeFAU/shelter-mirror/internal/metrics"
	"github.com/JakeFAU/shelter-mirror/internal/mirror"
	"github.com/JakeFAU/shelter-mirror/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/shelter-mirror/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/shelter-mirror/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/shelter-mirror/internal/queue/memory"
	"github.com/JakeFAU/shelter-mirror/internal/reconciler"
	"github.com/JakeFAU/shelter-mirror/internal/remote/petfinder"
	"github.com/JakeFAU/shelter-mirror/internal/render"
	"github.com/JakeFAU/shelter-mirror/internal/settings"
	"github.com/JakeFAU/shelter-mirror/internal/storage/gcs"
	"github.com/JakeFAU/shelter-mirror/internal/storage/local"
	memoryStorage "github.com/JakeFAU/shelter-mirror/internal/storage/memory"
	"github.com/JakeFAU/shelter-mirror/internal/storage/postgres"
	"github.com/JakeFAU/shelter-mirror/internal/storage/s3"
	"github.com/JakeFAU/shelter-mirror/internal/worker"
)

// App holds the shared services. It is built once per process.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Records    mirror.Store
	Blobs      mirror.BlobStore
	Publisher  mirror.Publisher
	Reconciler *reconciler.Reconciler
	Render     *render.Service
	Settings   *settings.Service
	Queue      *queueMemory.Queue
	Dispatcher *dispatcher.Dispatcher

	settingsStore mirror.SettingsStore
	pool          *pgxpool.Pool
	assetDir      string
	closers       []func() error
}

// New wires every component selected by cfg. It fails fast when a driver
// cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	a := &App{Config: cfg, Logger: logger}

	if err := a.buildStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildBlobs(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildPublisher(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildServices(); err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("application services initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("assets", cfg.Assets.Driver),
		zap.String("publisher", cfg.Publisher.Driver),
	)
	return a, nil
}

func (a *App) buildStores(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		a.Logger.Info("connecting to postgres")
		pool, err := postgres.Connect(ctx, postgres.PoolConfig{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		records, err := postgres.NewRecordStoreWithPool(pool, cfg.Store.Table)
		if err != nil {
			return fmt.Errorf("record store: %w", err)
		}
		settingsStore, err := postgres.NewSettingsStoreWithPool(pool, cfg.Store.SettingsTable)
		if err != nil {
			return fmt.Errorf("settings store: %w", err)
		}
		a.Records = records
		a.settingsStore = settingsStore
	case config.DriverMemory, "":
		a.Logger.Info("using in-memory record store; records are lost on exit")
		a.Records = memoryStorage.NewRecordStore()
		a.settingsStore = memoryStorage.NewSettingsStore(mirror.Credentials{})
	default:
		return fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
	return nil
}

func (a *App) buildBlobs(ctx context.Context) error {
	cfg := a.Config.Assets
	switch cfg.Driver {
	case config.DriverLocal:
		store, err := local.New(local.Config{BaseDir: cfg.LocalDir})
		if err != nil {
			return fmt.Errorf("local blob store: %w", err)
		}
		a.Blobs = store
		a.assetDir = store.Dir()
	case config.DriverGCS:
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.GCSBucket, CacheControl: cfg.CacheControl})
		if err != nil {
			return fmt.Errorf("gcs blob store: %w", err)
		}
		a.Blobs = store
	case config.DriverS3:
		store, err := s3.New(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("s3 blob store: %w", err)
		}
		a.Blobs = store
	case config.DriverMemory, "":
		a.Blobs = memoryStorage.NewBlobStore()
	default:
		return fmt.Errorf("unknown assets driver: %s", cfg.Driver)
	}
	a.Logger.Info("asset blob store ready", zap.String("driver", cfg.Driver))
	return nil
}

func (a *App) buildPublisher(ctx context.Context) error {
	cfg := a.Config.Publisher
	switch cfg.Driver {
	case config.DriverPubSub:
		client, err := gpubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return fmt.Errorf("pubsub client: %w", err)
		}
		pub, err := pubsubpublisher.New(client, map[string]string{"service": "shelter-mirror"})
		if err != nil {
			_ = client.Close()
			return fmt.Errorf("pubsub publisher: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		a.Publisher = pub
	case config.DriverMemory, "":
		a.Publisher = memorypublisher.New()
	default:
		return fmt.Errorf("unknown publisher driver: %s", cfg.Driver)
	}
	return nil
}

func (a *App) buildServices() error {
	cfg := a.Config
	logger := a.Logger

	listingFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Remote.UserAgent,
		Timeout:   cfg.Remote.Timeout,
	})
	assetFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:   cfg.Remote.UserAgent,
		Timeout:     cfg.Assets.Timeout,
		MaxBodySize: cfg.Assets.MaxBodyBytes,
	})
	remote, err := petfinder.New(petfinder.Config{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.Timeout,
		Sign:    cfg.Remote.Sign,
	}, listingFetcher, logger)
	if err != nil {
		return fmt.Errorf("remote client: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.Assets.RPS,
		DefaultBurst: cfg.Assets.Burst,
	}, metrics.ObserveRateLimitDelay)
	enricher, err := assets.NewEnricher(assets.Config{
		Prefix:       cfg.Assets.Prefix,
		Timeout:      cfg.Assets.Timeout,
		MaxBodyBytes: cfg.Assets.MaxBodyBytes,
	}, assets.Deps{
		Fetcher: assetFetcher,
		Blobs:   a.Blobs,
		Store:   a.Records,
		Hasher:  sha256.New(),
		Limiter: limiter,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("asset enricher: %w", err)
	}

	ids := uuid.New()
	a.Reconciler, err = reconciler.New(reconciler.Config{
		MaxCount:      cfg.Sync.MaxCount,
		RemovalStatus: cfg.Sync.RemovalStatus,
		Topic:         cfg.Sync.Topic,
	}, reconciler.Deps{
		Store:     a.Records,
		Remote:    remote,
		Settings:  a.settingsStore,
		Enricher:  enricher,
		Publisher: a.Publisher,
		Clock:     system.New(),
		IDs:       ids,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("reconciler: %w", err)
	}

	a.Settings, err = settings.New(a.settingsStore, logger)
	if err != nil {
		return fmt.Errorf("settings service: %w", err)
	}
	a.Render, err = render.New(a.Records, render.Options{
		AssetBaseURL:  cfg.Assets.BaseURL,
		DetailURLBase: cfg.Render.DetailURLBase,
		AdoptURL:      cfg.Render.AdoptURL,
	}, logger)
	if err != nil {
		return fmt.Errorf("render service: %w", err)
	}

	a.Queue = queueMemory.NewQueue(cfg.Sync.QueueDepth)
	a.Dispatcher = dispatcher.New(
		a.Queue,
		worker.New(a.Queue, a.Reconciler, logger),
		ids,
		dispatcher.Config{Interval: cfg.Sync.Interval},
		logger,
	)
	return nil
}

// Migrate creates the Postgres tables. It is a no-op for the memory store.
func (a *App) Migrate(ctx context.Context) error {
	if a.pool == nil {
		return nil
	}
	if err := postgres.Migrate(ctx, a.pool, a.Config.Store.Table, a.Config.Store.SettingsTable); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.Logger.Info("schema migrated", zap.String("table", a.Config.Store.Table))
	return nil
}

// SeedSettings fills empty credentials from configuration.
func (a *App) SeedSettings(ctx context.Context) error {
	return a.Settings.Seed(ctx, a.Config.Settings.Credentials())
}

// Ready pings the database when one is configured.
func (a *App) Ready(ctx context.Context) error {
	if a.pool == nil {
		return nil
	}
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Server builds the HTTP API over the app's services.
func (a *App) Server() *api.Server {
	return api.NewServer(api.Deps{
		Sync:     a.Dispatcher,
		Render:   a.Render,
		Settings: a.Settings,
		Ready:    a.Ready,
	}, api.Options{
		AuthEnabled: a.Config.Auth.Enabled,
		APIKey:      a.Config.Auth.APIKey,
		AssetDir:    a.assetDir,
	}, a.Logger)
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
}
