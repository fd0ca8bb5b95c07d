package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/shelter-mirror/internal/app"
	"github.com/JakeFAU/shelter-mirror/internal/config"
	"github.com/JakeFAU/shelter-mirror/internal/mirror"
	"github.com/JakeFAU/shelter-mirror/internal/queue"
	"github.com/JakeFAU/shelter-mirror/internal/render"
)

const listing = `<?xml version="1.0" encoding="utf-8"?>
<petfinder>
<header><status><code>100</code><message/></status></header>
<pets>
  <pet>
    <id>501</id>
    <name>Biscuit</name>
    <animal>Cat</animal>
    <breeds><breed>Domestic Short Hair</breed></breeds>
    <mix>yes</mix>
    <description>Loves laps.</description>
    <lastUpdate>2014-05-18T14:07:31Z</lastUpdate>
    <status>A</status>
    <media><photos>
      <photo id="1" size="x">PHOTO_BASE/photos/pets/501/1/?bust=1&amp;-x.jpg</photo>
      <photo id="1" size="t">PHOTO_BASE/photos/pets/501/1/?bust=1&amp;-t.jpg</photo>
    </photos></media>
  </pet>
</pets>
</petfinder>`

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/shelter.getPets", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(strings.ReplaceAll(listing, "PHOTO_BASE", srv.URL)))
	})
	mux.HandleFunc("/photos/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(upstream, assetDir string) config.Config {
	return config.Config{
		Server:   config.ServerConfig{Port: 8080},
		Remote:   config.RemoteConfig{BaseURL: upstream, Timeout: 5 * time.Second, Sign: true, UserAgent: "test"},
		Settings: config.SettingsConfig{APIKey: "key", APISecret: "secret", ShelterID: "CA01"},
		Sync:     config.SyncConfig{MaxCount: 400, RemovalStatus: mirror.StatusRemoved, QueueDepth: 2},
		Store:    config.StoreConfig{Driver: config.DriverMemory},
		Assets: config.AssetsConfig{
			Driver:   config.DriverLocal,
			Prefix:   "pets",
			Timeout:  5 * time.Second,
			RPS:      100,
			Burst:    10,
			LocalDir: assetDir,
			BaseURL:  "/assets",
		},
		Publisher: config.PublisherConfig{Driver: config.DriverMemory},
	}
}

func TestAppSyncEndToEnd(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t)
	assetDir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, testConfig(upstream.URL, assetDir), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Migrate(ctx))
	require.NoError(t, a.SeedSettings(ctx))
	require.NoError(t, a.Ready(ctx))

	go a.Dispatcher.Run(ctx)

	summary, err := a.Dispatcher.Submit(ctx, queue.SourceCLI)
	require.NoError(t, err)
	assert.Equal(t, mirror.OutcomeUpdated, summary.Outcome)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.AssetsStored)

	rec, err := a.Records.Get(ctx, 501)
	require.NoError(t, err)
	require.Len(t, rec.AssetHandles, 1)
	data, err := os.ReadFile(filepath.Join(assetDir, filepath.FromSlash(rec.AssetHandles[0])))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	out, err := a.Render.Render(ctx, render.Spec{Steps: []string{"name", "image"}})
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Biscuit</h1>")
	assert.Contains(t, out, `src="/assets/`+rec.AssetHandles[0]+`"`)

	// second run is idempotent
	summary, err = a.Dispatcher.Submit(ctx, queue.SourceCLI)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.Inserted)

	// the API serves the stored asset
	rr := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/assets/"+rec.AssetHandles[0], nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAppNotConfigured(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t)
	cfg := testConfig(upstream.URL, t.TempDir())
	cfg.Settings = config.SettingsConfig{}
	cfg.Assets.Driver = config.DriverMemory

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, err := app.New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	go a.Dispatcher.Run(ctx)

	summary, err := a.Dispatcher.Submit(ctx, queue.SourceAPI)
	require.ErrorIs(t, err, mirror.ErrNotConfigured)
	assert.Equal(t, mirror.OutcomeNotUpdated, summary.Outcome)
}

func TestAppRejectsUnknownDrivers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for _, mutate := range []func(*config.Config){
		func(c *config.Config) { c.Store.Driver = "sqlite" },
		func(c *config.Config) { c.Assets.Driver = "ftp" },
		func(c *config.Config) { c.Publisher.Driver = "kafka" },
	} {
		cfg := testConfig("http://127.0.0.1:1", t.TempDir())
		mutate(&cfg)
		_, err := app.New(ctx, cfg, nil)
		require.Error(t, err)
	}
}
