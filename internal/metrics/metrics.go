// Package metrics exposes Prometheus collectors for the mirror service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

var (
	syncRunsTotal              *prometheus.CounterVec
	syncRecordsTotal           *prometheus.CounterVec
	syncDurationSeconds        prometheus.Histogram
	syncInProgress             prometheus.Gauge
	assetsTotal                *prometheus.CounterVec
	assetRateLimitDelaySeconds *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		syncRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelter_sync_runs_total",
				Help: "Total number of sync runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		syncRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelter_sync_records_total",
				Help: "Records touched by sync runs, labeled by action.",
			},
			[]string{"action"},
		)

		syncDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shelter_sync_duration_seconds",
				Help:    "Histogram of sync run durations.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		)

		syncInProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "shelter_sync_in_progress",
				Help: "1 while the sync worker is running a reconciliation.",
			},
		)

		assetsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelter_assets_total",
				Help: "Images processed during enrichment, labeled by result.",
			},
			[]string{"result"},
		)

		assetRateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shelter_asset_rate_limit_delay_seconds",
				Help:    "Histogram of rate limit wait durations before image downloads.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSync records the result of one reconciliation run.
func ObserveSync(summary mirror.Summary, err error) {
	Init()
	outcome := summary.Outcome
	if outcome == "" {
		outcome = mirror.OutcomeNotUpdated
	}
	if err != nil {
		outcome = "error"
	}
	syncRunsTotal.WithLabelValues(outcome).Inc()
	syncRecordsTotal.WithLabelValues("updated").Add(float64(summary.Updated))
	syncRecordsTotal.WithLabelValues("inserted").Add(float64(summary.Inserted))
	syncRecordsTotal.WithLabelValues("conflict").Add(float64(summary.Conflicts))
	syncRecordsTotal.WithLabelValues("failed").Add(float64(summary.Failed))
	syncRecordsTotal.WithLabelValues("duplicate").Add(float64(summary.Duplicates))
	syncRecordsTotal.WithLabelValues("purged").Add(float64(summary.Purged))
	if !summary.StartedAt.IsZero() && summary.FinishedAt.After(summary.StartedAt) {
		syncDurationSeconds.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	}
}

// ObserveAssets counts stored and skipped images.
func ObserveAssets(stored, failed int) {
	Init()
	if stored > 0 {
		assetsTotal.WithLabelValues("stored").Add(float64(stored))
	}
	if failed > 0 {
		assetsTotal.WithLabelValues("failed").Add(float64(failed))
	}
}

// SetSyncInProgress flips the in-progress gauge.
func SetSyncInProgress(running bool) {
	Init()
	if running {
		syncInProgress.Set(1)
		return
	}
	syncInProgress.Set(0)
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(site string, duration time.Duration) {
	Init()
	assetRateLimitDelaySeconds.WithLabelValues(SanitizeSite(site)).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
