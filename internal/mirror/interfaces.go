package mirror

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// Store persists mirror records keyed by external id.
type Store interface {
	Get(ctx context.Context, externalID int64) (Record, error)
	UpdateExisting(ctx context.Context, externalID int64, status, description string) error
	Insert(ctx context.Context, record Record) error
	SetAssetHandles(ctx context.Context, externalID int64, handles []string) error
	Find(ctx context.Context, filter Filter) ([]Record, error)
	DeleteWhere(ctx context.Context, field Field, value string) (int64, error)
	ListAll(ctx context.Context) ([]Record, error)
}

// RemoteFetcher returns a batch of remote records.
type RemoteFetcher interface {
	FetchRecords(ctx context.Context, creds Credentials, query FetchQuery) (FetchResult, error)
}

// Fetcher performs a single HTTP GET and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// BlobStore writes downloaded assets and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// MetadataBlobStore is a BlobStore that can attach metadata to an object.
type MetadataBlobStore interface {
	BlobStore
	PutObjectWithMetadata(ctx context.Context, path, contentType string, metadata map[string]string, data io.Reader) (string, error)
}

// Enricher downloads and persists the images of a newly inserted record.
type Enricher interface {
	Enrich(ctx context.Context, externalID int64, name string, urls []string) ([]string, error)
}

// SettingsStore holds the credentials used to reach the remote source.
type SettingsStore interface {
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
}

// Publisher pushes sync summaries to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for deduplication.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Credentials are the three settings required to talk to the remote API.
type Credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	ShelterID string `json:"shelter_id"`
}

// IsConfigured reports whether all three settings are non-empty.
func (c Credentials) IsConfigured() bool {
	return strings.TrimSpace(c.APIKey) != "" &&
		strings.TrimSpace(c.APISecret) != "" &&
		strings.TrimSpace(c.ShelterID) != ""
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
	Timeout time.Duration
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}
