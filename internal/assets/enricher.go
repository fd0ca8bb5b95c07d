package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

const (
	defaultPrefix  = "pets"
	defaultTimeout = 20 * time.Second
)

// Config controls where and how assets are fetched and stored.
type Config struct {
	Prefix  string
	Timeout time.Duration
	// MaxBodyBytes is the fetcher's body limit. A payload that reaches it is
	// treated as truncated.
	MaxBodyBytes int
}

// Waiter paces downloads per host.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Enricher implements mirror.Enricher.
type Enricher struct {
	cfg     Config
	fetcher mirror.Fetcher
	blobs   mirror.BlobStore
	store   mirror.Store
	hasher  mirror.Hasher
	limiter Waiter
	logger  *zap.Logger
}

// Deps bundles the collaborators of an Enricher. Limiter and Logger are optional.
type Deps struct {
	Fetcher mirror.Fetcher
	Blobs   mirror.BlobStore
	Store   mirror.Store
	Hasher  mirror.Hasher
	Limiter Waiter
	Logger  *zap.Logger
}

// NewEnricher builds an Enricher.
func NewEnricher(cfg Config, deps Deps) (*Enricher, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("fetcher is required")
	case deps.Blobs == nil:
		return nil, fmt.Errorf("blob store is required")
	case deps.Store == nil:
		return nil, fmt.Errorf("record store is required")
	case deps.Hasher == nil:
		return nil, fmt.Errorf("hasher is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		cfg:     cfg,
		fetcher: deps.Fetcher,
		blobs:   deps.Blobs,
		store:   deps.Store,
		hasher:  deps.Hasher,
		limiter: deps.Limiter,
		logger:  logger.Named("assets"),
	}, nil
}

// Enrich downloads each qualifying image of a record, persists it, and
// records the resulting handles on the record. A failing image is skipped;
// the skipped images come back joined in the error alongside the handles
// that were stored.
func (e *Enricher) Enrich(ctx context.Context, externalID int64, name string, urls []string) ([]string, error) {
	logger := e.logger.With(zap.Int64("external_id", externalID), zap.String("name", name))
	var (
		handles  []string
		failures []error
		seen     = make(map[string]struct{})
	)

	for _, raw := range urls {
		ref, err := ParseImageURL(raw)
		if err != nil {
			logger.Debug("skipping unparseable image url", zap.String("url", raw), zap.Error(err))
			continue
		}
		if !ref.Qualifies() {
			continue
		}
		if ref.ExternalID != externalID {
			logger.Warn("image url names another record", zap.String("url", raw), zap.Int64("url_id", ref.ExternalID))
		}

		handle, err := e.storeOne(ctx, externalID, name, ref, seen)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				failures = append(failures, ctxErr)
				break
			}
			logger.Warn("asset skipped", zap.String("url", ref.URL), zap.Error(err))
			failures = append(failures, &mirror.AssetFetchError{URL: ref.URL, Err: err})
			continue
		}
		if handle == "" {
			logger.Debug("duplicate image payload skipped", zap.String("url", ref.URL))
			continue
		}
		handles = append(handles, handle)
	}

	if len(handles) > 0 {
		if err := e.store.SetAssetHandles(ctx, externalID, handles); err != nil {
			return handles, fmt.Errorf("record asset handles: %w", err)
		}
		logger.Info("assets stored", zap.Int("count", len(handles)))
	}
	return handles, errors.Join(failures...)
}

// storeOne returns "" with no error when the payload duplicates an earlier one.
func (e *Enricher) storeOne(
	ctx context.Context,
	externalID int64,
	name string,
	ref ImageRef,
	seen map[string]struct{},
) (string, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, ref.URL); err != nil {
			return "", err
		}
	}
	resp, err := e.fetcher.Fetch(ctx, mirror.FetchRequest{URL: ref.URL, Timeout: e.cfg.Timeout})
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download: http status %d", resp.StatusCode)
	}
	if len(resp.Body) == 0 {
		return "", fmt.Errorf("download: empty body")
	}
	if e.cfg.MaxBodyBytes > 0 && len(resp.Body) >= e.cfg.MaxBodyBytes {
		return "", fmt.Errorf("download: body reached %d byte limit", e.cfg.MaxBodyBytes)
	}
	digest, err := e.hasher.Hash(resp.Body)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	if _, dup := seen[digest]; dup {
		return "", nil
	}
	seen[digest] = struct{}{}

	key := path.Join(e.cfg.Prefix, strconv.FormatInt(externalID, 10), ref.FileName())
	if err := e.put(ctx, key, contentType(ref, resp.Headers), name, resp.Body); err != nil {
		return "", fmt.Errorf("persist: %w", err)
	}
	return key, nil
}

// put stores the payload, titled with the record name when the blob store
// supports metadata.
func (e *Enricher) put(ctx context.Context, key, ctype, name string, body []byte) error {
	title := strings.TrimSpace(name)
	if mb, ok := e.blobs.(mirror.MetadataBlobStore); ok && title != "" {
		_, err := mb.PutObjectWithMetadata(ctx, key, ctype, map[string]string{"title": title}, bytes.NewReader(body))
		return err
	}
	_, err := e.blobs.PutObject(ctx, key, ctype, bytes.NewReader(body))
	return err
}

func contentType(ref ImageRef, headers http.Header) string {
	if ct := mime.TypeByExtension("." + ref.Ext); ct != "" {
		return ct
	}
	if ct := headers.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
