// Package petfinder implements mirror.RemoteFetcher against the Petfinder
// shelter listing API (shelter.getPets, XML output).
package petfinder

import (
	"context"
	"crypto/md5" // #nosec G501 -- the listing API signs requests with md5.
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

// StatusOK is the header status code the API uses for success.
const StatusOK = "100"

const (
	defaultBaseURL  = "http://api.petfinder.com"
	defaultMaxCount = 400
	defaultTimeout  = 30 * time.Second
)

// Config controls how the client reaches the API.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Sign appends sig=md5(secret+query) to each request.
	Sign bool
}

// Client fetches shelter listings through a mirror.Fetcher.
type Client struct {
	cfg     Config
	fetcher mirror.Fetcher
	logger  *zap.Logger
}

// New builds a Client.
func New(cfg Config, fetcher mirror.Fetcher, logger *zap.Logger) (*Client, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, fetcher: fetcher, logger: logger.Named("petfinder")}, nil
}

// FetchRecords calls shelter.getPets and decodes the listing. Transport
// failures, non-2xx responses, undecodable bodies and non-OK header codes
// are all reported as *mirror.UpstreamError.
func (c *Client) FetchRecords(ctx context.Context, creds mirror.Credentials, query mirror.FetchQuery) (mirror.FetchResult, error) {
	if !creds.IsConfigured() {
		return mirror.FetchResult{}, mirror.ErrNotConfigured
	}
	target := c.buildURL(creds, query)

	resp, err := c.fetcher.Fetch(ctx, mirror.FetchRequest{
		URL:     target,
		Headers: http.Header{"Accept": {"application/xml, text/xml"}},
		Timeout: c.cfg.Timeout,
	})
	if err != nil {
		return mirror.FetchResult{}, &mirror.UpstreamError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mirror.FetchResult{}, &mirror.UpstreamError{
			Code:    strconv.Itoa(resp.StatusCode),
			Message: http.StatusText(resp.StatusCode),
		}
	}

	doc, err := decode(resp.Body)
	if err != nil {
		return mirror.FetchResult{}, &mirror.UpstreamError{Err: err}
	}
	code := strings.TrimSpace(doc.Header.Status.Code)
	msg := strings.TrimSpace(doc.Header.Status.Message)
	if code != StatusOK {
		return mirror.FetchResult{StatusCode: code, StatusMessage: msg}, &mirror.UpstreamError{Code: code, Message: msg}
	}

	records := make([]mirror.RemoteRecord, 0, len(doc.Pets.Pet))
	for _, p := range doc.Pets.Pet {
		rec, err := p.toRemote()
		if err != nil {
			c.logger.Warn("skipping undecodable pet", zap.String("id", p.ID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	c.logger.Debug("fetched listing",
		zap.String("shelter_id", query.ShelterID),
		zap.Int("records", len(records)),
		zap.Duration("duration", resp.Duration),
	)
	return mirror.FetchResult{StatusCode: code, StatusMessage: msg, Records: records}, nil
}

func (c *Client) buildURL(creds mirror.Credentials, query mirror.FetchQuery) string {
	shelterID := query.ShelterID
	if shelterID == "" {
		shelterID = creds.ShelterID
	}
	status := query.Status
	if status == "" {
		status = mirror.StatusActive
	}
	count := query.MaxCount
	if count <= 0 {
		count = defaultMaxCount
	}

	params := url.Values{}
	params.Set("key", strings.TrimSpace(creds.APIKey))
	params.Set("id", strings.ToUpper(strings.TrimSpace(shelterID)))
	params.Set("status", status)
	params.Set("count", strconv.Itoa(count))
	params.Set("output", "full")
	params.Set("format", "xml")
	encoded := params.Encode()
	if c.cfg.Sign {
		encoded += "&sig=" + signature(creds.APISecret, encoded)
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/shelter.getPets?" + encoded
}

func signature(secret, query string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(secret) + query)) // #nosec G401
	return hex.EncodeToString(sum[:])
}
