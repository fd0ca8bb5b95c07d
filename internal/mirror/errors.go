package mirror

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by stores and the reconciler.
var (
	ErrNotConfigured = errors.New("remote credentials are not configured")
	ErrNotFound      = errors.New("record not found")
	ErrConflict      = errors.New("record already exists")
	ErrInvalidFilter = errors.New("invalid filter")
)

// UpstreamError reports a missing or unsuccessful remote response.
type UpstreamError struct {
	Code    string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("upstream error: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("upstream error: status=%s message=%s", e.Code, e.Message)
	default:
		return fmt.Sprintf("upstream error: status=%s", e.Code)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AssetFetchError reports one image that could not be parsed, downloaded or stored.
type AssetFetchError struct {
	URL string
	Err error
}

func (e *AssetFetchError) Error() string {
	return fmt.Sprintf("asset %s: %v", e.URL, e.Err)
}

func (e *AssetFetchError) Unwrap() error {
	return e.Err
}
