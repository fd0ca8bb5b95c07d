// Package assets downloads listing photos and stores them as managed assets.
package assets

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// QualifyingSize is the size token of the full-size photo variant.
const QualifyingSize = "x"

// The greedy query group makes the size token the text after the last '-'.
var imagePattern = regexp.MustCompile(`pets/(\d+)/(\d+)/\?(.*)-([A-Za-z]+)\.(\w+)`)

// ImageRef is the structured form of a listing photo URL.
type ImageRef struct {
	URL        string
	ExternalID int64
	Index      int
	Size       string
	Ext        string
}

// ParseImageURL extracts the record id, image index, size token and extension
// from a URL shaped like .../pets/{id}/{index}/?{query}-{size}.{ext}.
func ParseImageURL(raw string) (ImageRef, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), "&amp;", "&")
	m := imagePattern.FindStringSubmatch(normalized)
	if m == nil {
		return ImageRef{}, fmt.Errorf("unrecognized image url %q", raw)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return ImageRef{}, fmt.Errorf("parse external id: %w", err)
	}
	index, err := strconv.Atoi(m[2])
	if err != nil {
		return ImageRef{}, fmt.Errorf("parse image index: %w", err)
	}
	return ImageRef{
		URL:        normalized,
		ExternalID: id,
		Index:      index,
		Size:       strings.ToLower(m[4]),
		Ext:        strings.ToLower(m[5]),
	}, nil
}

// Qualifies reports whether the image is the variant worth storing.
func (r ImageRef) Qualifies() bool {
	return r.Size == QualifyingSize
}

// FileName is the stored object name, pets-{id}-{index}-{size}.{ext}.
func (r ImageRef) FileName() string {
	return fmt.Sprintf("pets-%d-%d-%s.%s", r.ExternalID, r.Index, r.Size, r.Ext)
}
