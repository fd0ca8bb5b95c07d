package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImageURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		wantID    int64
		wantIndex int
		wantSize  string
		wantExt   string
		qualifies bool
	}{
		{
			name:      "full size",
			raw:       "http://photos.petfinder.com/photos/pets/22703137/1/?bust=1400440634&width=500&-x.jpg",
			wantID:    22703137,
			wantIndex: 1,
			wantSize:  "x",
			wantExt:   "jpg",
			qualifies: true,
		},
		{
			name:      "escaped ampersands",
			raw:       "http://photos.petfinder.com/photos/pets/22703137/2/?bust=1400440634&amp;width=500&amp;-x.jpg",
			wantID:    22703137,
			wantIndex: 2,
			wantSize:  "x",
			wantExt:   "jpg",
			qualifies: true,
		},
		{
			name:      "thumbnail",
			raw:       "http://photos.petfinder.com/photos/pets/22703137/1/?bust=1400440634&width=50&-t.jpg",
			wantID:    22703137,
			wantIndex: 1,
			wantSize:  "t",
			wantExt:   "jpg",
		},
		{
			name:      "pnt variant",
			raw:       "http://photos.petfinder.com/photos/pets/42/3/?bust=1&-pnt.jpg",
			wantID:    42,
			wantIndex: 3,
			wantSize:  "pnt",
			wantExt:   "jpg",
		},
		{
			name:      "png extension",
			raw:       "http://photos.petfinder.com/photos/pets/42/1/?-x.PNG",
			wantID:    42,
			wantIndex: 1,
			wantSize:  "x",
			wantExt:   "png",
			qualifies: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ref, err := ParseImageURL(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, ref.ExternalID)
			assert.Equal(t, tt.wantIndex, ref.Index)
			assert.Equal(t, tt.wantSize, ref.Size)
			assert.Equal(t, tt.wantExt, ref.Ext)
			assert.Equal(t, tt.qualifies, ref.Qualifies())
			assert.NotContains(t, ref.URL, "&amp;")
		})
	}
}

func TestParseImageURLRejectsOtherShapes(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"",
		"http://example.com/cat.jpg",
		"http://photos.petfinder.com/photos/pets/abc/1/?-x.jpg",
		"http://photos.petfinder.com/photos/pets/1/1/no-query-x.jpg",
	} {
		_, err := ParseImageURL(raw)
		assert.Error(t, err, raw)
	}
}

func TestImageRefFileName(t *testing.T) {
	t.Parallel()

	ref := ImageRef{ExternalID: 22703137, Index: 2, Size: "x", Ext: "jpg"}
	assert.Equal(t, "pets-22703137-2-x.jpg", ref.FileName())
}
