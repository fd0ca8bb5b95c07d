package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
	"github.com/JakeFAU/shelter-mirror/internal/storage/memory"
)

func newTestService(t *testing.T, recs ...mirror.Record) *Service {
	t.Helper()
	store := memory.NewRecordStore()
	for _, r := range recs {
		require.NoError(t, store.Insert(context.Background(), r))
	}
	svc, err := New(store, Options{AssetBaseURL: "https://cdn.example.com/assets/"}, nil)
	require.NoError(t, err)
	return svc
}

func cat(id int64, name, status string) mirror.Record {
	return mirror.Record{ExternalID: id, Species: "CAT", Name: name, Status: status, Description: name + " purrs"}
}

func TestListBySpecies(t *testing.T) {
	t.Parallel()

	recs := []mirror.Record{
		cat(1, "Tom", "A"),
		{ExternalID: 2, Species: "DOG", Name: "Rex", Status: "A"},
		cat(3, "Mia", "H"),
		cat(4, "Zoe", "A"),
	}
	for i := int64(10); i < 25; i++ {
		recs = append(recs, cat(i, "Extra", "A"))
	}
	svc := newTestService(t, recs...)

	got, err := svc.ListBySpecies(context.Background(), "cat", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Tom", got[0].Name)
	assert.Equal(t, "Zoe", got[1].Name)

	defaulted, err := svc.ListBySpecies(context.Background(), "CAT", 0)
	require.NoError(t, err)
	assert.Len(t, defaulted, DefaultListCount)

	_, err = svc.ListBySpecies(context.Background(), "CAT'--", 2)
	assert.True(t, errors.Is(err, mirror.ErrInvalidFilter))
}

func TestListBySpeciesFindsMultiWordSpecies(t *testing.T) {
	t.Parallel()

	rec := mirror.RemoteRecord{ExternalID: 31, Species: "Small & Furry", Name: "Nibbles", Status: "A"}.ToRecord()
	svc := newTestService(t, rec)

	got, err := svc.ListBySpecies(context.Background(), mirror.SpeciesSmallFurry, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Nibbles", got[0].Name)

	out, err := svc.Render(context.Background(), Spec{Species: "smallfurry"})
	require.NoError(t, err)
	assert.Contains(t, out, "Nibbles")
}

func TestRenderDefaultFormatter(t *testing.T) {
	t.Parallel()

	tom := cat(1, "Tom <script>", "A")
	tom.AssetHandles = []string{"pets/1/pets-1-1-x.jpg"}
	svc := newTestService(t, tom, mirror.Record{ExternalID: 2, Species: "DOG", Name: "Rex", Status: "A"})

	out, err := svc.Render(context.Background(), Spec{ImageSize: "Medium"})
	require.NoError(t, err)
	assert.Contains(t, out, `<img src="https://cdn.example.com/assets/pets/1/pets-1-1-x.jpg"`)
	assert.Contains(t, out, `class="size-medium"`)
	assert.Contains(t, out, `href="http://petfinder.com/petdetail/1"`)
	assert.Contains(t, out, "Adopt me")
	assert.Contains(t, out, "Tom &lt;script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "Rex")
}

func TestRenderStepsInOrderSkippingUnknown(t *testing.T) {
	t.Parallel()

	tom := cat(1, "Tom", "A")
	tom.BreedSummary = "Tabby"
	svc := newTestService(t, tom, cat(2, "Mia", "A"))

	out, err := svc.Render(context.Background(), Spec{Species: "cat", Steps: []string{"breed", "bogus", "NAME"}})
	require.NoError(t, err)
	assert.Equal(t, `<span class="breed">Tabby</span><h1>Tom</h1><h1>Mia</h1>`, out)
}

func TestRenderOnlyUnknownStepsYieldsEmpty(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, cat(1, "Tom", "A"))
	out, err := svc.Render(context.Background(), Spec{Steps: []string{"nope"}})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRenderStatusAndCount(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, cat(1, "Tom", "A"), cat(2, "Mia", "H"), cat(3, "Zoe", "H"))

	out, err := svc.Render(context.Background(), Spec{Status: "h", Count: 1, Steps: []string{"name"}})
	require.NoError(t, err)
	assert.Equal(t, "<h1>Mia</h1>", out)
}

func TestExcerptTruncates(t *testing.T) {
	t.Parallel()

	rec := mirror.Record{Description: strings.Repeat("é", 200)}
	f, ok := Lookup("excerpt")
	require.True(t, ok)
	out := f.Format(rec, Options{})
	assert.Contains(t, out, strings.Repeat("é", excerptRunes)+". . . ")
	assert.NotContains(t, out, strings.Repeat("é", excerptRunes+1))

	short := f.Format(mirror.Record{Description: "short"}, Options{})
	assert.Equal(t, `<p class="excerpt">short</p>`, short)
}

func TestImageWithoutHandlesIsEmpty(t *testing.T) {
	t.Parallel()

	f, ok := Lookup("image")
	require.True(t, ok)
	assert.Empty(t, f.Format(mirror.Record{Name: "Tom"}, Options{}))
}

func TestEveryNameResolves(t *testing.T) {
	t.Parallel()

	for _, n := range Names() {
		_, ok := Lookup(n)
		assert.True(t, ok, n)
	}
	_, ok := Lookup("missing")
	assert.False(t, ok)
}
