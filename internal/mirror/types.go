package mirror

import (
	"strings"
	"time"
)

// Status values reported by the listing API. They are stored uppercased.
const (
	StatusAdoptable = "A"
	StatusHold      = "H"
	StatusPending   = "P"
	StatusRemoved   = "X"
)

// StatusActive is the status requested from the remote source and shown by default.
const StatusActive = StatusAdoptable

// Species values as stored in the mirror.
const (
	SpeciesDog        = "DOG"
	SpeciesCat        = "CAT"
	SpeciesBird       = "BIRD"
	SpeciesHorse      = "HORSE"
	SpeciesPig        = "PIG"
	SpeciesBarnyard   = "BARNYARD"
	SpeciesRabbit     = "RABBIT"
	SpeciesSmallFurry = "SMALLFURRY"
	SpeciesReptile    = "REPTILE"

	// SpeciesScalesFinsOther is the listing API's "Scales, Fins & Other".
	SpeciesScalesFinsOther = "SCALESFINSOTHER"
)

// Outcome values returned at the presentation boundary.
const (
	OutcomeUpdated    = "updated"
	OutcomeNotUpdated = "not updated"
)

// Record is the local representation of one remote listing.
type Record struct {
	ExternalID       int64     `json:"external_id"`
	Species          string    `json:"species"`
	BreedSummary     string    `json:"breed"`
	IsMixedBreed     bool      `json:"mix"`
	AgeCategory      string    `json:"age"`
	Name             string    `json:"name"`
	SizeCategory     string    `json:"size"`
	Sex              string    `json:"sex"`
	Description      string    `json:"description"`
	LastRemoteUpdate time.Time `json:"last_update"`
	Status           string    `json:"status"`
	VideoRefs        []string  `json:"videos"`
	IsFoster         bool      `json:"is_foster"`
	AssetHandles     []string  `json:"asset_handles"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (r Record) Clone() Record {
	cp := r
	cp.VideoRefs = cloneStrings(r.VideoRefs)
	cp.AssetHandles = cloneStrings(r.AssetHandles)
	return cp
}

// RemoteRecord is one listing as returned by the remote source.
type RemoteRecord struct {
	ExternalID  int64
	Species     string
	Breeds      [][]string
	Mix         string
	Age         string
	Name        string
	Size        string
	Sex         string
	Description string
	LastUpdate  time.Time
	Status      string
	PhotoURLs   []string
	Options     []string
}

// FetchQuery selects which remote records a RemoteFetcher returns.
type FetchQuery struct {
	ShelterID string
	Status    string
	MaxCount  int
}

// FetchResult is the decoded remote response.
type FetchResult struct {
	StatusCode    string
	StatusMessage string
	Records       []RemoteRecord
}

// ToRecord builds the full mirror row for a remote record. Asset handles start empty.
func (r RemoteRecord) ToRecord() Record {
	return Record{
		ExternalID:       r.ExternalID,
		Species:          NormalizeSpecies(r.Species),
		BreedSummary:     BreedSummary(r.Breeds),
		IsMixedBreed:     parseMix(r.Mix),
		AgeCategory:      strings.TrimSpace(r.Age),
		Name:             strings.TrimSpace(r.Name),
		SizeCategory:     strings.TrimSpace(r.Size),
		Sex:              strings.TrimSpace(r.Sex),
		Description:      r.Description,
		LastRemoteUpdate: r.LastUpdate,
		Status:           NormalizeStatus(r.Status),
		VideoRefs:        []string{},
		IsFoster:         hasOption(r.Options, "foster"),
		AssetHandles:     []string{},
	}
}

// NormalizeStatus uppercases a status at the boundary.
func NormalizeStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}

// NormalizeSpecies uppercases a species and drops everything that is not a
// letter, so "Small & Furry" is stored as SMALLFURRY.
func NormalizeSpecies(species string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, strings.ToUpper(species))
}

// Summary reports what one reconciliation run did.
type Summary struct {
	RunID        string    `json:"run_id"`
	Outcome      string    `json:"outcome"`
	Fetched      int       `json:"fetched"`
	Updated      int       `json:"updated"`
	Inserted     int       `json:"inserted"`
	Conflicts    int       `json:"conflicts"`
	Failed       int       `json:"failed"`
	Duplicates   int       `json:"duplicates"`
	Purged       int64     `json:"purged"`
	AssetsStored int       `json:"assets_stored"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

func parseMix(mix string) bool {
	switch strings.ToLower(strings.TrimSpace(mix)) {
	case "yes", "y", "true", "1":
		return true
	default:
		return false
	}
}

func hasOption(options []string, want string) bool {
	for _, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt), want) {
			return true
		}
	}
	return false
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
