// Package render reads the mirror and turns records into HTML fragments.
package render

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

// Defaults applied by ListBySpecies and Render.
const (
	DefaultListCount   = 10
	DefaultRenderCount = 20
	DefaultSpecies     = mirror.SpeciesCat
)

// Spec selects and formats records for Render.
type Spec struct {
	Species   string
	Status    string
	Count     int
	Steps     []string
	ImageSize string
}

func (s Spec) withDefaults() Spec {
	if strings.TrimSpace(s.Species) == "" {
		s.Species = DefaultSpecies
	}
	if strings.TrimSpace(s.Status) == "" {
		s.Status = mirror.StatusActive
	}
	if s.Count <= 0 {
		s.Count = DefaultRenderCount
	}
	return s
}

// Service answers read-only queries against the record store.
type Service struct {
	store  mirror.Store
	opts   Options
	logger *zap.Logger
}

// New builds a Service.
func New(store mirror.Store, opts Options, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if opts.DetailURLBase == "" {
		opts.DetailURLBase = "http://petfinder.com/petdetail"
	}
	if opts.AdoptURL == "" {
		opts.AdoptURL = "/adopt/adoption-process/"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, opts: opts, logger: logger.Named("render")}, nil
}

// ListBySpecies returns up to count active records of a species in store order.
func (s *Service) ListBySpecies(ctx context.Context, species string, count int) ([]mirror.Record, error) {
	if count <= 0 {
		count = DefaultListCount
	}
	recs, err := s.store.Find(ctx, mirror.Filter{Status: mirror.StatusActive, Species: species, Limit: count})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", species, err)
	}
	return recs, nil
}

// Find exposes a filtered read for the records endpoint.
func (s *Service) Find(ctx context.Context, filter mirror.Filter) ([]mirror.Record, error) {
	recs, err := s.store.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	return recs, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, externalID int64) (mirror.Record, error) {
	rec, err := s.store.Get(ctx, externalID)
	if err != nil {
		return mirror.Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Render formats every record matching spec. Without steps each record gets
// the basic formatter; otherwise steps run in order and unknown names are
// skipped.
func (s *Service) Render(ctx context.Context, spec Spec) (string, error) {
	spec = spec.withDefaults()
	recs, err := s.store.Find(ctx, mirror.Filter{Status: spec.Status, Species: spec.Species, Limit: spec.Count})
	if err != nil {
		return "", fmt.Errorf("render query: %w", err)
	}

	opts := s.opts
	opts.ImageSize = spec.ImageSize
	steps := s.resolve(spec.Steps)

	var b strings.Builder
	for _, rec := range recs {
		for _, f := range steps {
			b.WriteString(f.Format(rec, opts))
		}
	}
	return b.String(), nil
}

func (s *Service) resolve(names []string) []Formatter {
	if len(names) == 0 {
		f, _ := Lookup(DefaultFormatter)
		return []Formatter{f}
	}
	out := make([]Formatter, 0, len(names))
	for _, n := range names {
		f, ok := Lookup(n)
		if !ok {
			s.logger.Debug("unknown render step skipped", zap.String("step", n))
			continue
		}
		out = append(out, f)
	}
	return out
}
