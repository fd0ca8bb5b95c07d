// Package memory provides in-memory stores for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

// RecordStore provides an in-memory mirror.Store. Rows keep insertion order.
type RecordStore struct {
	mu      sync.RWMutex
	order   []int64
	records map[int64]mirror.Record
}

// NewRecordStore constructs a RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[int64]mirror.Record),
	}
}

// Get fetches a record by external id.
func (s *RecordStore) Get(_ context.Context, externalID int64) (mirror.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[externalID]
	if !ok {
		return mirror.Record{}, fmt.Errorf("get %d: %w", externalID, mirror.ErrNotFound)
	}
	return rec.Clone(), nil
}

// UpdateExisting sets status and description on an existing row.
func (s *RecordStore) UpdateExisting(_ context.Context, externalID int64, status, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[externalID]
	if !ok {
		return fmt.Errorf("update %d: %w", externalID, mirror.ErrNotFound)
	}
	rec.Status = status
	rec.Description = description
	s.records[externalID] = rec
	return nil
}

// Insert stores a new record; the external id must be unused.
func (s *RecordStore) Insert(_ context.Context, record mirror.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ExternalID]; exists {
		return fmt.Errorf("insert %d: %w", record.ExternalID, mirror.ErrConflict)
	}
	s.records[record.ExternalID] = record.Clone()
	s.order = append(s.order, record.ExternalID)
	return nil
}

// SetAssetHandles replaces the asset handle list of a record.
func (s *RecordStore) SetAssetHandles(_ context.Context, externalID int64, handles []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[externalID]
	if !ok {
		return fmt.Errorf("set assets %d: %w", externalID, mirror.ErrNotFound)
	}
	rec.AssetHandles = append([]string(nil), handles...)
	s.records[externalID] = rec
	return nil
}

// Find returns the rows matching the filter in insertion order.
func (s *RecordStore) Find(_ context.Context, filter mirror.Filter) ([]mirror.Record, error) {
	filter = filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]mirror.Record, 0)
	for _, id := range s.order {
		rec := s.records[id]
		if !filter.Matches(rec) {
			continue
		}
		out = append(out, rec.Clone())
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// DeleteWhere removes every row whose field equals value.
func (s *RecordStore) DeleteWhere(_ context.Context, field mirror.Field, value string) (int64, error) {
	if !field.Valid() {
		return 0, fmt.Errorf("%w: field %q", mirror.ErrInvalidFilter, field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	kept := s.order[:0]
	for _, id := range s.order {
		if field.Value(s.records[id]) == value {
			delete(s.records, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return deleted, nil
}

// ListAll returns a copy of every row.
func (s *RecordStore) ListAll(ctx context.Context) ([]mirror.Record, error) {
	return s.Find(ctx, mirror.Filter{})
}

// Len reports the number of stored rows.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
