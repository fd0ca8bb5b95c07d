package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

// SettingsStore keeps credentials in process memory.
type SettingsStore struct {
	mu    sync.RWMutex
	creds mirror.Credentials
}

// NewSettingsStore returns a store seeded with the given credentials.
func NewSettingsStore(seed mirror.Credentials) *SettingsStore {
	return &SettingsStore{creds: seed}
}

// Load returns the current credentials.
func (s *SettingsStore) Load(_ context.Context) (mirror.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, nil
}

// Save replaces the stored credentials.
func (s *SettingsStore) Save(_ context.Context, creds mirror.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}
