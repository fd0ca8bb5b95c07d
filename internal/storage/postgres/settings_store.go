package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

const defaultSettingsTable = "shelter_settings"

// SettingsStore keeps the remote credentials in a single-row table.
type SettingsStore struct {
	pool  pool
	table string
}

// NewSettingsStoreWithPool builds a SettingsStore on an existing pool.
func NewSettingsStoreWithPool(p pool, table string) (*SettingsStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := checkTable(table, defaultSettingsTable)
	if err != nil {
		return nil, err
	}
	return &SettingsStore{pool: p, table: table}, nil
}

// Load returns the stored credentials, or zero credentials when none were saved.
func (s *SettingsStore) Load(ctx context.Context) (mirror.Credentials, error) {
	var creds mirror.Credentials
	query := fmt.Sprintf(`SELECT api_key, api_secret, shelter_id FROM %s WHERE id = 1`, s.table)
	err := s.pool.QueryRow(ctx, query).Scan(&creds.APIKey, &creds.APISecret, &creds.ShelterID)
	if errors.Is(err, pgx.ErrNoRows) {
		return mirror.Credentials{}, nil
	}
	if err != nil {
		return mirror.Credentials{}, fmt.Errorf("load settings: %w", err)
	}
	return creds, nil
}

// Save upserts the credentials row.
func (s *SettingsStore) Save(ctx context.Context, creds mirror.Credentials) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, api_key, api_secret, shelter_id, updated_at)
VALUES (1, $1, $2, $3, now())
ON CONFLICT (id) DO UPDATE SET
	api_key = EXCLUDED.api_key,
	api_secret = EXCLUDED.api_secret,
	shelter_id = EXCLUDED.shelter_id,
	updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.pool.Exec(ctx, query, creds.APIKey, creds.APISecret, creds.ShelterID); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
