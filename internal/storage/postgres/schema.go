package postgres

import (
	"context"
	"fmt"
)

const recordSchema = `
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	external_id BIGINT NOT NULL UNIQUE,
	species TEXT NOT NULL,
	breed TEXT NOT NULL,
	mix BOOLEAN NOT NULL,
	age TEXT NOT NULL,
	name TEXT NOT NULL,
	size TEXT NOT NULL,
	sex TEXT NOT NULL,
	description TEXT NOT NULL,
	last_update TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	videos JSONB NOT NULL DEFAULT '[]'::jsonb,
	is_foster BOOLEAN NOT NULL,
	asset_handles JSONB NOT NULL DEFAULT '[]'::jsonb
)`

const settingsSchema = `
CREATE TABLE IF NOT EXISTS %s (
	id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	api_key TEXT NOT NULL,
	api_secret TEXT NOT NULL,
	shelter_id TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrate creates the record and settings tables when they do not exist.
func Migrate(ctx context.Context, p pool, recordTable, settingsTable string) error {
	recordTable, err := checkTable(recordTable, defaultRecordTable)
	if err != nil {
		return err
	}
	settingsTable, err = checkTable(settingsTable, defaultSettingsTable)
	if err != nil {
		return err
	}
	if _, err := p.Exec(ctx, fmt.Sprintf(recordSchema, recordTable)); err != nil {
		return fmt.Errorf("create %s: %w", recordTable, err)
	}
	if _, err := p.Exec(ctx, fmt.Sprintf(settingsSchema, settingsTable)); err != nil {
		return fmt.Errorf("create %s: %w", settingsTable, err)
	}
	return nil
}
