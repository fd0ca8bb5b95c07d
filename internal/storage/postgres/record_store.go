package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

const defaultRecordTable = "shelter_pets"

const recordColumns = `external_id, species, breed, mix, age, name, size, sex, description, last_update, status, videos, is_foster, asset_handles`

// RecordStore persists mirror records in Postgres.
type RecordStore struct {
	pool  pool
	table string
}

// NewRecordStoreWithPool builds a RecordStore on an existing pool. Useful for testing.
func NewRecordStoreWithPool(p pool, table string) (*RecordStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := checkTable(table, defaultRecordTable)
	if err != nil {
		return nil, err
	}
	return &RecordStore{pool: p, table: table}, nil
}

// Get fetches a record by external id.
func (s *RecordStore) Get(ctx context.Context, externalID int64) (mirror.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE external_id = $1`, recordColumns, s.table)
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return mirror.Record{}, fmt.Errorf("get %d: %w", externalID, mirror.ErrNotFound)
	}
	if err != nil {
		return mirror.Record{}, fmt.Errorf("get %d: %w", externalID, err)
	}
	return rec, nil
}

// UpdateExisting sets status and description on an existing row.
func (s *RecordStore) UpdateExisting(ctx context.Context, externalID int64, status, description string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $2, description = $3 WHERE external_id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, externalID, status, description)
	if err != nil {
		return fmt.Errorf("update %d: %w", externalID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %d: %w", externalID, mirror.ErrNotFound)
	}
	return nil
}

// Insert stores a new record. A duplicate external id maps to mirror.ErrConflict.
func (s *RecordStore) Insert(ctx context.Context, r mirror.Record) error {
	videos, err := marshalList(r.VideoRefs)
	if err != nil {
		return err
	}
	handles, err := marshalList(r.AssetHandles)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`, s.table, recordColumns)
	_, err = s.pool.Exec(ctx, query,
		r.ExternalID, r.Species, r.BreedSummary, r.IsMixedBreed, r.AgeCategory, r.Name,
		r.SizeCategory, r.Sex, r.Description, r.LastRemoteUpdate, r.Status, videos, r.IsFoster, handles,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert %d: %w", r.ExternalID, mirror.ErrConflict)
		}
		return fmt.Errorf("insert %d: %w", r.ExternalID, err)
	}
	return nil
}

// SetAssetHandles replaces the asset handle list of a record.
func (s *RecordStore) SetAssetHandles(ctx context.Context, externalID int64, handles []string) error {
	payload, err := marshalList(handles)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET asset_handles = $2 WHERE external_id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, externalID, payload)
	if err != nil {
		return fmt.Errorf("set assets %d: %w", externalID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set assets %d: %w", externalID, mirror.ErrNotFound)
	}
	return nil
}

// Find returns matching rows in insertion order. Filter values are always bound as parameters.
func (s *RecordStore) Find(ctx context.Context, filter mirror.Filter) ([]mirror.Record, error) {
	filter = filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	var limit any
	if filter.Limit > 0 {
		limit = int64(filter.Limit)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s
WHERE ($1 = '' OR status = $1) AND ($2 = '' OR species = $2)
ORDER BY id LIMIT $3`, recordColumns, s.table)
	rows, err := s.pool.Query(ctx, query, filter.Status, filter.Species, limit)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer rows.Close()

	out := make([]mirror.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	return out, nil
}

// DeleteWhere removes every row whose field equals value.
func (s *RecordStore) DeleteWhere(ctx context.Context, field mirror.Field, value string) (int64, error) {
	if !field.Valid() {
		return 0, fmt.Errorf("%w: field %q", mirror.ErrInvalidFilter, field)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, s.table, string(field))
	tag, err := s.pool.Exec(ctx, query, value)
	if err != nil {
		return 0, fmt.Errorf("delete where %s: %w", field, err)
	}
	return tag.RowsAffected(), nil
}

// ListAll returns every row.
func (s *RecordStore) ListAll(ctx context.Context) ([]mirror.Record, error) {
	return s.Find(ctx, mirror.Filter{})
}

func scanRecord(row pgx.Row) (mirror.Record, error) {
	var (
		r       mirror.Record
		videos  []byte
		handles []byte
	)
	err := row.Scan(
		&r.ExternalID, &r.Species, &r.BreedSummary, &r.IsMixedBreed, &r.AgeCategory, &r.Name,
		&r.SizeCategory, &r.Sex, &r.Description, &r.LastRemoteUpdate, &r.Status, &videos, &r.IsFoster, &handles,
	)
	if err != nil {
		return mirror.Record{}, err
	}
	if r.VideoRefs, err = unmarshalList(videos); err != nil {
		return mirror.Record{}, err
	}
	if r.AssetHandles, err = unmarshalList(handles); err != nil {
		return mirror.Record{}, err
	}
	return r, nil
}

func marshalList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("marshal list: %w", err)
	}
	return data, nil
}

func unmarshalList(data []byte) ([]string, error) {
	out := []string{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return out, nil
}
