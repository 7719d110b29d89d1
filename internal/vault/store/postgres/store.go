// Package postgres stores sealed records in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sanctum/internal/encryption"
	"sanctum/internal/vault"
	"sanctum/pkg/platform/sentinel"
)

const Schema = `
CREATE TABLE IF NOT EXISTS sensitive_records (
	id                 TEXT PRIMARY KEY,
	data_type          TEXT NOT NULL,
	owner_id           TEXT NOT NULL,
	classification     TEXT NOT NULL,
	ciphertext         BYTEA NOT NULL,
	metadata           JSONB NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL,
	retention_deadline TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS sensitive_records_retention_idx
	ON sensitive_records (retention_deadline) WHERE retention_deadline IS NOT NULL;
`

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate record schema: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, rec *vault.StoredRecord) error {
	meta, err := json.Marshal(rec.Record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal record metadata: %w", err)
	}
	query := `
		INSERT INTO sensitive_records (
			id, data_type, owner_id, classification, ciphertext,
			metadata, created_at, updated_at, retention_deadline
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := s.pool.Exec(ctx, query, recordArgs(rec, meta)...)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Store) Put(ctx context.Context, rec *vault.StoredRecord) error {
	meta, err := json.Marshal(rec.Record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal record metadata: %w", err)
	}
	query := `
		INSERT INTO sensitive_records (
			id, data_type, owner_id, classification, ciphertext,
			metadata, created_at, updated_at, retention_deadline
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			classification     = EXCLUDED.classification,
			ciphertext         = EXCLUDED.ciphertext,
			metadata           = EXCLUDED.metadata,
			updated_at         = EXCLUDED.updated_at,
			retention_deadline = EXCLUDED.retention_deadline
	`
	_, err = s.pool.Exec(ctx, query, recordArgs(rec, meta)...)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*vault.StoredRecord, error) {
	query := `
		SELECT id, data_type, owner_id, classification, ciphertext,
		       metadata, created_at, updated_at, retention_deadline
		FROM sensitive_records
		WHERE id = $1
	`
	var (
		rec       vault.StoredRecord
		meta      []byte
		retention *time.Time
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.DataType,
		&rec.OwnerID,
		&rec.Record.Classification,
		&rec.Record.Ciphertext,
		&meta,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&retention,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select record: %w", err)
	}
	var md encryption.Metadata
	if err := json.Unmarshal(meta, &md); err != nil {
		return nil, fmt.Errorf("unmarshal record metadata: %w", err)
	}
	rec.Record.Metadata = md
	if retention != nil {
		rec.RetentionDeadline = *retention
	}
	return &rec, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sensitive_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sensitive_records WHERE retention_deadline IS NOT NULL AND retention_deadline <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func recordArgs(rec *vault.StoredRecord, meta []byte) []any {
	return []any{
		rec.ID,
		rec.DataType,
		rec.OwnerID,
		rec.Record.Classification,
		rec.Record.Ciphertext,
		meta,
		rec.CreatedAt,
		rec.UpdatedAt,
		nullableTime(rec.RetentionDeadline),
	}
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
