package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"sanctum/pkg/platform/audit"
)

// Schema is applied by Migrate. The table has no UPDATE or DELETE path in
// this package; retention is handled by an external job.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id           UUID PRIMARY KEY,
	event_type   TEXT NOT NULL,
	category     TEXT NOT NULL,
	severity     TEXT NOT NULL,
	principal_id TEXT NOT NULL DEFAULT '',
	session_id   TEXT NOT NULL DEFAULT '',
	request_id   TEXT NOT NULL DEFAULT '',
	details      JSONB,
	occurred_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_principal_idx ON audit_events (principal_id, occurred_at DESC);
CREATE INDEX IF NOT EXISTS audit_events_severity_idx ON audit_events (severity, occurred_at DESC);
`

// Store implements audit.Store on PostgreSQL via database/sql (lib/pq driver).
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, category, severity, principal_id,
			session_id, request_id, details, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Type),
		string(event.Category),
		string(event.Severity),
		event.PrincipalID,
		event.SessionID,
		event.RequestID,
		details,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByPrincipal(ctx context.Context, principalID string) ([]audit.Event, error) {
	query := `
		SELECT id, event_type, category, severity, principal_id,
			   session_id, request_id, details, occurred_at
		FROM audit_events
		WHERE principal_id = $1
		ORDER BY occurred_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, principalID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT id, event_type, category, severity, principal_id,
			   session_id, request_id, details, occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			e                        audit.Event
			eventType, category, sev string
			details                  []byte
		)
		if err := rows.Scan(&e.ID, &eventType, &category, &sev, &e.PrincipalID,
			&e.SessionID, &e.RequestID, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Type = audit.EventType(eventType)
		e.Category = audit.EventCategory(category)
		e.Severity = audit.Severity(sev)
		if len(details) > 0 && string(details) != "null" {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
