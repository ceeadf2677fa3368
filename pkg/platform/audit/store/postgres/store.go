// Package postgres persists audit events in PostgreSQL via database/sql.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"entrant/pkg/platform/audit"
)

// Store writes the append-only audit_events table.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open dials a database/sql connection for the audit store. The rest of the
// engine uses pgx pools; the audit trail keeps the plain driver because its
// access pattern is append-and-scan only.
func Open(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit db ping failed: %w", err)
	}
	return db, nil
}

// Append records an event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (occurred_at, actor_id, subject, action, decision, reason, request_id, client)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.Timestamp, event.ActorID, event.Subject, string(event.Action),
		event.Decision, event.Reason, event.RequestID, event.Client,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListBySubject returns events recorded for the given subject, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT occurred_at, actor_id, subject, action, decision, reason, request_id, client
		 FROM audit_events
		 WHERE subject = $1
		 ORDER BY id ASC`,
		subject,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		var action string
		if err := rows.Scan(&e.Timestamp, &e.ActorID, &e.Subject, &action, &e.Decision, &e.Reason, &e.RequestID, &e.Client); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = audit.Action(action)
		events = append(events, e)
	}
	return events, rows.Err()
}
