// Package store persists the catalog read-side: segments and constraints.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"entrant/internal/catalog/models"
	id "entrant/pkg/domain"
	"entrant/pkg/platform/sentinel"
)

// PostgresStore reads segments and constraints from PostgreSQL. This store is
// pure I/O; applicability filtering and freeze rules live in the service.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed catalog store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const segmentColumns = `id, event_id, name, capacity, reserved_count, is_team,
	COALESCE(min_team_size, 0), COALESCE(max_team_size, 0),
	registration_fee_cents, is_registration_paused, registration_deadline, created_at`

func (s *PostgresStore) GetSegment(ctx context.Context, segmentID id.SegmentID) (*models.Segment, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE id = $1`,
		uuid.UUID(segmentID),
	)
	seg, err := scanSegment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return seg, nil
}

// ListConstraintsForEvent returns every constraint of the event with its
// included-segment set loaded.
func (s *PostgresStore) ListConstraintsForEvent(ctx context.Context, eventID id.EventID) ([]models.Constraint, error) {
	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.event_id, c.kind, c.config, c.applies_to_all,
		        COALESCE(array_agg(cs.segment_id) FILTER (WHERE cs.segment_id IS NOT NULL), '{}')
		 FROM constraints c
		 LEFT JOIN constraint_segments cs ON cs.constraint_id = c.id
		 WHERE c.event_id = $1
		 GROUP BY c.id
		 ORDER BY c.created_at ASC`,
		uuid.UUID(eventID),
	)
	if err != nil {
		return nil, fmt.Errorf("list constraints: %w", err)
	}
	defer rows.Close()

	var constraints []models.Constraint
	for rows.Next() {
		var (
			c          models.Constraint
			cid, eid   uuid.UUID
			kind       string
			raw        []byte
			segmentIDs []uuid.UUID
		)
		if err := rows.Scan(&cid, &eid, &kind, &raw, &c.AppliesToAll, &segmentIDs); err != nil {
			return nil, fmt.Errorf("scan constraint: %w", err)
		}
		c.ID = id.ConstraintID(cid)
		c.EventID = id.EventID(eid)
		c.Kind = models.Kind(kind)
		cfg, err := models.DecodeConfig(c.Kind, raw)
		if err != nil {
			return nil, err
		}
		c.Config = cfg
		for _, sid := range segmentIDs {
			c.SegmentIDs = append(c.SegmentIDs, id.SegmentID(sid))
		}
		constraints = append(constraints, c)
	}
	return constraints, rows.Err()
}

// TogglePause atomically flips the pause flag and returns the new value.
func (s *PostgresStore) TogglePause(ctx context.Context, segmentID id.SegmentID) (bool, error) {
	var paused bool
	err := s.db.QueryRow(ctx,
		`UPDATE segments
		 SET is_registration_paused = NOT is_registration_paused
		 WHERE id = $1
		 RETURNING is_registration_paused`,
		uuid.UUID(segmentID),
	).Scan(&paused)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, sentinel.ErrNotFound
		}
		return false, fmt.Errorf("toggle pause: %w", err)
	}
	return paused, nil
}

type segmentRow interface {
	Scan(dest ...any) error
}

func scanSegment(row segmentRow) (*models.Segment, error) {
	var (
		seg      models.Segment
		sid, eid uuid.UUID
	)
	if err := row.Scan(
		&sid, &eid, &seg.Name, &seg.Capacity, &seg.ReservedCount, &seg.IsTeam,
		&seg.MinTeamSize, &seg.MaxTeamSize,
		&seg.RegistrationFee, &seg.IsRegistrationPaused, &seg.RegistrationDeadline, &seg.CreatedAt,
	); err != nil {
		return nil, err
	}
	seg.ID = id.SegmentID(sid)
	seg.EventID = id.EventID(eid)
	return &seg, nil
}
