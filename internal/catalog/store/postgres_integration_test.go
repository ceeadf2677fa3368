//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entrant/internal/catalog/models"
	"entrant/internal/catalog/store"
	id "entrant/pkg/domain"
	"entrant/pkg/platform/sentinel"
	"entrant/pkg/testutil/containers"
)

// Uses real components, not mocks, per AGENTS.md.

func insertSegment(t *testing.T, pool *pgxpool.Pool, eventID id.EventID) id.SegmentID {
	t.Helper()
	segID := id.NewSegmentID()
	deadline := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err := pool.Exec(context.Background(),
		`INSERT INTO segments (id, event_id, name, capacity, is_team, min_team_size,
		                       max_team_size, registration_fee_cents, registration_deadline)
		 VALUES ($1, $2, 'marathon', 100, TRUE, 2, 5, 2500, $3)`,
		uuid.UUID(segID), uuid.UUID(eventID), deadline)
	require.NoError(t, err)
	return segID
}

func insertConstraint(t *testing.T, pool *pgxpool.Pool, eventID id.EventID, kind, config string, appliesToAll bool, segmentIDs ...id.SegmentID) id.ConstraintID {
	t.Helper()
	cid := id.NewConstraintID()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO constraints (id, event_id, kind, config, applies_to_all)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(cid), uuid.UUID(eventID), kind, config, appliesToAll)
	require.NoError(t, err)
	for _, segID := range segmentIDs {
		_, err := pool.Exec(context.Background(),
			`INSERT INTO constraint_segments (constraint_id, segment_id) VALUES ($1, $2)`,
			uuid.UUID(cid), uuid.UUID(segID))
		require.NoError(t, err)
	}
	return cid
}

func TestPostgres_GetSegment(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)
	segID := insertSegment(t, pg.Pool, id.NewEventID())

	seg, err := s.GetSegment(context.Background(), segID)
	require.NoError(t, err)
	assert.Equal(t, segID, seg.ID)
	assert.Equal(t, "marathon", seg.Name)
	assert.Equal(t, 100, seg.Capacity)
	assert.True(t, seg.IsTeam)
	assert.Equal(t, 2, seg.MinTeamSize)
	assert.Equal(t, 5, seg.MaxTeamSize)
	assert.Equal(t, int64(2500), seg.RegistrationFee)
	require.NotNil(t, seg.RegistrationDeadline)

	_, err = s.GetSegment(context.Background(), id.NewSegmentID())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgres_ListConstraintsForEvent(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)
	eventID := id.NewEventID()
	segID := insertSegment(t, pg.Pool, eventID)

	ageID := insertConstraint(t, pg.Pool, eventID, "age",
		`{"min_age": 18, "max_age": 30}`, true)
	domainID := insertConstraint(t, pg.Pool, eventID, "domain",
		`{"allowed_domains": ["mit.edu"]}`, false, segID)
	// A constraint on another event must not leak in.
	insertConstraint(t, pg.Pool, id.NewEventID(), "age", `{"min_age": 21}`, true)

	constraints, err := s.ListConstraintsForEvent(context.Background(), eventID)
	require.NoError(t, err)
	require.Len(t, constraints, 2)

	byID := map[id.ConstraintID]models.Constraint{}
	for _, c := range constraints {
		byID[c.ID] = c
	}

	age := byID[ageID]
	assert.Equal(t, models.KindAge, age.Kind)
	assert.True(t, age.AppliesToAll)
	ageCfg, ok := age.Config.(models.AgeConfig)
	require.True(t, ok)
	require.NotNil(t, ageCfg.MinAge)
	assert.Equal(t, 18, *ageCfg.MinAge)

	domain := byID[domainID]
	assert.Equal(t, models.KindDomain, domain.Kind)
	assert.False(t, domain.AppliesToAll)
	require.Len(t, domain.SegmentIDs, 1)
	assert.Equal(t, segID, domain.SegmentIDs[0])
	assert.True(t, domain.AppliesTo(segID))
}

func TestPostgres_TogglePause(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)
	segID := insertSegment(t, pg.Pool, id.NewEventID())

	paused, err := s.TogglePause(context.Background(), segID)
	require.NoError(t, err)
	assert.True(t, paused)

	paused, err = s.TogglePause(context.Background(), segID)
	require.NoError(t, err)
	assert.False(t, paused)

	_, err = s.TogglePause(context.Background(), id.NewSegmentID())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}
