//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entrant/internal/registration/models"
	"entrant/internal/registration/store"
	id "entrant/pkg/domain"
	"entrant/pkg/platform/sentinel"
	"entrant/pkg/testutil/containers"
)

// Uses real components, not mocks, per AGENTS.md.

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedSegment(t *testing.T, pool *pgxpool.Pool, capacity int, paused bool) id.SegmentID {
	t.Helper()
	segID := id.NewSegmentID()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO segments (id, event_id, name, capacity, is_registration_paused)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(segID), uuid.New(), "integration segment", capacity, paused)
	require.NoError(t, err)
	return segID
}

func reservedCount(t *testing.T, pool *pgxpool.Pool, segID id.SegmentID) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT reserved_count FROM segments WHERE id = $1`,
		uuid.UUID(segID)).Scan(&n)
	require.NoError(t, err)
	return n
}

func pendingRegistration(segID id.SegmentID) *models.Registration {
	return models.New(segID, id.UserRef(id.NewUserID()), false, baseTime, 30*time.Minute)
}

// ───────────────────────── CreateWithCapacity ─────────────────────────

func TestPostgres_CreateWithCapacity_ConcurrentNeverOverbooks(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)

	const capacity = 10
	const attempts = 50
	segID := seedSegment(t, pg.Pool, capacity, false)

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.CreateWithCapacity(context.Background(), pendingRegistration(segID))
		}()
	}
	wg.Wait()
	close(results)

	var created, refused int
	for err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, sentinel.ErrCapacity):
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, capacity, created)
	assert.Equal(t, attempts-capacity, refused)
	assert.Equal(t, capacity, reservedCount(t, pg.Pool, segID))

	regs, err := s.ListBySegment(context.Background(), segID)
	require.NoError(t, err)
	assert.Len(t, regs, capacity)
}

func TestPostgres_CreateWithCapacity_DuplicatePrincipal(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)
	segID := seedSegment(t, pg.Pool, 0, false)

	principal := id.UserRef(id.NewUserID())
	first := models.New(segID, principal, false, baseTime, 30*time.Minute)
	require.NoError(t, s.CreateWithCapacity(context.Background(), first))

	second := models.New(segID, principal, false, baseTime, 30*time.Minute)
	err := s.CreateWithCapacity(context.Background(), second)
	require.ErrorIs(t, err, sentinel.ErrConflict)

	// A rejected registration releases the principal for re-registration.
	_, err = s.Reject(context.Background(), first.ID)
	require.NoError(t, err)
	require.NoError(t, s.CreateWithCapacity(context.Background(), second))
}

func TestPostgres_CreateWithCapacity_PausedAndMissingSegment(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)

	pausedSeg := seedSegment(t, pg.Pool, 0, true)
	err := s.CreateWithCapacity(context.Background(), pendingRegistration(pausedSeg))
	require.ErrorIs(t, err, sentinel.ErrPaused)

	err = s.CreateWithCapacity(context.Background(), pendingRegistration(id.NewSegmentID()))
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

// ───────────────────────── ConfirmPayment ─────────────────────────

func TestPostgres_ConfirmPayment_Idempotent(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)
	segID := seedSegment(t, pg.Pool, 0, false)

	reg := pendingRegistration(segID)
	require.NoError(t, s.CreateWithCapacity(context.Background(), reg))

	confirmedAt := baseTime.Add(5 * time.Minute)
	got, transitioned, err := s.ConfirmPayment(context.Background(), reg.ID, confirmedAt)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	require.NotNil(t, got.PaymentConfirmedAt)
	assert.Nil(t, got.PaymentDeadline)

	// Repeat confirm keeps the first timestamp and reports no transition.
	again, transitioned, err := s.ConfirmPayment(context.Background(), reg.ID, confirmedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, got.PaymentConfirmedAt.UTC(), again.PaymentConfirmedAt.UTC())
}

func TestPostgres_ConfirmPayment_RejectedIsInvalid(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)
	segID := seedSegment(t, pg.Pool, 0, false)

	reg := pendingRegistration(segID)
	require.NoError(t, s.CreateWithCapacity(context.Background(), reg))
	_, err := s.Reject(context.Background(), reg.ID)
	require.NoError(t, err)

	_, _, err = s.ConfirmPayment(context.Background(), reg.ID, baseTime)
	require.ErrorIs(t, err, sentinel.ErrInvalidState)
}

// ───────────────────────── Reject and expiry ─────────────────────────

func TestPostgres_Reject_ReleasesSlotOnce(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)
	segID := seedSegment(t, pg.Pool, 1, false)

	reg := pendingRegistration(segID)
	require.NoError(t, s.CreateWithCapacity(context.Background(), reg))
	require.Equal(t, 1, reservedCount(t, pg.Pool, segID))

	got, err := s.Reject(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, 0, reservedCount(t, pg.Pool, segID))

	// Rejecting again is a no-op and must not drive the counter negative.
	_, err = s.Reject(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reservedCount(t, pg.Pool, segID))

	// The freed slot is usable again.
	require.NoError(t, s.CreateWithCapacity(context.Background(), pendingRegistration(segID)))
}

func TestPostgres_Reject_ConfirmedIsInvalid(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)
	segID := seedSegment(t, pg.Pool, 1, false)

	reg := pendingRegistration(segID)
	require.NoError(t, s.CreateWithCapacity(context.Background(), reg))
	_, _, err := s.ConfirmPayment(context.Background(), reg.ID, baseTime.Add(time.Minute))
	require.NoError(t, err)

	_, err = s.Reject(context.Background(), reg.ID)
	require.ErrorIs(t, err, sentinel.ErrInvalidState)

	got, err := s.GetByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, 1, reservedCount(t, pg.Pool, segID), "confirmed registration keeps its slot")
}

func TestPostgres_ExpirePending(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)
	segID := seedSegment(t, pg.Pool, 0, false)

	reg := pendingRegistration(segID)
	require.NoError(t, s.CreateWithCapacity(context.Background(), reg))

	// Before the deadline nothing expires.
	expired, err := s.ExpirePending(context.Background(), reg.ID, baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = s.ExpirePending(context.Background(), reg.ID, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, 0, reservedCount(t, pg.Pool, segID))

	got, err := s.GetByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)

	// A second pass finds nothing to expire.
	expired, err = s.ExpirePending(context.Background(), reg.ID, baseTime.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestPostgres_ExpirePending_SkipsConfirmed(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)
	segID := seedSegment(t, pg.Pool, 0, false)

	reg := pendingRegistration(segID)
	require.NoError(t, s.CreateWithCapacity(context.Background(), reg))
	_, _, err := s.ConfirmPayment(context.Background(), reg.ID, baseTime.Add(time.Minute))
	require.NoError(t, err)

	expired, err := s.ExpirePending(context.Background(), reg.ID, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, expired)

	got, err := s.GetByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
}

func TestPostgres_ListExpiredPending(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := store.NewPostgres(pg.Pool)
	segID := seedSegment(t, pg.Pool, 0, false)

	early := models.New(segID, id.UserRef(id.NewUserID()), false, baseTime, 10*time.Minute)
	late := models.New(segID, id.UserRef(id.NewUserID()), false, baseTime, 2*time.Hour)
	require.NoError(t, s.CreateWithCapacity(context.Background(), early))
	require.NoError(t, s.CreateWithCapacity(context.Background(), late))

	due, err := s.ListExpiredPending(context.Background(), baseTime.Add(time.Hour), 100)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, early.ID, due[0])
}
