package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entrant/internal/registration/models"
	id "entrant/pkg/domain"
	"entrant/pkg/platform/sentinel"
)

var testTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newPending(segmentID id.SegmentID) *models.Registration {
	return models.New(segmentID, id.UserRef(id.NewUserID()), false, testTime, 30*time.Minute)
}

func TestCreateWithCapacity(t *testing.T) {
	st := NewMemory()
	segID := id.NewSegmentID()
	st.SeedSegment(segID, 2)
	ctx := context.Background()

	require.NoError(t, st.CreateWithCapacity(ctx, newPending(segID)))
	require.NoError(t, st.CreateWithCapacity(ctx, newPending(segID)))

	err := st.CreateWithCapacity(ctx, newPending(segID))
	assert.ErrorIs(t, err, sentinel.ErrCapacity)
	assert.Equal(t, 2, st.ReservedCount(segID))
}

func TestCreateWithCapacity_UnlimitedWhenZero(t *testing.T) {
	st := NewMemory()
	segID := id.NewSegmentID()
	st.SeedSegment(segID, 0)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		require.NoError(t, st.CreateWithCapacity(ctx, newPending(segID)))
	}
}

func TestCreateWithCapacity_Paused(t *testing.T) {
	st := NewMemory()
	segID := id.NewSegmentID()
	st.SeedSegment(segID, 10)
	st.SetPaused(segID, true)

	err := st.CreateWithCapacity(context.Background(), newPending(segID))
	assert.ErrorIs(t, err, sentinel.ErrPaused)
}

func TestCreateWithCapacity_DuplicatePrincipal(t *testing.T) {
	st := NewMemory()
	segID := id.NewSegmentID()
	st.SeedSegment(segID, 10)
	ctx := context.Background()

	principal := id.UserRef(id.NewUserID())
	first := models.New(segID, principal, false, testTime, time.Hour)
	require.NoError(t, st.CreateWithCapacity(ctx, first))

	dup := models.New(segID, principal, false, testTime, time.Hour)
	assert.ErrorIs(t, st.CreateWithCapacity(ctx, dup), sentinel.ErrConflict)

	// A rejected registration releases the principal for another attempt.
	_, err := st.Reject(ctx, first.ID)
	require.NoError(t, err)
	retry := models.New(segID, principal, false, testTime, time.Hour)
	assert.NoError(t, st.CreateWithCapacity(ctx, retry))
}

func TestCreateWithCapacity_SegmentMissing(t *testing.T) {
	st := NewMemory()

	err := st.CreateWithCapacity(context.Background(), newPending(id.NewSegmentID()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

// Exactly N of K concurrent attempts may win the last slots; the counter
// must never exceed capacity.
func TestCreateWithCapacity_ConcurrentNeverOverbooks(t *testing.T) {
	const capacity = 10
	const attempts = 100

	st := NewMemory()
	segID := id.NewSegmentID()
	st.SeedSegment(segID, capacity)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- st.CreateWithCapacity(ctx, newPending(segID))
		}()
	}
	wg.Wait()
	close(results)

	var won, full int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, sentinel.ErrCapacity):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, capacity, won)
	assert.Equal(t, attempts-capacity, full)
	assert.Equal(t, capacity, st.ReservedCount(segID))
}

func TestConfirmPayment(t *testing.T) {
	st := NewMemory()
	segID := id.NewSegmentID()
	st.SeedSegment(segID, 10)
	ctx := context.Background()

	reg := newPending(segID)
	require.NoError(t, st.CreateWithCapacity(ctx, reg))

	got, transitioned, err := st.ConfirmPayment(ctx, reg.ID, testTime.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, models.StatusConfirmed, got.Status)

	// Idempotent.
	again, transitioned, err := st.ConfirmPayment(ctx, reg.ID, testTime.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, *got.PaymentConfirmedAt, *again.PaymentConfirmedAt)
}

func TestConfirmPayment_RejectedIsInvalid(t *testing.T) {
	st := NewMemory()
	segID := id.NewSegmentID()
	st.SeedSegment(segID, 10)
	ctx := context.Background()

	reg := newPending(segID)
	require.NoError(t, st.CreateWithCapacity(ctx, reg))
	_, err := st.Reject(ctx, reg.ID)
	require.NoError(t, err)

	_, _, err = st.ConfirmPayment(ctx, reg.ID, testTime)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestReject_ReleasesSlot(t *testing.T) {
	st := NewMemory()
	segID := id.NewSegmentID()
	st.SeedSegment(segID, 1)
	ctx := context.Background()

	reg := newPending(segID)
	require.NoError(t, st.CreateWithCapacity(ctx, reg))
	assert.ErrorIs(t, st.CreateWithCapacity(ctx, newPending(segID)), sentinel.ErrCapacity)

	got, err := st.Reject(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, 0, st.ReservedCount(segID))

	assert.NoError(t, st.CreateWithCapacity(ctx, newPending(segID)))
}

func TestReject_ConfirmedIsInvalid(t *testing.T) {
	st := NewMemory()
	segID := id.NewSegmentID()
	st.SeedSegment(segID, 1)
	ctx := context.Background()

	reg := newPending(segID)
	require.NoError(t, st.CreateWithCapacity(ctx, reg))
	_, _, err := st.ConfirmPayment(ctx, reg.ID, testTime)
	require.NoError(t, err)

	_, err = st.Reject(ctx, reg.ID)
	require.ErrorIs(t, err, sentinel.ErrInvalidState)

	got, err := st.GetByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, 1, st.ReservedCount(segID), "confirmed registration keeps its slot")
}

func TestReject_TwiceReleasesOnce(t *testing.T) {
	st := NewMemory()
	segID := id.NewSegmentID()
	st.SeedSegment(segID, 5)
	ctx := context.Background()

	reg := newPending(segID)
	require.NoError(t, st.CreateWithCapacity(ctx, reg))

	_, err := st.Reject(ctx, reg.ID)
	require.NoError(t, err)
	_, err = st.Reject(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.ReservedCount(segID), "counter must not go negative")
}

func TestExpirePending(t *testing.T) {
	st := NewMemory()
	segID := id.NewSegmentID()
	st.SeedSegment(segID, 5)
	ctx := context.Background()

	reg := newPending(segID)
	require.NoError(t, st.CreateWithCapacity(ctx, reg))

	expired, err := st.ExpirePending(ctx, reg.ID, testTime.Add(10*time.Minute))
	require.NoError(t, err)
	assert.False(t, expired, "deadline not reached yet")

	expired, err = st.ExpirePending(ctx, reg.ID, testTime.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, 0, st.ReservedCount(segID))

	// Confirmed rows never expire.
	confirmed := newPending(segID)
	require.NoError(t, st.CreateWithCapacity(ctx, confirmed))
	_, _, err = st.ConfirmPayment(ctx, confirmed.ID, testTime)
	require.NoError(t, err)
	expired, err = st.ExpirePending(ctx, confirmed.ID, testTime.Add(24*time.Hour))
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestListBySegment(t *testing.T) {
	st := NewMemory()
	segID := id.NewSegmentID()
	other := id.NewSegmentID()
	st.SeedSegment(segID, 10)
	st.SeedSegment(other, 10)
	ctx := context.Background()

	a := models.New(segID, id.UserRef(id.NewUserID()), false, testTime, time.Hour)
	b := models.New(segID, id.UserRef(id.NewUserID()), false, testTime.Add(time.Minute), time.Hour)
	require.NoError(t, st.CreateWithCapacity(ctx, a))
	require.NoError(t, st.CreateWithCapacity(ctx, b))
	require.NoError(t, st.CreateWithCapacity(ctx, newPending(other)))

	got, err := st.ListBySegment(ctx, segID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID, "oldest first")
	assert.Equal(t, b.ID, got[1].ID)
}

func TestListExpiredPending(t *testing.T) {
	st := NewMemory()
	segID := id.NewSegmentID()
	st.SeedSegment(segID, 10)
	ctx := context.Background()

	expired := newPending(segID)
	fresh := models.New(segID, id.UserRef(id.NewUserID()), false, testTime.Add(time.Hour), time.Hour)
	require.NoError(t, st.CreateWithCapacity(ctx, expired))
	require.NoError(t, st.CreateWithCapacity(ctx, fresh))

	got, err := st.ListExpiredPending(ctx, testTime.Add(45*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expired.ID, got[0])
}
