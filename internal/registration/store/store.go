// Package store persists registrations and owns the capacity gate: every
// slot-affecting transition runs in a single serialized transaction
// against the segment row.
package store

import (
	"context"
	"time"

	"entrant/internal/registration/models"
	id "entrant/pkg/domain"
)

// Store is the registration persistence surface.
//
// CreateWithCapacity returns sentinel errors for the gate outcomes:
// ErrNotFound (segment missing), ErrPaused, ErrConflict (duplicate active
// registration), ErrCapacity. Reject releases the slot held by an active
// registration; ExpirePending does the same but only for pending rows
// whose deadline has passed. ConfirmPayment's bool reports whether the
// call performed the transition (false on idempotent repeats).
type Store interface {
	CreateWithCapacity(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	ConfirmPayment(ctx context.Context, regID id.RegistrationID, now time.Time) (*models.Registration, bool, error)
	Reject(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	ExpirePending(ctx context.Context, regID id.RegistrationID, now time.Time) (bool, error)
	ListBySegment(ctx context.Context, segmentID id.SegmentID) ([]models.Registration, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]id.RegistrationID, error)
}
