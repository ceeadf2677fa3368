// Package models defines the registration row and its state machine.
package models

import (
	"fmt"
	"time"

	id "entrant/pkg/domain"
	"entrant/pkg/platform/sentinel"
)

// Status is the lifecycle state of a registration.
type Status string

const (
	// StatusPendingPayment holds a reserved slot while awaiting payment
	// confirmation from the gateway.
	StatusPendingPayment Status = "pending_payment"
	// StatusConfirmed is the sole success terminal state.
	StatusConfirmed Status = "confirmed"
	// StatusRejected covers cancellation, expiry, and refusal. Rejected
	// registrations do not hold a slot and do not block re-registration.
	StatusRejected Status = "rejected"
)

// ParseStatus validates a stored status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPendingPayment, StatusConfirmed, StatusRejected:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown registration status %q", s)
}

// Active reports whether the registration holds a capacity slot.
func (s Status) Active() bool {
	return s == StatusPendingPayment || s == StatusConfirmed
}

// Registration is one principal's registration for one segment. The
// supplied constraint code is checked at creation and never stored here.
type Registration struct {
	ID           id.RegistrationID
	SegmentID    id.SegmentID
	PrincipalRef id.PrincipalRef
	Status       Status
	CreatedAt    time.Time

	// PaymentConfirmedAt is set on the pending -> confirmed transition.
	PaymentConfirmedAt *time.Time
	// PaymentDeadline bounds the pending_payment state; nil for
	// registrations confirmed at creation.
	PaymentDeadline *time.Time
}

// New creates a registration in its initial status. Free segments confirm
// immediately; paid segments start pending with a payment deadline.
func New(segmentID id.SegmentID, principal id.PrincipalRef, free bool, now time.Time, paymentTTL time.Duration) *Registration {
	r := &Registration{
		ID:           id.NewRegistrationID(),
		SegmentID:    segmentID,
		PrincipalRef: principal,
		CreatedAt:    now,
	}
	if free {
		confirmedAt := now
		r.Status = StatusConfirmed
		r.PaymentConfirmedAt = &confirmedAt
		return r
	}
	deadline := now.Add(paymentTTL)
	r.Status = StatusPendingPayment
	r.PaymentDeadline = &deadline
	return r
}

// Confirm transitions pending_payment to confirmed. Confirming an already
// confirmed registration is a no-op; confirming a rejected one is an
// invalid transition.
func (r *Registration) Confirm(now time.Time) error {
	switch r.Status {
	case StatusConfirmed:
		return nil
	case StatusRejected:
		return fmt.Errorf("confirm rejected registration: %w", sentinel.ErrInvalidState)
	}
	r.Status = StatusConfirmed
	r.PaymentConfirmedAt = &now
	r.PaymentDeadline = nil
	return nil
}

// Reject moves a pending registration to the rejected terminal state,
// releasing its claim on capacity. Rejecting twice is a no-op; confirmed
// is terminal and cannot be rejected.
func (r *Registration) Reject() (bool, error) {
	switch r.Status {
	case StatusRejected:
		return false, nil
	case StatusConfirmed:
		return false, fmt.Errorf("reject confirmed registration: %w", sentinel.ErrInvalidState)
	}
	r.Status = StatusRejected
	r.PaymentDeadline = nil
	return true, nil
}

// PaymentExpired reports whether a pending registration's deadline has
// passed.
func (r *Registration) PaymentExpired(now time.Time) bool {
	return r.Status == StatusPendingPayment &&
		r.PaymentDeadline != nil &&
		now.After(*r.PaymentDeadline)
}
