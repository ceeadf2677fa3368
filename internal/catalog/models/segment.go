// Package models defines the catalog types the engine reads: segments and
// the eligibility constraints organizers attach to them.
package models

import (
	"time"

	id "entrant/pkg/domain"
	dErrors "entrant/pkg/domain-errors"
)

// Segment is a registerable unit within an event. Authored by the organizer;
// the engine mutates only reserved_count (via the capacity gate) and the
// pause flag (via TogglePause).
type Segment struct {
	ID      id.SegmentID
	EventID id.EventID
	Name    string

	// Capacity 0 means unlimited.
	Capacity int
	// ReservedCount counts non-rejected registrations (pending + confirmed).
	ReservedCount int

	IsTeam      bool
	MinTeamSize int
	MaxTeamSize int

	// RegistrationFee is in minor currency units; 0 means free.
	RegistrationFee int64

	IsRegistrationPaused bool
	RegistrationDeadline *time.Time

	CreatedAt time.Time
}

// IsFree reports whether registrations confirm immediately without payment.
func (s *Segment) IsFree() bool {
	return s.RegistrationFee == 0
}

// DeadlinePassed reports whether the registration deadline, if set, is
// behind the given instant.
func (s *Segment) DeadlinePassed(now time.Time) bool {
	return s.RegistrationDeadline != nil && now.After(*s.RegistrationDeadline)
}

// Remaining returns the number of free slots, or -1 for unlimited capacity.
func (s *Segment) Remaining() int {
	if s.Capacity == 0 {
		return -1
	}
	if s.ReservedCount >= s.Capacity {
		return 0
	}
	return s.Capacity - s.ReservedCount
}

// ConstraintsFrozen reports whether any non-rejected registration references
// the segment, in which case the authoring side must refuse constraint edits.
func (s *Segment) ConstraintsFrozen() bool {
	return s.ReservedCount > 0
}

// ValidateTeamSize checks a submitted roster size against the segment's team
// bounds. Only meaningful for team segments.
func (s *Segment) ValidateTeamSize(size int) error {
	if !s.IsTeam {
		return dErrors.New(dErrors.CodeInvalidInput, "segment does not accept team registrations")
	}
	if s.MinTeamSize > 0 && size < s.MinTeamSize {
		return dErrors.Newf(dErrors.CodeInvalidInput, "team must have at least %d members", s.MinTeamSize)
	}
	if s.MaxTeamSize > 0 && size > s.MaxTeamSize {
		return dErrors.Newf(dErrors.CodeInvalidInput, "team must have at most %d members", s.MaxTeamSize)
	}
	return nil
}
