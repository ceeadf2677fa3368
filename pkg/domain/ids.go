// Package domain defines shared value types: typed identifiers and the
// enumerations used by segment constraints and participant profiles.
//
// Typed IDs prevent cross-type assignment at compile time. Construct them via
// the Parse functions at trust boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "entrant/pkg/domain-errors"
)

// Typed identifiers. Each is a distinct type over uuid.UUID so the compiler
// rejects, say, passing a TeamID where a SegmentID is expected.
type (
	UserID         uuid.UUID
	TeamID         uuid.UUID
	EventID        uuid.UUID
	SegmentID      uuid.UUID
	ConstraintID   uuid.UUID
	RegistrationID uuid.UUID
)

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be nil", what)
	}
	return u, nil
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseTeamID constructs a TeamID from external input.
func ParseTeamID(s string) (TeamID, error) {
	u, err := parseUUID(s, "team id")
	return TeamID(u), err
}

// ParseEventID constructs an EventID from external input.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event id")
	return EventID(u), err
}

// ParseSegmentID constructs a SegmentID from external input.
func ParseSegmentID(s string) (SegmentID, error) {
	u, err := parseUUID(s, "segment id")
	return SegmentID(u), err
}

// ParseConstraintID constructs a ConstraintID from external input.
func ParseConstraintID(s string) (ConstraintID, error) {
	u, err := parseUUID(s, "constraint id")
	return ConstraintID(u), err
}

// ParseRegistrationID constructs a RegistrationID from external input.
func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s, "registration id")
	return RegistrationID(u), err
}

// NewUserID mints a fresh random UserID. Used by tests and fixtures.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewTeamID mints a fresh random TeamID.
func NewTeamID() TeamID { return TeamID(uuid.New()) }

// NewEventID mints a fresh random EventID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewSegmentID mints a fresh random SegmentID.
func NewSegmentID() SegmentID { return SegmentID(uuid.New()) }

// NewConstraintID mints a fresh random ConstraintID.
func NewConstraintID() ConstraintID { return ConstraintID(uuid.New()) }

// NewRegistrationID mints a fresh random RegistrationID.
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id TeamID) String() string         { return uuid.UUID(id).String() }
func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id SegmentID) String() string      { return uuid.UUID(id).String() }
func (id ConstraintID) String() string   { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool         { return uuid.UUID(id) == uuid.Nil }
func (id TeamID) IsZero() bool         { return uuid.UUID(id) == uuid.Nil }
func (id SegmentID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
