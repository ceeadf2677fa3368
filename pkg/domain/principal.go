package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "entrant/pkg/domain-errors"
)

// PrincipalKind distinguishes the two registering parties.
type PrincipalKind string

const (
	PrincipalUser PrincipalKind = "user"
	PrincipalTeam PrincipalKind = "team"
)

// PrincipalRef identifies the registering party of a registration: either an
// individual user or a team. The duplicate-registration invariant is keyed on
// (segment id, principal ref).
type PrincipalRef struct {
	Kind PrincipalKind
	ID   uuid.UUID
}

// UserRef builds a PrincipalRef for an individual.
func UserRef(id UserID) PrincipalRef {
	return PrincipalRef{Kind: PrincipalUser, ID: uuid.UUID(id)}
}

// TeamRef builds a PrincipalRef for a team.
func TeamRef(id TeamID) PrincipalRef {
	return PrincipalRef{Kind: PrincipalTeam, ID: uuid.UUID(id)}
}

// String renders the ref in its storage form, e.g. "user:<uuid>".
func (r PrincipalRef) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}

// IsZero reports whether the ref is unset.
func (r PrincipalRef) IsZero() bool {
	return r.Kind == "" || r.ID == uuid.Nil
}

// ParsePrincipalRef parses the storage form produced by String.
func ParsePrincipalRef(s string) (PrincipalRef, error) {
	kind, rest, ok := strings.Cut(s, ":")
	if !ok {
		return PrincipalRef{}, dErrors.New(dErrors.CodeInvalidInput, "malformed principal ref")
	}
	k := PrincipalKind(kind)
	if k != PrincipalUser && k != PrincipalTeam {
		return PrincipalRef{}, dErrors.New(dErrors.CodeInvalidInput, "unknown principal kind")
	}
	u, err := uuid.Parse(rest)
	if err != nil || u == uuid.Nil {
		return PrincipalRef{}, dErrors.New(dErrors.CodeInvalidInput, "invalid principal id")
	}
	return PrincipalRef{Kind: k, ID: u}, nil
}
