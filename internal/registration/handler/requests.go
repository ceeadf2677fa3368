package handler

import (
	id "entrant/pkg/domain"
	dErrors "entrant/pkg/domain-errors"
)

// CreateRequest is the wire form of a registration attempt. Exactly one
// of UserID or TeamID must be set.
type CreateRequest struct {
	SegmentID string `json:"segment_id"`
	UserID    string `json:"user_id,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
	Code      string `json:"code,omitempty"`
}

// Validate checks field presence; id syntax is checked during parsing.
func (r CreateRequest) Validate() error {
	if r.SegmentID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "segment_id is required")
	}
	if (r.UserID == "") == (r.TeamID == "") {
		return dErrors.New(dErrors.CodeInvalidInput, "exactly one of user_id or team_id is required")
	}
	return nil
}

// ParsedSegmentID returns the segment id, assuming Validate passed.
func (r CreateRequest) ParsedSegmentID() (id.SegmentID, error) {
	return id.ParseSegmentID(r.SegmentID)
}

// ParsedPrincipal returns the principal ref, assuming Validate passed.
func (r CreateRequest) ParsedPrincipal() (id.PrincipalRef, error) {
	if r.UserID != "" {
		userID, err := id.ParseUserID(r.UserID)
		if err != nil {
			return id.PrincipalRef{}, err
		}
		return id.UserRef(userID), nil
	}
	teamID, err := id.ParseTeamID(r.TeamID)
	if err != nil {
		return id.PrincipalRef{}, err
	}
	return id.TeamRef(teamID), nil
}
