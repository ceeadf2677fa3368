package roster

import (
	"context"
	"errors"

	id "entrant/pkg/domain"
	dErrors "entrant/pkg/domain-errors"
	"entrant/pkg/platform/sentinel"
)

// Service resolves registration principals to the profiles that must be
// evaluated for eligibility.
type Service struct {
	store Store
}

// NewService constructs a roster Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ResolveIndividual returns the submitter's own profile. Individuals may
// only register themselves.
func (s *Service) ResolveIndividual(ctx context.Context, userID id.UserID) (*id.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "participant profile not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load profile", err)
	}
	return p, nil
}

// ResolveTeam loads the team roster and verifies the submitter is the team
// leader. The returned roster holds the leader plus accepted members.
func (s *Service) ResolveTeam(ctx context.Context, teamID id.TeamID, submitterID id.UserID) (*Roster, error) {
	roster, err := s.store.GetRoster(ctx, teamID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "team not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load team roster", err)
	}
	if roster.Team.LeaderUserID != submitterID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the team leader can register the team")
	}
	return roster, nil
}
