package roster

import (
	"context"
	"fmt"
	"sync"

	id "entrant/pkg/domain"
	"entrant/pkg/platform/sentinel"
)

// MemoryStore is an in-memory roster store for tests and single-process
// development runs.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.UserID]id.Profile
	teams    map[id.TeamID]Team
	members  map[id.TeamID][]id.UserID
}

// NewMemory creates an empty in-memory roster store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[id.UserID]id.Profile),
		teams:    make(map[id.TeamID]Team),
		members:  make(map[id.TeamID][]id.UserID),
	}
}

// PutProfile seeds or replaces a profile.
func (s *MemoryStore) PutProfile(p id.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

// PutTeam seeds a team with its accepted member user ids. The leader is
// part of the roster whether or not it appears in memberIDs. All profiles
// must have been seeded via PutProfile.
func (s *MemoryStore) PutTeam(team Team, memberIDs ...id.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[team.ID] = team
	s.members[team.ID] = append([]id.UserID(nil), memberIDs...)
}

func (s *MemoryStore) GetProfile(ctx context.Context, userID id.UserID) (*id.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, sentinel.ErrNotFound)
	}
	return &p, nil
}

func (s *MemoryStore) GetRoster(ctx context.Context, teamID id.TeamID) (*Roster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[teamID]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", teamID, sentinel.ErrNotFound)
	}
	roster := &Roster{Team: team}
	for _, userID := range s.members[teamID] {
		p, ok := s.profiles[userID]
		if !ok {
			return nil, fmt.Errorf("member profile %s: %w", userID, sentinel.ErrNotFound)
		}
		roster.Members = append(roster.Members, p)
	}
	// The leader belongs to the roster even without a membership row.
	if !roster.Contains(team.LeaderUserID) {
		p, ok := s.profiles[team.LeaderUserID]
		if !ok {
			return nil, fmt.Errorf("leader profile %s: %w", team.LeaderUserID, sentinel.ErrNotFound)
		}
		roster.Members = append(roster.Members, p)
	}
	return roster, nil
}
