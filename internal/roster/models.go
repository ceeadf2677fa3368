// Package roster resolves registrants: individual profiles and team
// rosters with their accepted members. Profiles and memberships are
// authored by the surrounding platform; this package only reads them.
package roster

import (
	id "entrant/pkg/domain"
)

// Team is the identity of a team principal. LeaderUserID is the only
// member allowed to submit a registration on the team's behalf.
type Team struct {
	ID           id.TeamID
	Name         string
	LeaderUserID id.UserID
}

// Roster is a team together with the profiles of its accepted members.
// The leader is always part of the roster. Pending and declined
// memberships are excluded: they do not count toward team size and are
// not evaluated for eligibility.
type Roster struct {
	Team    Team
	Members []id.Profile
}

// Size returns the number of accepted members.
func (r *Roster) Size() int {
	return len(r.Members)
}

// Contains reports whether the user is an accepted member.
func (r *Roster) Contains(userID id.UserID) bool {
	for _, m := range r.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
