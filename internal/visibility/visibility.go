// Package visibility decides whether a user may see an alert.
//
// IsEligible is the only eligibility rule in the module: listing queries and
// delivery fan-out both call it, with the same inputs, so the two can't drift.
package visibility

import (
	"slices"
	"time"

	"alertcast/internal/alert"
	"alertcast/internal/directory"
)

// IsEligible reports whether u may receive a at now.
// userTeams is the set of team IDs u currently belongs to.
// Unknown visibility kinds fail closed.
func IsEligible(a alert.Alert, u directory.User, userTeams []string, now time.Time) bool {
	if !a.Live(now) {
		return false
	}
	switch a.Visibility.Kind {
	case alert.VisibilityOrganization:
		return true
	case alert.VisibilityTeam:
		return slices.ContainsFunc(userTeams, a.Visibility.HasTarget)
	case alert.VisibilityUser:
		return a.Visibility.HasTarget(u.ID)
	default:
		return false
	}
}

// TeamLookup resolves a user's current team memberships.
type TeamLookup interface {
	GetTeamsForUser(id string) []string
}

// Resolver binds IsEligible to a live membership source.
type Resolver struct {
	Teams TeamLookup
}

func (r Resolver) Eligible(a alert.Alert, u directory.User, now time.Time) bool {
	var teams []string
	if a.Visibility.Kind == alert.VisibilityTeam && r.Teams != nil {
		teams = r.Teams.GetTeamsForUser(u.ID)
	}
	return IsEligible(a, u, teams, now)
}
