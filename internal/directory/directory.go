// Package directory holds the authoritative set of users and teams.
//
// Team membership is stored on teams only; a user's teams are derived on
// every lookup so membership changes are visible to the next query.
package directory

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

var (
	ErrInvalidUser = errors.New("invalid user")
	ErrInvalidTeam = errors.New("invalid team")
)

type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

type Team struct {
	ID      string
	Name    string
	Members []string
}

// Directory is safe for concurrent use.
type Directory struct {
	mu sync.RWMutex

	users     map[string]User
	userOrder []string

	teams     map[string]map[string]struct{}
	teamNames map[string]string
}

func New() *Directory {
	return &Directory{
		users:     map[string]User{},
		teams:     map[string]map[string]struct{}{},
		teamNames: map[string]string{},
	}
}

// AddUser inserts or replaces a user record.
func (d *Directory) AddUser(u User) error {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return goerr.Wrap(ErrInvalidUser, "user id is required")
	}
	if u.Role == "" {
		u.Role = RoleMember
	}
	if u.Role != RoleAdmin && u.Role != RoleMember {
		return goerr.Wrap(ErrInvalidUser, "unknown role", goerr.V("role", u.Role))
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[u.ID]; !ok {
		d.userOrder = append(d.userOrder, u.ID)
	}
	d.users[u.ID] = u
	return nil
}

// AddTeam inserts a team, replacing the member set of an existing team with the same ID.
func (d *Directory) AddTeam(t Team) error {
	t.ID = strings.TrimSpace(t.ID)
	if t.ID == "" {
		return goerr.Wrap(ErrInvalidTeam, "team id is required")
	}
	members := make(map[string]struct{}, len(t.Members))
	for _, m := range t.Members {
		if m = strings.TrimSpace(m); m != "" {
			members[m] = struct{}{}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.teams[t.ID] = members
	d.teamNames[t.ID] = t.Name
	return nil
}

// AddTeamMember adds userID to teamID, creating the team when it doesn't exist.
func (d *Directory) AddTeamMember(teamID, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.teams[teamID]
	if !ok {
		m = map[string]struct{}{}
		d.teams[teamID] = m
	}
	m[userID] = struct{}{}
}

// RemoveTeamMember reports whether userID was a member of teamID.
func (d *Directory) RemoveTeamMember(teamID, userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.teams[teamID]
	if !ok {
		return false
	}
	if _, ok := m[userID]; !ok {
		return false
	}
	delete(m, userID)
	return true
}

func (d *Directory) GetUser(id string) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	return u, ok
}

// ListUsers returns users in insertion order.
func (d *Directory) ListUsers() []User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]User, 0, len(d.userOrder))
	for _, id := range d.userOrder {
		out = append(out, d.users[id])
	}
	return out
}

// GetTeamsForUser returns the sorted IDs of every team listing id as a member.
func (d *Directory) GetTeamsForUser(id string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for teamID, members := range d.teams {
		if _, ok := members[id]; ok {
			out = append(out, teamID)
		}
	}
	sort.Strings(out)
	return out
}

// ListTeams returns every team ordered by ID, with sorted member IDs.
func (d *Directory) ListTeams() []Team {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Team, 0, len(d.teams))
	for id, m := range d.teams {
		members := make([]string, 0, len(m))
		for uid := range m {
			members = append(members, uid)
		}
		sort.Strings(members)
		out = append(out, Team{ID: id, Name: d.teamNames[id], Members: members})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

