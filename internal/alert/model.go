package alert

import (
	"slices"
	"strings"
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities by escalation; unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

func (s Severity) Valid() bool { return s.Rank() > 0 }

func Severities() []Severity {
	return []Severity{SeverityInfo, SeverityWarning, SeverityCritical}
}

type VisibilityKind string

const (
	VisibilityOrganization VisibilityKind = "organization"
	VisibilityTeam         VisibilityKind = "team"
	VisibilityUser         VisibilityKind = "user"
)

func (k VisibilityKind) Valid() bool {
	switch k {
	case VisibilityOrganization, VisibilityTeam, VisibilityUser:
		return true
	}
	return false
}

func VisibilityKinds() []VisibilityKind {
	return []VisibilityKind{VisibilityOrganization, VisibilityTeam, VisibilityUser}
}

// Visibility decides who may receive an alert.
// Targets are team IDs for VisibilityTeam and user IDs for VisibilityUser;
// they are ignored for VisibilityOrganization.
type Visibility struct {
	Kind    VisibilityKind
	Targets []string
}

func (v Visibility) HasTarget(id string) bool {
	return slices.Contains(v.Targets, id)
}

// DeliveryTag selects the delivery channel implementation.
type DeliveryTag string

const DeliveryInApp DeliveryTag = "in_app"

type Status string

const (
	StatusAny      Status = ""
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusArchived Status = "archived"
)

type Alert struct {
	ID       string
	Title    string
	Body     string
	Severity Severity
	// CreatedBy is the creator's user ID.
	CreatedBy  string
	Visibility Visibility
	Delivery   DeliveryTag
	// ReminderInterval is in minutes.
	ReminderInterval int
	StartTime        time.Time
	ExpiryTime       *time.Time
	Active           bool
	RemindersEnabled bool
	CreatedAt        time.Time
}

// IsExpired reports whether the expiry time has passed at now.
func (a Alert) IsExpired(now time.Time) bool {
	return a.ExpiryTime != nil && now.After(*a.ExpiryTime)
}

// Live reports whether the alert may be shown or delivered at now.
func (a Alert) Live(now time.Time) bool {
	return a.Active && !a.IsExpired(now)
}

func (a Alert) Interval() time.Duration {
	return time.Duration(a.ReminderInterval) * time.Minute
}

// Clone returns a copy that shares no mutable memory with a.
func (a Alert) Clone() Alert {
	out := a
	out.Visibility.Targets = slices.Clone(a.Visibility.Targets)
	if a.ExpiryTime != nil {
		t := *a.ExpiryTime
		out.ExpiryTime = &t
	}
	return out
}

// NewAlert carries the caller-supplied fields for Store.Create.
type NewAlert struct {
	Title      string
	Body       string
	Severity   Severity
	CreatedBy  string
	Visibility Visibility
	Delivery   DeliveryTag
	// ReminderInterval in minutes; callers resolve defaults before Create.
	ReminderInterval int
	StartTime        *time.Time
	ExpiryTime       *time.Time
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title            *string
	Body             *string
	Severity         *Severity
	ExpiryTime       *time.Time
	ClearExpiry      bool
	RemindersEnabled *bool
	ReminderInterval *int
}

// Filter narrows List results. Zero value matches everything.
type Filter struct {
	Severity Severity
	Status   Status
}

func (f Filter) match(a Alert, now time.Time) bool {
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	switch f.Status {
	case StatusActive:
		return a.Live(now)
	case StatusExpired:
		return a.IsExpired(now)
	case StatusArchived:
		return !a.Active
	}
	return true
}

func normalizeTargets(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
