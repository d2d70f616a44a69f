// Package notification tracks each user's disposition toward each alert.
//
// Status is a tagged enum; transitions go through a single table (next) so
// every command either yields a new status or an explicit rejection.
package notification

import (
	"errors"
	"time"
)

type Status string

const (
	StatusUnread  Status = "unread"
	StatusRead    Status = "read"
	StatusSnoozed Status = "snoozed"
)

type Command string

const (
	CmdRead   Command = "read"
	CmdUnread Command = "unread"
	CmdSnooze Command = "snooze"
)

var ErrTransitionRejected = errors.New("transition rejected")

// next returns the status reached by applying cmd in from.
// ok is false when the transition is not allowed.
func next(from Status, cmd Command) (to Status, ok bool) {
	switch cmd {
	case CmdRead:
		return StatusRead, true
	case CmdUnread:
		return StatusUnread, true
	case CmdSnooze:
		if from == StatusRead {
			return from, false
		}
		return StatusSnoozed, true
	}
	return from, false
}

// Key identifies one (user, alert) pair.
type Key struct {
	UserID  string
	AlertID string
}

// State is the per-pair notification record.
// Optional timestamps are nil when unset.
type State struct {
	Status         Status
	SnoozedUntil   *time.Time
	LastRemindedAt *time.Time
	ReadAt         *time.Time
	CreatedAt      time.Time
}

func newState(now time.Time) State {
	return State{Status: StatusUnread, CreatedAt: now}
}

// IsSnoozed reports whether the snooze window is still open at now.
// An elapsed snooze keeps StatusSnoozed until the next explicit transition.
func (s State) IsSnoozed(now time.Time) bool {
	return s.Status == StatusSnoozed && s.SnoozedUntil != nil && now.Before(*s.SnoozedUntil)
}

// ShouldRemind is the throttle gate for every non-initial delivery.
func (s State) ShouldRemind(now time.Time, interval time.Duration) bool {
	if s.Status == StatusRead || s.IsSnoozed(now) {
		return false
	}
	if s.LastRemindedAt == nil {
		return true
	}
	return now.Sub(*s.LastRemindedAt) >= interval
}

// Apply runs cmd against s. A rejected transition returns s unchanged
// together with ErrTransitionRejected.
func (s State) Apply(cmd Command, now time.Time, snoozeUntil time.Time) (State, error) {
	to, ok := next(s.Status, cmd)
	if !ok {
		return s, ErrTransitionRejected
	}

	out := s
	switch cmd {
	case CmdRead:
		if s.Status == StatusRead {
			return s, nil
		}
		out.ReadAt = &now
		out.SnoozedUntil = nil
	case CmdUnread:
		out.ReadAt = nil
		out.SnoozedUntil = nil
	case CmdSnooze:
		until := snoozeUntil
		out.SnoozedUntil = &until
	}
	out.Status = to
	return out, nil
}

// MarkReminded records a successful delivery at now.
func (s *State) MarkReminded(now time.Time) {
	s.LastRemindedAt = &now
}

func (s State) clone() State {
	out := s
	out.SnoozedUntil = clonePtr(s.SnoozedUntil)
	out.LastRemindedAt = clonePtr(s.LastRemindedAt)
	out.ReadAt = clonePtr(s.ReadAt)
	return out
}

func clonePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SnoozePolicy computes where a snooze window ends.
// A zero Window means "until the next local midnight" in Location.
type SnoozePolicy struct {
	Window   time.Duration
	Location *time.Location
}

func (p SnoozePolicy) Until(now time.Time) time.Time {
	if p.Window > 0 {
		return now.Add(p.Window)
	}
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}
