package alert

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"alertcast/internal/clock"
	logx "alertcast/pkg/logx"
)

// Store is the in-memory alert store. It is safe for concurrent use.
//
// Alerts are held by value; every read returns a clone, so a lister never
// observes a half-applied update.
type Store struct {
	mu     sync.RWMutex
	alerts map[string]Alert
	order  []string

	pub Publisher
	log logx.Logger
}

func NewStore(pub Publisher, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{
		alerts: map[string]Alert{},
		pub:    pub,
		log:    log,
	}
}

// Create validates and stores a new active alert, then publishes EventCreated.
func (s *Store) Create(ctx context.Context, in NewAlert) (Alert, error) {
	if err := validateNew(in); err != nil {
		return Alert{}, err
	}

	now := clock.Now(ctx)
	a := Alert{
		ID:               uuid.NewString(),
		Title:            strings.TrimSpace(in.Title),
		Body:             in.Body,
		Severity:         in.Severity,
		CreatedBy:        in.CreatedBy,
		Visibility:       Visibility{Kind: in.Visibility.Kind, Targets: normalizeTargets(in.Visibility.Targets)},
		Delivery:         in.Delivery,
		ReminderInterval: in.ReminderInterval,
		StartTime:        now,
		Active:           true,
		RemindersEnabled: true,
		CreatedAt:        now,
	}
	if a.Delivery == "" {
		a.Delivery = DeliveryInApp
	}
	if in.StartTime != nil {
		a.StartTime = *in.StartTime
	}
	if in.ExpiryTime != nil {
		t := *in.ExpiryTime
		a.ExpiryTime = &t
	}
	if a.Visibility.Kind == VisibilityOrganization {
		a.Visibility.Targets = nil
	}

	s.mu.Lock()
	s.alerts[a.ID] = a
	s.order = append(s.order, a.ID)
	s.mu.Unlock()

	if a.Visibility.Kind != VisibilityOrganization && len(a.Visibility.Targets) == 0 {
		s.log.Warn("alert has no targets; it will reach no one",
			logx.String("alert_id", a.ID), logx.String("visibility", string(a.Visibility.Kind)))
	}

	s.publish(ctx, EventCreated, a)
	return a.Clone(), nil
}

// Update applies p to the alert. ok is false when id is unknown.
func (s *Store) Update(ctx context.Context, id string, p Patch) (Alert, bool, error) {
	if err := validatePatch(p); err != nil {
		return Alert{}, false, err
	}

	s.mu.Lock()
	a, ok := s.alerts[id]
	if !ok {
		s.mu.Unlock()
		return Alert{}, false, nil
	}
	a = a.Clone()
	if p.Title != nil {
		a.Title = strings.TrimSpace(*p.Title)
	}
	if p.Body != nil {
		a.Body = *p.Body
	}
	if p.Severity != nil {
		a.Severity = *p.Severity
	}
	if p.ClearExpiry {
		a.ExpiryTime = nil
	}
	if p.ExpiryTime != nil {
		t := *p.ExpiryTime
		a.ExpiryTime = &t
	}
	if p.RemindersEnabled != nil {
		a.RemindersEnabled = *p.RemindersEnabled
	}
	if p.ReminderInterval != nil {
		a.ReminderInterval = *p.ReminderInterval
	}
	s.alerts[id] = a
	s.mu.Unlock()

	s.publish(ctx, EventUpdated, a)
	return a.Clone(), true, nil
}

// Archive deactivates the alert permanently. Archiving an archived alert is a no-op.
func (s *Store) Archive(ctx context.Context, id string) bool {
	s.mu.Lock()
	a, ok := s.alerts[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if !a.Active {
		s.mu.Unlock()
		return true
	}
	a.Active = false
	s.alerts[id] = a
	s.mu.Unlock()

	s.publish(ctx, EventArchived, a)
	return true
}

func (s *Store) Get(id string) (Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return Alert{}, false
	}
	return a.Clone(), true
}

// List returns alerts matching f, most recently created first.
func (s *Store) List(ctx context.Context, f Filter) []Alert {
	now := clock.Now(ctx)
	s.mu.RLock()
	out := make([]Alert, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		a := s.alerts[s.order[i]]
		if f.match(a, now) {
			out = append(out, a.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

func (s *Store) publish(ctx context.Context, kind EventKind, a Alert) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, Event{Kind: kind, Alert: a.Clone()}); err != nil {
		s.log.Warn("alert event subscribers failed",
			logx.String("event", string(kind)), logx.String("alert_id", a.ID), logx.Err(err))
	}
}

func validateNew(in NewAlert) error {
	if strings.TrimSpace(in.Title) == "" {
		return goerr.Wrap(ErrEmptyTitle, "create alert", goerr.T(TagValidation))
	}
	if !in.Severity.Valid() {
		return goerr.Wrap(ErrInvalidSeverity, "create alert",
			goerr.V("severity", in.Severity), goerr.T(TagValidation))
	}
	if !in.Visibility.Kind.Valid() {
		return goerr.Wrap(ErrInvalidVisibility, "create alert",
			goerr.V("kind", in.Visibility.Kind), goerr.T(TagValidation))
	}
	if in.ReminderInterval <= 0 {
		return goerr.Wrap(ErrInvalidInterval, "reminder interval must be positive",
			goerr.V("minutes", in.ReminderInterval), goerr.T(TagValidation))
	}
	return nil
}

func validatePatch(p Patch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return goerr.Wrap(ErrEmptyTitle, "update alert", goerr.T(TagValidation))
	}
	if p.Severity != nil && !p.Severity.Valid() {
		return goerr.Wrap(ErrInvalidSeverity, "update alert",
			goerr.V("severity", *p.Severity), goerr.T(TagValidation))
	}
	if p.ReminderInterval != nil && *p.ReminderInterval <= 0 {
		return goerr.Wrap(ErrInvalidInterval, "reminder interval must be positive",
			goerr.V("minutes", *p.ReminderInterval), goerr.T(TagValidation))
	}
	return nil
}
