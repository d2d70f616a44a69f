package core

import (
	"context"
	"errors"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"alertcast/internal/alert"
	"alertcast/internal/clock"
	"alertcast/internal/delivery"
	"alertcast/internal/directory"
	"alertcast/internal/eventbus"
	"alertcast/internal/notification"
	"alertcast/internal/notifier"
	"alertcast/internal/storage"
	"alertcast/internal/visibility"
	logx "alertcast/pkg/logx"
)

// Service is safe for concurrent use.
type Service struct {
	log logx.Logger

	dir      *directory.Directory
	bus      *eventbus.Bus
	alerts   *alert.Store
	engine   *notification.Engine
	pipeline *notifier.Dispatcher
	channels *delivery.Registry

	defaultChannel alert.DeliveryTag

	lmu    sync.RWMutex
	limits ReminderLimits
}

func New(opts Options) (*Service, error) {
	log := opts.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	limits := opts.Limits
	if limits == (ReminderLimits{}) {
		limits = DefaultLimits()
	}
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	dir := opts.Directory
	if dir == nil {
		dir = directory.New()
	}
	channels := opts.Channels
	if channels == nil {
		channels = delivery.NewRegistry()
		if err := channels.Register(alert.DeliveryInApp, delivery.Singleton(delivery.NewInApp(log, 0))); err != nil {
			return nil, err
		}
		channels.Freeze()
	}
	defCh := opts.DefaultChannel
	if defCh == "" {
		defCh = alert.DeliveryInApp
	}
	if !channels.Supports(defCh) {
		return nil, goerr.Wrap(delivery.ErrUnsupportedChannel, "default channel is not registered",
			goerr.V("tag", defCh))
	}
	sink := opts.Sink
	if sink == nil {
		sink = storage.NewMemory(0)
	}

	bus := eventbus.New(log.With(logx.String("comp", "eventbus")))
	engine := notification.NewEngine(opts.Snooze)
	s := &Service{
		log:            log.With(logx.String("comp", "core")),
		dir:            dir,
		bus:            bus,
		alerts:         alert.NewStore(bus, log.With(logx.String("comp", "alerts"))),
		engine:         engine,
		channels:       channels,
		defaultChannel: defCh,
		limits:         limits,
	}
	s.pipeline = notifier.New(opts.Delivery, dir, s.alerts, engine, channels, sink, log)
	bus.Subscribe("notifier", s.pipeline.Handle)
	return s, nil
}

// Directory returns the identity collaborator.
func (s *Service) Directory() *directory.Directory { return s.dir }

// Bus exposes the event bus for extra subscribers (audit, metrics).
func (s *Service) Bus() *eventbus.Bus { return s.bus }

// SupportedChannels lists the registered delivery tags.
func (s *Service) SupportedChannels() []alert.DeliveryTag { return s.channels.SupportedChannels() }

// Limits returns the current reminder bounds.
func (s *Service) Limits() ReminderLimits {
	s.lmu.RLock()
	defer s.lmu.RUnlock()
	return s.limits
}

// SetLimits swaps the reminder bounds. Existing alerts are not revalidated.
func (s *Service) SetLimits(l ReminderLimits) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.lmu.Lock()
	s.limits = l
	s.lmu.Unlock()
	return nil
}

// SetDelivery swaps delivery pacing and timeouts.
func (s *Service) SetDelivery(cfg notifier.Config) { s.pipeline.Apply(cfg) }

func (s *Service) checkInterval(minutes int) error {
	l := s.Limits()
	if minutes < l.Min || minutes > l.Max {
		return goerr.Wrap(alert.ErrInvalidInterval, "reminder interval out of bounds",
			goerr.V("minutes", minutes), goerr.V("min", l.Min), goerr.V("max", l.Max),
			goerr.T(alert.TagValidation))
	}
	return nil
}

// CreateAlert stores a new alert and fans it out to eligible users before
// returning. A zero ReminderInterval means the configured default.
func (s *Service) CreateAlert(ctx context.Context, in alert.NewAlert) (alert.Alert, error) {
	if in.ReminderInterval == 0 {
		in.ReminderInterval = s.Limits().Default
	}
	if err := s.checkInterval(in.ReminderInterval); err != nil {
		return alert.Alert{}, err
	}
	if in.Delivery == "" {
		in.Delivery = s.defaultChannel
	}
	a, err := s.alerts.Create(ctx, in)
	if err != nil {
		return alert.Alert{}, err
	}
	s.log.Info("alert created",
		logx.String("alert_id", a.ID), logx.String("title", a.Title),
		logx.String("created_by", a.CreatedBy))
	return a, nil
}

func (s *Service) UpdateAlert(ctx context.Context, id string, p alert.Patch) (alert.Alert, bool, error) {
	if p.ReminderInterval != nil {
		if err := s.checkInterval(*p.ReminderInterval); err != nil {
			return alert.Alert{}, false, err
		}
	}
	return s.alerts.Update(ctx, id, p)
}

// ArchiveAlert reports false only when id is unknown.
func (s *Service) ArchiveAlert(ctx context.Context, id string) bool {
	ok := s.alerts.Archive(ctx, id)
	if ok {
		s.log.Info("alert archived", logx.String("alert_id", id))
	}
	return ok
}

func (s *Service) GetAlert(_ context.Context, id string) (alert.Alert, bool) {
	return s.alerts.Get(id)
}

func (s *Service) ListAlerts(ctx context.Context, f alert.Filter) []alert.Alert {
	return s.alerts.List(ctx, f)
}

// GetAlertsForUser lists the live alerts userID may see, newest first.
// An unknown user sees nothing.
func (s *Service) GetAlertsForUser(ctx context.Context, userID string) []alert.Alert {
	u, ok := s.dir.GetUser(userID)
	if !ok {
		return nil
	}
	now := clock.Now(ctx)
	teams := s.dir.GetTeamsForUser(u.ID)

	var out []alert.Alert
	for _, a := range s.alerts.List(ctx, alert.Filter{Status: alert.StatusActive}) {
		if visibility.IsEligible(a, u, teams, now) {
			out = append(out, a)
		}
	}
	return out
}

// GetUserAlertsWithState pairs each visible alert with the user's state.
// Pairs that were never touched report as unread; reading does not create them.
func (s *Service) GetUserAlertsWithState(ctx context.Context, userID string) []UserAlert {
	now := clock.Now(ctx)
	alerts := s.GetAlertsForUser(ctx, userID)
	out := make([]UserAlert, 0, len(alerts))
	for _, a := range alerts {
		st, ok := s.engine.Get(notification.Key{UserID: userID, AlertID: a.ID})
		if !ok {
			st = notification.State{Status: notification.StatusUnread, CreatedAt: now}
		}
		out = append(out, UserAlert{Alert: a, State: st, IsSnoozed: st.IsSnoozed(now)})
	}
	return out
}

// GetSnoozedAlerts is GetUserAlertsWithState narrowed to open snoozes.
func (s *Service) GetSnoozedAlerts(ctx context.Context, userID string) []UserAlert {
	var out []UserAlert
	for _, ua := range s.GetUserAlertsWithState(ctx, userID) {
		if ua.IsSnoozed {
			out = append(out, ua)
		}
	}
	return out
}

// GetUserSummary counts the user's visible alerts by disposition.
func (s *Service) GetUserSummary(ctx context.Context, userID string) UserSummary {
	var sum UserSummary
	for _, ua := range s.GetUserAlertsWithState(ctx, userID) {
		sum.Total++
		switch {
		case ua.IsSnoozed:
			sum.Snoozed++
		case ua.State.Status == notification.StatusRead:
			sum.Read++
		default:
			sum.Unread++
			if ua.Alert.Severity == alert.SeverityCritical {
				sum.Critical++
			}
		}
	}
	return sum
}

func (s *Service) MarkRead(ctx context.Context, userID, alertID string) (bool, error) {
	return s.transition(ctx, userID, alertID, notification.CmdRead)
}

func (s *Service) MarkUnread(ctx context.Context, userID, alertID string) (bool, error) {
	return s.transition(ctx, userID, alertID, notification.CmdUnread)
}

// Snooze suppresses reminders until the snooze window closes. A read alert
// can't be snoozed: the call returns notification.ErrTransitionRejected.
func (s *Service) Snooze(ctx context.Context, userID, alertID string) (bool, error) {
	return s.transition(ctx, userID, alertID, notification.CmdSnooze)
}

func (s *Service) transition(ctx context.Context, userID, alertID string, cmd notification.Command) (bool, error) {
	now := clock.Now(ctx)
	u, ok := s.dir.GetUser(userID)
	if !ok {
		return false, nil
	}
	a, ok := s.alerts.Get(alertID)
	if !ok || !(visibility.Resolver{Teams: s.dir}).Eligible(a, u, now) {
		s.log.Debug("state command on invisible alert",
			logx.String("user_id", userID), logx.String("alert_id", alertID), logx.String("cmd", string(cmd)))
		return false, nil
	}

	st, err := s.engine.Transition(notification.Key{UserID: userID, AlertID: alertID}, cmd, now)
	if err != nil {
		if errors.Is(err, notification.ErrTransitionRejected) {
			return false, goerr.Wrap(err, "state command rejected",
				goerr.V("cmd", cmd), goerr.V("status", st.Status), goerr.T(alert.TagValidation))
		}
		return false, err
	}
	s.log.Debug("state changed",
		logx.String("user_id", userID), logx.String("alert_id", alertID), logx.String("status", string(st.Status)))
	return true, nil
}

// ProcessReminders runs one sweep and returns the number of reminders sent.
func (s *Service) ProcessReminders(ctx context.Context) int {
	return s.pipeline.ProcessReminders(ctx)
}

// Stats snapshots alert, directory and delivery counters.
func (s *Service) Stats(ctx context.Context) Stats {
	now := clock.Now(ctx)
	st := Stats{
		BySeverity:   map[alert.Severity]int{},
		ByVisibility: map[alert.VisibilityKind]int{},
		At:           now,
	}
	for _, sev := range alert.Severities() {
		st.BySeverity[sev] = 0
	}
	for _, k := range alert.VisibilityKinds() {
		st.ByVisibility[k] = 0
	}
	// Buckets mirror the ListAlerts status filters, so an archived alert
	// past its expiry counts as both archived and expired.
	for _, a := range s.alerts.List(ctx, alert.Filter{}) {
		st.TotalAlerts++
		if a.Live(now) {
			st.ActiveAlerts++
		}
		if a.IsExpired(now) {
			st.ExpiredAlerts++
		}
		if !a.Active {
			st.ArchivedAlerts++
		}
		st.BySeverity[a.Severity]++
		st.ByVisibility[a.Visibility.Kind]++
	}
	st.Users = len(s.dir.ListUsers())
	st.Teams = len(s.dir.ListTeams())
	st.TrackedPairs = s.engine.Len()
	st.Deliveries = s.pipeline.Deliveries()
	st.FailedDeliveries = s.pipeline.Failures()
	return st
}
