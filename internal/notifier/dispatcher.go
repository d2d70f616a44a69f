package notifier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/time/rate"

	"alertcast/internal/alert"
	"alertcast/internal/clock"
	"alertcast/internal/delivery"
	"alertcast/internal/directory"
	"alertcast/internal/notification"
	"alertcast/internal/storage"
	"alertcast/internal/visibility"
	logx "alertcast/pkg/logx"
)

// Dispatcher is the delivery and reminder pipeline. It is safe for concurrent use.
type Dispatcher struct {
	users    Users
	alerts   Alerts
	engine   *notification.Engine
	channels *delivery.Registry
	sink     storage.Store
	log      logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	deliveries atomic.Int64
	failures   atomic.Int64
}

func New(cfg Config, users Users, alerts Alerts, engine *notification.Engine, channels *delivery.Registry, sink storage.Store, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if sink == nil {
		sink = storage.NewMemory(0)
	}
	d := &Dispatcher{
		users:    users,
		alerts:   alerts,
		engine:   engine,
		channels: channels,
		sink:     sink,
		log:      log.With(logx.String("comp", "notifier")),
	}
	d.Apply(cfg)
	return d
}

// Apply swaps pacing and timeout settings. In-flight sends keep the old values.
func (d *Dispatcher) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		burst := int(cfg.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	d.mu.Lock()
	d.cfg = cfg
	d.limiter = lim
	d.mu.Unlock()
}

func (d *Dispatcher) snapshot() (Config, *rate.Limiter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg, d.limiter
}

// Deliveries is the number of successful sends since start.
func (d *Dispatcher) Deliveries() int64 { return d.deliveries.Load() }

// Failures is the number of failed sends since start.
func (d *Dispatcher) Failures() int64 { return d.failures.Load() }

// Handle reacts to one alert lifecycle event. It never fails the publisher:
// per-user problems are logged and skipped.
func (d *Dispatcher) Handle(ctx context.Context, e alert.Event) error {
	a := e.Alert
	switch e.Kind {
	case alert.EventCreated:
		n := d.fanOut(ctx, a, false)
		d.log.Info("alert created", logx.String("alert_id", a.ID),
			logx.String("severity", string(a.Severity)), logx.Int("delivered", n))
	case alert.EventUpdated:
		if !a.Live(clock.Now(ctx)) {
			d.log.Debug("alert updated but not live; skipping fan-out", logx.String("alert_id", a.ID))
			return nil
		}
		n := d.fanOut(ctx, a, true)
		d.log.Info("alert updated", logx.String("alert_id", a.ID), logx.Int("delivered", n))
	case alert.EventArchived:
		d.log.Info("alert archived", logx.String("alert_id", a.ID))
	default:
		d.log.Warn("unknown alert event", logx.String("event", string(e.Kind)), logx.String("alert_id", a.ID))
	}
	return nil
}

func (d *Dispatcher) fanOut(ctx context.Context, a alert.Alert, throttled bool) int {
	now := clock.Now(ctx)
	if !a.Live(now) {
		return 0
	}
	res := visibility.Resolver{Teams: d.users}

	// Every eligible pair gets a record before any send, so a fan-out cut
	// short by cancellation is finished by the next sweep.
	var targets []directory.User
	for _, u := range d.users.ListUsers() {
		if !res.Eligible(a, u, now) {
			continue
		}
		d.engine.Ensure(notification.Key{UserID: u.ID, AlertID: a.ID}, now)
		targets = append(targets, u)
	}

	sent := 0
	for i, u := range targets {
		if err := ctx.Err(); err != nil {
			d.log.Warn("fan-out interrupted; sweep will retry",
				logx.String("alert_id", a.ID), logx.Int("pending", len(targets)-i), logx.Err(err))
			break
		}
		if d.deliver(ctx, a, u, now, throttled) == Sent {
			sent++
		}
	}
	return sent
}

// deliver sends a to u unless the throttle says otherwise. The record for the
// pair is created on first touch and stays locked until the channel returns.
func (d *Dispatcher) deliver(ctx context.Context, a alert.Alert, u directory.User, now time.Time, throttled bool) Outcome {
	k := notification.Key{UserID: u.ID, AlertID: a.ID}
	out := Skipped

	err := d.engine.Do(k, now, func(st *notification.State) error {
		if throttled && !st.ShouldRemind(now, a.Interval()) {
			return nil
		}
		if err := d.send(ctx, a, u); err != nil {
			return err
		}
		st.MarkReminded(now)
		out = Sent
		return nil
	})
	if err != nil {
		d.failures.Add(1)
		d.log.Warn("delivery failed",
			logx.String("alert_id", a.ID), logx.String("user_id", u.ID),
			logx.String("channel", string(a.Delivery)), logx.Err(err))
		return Failed
	}
	if out != Sent {
		return out
	}

	d.deliveries.Add(1)
	rec := storage.DeliveryRecord{
		ID:          uuid.NewString(),
		UserID:      u.ID,
		AlertID:     a.ID,
		Channel:     string(a.Delivery),
		DeliveredAt: now,
	}
	if err := d.sink.AppendDelivery(ctx, rec); err != nil {
		d.log.Warn("audit append failed", logx.String("delivery_id", rec.ID), logx.Err(err))
	}
	return Sent
}

func (d *Dispatcher) send(ctx context.Context, a alert.Alert, u directory.User) error {
	ch, err := d.channels.Create(a.Delivery)
	if err != nil {
		return err
	}

	cfg, lim := d.snapshot()
	if err := lim.Wait(ctx); err != nil {
		return goerr.Wrap(err, "wait for send slot", goerr.T(alert.TagDeliveryFailure))
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- goerr.New("channel panic", goerr.V("panic", r), goerr.T(alert.TagDeliveryFailure))
			}
		}()
		done <- ch.Send(callCtx, u, a)
	}()

	select {
	case err := <-done:
		if err != nil {
			return goerr.Wrap(err, "channel send", goerr.V("tag", a.Delivery), goerr.T(alert.TagDeliveryFailure))
		}
		return nil
	case <-callCtx.Done():
		return goerr.Wrap(callCtx.Err(), "channel send abandoned",
			goerr.V("tag", a.Delivery), goerr.V("timeout", cfg.SendTimeout), goerr.T(alert.TagDeliveryFailure))
	}
}
