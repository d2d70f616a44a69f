package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"alertcast/internal/alert"
	"alertcast/internal/config"
	"alertcast/internal/core"
	"alertcast/internal/delivery"
	"alertcast/internal/directory"
	"alertcast/internal/runtime/supervisor"
	"alertcast/internal/scheduler"
	"alertcast/internal/storage"
	logx "alertcast/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store
	inbox *delivery.InApp

	svc   *core.Service
	sched *scheduler.Service
}

// New builds the app from the config file at cfgPath. An empty path runs
// with built-in defaults and no hot reload.
func New(cfgPath string) (*App, error) {
	var (
		cfgm *config.Manager
		cfg  *config.Config
	)
	if strings.TrimSpace(cfgPath) == "" {
		cfg = config.Default()
	} else {
		cfgm = config.NewManager(cfgPath)
		c, err := cfgm.Load()
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	return build(cfg, cfgm)
}

// NewFromConfig builds the app from an in-memory config.
func NewFromConfig(cfg *config.Config) (*App, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return build(cfg, nil)
}

func build(cfg *config.Config, cfgm *config.Manager) (*App, error) {
	logSvc, root := logx.New(mapLogging(cfg))
	log := root.With(logx.String("comp", "app"))

	sc, err := mapStorage(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	log.Info("audit storage ready", logx.String("driver", sc.Driver))

	snooze, err := mapSnooze(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	dcfg, err := mapDelivery(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	inbox := delivery.NewInApp(root.With(logx.String("comp", "inapp")), 0)
	channels := delivery.NewRegistry()
	if err := channels.Register(alert.DeliveryInApp, delivery.Singleton(inbox)); err != nil {
		_ = store.Close()
		return nil, err
	}
	channels.Freeze()

	svc, err := core.New(core.Options{
		Limits:         mapLimits(cfg),
		Snooze:         snooze,
		Delivery:       dcfg,
		DefaultChannel: mapDefaultChannel(cfg),
		Channels:       channels,
		Directory:      directory.New(),
		Sink:           store,
		Log:            root,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sched := scheduler.New(mapScheduler(cfg), svc, root)

	return &App{
		cfgm:  cfgm,
		log:   log,
		logs:  logSvc,
		store: store,
		inbox: inbox,
		svc:   svc,
		sched: sched,
	}, nil
}

// Service is the alert API for embedding callers.
func (a *App) Service() *core.Service { return a.svc }

// Inbox is the in-app delivery channel.
func (a *App) Inbox() *delivery.InApp { return a.inbox }

// Audit is the delivery record sink.
func (a *App) Audit() storage.Store { return a.store }

// Done is closed when the app context is cancelled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.svc.Bus().Subscribe("eventbus.log", func(_ context.Context, e alert.Event) error {
		a.log.Debug("event", logx.String("kind", string(e.Kind)), logx.String("alert_id", e.Alert.ID))
		return nil
	})

	if err := a.sched.Start(a.sup.Context()); err != nil {
		return err
	}

	if a.cfgm != nil {
		a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
		sub := a.cfgm.Subscribe(4)
		a.sup.Go("config.apply", func(c context.Context) error {
			defer a.cfgm.Unsubscribe(sub)
			a.applyLoop(c, sub)
			return nil
		})
		a.sup.GoRestart("config.watch", supervisor.RestartPolicy{}, a.cfgm.Watch)
		a.log.Info("config hot reload enabled", logx.String("path", a.cfgm.Path()))
	}

	a.log.Info("alertcast started",
		logx.Bool("scheduler", a.sched.Running()),
		logx.Any("channels", a.svc.SupportedChannels()))
	return nil
}

func (a *App) applyLoop(ctx context.Context, sub <-chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			// keep only the newest of a burst
			for drained := false; !drained; {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					drained = true
				}
			}
			a.apply(last, next)
			last = next
		}
	}
}

// apply pushes the live sections of next into running components.
func (a *App) apply(prev, next *config.Config) {
	ch := config.SummarizeChange(prev, next)
	if ch.Empty() {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(ch.Sections, ","))}, ch.Fields...)
	a.log.Info("config change summary", fields...)

	a.logs.Apply(mapLogging(next))

	if err := a.svc.SetLimits(mapLimits(next)); err != nil {
		a.log.Warn("reminder limits rejected; keeping previous", logx.Err(err))
	}
	if dcfg, err := mapDelivery(next); err != nil {
		a.log.Warn("delivery config rejected; keeping previous", logx.Err(err))
	} else {
		a.svc.SetDelivery(dcfg)
	}
	if prev != nil && prev.Delivery.DefaultChannel != next.Delivery.DefaultChannel {
		ch.RestartRequired = append(ch.RestartRequired, "delivery.default_channel")
	}

	if len(ch.RestartRequired) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect",
			logx.Strings("sections", ch.RestartRequired))
	}
}

// Stop shuts down in dependency order. Each step is bounded so one stuck
// component can't stall the rest; the caller's deadline is never extended.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	var errs []error
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				errs = append(errs, goerr.Wrap(err, "stop step", goerr.V("step", name)))
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			errs = append(errs, goerr.Wrap(stepCtx.Err(), "stop step", goerr.V("step", name)))
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	// The scheduler goes first so no sweep starts against a closing audit sink.
	step("scheduler", 5*time.Second, a.sched.Stop)
	step("supervisor", 2*time.Second, a.sup.Stop)
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })

	err := a.logs.Close()
	if len(errs) > 0 {
		return errs[0]
	}
	return err
}
