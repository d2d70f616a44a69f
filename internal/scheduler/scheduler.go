// Package scheduler drives the periodic reminder sweep.
//
// Ticks come from a robfig/cron schedule. A tick that fires while the
// previous sweep is still running is skipped, so sweeps never overlap.
// Stop stops new ticks and waits for the in-flight sweep.
package scheduler

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/robfig/cron/v3"

	logx "alertcast/pkg/logx"
)

const DefaultSpec = "@every 1m"

type Config struct {
	Enabled  bool
	Spec     string // cron expression (seconds optional) or descriptor like "@every 1m"
	Timezone string // IANA name; empty means Local
}

// Sweeper is the work run on every tick.
type Sweeper interface {
	ProcessReminders(ctx context.Context) int
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSpec validates a schedule expression.
func ParseSpec(spec string) error {
	if strings.TrimSpace(spec) == "" {
		spec = DefaultSpec
	}
	if _, err := parser.Parse(spec); err != nil {
		return goerr.Wrap(err, "invalid schedule", goerr.V("spec", spec))
	}
	return nil
}

type Service struct {
	mu sync.Mutex

	cfg     Config
	sweeper Sweeper
	log     logx.Logger

	c      *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc

	ticks    atomic.Int64
	lastSent atomic.Int64
	lastRun  atomic.Int64 // unix nanos
}

func New(cfg Config, sweeper Sweeper, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, sweeper: sweeper, log: log.With(logx.String("comp", "scheduler"))}
}

// Start begins ticking. It is a no-op when disabled or already running.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled")
		return nil
	}

	spec := strings.TrimSpace(s.cfg.Spec)
	if spec == "" {
		spec = DefaultSpec
	}
	loc, err := loadLocation(s.cfg.Timezone)
	if err != nil {
		return err
	}

	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if _, err := c.AddFunc(spec, func() { s.tick(runCtx) }); err != nil {
		cancel()
		return goerr.Wrap(err, "schedule reminder sweep", goerr.V("spec", spec))
	}

	s.c, s.runCtx, s.cancel = c, runCtx, cancel
	c.Start()
	s.log.Info("scheduler started", logx.String("spec", spec), logx.String("tz", loc.String()))
	return nil
}

// Stop prevents new ticks and waits for a running sweep. When ctx ends first
// the sweep's context is cancelled and ctx.Err() is returned.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.c, s.cancel
	s.c, s.runCtx, s.cancel = nil, nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	defer cancel()

	select {
	case <-c.Stop().Done():
		s.log.Info("scheduler stopped", logx.Int64("ticks", s.ticks.Load()), logx.Time("last_run", s.LastRun()))
		return nil
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out; abandoning sweep", logx.Err(ctx.Err()))
		return ctx.Err()
	}
}

// Running reports whether ticks are scheduled.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c != nil
}

// Ticks is the number of completed sweeps.
func (s *Service) Ticks() int64 { return s.ticks.Load() }

// LastRun is when the last sweep finished; zero if none has.
func (s *Service) LastRun() time.Time {
	n := s.lastRun.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (s *Service) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	n := s.sweeper.ProcessReminders(ctx)
	s.ticks.Add(1)
	s.lastSent.Store(int64(n))
	s.lastRun.Store(time.Now().UnixNano())

	if n > 0 {
		s.log.Info("reminders sent", logx.Int("count", n), logx.Duration("took", time.Since(start)))
	}
}

func loadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, goerr.Wrap(err, "load scheduler timezone", goerr.V("tz", tz))
	}
	return loc, nil
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
