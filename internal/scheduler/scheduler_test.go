package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertcast/internal/scheduler"
	logx "alertcast/pkg/logx"
)

type sweeper struct {
	calls   atomic.Int64
	running atomic.Int64
	overlap atomic.Bool
	hold    time.Duration
	started chan struct{}
}

func (s *sweeper) ProcessReminders(ctx context.Context) int {
	if s.running.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.running.Add(-1)
	if s.started != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
	}
	select {
	case <-time.After(s.hold):
	case <-ctx.Done():
	}
	s.calls.Add(1)
	return 1
}

func TestParseSpec(t *testing.T) {
	assert.NoError(t, scheduler.ParseSpec(""))
	assert.NoError(t, scheduler.ParseSpec("@every 30s"))
	assert.NoError(t, scheduler.ParseSpec("*/5 * * * *"))
	assert.NoError(t, scheduler.ParseSpec("0 */5 * * * *"))
	assert.Error(t, scheduler.ParseSpec("every minute"))
}

func TestStartRejectsBadTimezone(t *testing.T) {
	s := scheduler.New(scheduler.Config{Enabled: true, Timezone: "Mars/Olympus"}, &sweeper{}, logx.Nop())
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.Running())
}

func TestDisabledIsNoop(t *testing.T) {
	s := scheduler.New(scheduler.Config{Enabled: false}, &sweeper{}, logx.Nop())
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.Running())
	assert.NoError(t, s.Stop(context.Background()))
}

func TestTicksDoNotOverlap(t *testing.T) {
	sw := &sweeper{hold: 1500 * time.Millisecond}
	s := scheduler.New(scheduler.Config{Enabled: true, Spec: "@every 1s"}, sw, logx.Nop())
	require.NoError(t, s.Start(context.Background()))

	time.Sleep(3200 * time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	assert.False(t, sw.overlap.Load())
	assert.GreaterOrEqual(t, sw.calls.Load(), int64(1))
	assert.Equal(t, sw.calls.Load(), s.Ticks())
	assert.False(t, s.LastRun().IsZero())
}

func TestStopWaitsForInFlightSweep(t *testing.T) {
	sw := &sweeper{hold: 700 * time.Millisecond, started: make(chan struct{}, 1)}
	s := scheduler.New(scheduler.Config{Enabled: true, Spec: "@every 1s"}, sw, logx.Nop())
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-sw.started:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep never started")
	}
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int64(1), sw.calls.Load(), "stop returned before the sweep finished")
	assert.False(t, s.Running())
}

func TestStopDeadlineCancelsSweep(t *testing.T) {
	sw := &sweeper{hold: time.Minute, started: make(chan struct{}, 1)}
	s := scheduler.New(scheduler.Config{Enabled: true, Spec: "@every 1s"}, sw, logx.Nop())
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-sw.started:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep never started")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	require.Eventually(t, func() bool { return sw.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}
