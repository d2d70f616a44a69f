package notifier

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"alertcast/internal/clock"
	"alertcast/internal/notification"
	"alertcast/internal/visibility"
	logx "alertcast/pkg/logx"
)

// ProcessReminders walks every known (user, alert) pair and re-delivers
// where the throttle allows. It returns the number of successful sends.
//
// One pair failing or panicking never aborts the sweep.
func (d *Dispatcher) ProcessReminders(ctx context.Context) int {
	start := time.Now()
	now := clock.Now(ctx)
	keys := d.engine.Keys()
	if len(keys) == 0 {
		return 0
	}

	cfg, _ := d.snapshot()
	workers := cfg.Workers
	if workers > len(keys) {
		workers = len(keys)
	}

	var (
		sent atomic.Int64
		wg   sync.WaitGroup
	)
	q := make(chan notification.Key)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range q {
				if d.remindOne(ctx, k, now) == Sent {
					sent.Add(1)
				}
			}
		}()
	}

feed:
	for _, k := range keys {
		select {
		case q <- k:
		case <-ctx.Done():
			break feed
		}
	}
	close(q)
	wg.Wait()

	n := int(sent.Load())
	d.log.Debug("reminder sweep done",
		logx.Int("pairs", len(keys)), logx.Int("sent", n), logx.Duration("took", time.Since(start)))
	return n
}

func (d *Dispatcher) remindOne(ctx context.Context, k notification.Key, now time.Time) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.failures.Add(1)
			d.log.Error("reminder panic",
				logx.String("alert_id", k.AlertID), logx.String("user_id", k.UserID),
				logx.String("panic", fmt.Sprint(r)))
			out = Failed
		}
	}()

	a, ok := d.alerts.Get(k.AlertID)
	if !ok || !a.Live(now) || !a.RemindersEnabled {
		return Skipped
	}
	u, ok := d.users.GetUser(k.UserID)
	if !ok {
		return Skipped
	}
	if !(visibility.Resolver{Teams: d.users}).Eligible(a, u, now) {
		return Skipped
	}
	return d.deliver(ctx, a, u, now, true)
}
