// Package clock carries the current time through context so time-dependent
// operations (expiry, throttling, snooze windows) can be driven by tests.
package clock

import (
	"context"
	"time"
)

type ctxClockKey struct{}

type Clock func() time.Time

func Now(ctx context.Context) time.Time {
	if ctx == nil {
		return time.Now()
	}
	c, ok := ctx.Value(ctxClockKey{}).(Clock)
	if !ok || c == nil {
		return time.Now()
	}
	return c()
}

func With(ctx context.Context, c Clock) context.Context {
	return context.WithValue(ctx, ctxClockKey{}, c)
}

// Fixed returns a clock frozen at t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}
