// Package eventbus decouples the alert store from its subscribers.
//
// Contract:
//   - Publish is synchronous and delivers to subscribers in registration order.
//   - A failing or panicking subscriber is logged and skipped; the remaining
//     subscribers still receive the event.
//   - There is no replay: events published before Subscribe are not seen.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"

	"alertcast/internal/alert"
	logx "alertcast/pkg/logx"
)

// Handler consumes one event. A returned error is reported, not propagated.
type Handler func(ctx context.Context, e alert.Event) error

type subscriber struct {
	id   uint64
	name string
	fn   Handler
}

// Bus is an in-memory, synchronous fanout bus.
//
// It does not own any goroutines.
type Bus struct {
	mu   sync.RWMutex
	subs []subscriber
	seq  atomic.Uint64

	log logx.Logger
}

var _ alert.Publisher = (*Bus)(nil)

func New(log logx.Logger) *Bus {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Bus{log: log}
}

// Subscribe registers fn under name and returns its unsubscribe func.
func (b *Bus) Subscribe(name string, fn Handler) (unsubscribe func()) {
	id := b.seq.Add(1)
	b.mu.Lock()
	b.subs = append(b.subs, subscriber{id: id, name: name, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to every current subscriber and returns the joined
// subscriber failures, if any.
func (b *Bus) Publish(ctx context.Context, e alert.Event) error {
	// Snapshot so handlers may (un)subscribe without deadlocking.
	b.mu.RLock()
	subs := append([]subscriber(nil), b.subs...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := b.deliver(ctx, s, e); err != nil {
			b.log.Error("subscriber failed",
				logx.String("subscriber", s.name),
				logx.String("event", string(e.Kind)),
				logx.String("alert_id", e.Alert.ID),
				logx.Err(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) deliver(ctx context.Context, s subscriber, e alert.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = goerr.New(fmt.Sprintf("panic in subscriber %s", s.name),
				goerr.V("panic", r), goerr.V("stack", string(debug.Stack())))
		}
	}()
	if err := s.fn(ctx, e); err != nil {
		return goerr.Wrap(err, "subscriber "+s.name, goerr.V("event", e.Kind))
	}
	return nil
}

// Len reports the number of current subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
