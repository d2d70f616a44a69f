package notification

import (
	"sort"
	"sync"
	"time"
)

// Engine owns every State record. Each record has its own lock, so a
// reminder sweep and a user action on the same pair are serialized while
// unrelated pairs proceed in parallel.
type Engine struct {
	mu      sync.RWMutex
	entries map[Key]*entry
	policy  SnoozePolicy
}

type entry struct {
	mu sync.Mutex
	st State
}

func NewEngine(policy SnoozePolicy) *Engine {
	return &Engine{entries: map[Key]*entry{}, policy: policy}
}

func (e *Engine) entry(k Key, now time.Time) *entry {
	e.mu.RLock()
	en, ok := e.entries[k]
	e.mu.RUnlock()
	if ok {
		return en
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if en, ok = e.entries[k]; ok {
		return en
	}
	en = &entry{st: newState(now)}
	e.entries[k] = en
	return en
}

// Do runs fn with exclusive access to the record for k, creating it
// (status unread) if it doesn't exist yet. Changes fn makes to st are kept
// only when fn returns nil.
func (e *Engine) Do(k Key, now time.Time, fn func(st *State) error) error {
	en := e.entry(k, now)
	en.mu.Lock()
	defer en.mu.Unlock()

	st := en.st.clone()
	if err := fn(&st); err != nil {
		return err
	}
	en.st = st
	return nil
}

// Ensure creates the record for k if needed.
func (e *Engine) Ensure(k Key, now time.Time) {
	_ = e.entry(k, now)
}

// Transition applies cmd to the record for k.
func (e *Engine) Transition(k Key, cmd Command, now time.Time) (State, error) {
	var out State
	err := e.Do(k, now, func(st *State) error {
		n, err := st.Apply(cmd, now, e.policy.Until(now))
		if err != nil {
			return err
		}
		*st = n
		out = n.clone()
		return nil
	})
	if err != nil {
		got, _ := e.Get(k)
		return got, err
	}
	return out, nil
}

// Get returns a copy of the record for k.
func (e *Engine) Get(k Key) (State, bool) {
	e.mu.RLock()
	en, ok := e.entries[k]
	e.mu.RUnlock()
	if !ok {
		return State{}, false
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.st.clone(), true
}

// Keys returns every known pair ordered by user then alert.
func (e *Engine) Keys() []Key {
	e.mu.RLock()
	out := make([]Key, 0, len(e.entries))
	for k := range e.entries {
		out = append(out, k)
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].AlertID < out[j].AlertID
	})
	return out
}

func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}
