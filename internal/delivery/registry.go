package delivery

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"

	"alertcast/internal/alert"
)

// Registry maps delivery tags to channel factories.
//
// Register is only allowed before Freeze. After Freeze the map is read-only
// and Create does not take a lock.
type Registry struct {
	mu        sync.Mutex
	frozen    atomic.Bool
	factories map[alert.DeliveryTag]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[alert.DeliveryTag]Factory{}}
}

func (r *Registry) Register(tag alert.DeliveryTag, f Factory) error {
	if f == nil || tag == "" {
		return goerr.New("channel tag and factory are required", goerr.V("tag", tag))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return goerr.Wrap(ErrRegistryFrozen, "register channel", goerr.V("tag", tag))
	}
	if _, ok := r.factories[tag]; ok {
		return goerr.Wrap(ErrDuplicateChannel, "register channel", goerr.V("tag", tag))
	}
	r.factories[tag] = f
	return nil
}

// Freeze ends the registration phase.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen.Store(true)
	r.mu.Unlock()
}

// Create builds the channel registered for tag.
func (r *Registry) Create(tag alert.DeliveryTag) (Channel, error) {
	f, ok := r.lookup(tag)
	if !ok {
		return nil, goerr.Wrap(ErrUnsupportedChannel, "create channel",
			goerr.V("tag", tag), goerr.T(alert.TagUnsupportedChannel))
	}
	ch, err := f()
	if err != nil {
		return nil, goerr.Wrap(err, "create channel", goerr.V("tag", tag))
	}
	return ch, nil
}

func (r *Registry) lookup(tag alert.DeliveryTag) (Factory, bool) {
	if r.frozen.Load() {
		f, ok := r.factories[tag]
		return f, ok
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.factories[tag]
	return f, ok
}

func (r *Registry) Supports(tag alert.DeliveryTag) bool {
	_, ok := r.lookup(tag)
	return ok
}

// SupportedChannels returns the registered tags, sorted.
func (r *Registry) SupportedChannels() []alert.DeliveryTag {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	out := make([]alert.DeliveryTag, 0, len(r.factories))
	for tag := range r.factories {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
