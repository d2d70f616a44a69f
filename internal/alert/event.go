package alert

import "context"

type EventKind string

const (
	EventCreated  EventKind = "alert.created"
	EventUpdated  EventKind = "alert.updated"
	EventArchived EventKind = "alert.archived"
)

// Event is a lifecycle notification carrying a snapshot of the alert.
type Event struct {
	Kind  EventKind
	Alert Alert
}

// Publisher receives lifecycle events after the store mutation is visible.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
