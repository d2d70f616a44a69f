package delivery

import (
	"context"
	"errors"

	"alertcast/internal/alert"
	"alertcast/internal/directory"
)

var (
	ErrUnsupportedChannel = errors.New("unsupported channel")
	ErrRegistryFrozen     = errors.New("channel registry is frozen")
	ErrDuplicateChannel   = errors.New("channel already registered")
)

// Channel sends one alert to one user. Send must honor ctx cancellation;
// a nil error means the user received the notification.
type Channel interface {
	Tag() alert.DeliveryTag
	Send(ctx context.Context, u directory.User, a alert.Alert) error
}

// Factory builds a Channel for its tag.
type Factory func() (Channel, error)

// Singleton returns a Factory that always hands out ch.
func Singleton(ch Channel) Factory {
	return func() (Channel, error) { return ch, nil }
}
