package notifier

import (
	"time"

	"alertcast/internal/alert"
	"alertcast/internal/directory"
)

// Config tunes the delivery pipeline.
type Config struct {
	// SendTimeout bounds a single channel call. 0 means 10s.
	SendTimeout time.Duration
	// RatePerSec paces channel calls across the process. 0 means unlimited.
	RatePerSec float64
	// Workers is the sweep concurrency. 0 means 4.
	Workers int
}

func (c Config) withDefaults() Config {
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.RatePerSec < 0 {
		c.RatePerSec = 0
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	return c
}

// Alerts is the read side of the alert store.
type Alerts interface {
	Get(id string) (alert.Alert, bool)
}

// Users is the identity collaborator.
type Users interface {
	GetUser(id string) (directory.User, bool)
	ListUsers() []directory.User
	GetTeamsForUser(id string) []string
}

// Outcome of a single (user, alert) delivery attempt.
type Outcome int

const (
	Skipped Outcome = iota
	Sent
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Sent:
		return "sent"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}
