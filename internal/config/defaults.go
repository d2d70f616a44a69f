package config

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"alertcast/internal/scheduler"
	"alertcast/internal/storage"
	logx "alertcast/pkg/logx"
)

const (
	DefaultReminderMinutes = 120
	DefaultMinMinutes      = 5
	DefaultMaxMinutes      = 1440
	DefaultSendTimeout     = 10 * time.Second
	DefaultWorkers         = 4
	DefaultChannel         = "in_app"
	DefaultMemoryLimit     = 10000
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging:   LoggingConfig{Level: "info", Console: true},
		Reminder:  ReminderConfig{DefaultMinutes: DefaultReminderMinutes, MinMinutes: DefaultMinMinutes, MaxMinutes: DefaultMaxMinutes},
		Scheduler: SchedulerConfig{Enabled: true, Spec: scheduler.DefaultSpec},
		Delivery:  DeliveryConfig{SendTimeout: DefaultSendTimeout.String(), Workers: DefaultWorkers, DefaultChannel: DefaultChannel},
		Storage:   StorageConfig{Driver: "memory", MemoryLimit: DefaultMemoryLimit},
	}
}

// Normalize fills omitted fields with defaults in place.
func (c *Config) Normalize() {
	if c.Reminder.DefaultMinutes == 0 {
		c.Reminder.DefaultMinutes = DefaultReminderMinutes
	}
	if c.Reminder.MinMinutes == 0 {
		c.Reminder.MinMinutes = DefaultMinMinutes
	}
	if c.Reminder.MaxMinutes == 0 {
		c.Reminder.MaxMinutes = DefaultMaxMinutes
	}
	if strings.TrimSpace(c.Scheduler.Spec) == "" {
		c.Scheduler.Spec = scheduler.DefaultSpec
	}
	if c.Delivery.Workers == 0 {
		c.Delivery.Workers = DefaultWorkers
	}
	if strings.TrimSpace(c.Delivery.DefaultChannel) == "" {
		c.Delivery.DefaultChannel = DefaultChannel
	}
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.MemoryLimit == 0 {
		c.Storage.MemoryLimit = DefaultMemoryLimit
	}
}

// Validate checks c after Normalize. The first problem found is returned.
func (c *Config) Validate() error {
	if !logx.ValidLevel(c.Logging.Level) {
		return goerr.New("logging.level: unknown level", goerr.V("level", c.Logging.Level))
	}

	r := c.Reminder
	if r.MinMinutes < 1 {
		return goerr.New("reminder.min_minutes must be >= 1", goerr.V("min", r.MinMinutes))
	}
	if r.MaxMinutes < r.MinMinutes {
		return goerr.New("reminder.max_minutes must be >= min_minutes", goerr.V("min", r.MinMinutes), goerr.V("max", r.MaxMinutes))
	}
	if r.DefaultMinutes < r.MinMinutes || r.DefaultMinutes > r.MaxMinutes {
		return goerr.New("reminder.default_minutes out of bounds",
			goerr.V("default", r.DefaultMinutes), goerr.V("min", r.MinMinutes), goerr.V("max", r.MaxMinutes))
	}

	if _, err := ParseDurationField("snooze.window", c.Snooze.Window); err != nil {
		return err
	}
	if _, err := LoadLocation("snooze.timezone", c.Snooze.Timezone); err != nil {
		return err
	}

	if err := scheduler.ParseSpec(c.Scheduler.Spec); err != nil {
		return goerr.Wrap(err, "scheduler.spec")
	}
	if _, err := LoadLocation("scheduler.timezone", c.Scheduler.Timezone); err != nil {
		return err
	}

	if _, err := ParseDurationField("delivery.send_timeout", c.Delivery.SendTimeout); err != nil {
		return err
	}
	if c.Delivery.RatePerSec < 0 {
		return goerr.New("delivery.rate_per_sec must be >= 0", goerr.V("rate", c.Delivery.RatePerSec))
	}
	if c.Delivery.Workers < 0 {
		return goerr.New("delivery.workers must be >= 0", goerr.V("workers", c.Delivery.Workers))
	}

	driver := strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	known := false
	for _, d := range storage.Drivers() {
		if driver == d {
			known = true
		}
	}
	if !known {
		return goerr.New("storage.driver: unknown driver", goerr.V("driver", c.Storage.Driver))
	}
	if driver != "memory" && strings.TrimSpace(c.Storage.Path) == "" {
		return goerr.New("storage.path is required", goerr.V("driver", driver))
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if c.Storage.MemoryLimit < 0 {
		return goerr.New("storage.memory_limit must be >= 0", goerr.V("limit", c.Storage.MemoryLimit))
	}
	return nil
}

// LoadLocation resolves an IANA timezone name. Empty means Local.
func LoadLocation(path, tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, goerr.Wrap(err, "unknown timezone", goerr.V("field", path), goerr.V("tz", tz))
	}
	return loc, nil
}
