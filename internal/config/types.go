package config

// Config is the on-disk configuration. JSON and YAML files decode into the
// same struct; unknown keys are rejected.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Reminder  ReminderConfig  `json:"reminder"`
	Snooze    SnoozeConfig    `json:"snooze"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Delivery  DeliveryConfig  `json:"delivery"`
	Storage   StorageConfig   `json:"storage"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ReminderConfig bounds per-alert reminder intervals, in minutes.
//
// Defaults: default_minutes=120, min_minutes=5, max_minutes=1440.
type ReminderConfig struct {
	DefaultMinutes int `json:"default_minutes,omitempty"`
	MinMinutes     int `json:"min_minutes,omitempty"`
	MaxMinutes     int `json:"max_minutes,omitempty"`
}

// SnoozeConfig controls how long a snooze lasts.
//
// An empty (or zero) window snoozes until the next midnight in Timezone.
type SnoozeConfig struct {
	Window   string `json:"window,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// SchedulerConfig drives the reminder sweep.
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	// Spec is a cron expression (seconds optional) or a descriptor such as "@every 1m".
	Spec     string `json:"spec,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// DeliveryConfig tunes channel calls.
//
// Defaults: send_timeout="10s", rate_per_sec=0 (unlimited), workers=4,
// default_channel="in_app".
type DeliveryConfig struct {
	SendTimeout    string  `json:"send_timeout,omitempty"`
	RatePerSec     float64 `json:"rate_per_sec,omitempty"`
	Workers        int     `json:"workers,omitempty"`
	DefaultChannel string  `json:"default_channel,omitempty"`
}

// StorageConfig selects the delivery audit sink.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/audit.db", "busy_timeout": "2s" }
//
// MemoryLimit caps the records kept by the memory driver.
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
	MemoryLimit int    `json:"memory_limit,omitempty"`
}
