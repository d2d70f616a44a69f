package core

import (
	"time"

	"github.com/m-mizutani/goerr/v2"

	"alertcast/internal/alert"
	"alertcast/internal/delivery"
	"alertcast/internal/directory"
	"alertcast/internal/notification"
	"alertcast/internal/notifier"
	"alertcast/internal/storage"
	logx "alertcast/pkg/logx"
)

// ReminderLimits bounds ReminderInterval, in minutes.
type ReminderLimits struct {
	Default int
	Min     int
	Max     int
}

func DefaultLimits() ReminderLimits {
	return ReminderLimits{Default: 120, Min: 5, Max: 1440}
}

func (l ReminderLimits) Validate() error {
	if l.Min < 1 || l.Max < l.Min || l.Default < l.Min || l.Default > l.Max {
		return goerr.New("invalid reminder limits",
			goerr.V("default", l.Default), goerr.V("min", l.Min), goerr.V("max", l.Max))
	}
	return nil
}

// Options wires a Service. Zero values fall back to defaults.
type Options struct {
	Limits         ReminderLimits
	Snooze         notification.SnoozePolicy
	Delivery       notifier.Config
	DefaultChannel alert.DeliveryTag

	// Channels must be frozen by the caller. Nil means in_app only.
	Channels  *delivery.Registry
	Directory *directory.Directory
	Sink      storage.Store
	Log       logx.Logger
}

// UserAlert is an alert together with the caller's disposition toward it.
type UserAlert struct {
	Alert     alert.Alert
	State     notification.State
	IsSnoozed bool
}

// UserSummary is a per-user dashboard count.
type UserSummary struct {
	Total    int
	Unread   int
	Read     int
	Snoozed  int
	Critical int // unread or snooze-expired critical alerts
}

// Stats are process-wide counters.
type Stats struct {
	TotalAlerts    int
	ActiveAlerts   int
	ExpiredAlerts  int
	ArchivedAlerts int
	BySeverity     map[alert.Severity]int
	ByVisibility   map[alert.VisibilityKind]int

	Users        int
	Teams        int
	TrackedPairs int

	Deliveries       int64
	FailedDeliveries int64
	At               time.Time
}
