package app

import (
	"strings"
	"time"

	"alertcast/internal/alert"
	"alertcast/internal/config"
	"alertcast/internal/core"
	"alertcast/internal/notification"
	"alertcast/internal/notifier"
	"alertcast/internal/scheduler"
	"alertcast/internal/storage"
	logx "alertcast/pkg/logx"
)

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapLimits(cfg *config.Config) core.ReminderLimits {
	return core.ReminderLimits{
		Default: cfg.Reminder.DefaultMinutes,
		Min:     cfg.Reminder.MinMinutes,
		Max:     cfg.Reminder.MaxMinutes,
	}
}

func mapSnooze(cfg *config.Config) (notification.SnoozePolicy, error) {
	window, err := config.ParseDurationField("snooze.window", cfg.Snooze.Window)
	if err != nil {
		return notification.SnoozePolicy{}, err
	}
	loc, err := config.LoadLocation("snooze.timezone", cfg.Snooze.Timezone)
	if err != nil {
		return notification.SnoozePolicy{}, err
	}
	return notification.SnoozePolicy{Window: window, Location: loc}, nil
}

func mapDelivery(cfg *config.Config) (notifier.Config, error) {
	timeout, err := config.ParseDurationOrDefault("delivery.send_timeout", cfg.Delivery.SendTimeout, config.DefaultSendTimeout)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		SendTimeout: timeout,
		RatePerSec:  cfg.Delivery.RatePerSec,
		Workers:     cfg.Delivery.Workers,
	}, nil
}

func mapDefaultChannel(cfg *config.Config) alert.DeliveryTag {
	return alert.DeliveryTag(strings.TrimSpace(cfg.Delivery.DefaultChannel))
}

func mapScheduler(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Spec:     cfg.Scheduler.Spec,
		Timezone: cfg.Scheduler.Timezone,
	}
}

func mapStorage(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)),
		Path:        strings.TrimSpace(cfg.Storage.Path),
		BusyTimeout: busy,
		MemoryLimit: cfg.Storage.MemoryLimit,
	}, nil
}
