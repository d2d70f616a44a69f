package config

import (
	"reflect"

	logx "alertcast/pkg/logx"
)

// Change describes what a reload touched.
type Change struct {
	// Sections lists changed top-level keys in file order.
	Sections []string
	// Live lists the changed sections that apply without a restart.
	Live []string
	// RestartRequired lists the changed sections that only take effect after a restart.
	RestartRequired []string
	Fields          []logx.Field
}

func (c Change) Empty() bool { return len(c.Sections) == 0 }

// liveSections apply on reload; everything else is read once at startup.
var liveSections = map[string]bool{
	"logging":  true,
	"reminder": true,
	"delivery": true,
}

// SummarizeChange diffs two configs section by section.
func SummarizeChange(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	var ch Change
	mark := func(name string, changed bool, fields ...logx.Field) {
		if !changed {
			return
		}
		ch.Sections = append(ch.Sections, name)
		if liveSections[name] {
			ch.Live = append(ch.Live, name)
		} else {
			ch.RestartRequired = append(ch.RestartRequired, name)
		}
		ch.Fields = append(ch.Fields, fields...)
	}

	mark("logging", oldCfg.Logging != newCfg.Logging,
		logx.String("logging.level", newCfg.Logging.Level),
		logx.Bool("logging.console", newCfg.Logging.Console),
		logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
	)
	mark("reminder", oldCfg.Reminder != newCfg.Reminder,
		logx.Int("reminder.default_minutes", newCfg.Reminder.DefaultMinutes),
		logx.Int("reminder.min_minutes", newCfg.Reminder.MinMinutes),
		logx.Int("reminder.max_minutes", newCfg.Reminder.MaxMinutes),
	)
	mark("snooze", oldCfg.Snooze != newCfg.Snooze,
		logx.String("snooze.window", newCfg.Snooze.Window),
		logx.String("snooze.timezone", newCfg.Snooze.Timezone),
	)
	mark("scheduler", oldCfg.Scheduler != newCfg.Scheduler,
		logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
		logx.String("scheduler.spec", newCfg.Scheduler.Spec),
	)
	mark("delivery", !reflect.DeepEqual(oldCfg.Delivery, newCfg.Delivery),
		logx.String("delivery.send_timeout", newCfg.Delivery.SendTimeout),
		logx.Any("delivery.rate_per_sec", newCfg.Delivery.RatePerSec),
		logx.Int("delivery.workers", newCfg.Delivery.Workers),
	)
	mark("storage", oldCfg.Storage != newCfg.Storage,
		logx.String("storage.driver", newCfg.Storage.Driver),
	)
	return ch
}
