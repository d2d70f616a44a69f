package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertcast/internal/config"
	logx "alertcast/pkg/logx"
)

const sampleYAML = `
logging:
  level: debug
  console: true
reminder:
  default_minutes: 60
  min_minutes: 5
  max_minutes: 240
snooze:
  timezone: UTC
scheduler:
  enabled: true
  spec: "@every 30s"
delivery:
  send_timeout: 5s
  rate_per_sec: 20
storage:
  driver: memory
`

func TestParseYAMLAppliesDefaults(t *testing.T) {
	cfg, err := config.Parse("alertcast.yaml", []byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 60, cfg.Reminder.DefaultMinutes)
	assert.Equal(t, "@every 30s", cfg.Scheduler.Spec)
	assert.Equal(t, 20.0, cfg.Delivery.RatePerSec)
	assert.Equal(t, config.DefaultWorkers, cfg.Delivery.Workers)
	assert.Equal(t, config.DefaultChannel, cfg.Delivery.DefaultChannel)
}

func TestParseJSONEmptyIsDefault(t *testing.T) {
	cfg, err := config.Parse("alertcast.json", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Reminder.DefaultMinutes)
	assert.Equal(t, 5, cfg.Reminder.MinMinutes)
	assert.Equal(t, 1440, cfg.Reminder.MaxMinutes)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, config.DefaultMemoryLimit, cfg.Storage.MemoryLimit)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":      `{"reminders": {}}`,
		"trailing data":    `{} {}`,
		"bounds":           `{"reminder": {"default_minutes": 3, "min_minutes": 5, "max_minutes": 10}}`,
		"max below min":    `{"reminder": {"min_minutes": 10, "max_minutes": 5, "default_minutes": 7}}`,
		"bad level":        `{"logging": {"level": "loud"}}`,
		"bad window":       `{"snooze": {"window": "tomorrow"}}`,
		"negative window":  `{"snooze": {"window": "-1h"}}`,
		"bad tz":           `{"snooze": {"timezone": "Nowhere/Land"}}`,
		"bad cron":         `{"scheduler": {"spec": "whenever"}}`,
		"bad driver":       `{"storage": {"driver": "postgres"}}`,
		"file needs path":  `{"storage": {"driver": "file"}}`,
		"negative limit":   `{"storage": {"memory_limit": -1}}`,
		"negative rate":    `{"delivery": {"rate_per_sec": -1}}`,
		"bad send timeout": `{"delivery": {"send_timeout": "soon"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Parse("c.json", []byte(body))
			assert.Error(t, err)
		})
	}
}

func TestSummarizeChange(t *testing.T) {
	a := config.Default()
	b := config.Default()
	assert.True(t, config.SummarizeChange(a, b).Empty())

	b.Logging.Level = "debug"
	b.Storage.Driver = "sqlite"
	ch := config.SummarizeChange(a, b)
	assert.Equal(t, []string{"logging", "storage"}, ch.Sections)
	assert.Equal(t, []string{"logging"}, ch.Live)
	assert.Equal(t, []string{"storage"}, ch.RestartRequired)
}

func TestManagerWatchPublishesReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alertcast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	m := config.NewManager(path)
	m.SetLogger(logx.Nop())
	cfg, err := m.Load()
	require.NoError(t, err)
	require.Equal(t, 60, cfg.Reminder.DefaultMinutes)

	sub := m.Subscribe(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(200 * time.Millisecond)

	// An invalid edit is ignored.
	require.NoError(t, os.WriteFile(path, []byte("reminder: {default_minutes: 1}\n"), 0o600))
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, 60, m.Get().Reminder.DefaultMinutes)

	updated := `
logging: {level: info, console: true}
reminder: {default_minutes: 30, min_minutes: 5, max_minutes: 240}
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	select {
	case got := <-sub:
		assert.Equal(t, 30, got.Reminder.DefaultMinutes)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}
	assert.Equal(t, 30, m.Get().Reminder.DefaultMinutes)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
	m.Unsubscribe(sub)
}
