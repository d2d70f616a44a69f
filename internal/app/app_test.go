package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertcast/internal/alert"
	"alertcast/internal/config"
	"alertcast/internal/directory"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Logging.Console = false
	cfg.Logging.File = config.LoggingFile{Enabled: true, Path: filepath.Join(t.TempDir(), "alertcast.log")}
	cfg.Scheduler.Spec = "@every 1h"
	cfg.Storage = config.StorageConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "audit.db")}
	return cfg
}

func TestAppEndToEnd(t *testing.T) {
	a, err := NewFromConfig(testConfig(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	dir := a.Service().Directory()
	require.NoError(t, dir.AddUser(directory.User{ID: "u1", Name: "Ana"}))
	require.NoError(t, dir.AddUser(directory.User{ID: "u2", Name: "Ben"}))

	created, err := a.Service().CreateAlert(ctx, alert.NewAlert{
		Title:      "VPN maintenance",
		Severity:   alert.SeverityInfo,
		Visibility: alert.Visibility{Kind: alert.VisibilityOrganization},
	})
	require.NoError(t, err)
	assert.Equal(t, 120, created.ReminderInterval)

	assert.Len(t, a.Inbox().Inbox("u1"), 1)
	recs, err := a.Audit().RecentDeliveries(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, a.Stop(stopCtx, StopAppStop))
}

func TestAppRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reminder.DefaultMinutes = 1
	_, err := NewFromConfig(cfg)
	assert.Error(t, err)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alertcast.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logging": {"level": "warn"}, "scheduler": {"enabled": false}}`), 0o600))

	a, err := New(path)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	assert.False(t, a.sched.Running())

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Stop(stopCtx, StopAppStop))
}

func TestApplyLiveSections(t *testing.T) {
	a, err := NewFromConfig(testConfig(t))
	require.NoError(t, err)
	defer a.store.Close()

	prev := testConfig(t)
	next := testConfig(t)
	next.Reminder = config.ReminderConfig{DefaultMinutes: 30, MinMinutes: 10, MaxMinutes: 60}
	a.apply(prev, next)

	assert.Equal(t, 30, a.Service().Limits().Default)
	assert.Equal(t, 10, a.Service().Limits().Min)
}

func TestMapStorageCarriesMemoryLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.MemoryLimit = 50

	sc, err := mapStorage(cfg)
	require.NoError(t, err)
	assert.Equal(t, "memory", sc.Driver)
	assert.Equal(t, 50, sc.MemoryLimit)
}
