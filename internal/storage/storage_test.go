package storage_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertcast/internal/storage"
	logx "alertcast/pkg/logx"
)

func records() []storage.DeliveryRecord {
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return []storage.DeliveryRecord{
		{ID: "d1", UserID: "alice", AlertID: "a1", Channel: "in_app", DeliveredAt: at},
		{ID: "d2", UserID: "bob", AlertID: "a1", Channel: "in_app", DeliveredAt: at.Add(time.Minute)},
		{ID: "d3", UserID: "alice", AlertID: "a2", Channel: "in_app", DeliveredAt: at.Add(2 * time.Minute)},
	}
}

func TestDrivers(t *testing.T) {
	dir := t.TempDir()
	cfgs := map[string]storage.Config{
		"memory": {Driver: "memory"},
		"file":   {Driver: "file", Path: filepath.Join(dir, "audit.jsonl")},
		"sqlite": {Driver: "sqlite", Path: filepath.Join(dir, "audit.db"), BusyTimeout: time.Second},
	}
	for name, cfg := range cfgs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st, err := storage.Open(cfg, logx.Nop())
			require.NoError(t, err)

			for _, r := range records() {
				require.NoError(t, st.AppendDelivery(ctx, r))
			}

			got, err := st.RecentDeliveries(ctx, 2)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "d3", got[0].ID)
			assert.Equal(t, "d2", got[1].ID)
			assert.True(t, got[1].DeliveredAt.Equal(records()[1].DeliveredAt))

			all, err := st.RecentDeliveries(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, all, 3)

			require.NoError(t, st.Close())
			err = st.AppendDelivery(ctx, records()[0])
			assert.True(t, errors.Is(err, storage.ErrClosed))
		})
	}
}

func TestMemoryLimit(t *testing.T) {
	st := storage.NewMemory(2)
	for _, r := range records() {
		require.NoError(t, st.AppendDelivery(context.Background(), r))
	}
	got, err := st.RecentDeliveries(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d3", got[0].ID)
	assert.Equal(t, "d2", got[1].ID)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := storage.Open(storage.Config{Driver: "mongo"}, logx.Nop())
	assert.Error(t, err)

	_, err = storage.Open(storage.Config{Driver: "file"}, logx.Nop())
	assert.Error(t, err)
}

func TestSQLiteCloseDuringAppends(t *testing.T) {
	st, err := storage.Open(storage.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "audit.db")}, logx.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r := records()[0]
				r.ID = fmt.Sprintf("d-%d-%d", i, j)
				// Appends racing Close may fail; they must not crash.
				_ = st.AppendDelivery(ctx, r)
			}
		}(i)
	}
	require.NoError(t, st.Close())
	wg.Wait()

	assert.NoError(t, st.Close())
	_, err = st.RecentDeliveries(ctx, 0)
	assert.True(t, errors.Is(err, storage.ErrClosed))
}
