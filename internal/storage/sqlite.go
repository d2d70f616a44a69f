package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	logx "alertcast/pkg/logx"
)

//go:embed migrations.sql
var migrations string

type sqliteStore struct {
	// db is nil once closed.
	db  atomic.Pointer[sql.DB]
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, goerr.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, goerr.Wrap(err, "create storage dir", goerr.V("path", path))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "open sqlite", goerr.V("path", path))
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), migrations); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "migrate sqlite", goerr.V("path", path))
	}
	s := &sqliteStore{log: log}
	s.db.Store(db)
	return s, nil
}

func (s *sqliteStore) AppendDelivery(ctx context.Context, r DeliveryRecord) error {
	db := s.db.Load()
	if db == nil {
		return ErrClosed
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO deliveries(id, user_id, alert_id, channel, delivered_at) VALUES(?,?,?,?,?)`,
		r.ID, r.UserID, r.AlertID, r.Channel, r.DeliveredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return goerr.Wrap(err, "insert delivery", goerr.V("delivery_id", r.ID))
	}
	return nil
}

func (s *sqliteStore) RecentDeliveries(ctx context.Context, limit int) ([]DeliveryRecord, error) {
	db := s.db.Load()
	if db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, alert_id, channel, delivered_at FROM deliveries ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "query deliveries")
	}
	defer rows.Close()

	var out []DeliveryRecord
	for rows.Next() {
		var (
			r  DeliveryRecord
			at string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.AlertID, &r.Channel, &at); err != nil {
			return nil, goerr.Wrap(err, "scan delivery")
		}
		if r.DeliveredAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			s.log.Debug("bad delivered_at in audit row", logx.String("delivery_id", r.ID), logx.Err(err))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "iterate deliveries")
	}
	return out, nil
}

func (s *sqliteStore) Close() error {
	db := s.db.Swap(nil)
	if db == nil {
		return nil
	}
	return db.Close()
}
