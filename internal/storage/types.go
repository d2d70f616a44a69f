package storage

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	// MemoryLimit caps the memory driver (oldest records dropped). 0 means unbounded.
	MemoryLimit int
}

// DeliveryRecord is one successful transmission.
type DeliveryRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AlertID     string    `json:"alert_id"`
	Channel     string    `json:"channel"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Store is the audit sink used by the delivery pipeline.
type Store interface {
	AppendDelivery(ctx context.Context, r DeliveryRecord) error
	// RecentDeliveries returns up to limit records, newest first.
	RecentDeliveries(ctx context.Context, limit int) ([]DeliveryRecord, error)
	Close() error
}
