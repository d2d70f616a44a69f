package storage

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu      sync.Mutex
	records []DeliveryRecord
	limit   int
	closed  bool
}

// NewMemory returns an in-process store keeping at most limit records (0 = unbounded).
func NewMemory(limit int) Store {
	return &memoryStore{limit: limit}
}

func (s *memoryStore) AppendDelivery(_ context.Context, r DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.records = append(s.records, r)
	if s.limit > 0 && len(s.records) > s.limit {
		s.records = append([]DeliveryRecord(nil), s.records[len(s.records)-s.limit:]...)
	}
	return nil
}

func (s *memoryStore) RecentDeliveries(_ context.Context, limit int) ([]DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newestFirst(s.records, limit), nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func newestFirst(in []DeliveryRecord, limit int) []DeliveryRecord {
	n := len(in)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]DeliveryRecord, 0, n)
	for i := len(in) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, in[i])
	}
	return out
}
