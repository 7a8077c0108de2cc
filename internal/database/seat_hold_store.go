package database

import (
	"context"
	"sync"
	"time"
)

// SeatHoldStore keeps short-lived advisory holds keyed by trip and seat label.
// Holds never block a commit; they only warn other members during selection.
type SeatHoldStore interface {
	// Acquire takes or refreshes holds for holderID. When any label is held by
	// someone else nothing is acquired and those labels are returned.
	Acquire(ctx context.Context, tripID, holderID string, labels []string, ttl time.Duration) ([]string, error)
	// Release drops holds owned by holderID; holds of other holders are left alone
	Release(ctx context.Context, tripID, holderID string, labels []string) error
	// Holders returns label -> holder for the labels that are currently held
	Holders(ctx context.Context, tripID string, labels []string) (map[string]string, error)
}

// MemorySeatHoldStore is an in-process SeatHoldStore
type MemorySeatHoldStore struct {
	mu    sync.Mutex
	holds map[string]seatHold
	now   func() time.Time
}

type seatHold struct {
	holderID  string
	expiresAt time.Time
}

// NewMemorySeatHoldStore creates a new MemorySeatHoldStore
func NewMemorySeatHoldStore() *MemorySeatHoldStore {
	return &MemorySeatHoldStore{holds: make(map[string]seatHold), now: time.Now}
}

func holdKey(tripID, label string) string { return tripID + ":" + label }

// activeHolder returns the unexpired holder of a key; caller holds s.mu
func (s *MemorySeatHoldStore) activeHolder(key string) (string, bool) {
	h, ok := s.holds[key]
	if !ok {
		return "", false
	}
	if !s.now().Before(h.expiresAt) {
		delete(s.holds, key)
		return "", false
	}
	return h.holderID, true
}

func (s *MemorySeatHoldStore) Acquire(ctx context.Context, tripID, holderID string, labels []string, ttl time.Duration) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var conflicts []string
	for _, label := range labels {
		if holder, ok := s.activeHolder(holdKey(tripID, label)); ok && holder != holderID {
			conflicts = append(conflicts, label)
		}
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	expiresAt := s.now().Add(ttl)
	for _, label := range labels {
		s.holds[holdKey(tripID, label)] = seatHold{holderID: holderID, expiresAt: expiresAt}
	}
	return nil, nil
}

func (s *MemorySeatHoldStore) Release(ctx context.Context, tripID, holderID string, labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, label := range labels {
		key := holdKey(tripID, label)
		if h, ok := s.holds[key]; ok && h.holderID == holderID {
			delete(s.holds, key)
		}
	}
	return nil
}

func (s *MemorySeatHoldStore) Holders(ctx context.Context, tripID string, labels []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := make(map[string]string)
	for _, label := range labels {
		if holder, ok := s.activeHolder(holdKey(tripID, label)); ok {
			held[label] = holder
		}
	}
	return held, nil
}
