package database

import (
	"context"
	"sync"
	"time"

	"github.com/smarttransit/booking-core/internal/models"
)

// DraftStore keeps one booking draft per member with a time-to-live.
// Get returns (nil, nil) when no unexpired draft exists.
type DraftStore interface {
	Get(ctx context.Context, memberID string) (*models.Draft, error)
	Save(ctx context.Context, draft *models.Draft, ttl time.Duration) error
	Delete(ctx context.Context, memberID string) error
}

// MemoryDraftStore keeps drafts in process memory
type MemoryDraftStore struct {
	mu     sync.Mutex
	drafts map[string]memoryDraft
	now    func() time.Time
}

type memoryDraft struct {
	draft     models.Draft
	expiresAt time.Time
}

// NewMemoryDraftStore creates a new MemoryDraftStore
func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{
		drafts: make(map[string]memoryDraft),
		now:    time.Now,
	}
}

func (s *MemoryDraftStore) Get(ctx context.Context, memberID string) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.drafts[memberID]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.drafts, memberID)
		return nil, nil
	}
	d := entry.draft
	d.Seats = append([]string(nil), entry.draft.Seats...)
	d.Passengers = append([]models.PassengerInput(nil), entry.draft.Passengers...)
	return &d, nil
}

func (s *MemoryDraftStore) Save(ctx context.Context, draft *models.Draft, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *draft
	d.Seats = append([]string(nil), draft.Seats...)
	d.Passengers = append([]models.PassengerInput(nil), draft.Passengers...)
	s.drafts[draft.MemberID] = memoryDraft{draft: d, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryDraftStore) Delete(ctx context.Context, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, memberID)
	return nil
}
