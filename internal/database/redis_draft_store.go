package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/smarttransit/booking-core/internal/models"
)

// RedisDraftStore keeps drafts as JSON values with a Redis TTL
type RedisDraftStore struct {
	client *redis.Client
	prefix string
}

// NewRedisDraftStore creates a new RedisDraftStore
func NewRedisDraftStore(client *redis.Client, prefix string) *RedisDraftStore {
	return &RedisDraftStore{client: client, prefix: prefix}
}

func (s *RedisDraftStore) key(memberID string) string {
	return fmt.Sprintf("%s:draft:%s", s.prefix, memberID)
}

func (s *RedisDraftStore) Get(ctx context.Context, memberID string) (*models.Draft, error) {
	raw, err := s.client.Get(ctx, s.key(memberID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	var draft models.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &draft, nil
}

func (s *RedisDraftStore) Save(ctx context.Context, draft *models.Draft, ttl time.Duration) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := s.client.Set(ctx, s.key(draft.MemberID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, memberID string) error {
	if err := s.client.Del(ctx, s.key(memberID)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
