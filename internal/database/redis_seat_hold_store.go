package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// releaseHoldScript deletes a hold only when it is still owned by the caller
var releaseHoldScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSeatHoldStore implements SeatHoldStore with SETNX keys and TTLs
type RedisSeatHoldStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSeatHoldStore creates a new RedisSeatHoldStore
func NewRedisSeatHoldStore(client *redis.Client, prefix string) *RedisSeatHoldStore {
	return &RedisSeatHoldStore{client: client, prefix: prefix}
}

func (s *RedisSeatHoldStore) key(tripID, label string) string {
	return fmt.Sprintf("%s:seat_hold:%s:%s", s.prefix, tripID, label)
}

func (s *RedisSeatHoldStore) Acquire(ctx context.Context, tripID, holderID string, labels []string, ttl time.Duration) ([]string, error) {
	var acquired, conflicts []string

	for _, label := range labels {
		key := s.key(tripID, label)
		ok, err := s.client.SetNX(ctx, key, holderID, ttl).Result()
		if err != nil {
			s.rollback(ctx, tripID, holderID, acquired)
			return nil, fmt.Errorf("failed to acquire seat hold: %w", err)
		}
		if ok {
			acquired = append(acquired, label)
			continue
		}

		holder, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			// expired between SETNX and GET; try once more
			if ok, err = s.client.SetNX(ctx, key, holderID, ttl).Result(); err == nil && ok {
				acquired = append(acquired, label)
				continue
			}
			conflicts = append(conflicts, label)
			continue
		}
		if err != nil {
			s.rollback(ctx, tripID, holderID, acquired)
			return nil, fmt.Errorf("failed to read seat hold: %w", err)
		}
		if holder == holderID {
			if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
				s.rollback(ctx, tripID, holderID, acquired)
				return nil, fmt.Errorf("failed to refresh seat hold: %w", err)
			}
			continue
		}
		conflicts = append(conflicts, label)
	}

	if len(conflicts) > 0 {
		s.rollback(ctx, tripID, holderID, acquired)
		return conflicts, nil
	}
	return nil, nil
}

func (s *RedisSeatHoldStore) rollback(ctx context.Context, tripID, holderID string, labels []string) {
	_ = s.Release(ctx, tripID, holderID, labels)
}

func (s *RedisSeatHoldStore) Release(ctx context.Context, tripID, holderID string, labels []string) error {
	for _, label := range labels {
		if err := releaseHoldScript.Run(ctx, s.client, []string{s.key(tripID, label)}, holderID).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("failed to release seat hold: %w", err)
		}
	}
	return nil
}

func (s *RedisSeatHoldStore) Holders(ctx context.Context, tripID string, labels []string) (map[string]string, error) {
	held := make(map[string]string)
	if len(labels) == 0 {
		return held, nil
	}

	keys := make([]string, len(labels))
	for i, label := range labels {
		keys[i] = s.key(tripID, label)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read seat holds: %w", err)
	}
	for i, v := range values {
		if holder, ok := v.(string); ok {
			held[labels[i]] = holder
		}
	}
	return held, nil
}
