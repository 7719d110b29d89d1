// Package redis stores behavior profiles as JSON documents in Redis. Updates
// use WATCH/MULTI so concurrent requests for one principal never lose events.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sanctum/internal/behavior"
	"sanctum/pkg/platform/sentinel"
)

const (
	profileKeyPrefix = "behavior:profile:"
	maxTxRetries     = 5
)

type RedisStore struct {
	client  *redis.Client
	idleTTL time.Duration
}

func NewRedis(client *redis.Client, idleTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, idleTTL: idleTTL}
}

func profileKey(principalID string) string {
	return profileKeyPrefix + principalID
}

// Update retries on WATCH conflicts; fn may therefore run more than once.
func (s *RedisStore) Update(ctx context.Context, principalID string, fn func(p *behavior.Profile) error) (*behavior.Profile, error) {
	key := profileKey(principalID)
	var result *behavior.Profile

	txf := func(tx *redis.Tx) error {
		p, err := load(ctx, tx, key)
		if errors.Is(err, sentinel.ErrNotFound) {
			p = behavior.NewProfile(principalID)
		} else if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.idleTTL)
			return nil
		})
		if err == nil {
			result = p
		}
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("update profile %s: %w", principalID, redis.TxFailedErr)
}

func (s *RedisStore) Get(ctx context.Context, principalID string) (*behavior.Profile, error) {
	return load(ctx, s.client, profileKey(principalID))
}

// Sweep is a no-op: Redis expires idle profiles through the key TTL.
func (s *RedisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, key string) (*behavior.Profile, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p behavior.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &p, nil
}
