// Package redis stores sessions in Redis for deployments that share session
// state across processes. Each session is a JSON document under
// session:{id}; a sorted set per principal, scored by creation time, indexes
// them for the concurrent-session cap. Mutations use WATCH/MULTI.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"sanctum/internal/session"
	"sanctum/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix   = "session:"
	principalKeyPrefix = "session:principal:"
	maxTxRetries       = 3
)

type RedisStore struct {
	client *redis.Client
	// retention bounds how long a session key outlives its last write, so an
	// expired session can still be reported as EXPIRED rather than NOT_FOUND.
	retention time.Duration
}

func NewRedis(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }
func principalKey(principalID string) string { return principalKeyPrefix + principalID }

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, id string) (*session.Session, error) {
	data, err := c.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// retry runs a WATCH transaction, retrying on optimistic-lock conflicts.
func (s *RedisStore) retry(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	var err error
	for range maxTxRetries {
		err = s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (s *RedisStore) Create(ctx context.Context, sess *session.Session, maxActive int, live func(*session.Session) bool) ([]*session.Session, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	pkey := principalKey(sess.PrincipalID)

	var evicted []*session.Session
	err = s.retry(ctx, func(tx *redis.Tx) error {
		evicted = nil
		ids, err := tx.ZRange(ctx, pkey, 0, -1).Result()
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			keys := make([]string, len(ids))
			for i, id := range ids {
				keys[i] = sessionKey(id)
			}
			// A concurrent Execute on any of these sessions aborts the eviction.
			if err := tx.Watch(ctx, keys...).Err(); err != nil {
				return err
			}
		}

		var stale []string
		var active []*session.Session
		for _, id := range ids {
			existing, err := load(ctx, tx, id)
			if errors.Is(err, sentinel.ErrNotFound) {
				stale = append(stale, id)
				continue
			}
			if err != nil {
				return err
			}
			if !live(existing) {
				stale = append(stale, id)
				continue
			}
			active = append(active, existing)
		}
		slices.SortStableFunc(active, func(a, b *session.Session) int { return a.CreatedAt.Compare(b.CreatedAt) })
		for maxActive > 0 && len(active) >= maxActive {
			evicted = append(evicted, active[0])
			stale = append(stale, active[0].ID)
			active = active[1:]
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range stale {
				pipe.Del(ctx, sessionKey(id))
				pipe.ZRem(ctx, pkey, id)
			}
			pipe.Set(ctx, sessionKey(sess.ID), data, s.retention)
			pipe.ZAdd(ctx, pkey, redis.Z{Score: float64(sess.CreatedAt.UnixNano()), Member: sess.ID})
			pipe.Expire(ctx, pkey, s.retention)
			return nil
		})
		return err
	}, pkey)
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*session.Session, error) {
	return load(ctx, s.client, id)
}

func (s *RedisStore) Execute(ctx context.Context, id string, fn func(*session.Session) (session.Mutation, error)) (*session.Session, error) {
	key := sessionKey(id)
	var result *session.Session

	err := s.retry(ctx, func(tx *redis.Tx) error {
		sess, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		mutation, err := fn(sess)
		if err != nil {
			return err
		}
		result = sess

		switch mutation {
		case session.MutationSave:
			data, err := json.Marshal(sess)
			if err != nil {
				return fmt.Errorf("marshal session: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, s.retention)
				pipe.Expire(ctx, principalKey(sess.PrincipalID), s.retention)
				return nil
			})
			return err
		case session.MutationDelete:
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.ZRem(ctx, principalKey(sess.PrincipalID), id)
				return nil
			})
			return err
		default:
			return nil
		}
	}, key)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	sess, err := load(ctx, s.client, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.ZRem(ctx, principalKey(sess.PrincipalID), id)
		return nil
	})
	return err
}

func (s *RedisStore) ListByPrincipal(ctx context.Context, principalID string) ([]*session.Session, error) {
	ids, err := s.client.ZRange(ctx, principalKey(principalID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*session.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := load(ctx, s.client, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// Sweep walks session keys with SCAN and deletes those expired reports.
// Keys past retention have already been dropped by Redis.
func (s *RedisStore) Sweep(ctx context.Context, expired func(*session.Session) bool) ([]*session.Session, error) {
	var removed []*session.Session
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasPrefix(key, principalKeyPrefix) {
			continue
		}
		var gone *session.Session
		_, err := s.Execute(ctx, strings.TrimPrefix(key, sessionKeyPrefix), func(sess *session.Session) (session.Mutation, error) {
			gone = nil
			if expired(sess) {
				gone = sess
				return session.MutationDelete, nil
			}
			return session.MutationNone, nil
		})
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return removed, err
		}
		if gone != nil {
			removed = append(removed, gone)
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}
