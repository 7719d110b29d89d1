// Package shardmap is a concurrent map with per-shard locking and optional
// per-entry expiry. Operations on one key serialize on that key's shard;
// operations on keys in different shards proceed in parallel.
package shardmap

import (
	"hash/maphash"
	"sync"
	"time"
)

const DefaultShards = 32

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiry
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
}

type Map[V any] struct {
	shards []*shard[V]
	seed   maphash.Seed
	now    func() time.Time
}

type Option func(*options)

type options struct {
	shards int
	now    func() time.Time
}

func WithShards(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shards = n
		}
	}
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New[V any](opts ...Option) *Map[V] {
	o := options{shards: DefaultShards, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	m := &Map[V]{shards: make([]*shard[V], o.shards), seed: maphash.MakeSeed(), now: o.now}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]entry[V])}
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	return m.shards[maphash.String(m.seed, key)%uint64(len(m.shards))]
}

// Get returns the live value for key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[key]
	if !ok || e.expired(m.now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. ttl <= 0 stores without expiry.
func (m *Map[V]) Set(key string, value V, ttl time.Duration) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = entry[V]{value: value, expiresAt: m.deadline(ttl)}
}

func (m *Map[V]) Delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Action tells Compute what to do with the value returned by its callback.
type Action int

const (
	// Keep stores the returned value and refreshes the TTL.
	Keep Action = iota
	// Remove deletes the key.
	Remove
	// Skip leaves the stored entry untouched.
	Skip
)

// Compute runs fn under the key's shard lock with the current live value.
// fn must not call back into the same map.
func (m *Map[V]) Compute(key string, ttl time.Duration, fn func(current V, exists bool) (V, Action, error)) (V, error) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if ok && e.expired(m.now()) {
		delete(s.items, key)
		ok = false
		e = entry[V]{}
	}

	next, action, err := fn(e.value, ok)
	if err != nil {
		return e.value, err
	}
	switch action {
	case Keep:
		s.items[key] = entry[V]{value: next, expiresAt: m.deadline(ttl)}
	case Remove:
		delete(s.items, key)
	}
	return next, nil
}

// Range calls fn for each live entry, one shard at a time under a read lock.
// fn must not call back into the same map.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	now := m.now()
	for _, s := range m.shards {
		s.mu.RLock()
		for k, e := range s.items {
			if e.expired(now) {
				continue
			}
			if !fn(k, e.value) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Sweep removes expired entries and entries for which evict returns true.
// Removed entries are passed to onRemove after the shard lock is released.
// evict may be nil.
func (m *Map[V]) Sweep(evict func(key string, value V) bool, onRemove func(key string, value V)) int {
	now := m.now()
	removed := 0
	for _, s := range m.shards {
		var gone []string
		var values []V
		s.mu.Lock()
		for k, e := range s.items {
			if e.expired(now) || (evict != nil && evict(k, e.value)) {
				delete(s.items, k)
				gone = append(gone, k)
				values = append(values, e.value)
			}
		}
		s.mu.Unlock()
		removed += len(gone)
		if onRemove != nil {
			for i, k := range gone {
				onRemove(k, values[i])
			}
		}
	}
	return removed
}

// Len counts live entries.
func (m *Map[V]) Len() int {
	n := 0
	m.Range(func(string, V) bool {
		n++
		return true
	})
	return n
}

func (m *Map[V]) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}
