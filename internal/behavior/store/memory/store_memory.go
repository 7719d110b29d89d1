// Package memory keeps behavior profiles in a sharded in-process map. Updates
// to one principal serialize on that principal's shard.
package memory

import (
	"context"
	"time"

	"sanctum/internal/behavior"
	"sanctum/pkg/platform/sentinel"
	"sanctum/pkg/platform/shardmap"
)

type InMemoryStore struct {
	profiles *shardmap.Map[*behavior.Profile]
	idleTTL  time.Duration
}

// NewInMemoryStore keeps each profile for idleTTL after its last update.
func NewInMemoryStore(idleTTL time.Duration, opts ...shardmap.Option) *InMemoryStore {
	return &InMemoryStore{
		profiles: shardmap.New[*behavior.Profile](opts...),
		idleTTL:  idleTTL,
	}
}

// Update applies fn to a copy of the profile and stores the copy only when fn
// succeeds, so a failed update leaves no partial state.
func (s *InMemoryStore) Update(_ context.Context, principalID string, fn func(p *behavior.Profile) error) (*behavior.Profile, error) {
	updated, err := s.profiles.Compute(principalID, s.idleTTL, func(cur *behavior.Profile, exists bool) (*behavior.Profile, shardmap.Action, error) {
		next := behavior.NewProfile(principalID)
		if exists {
			next = cur.Clone()
		}
		if err := fn(next); err != nil {
			return nil, shardmap.Skip, err
		}
		return next, shardmap.Keep, nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

func (s *InMemoryStore) Get(_ context.Context, principalID string) (*behavior.Profile, error) {
	p, ok := s.profiles.Get(principalID)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

// Sweep drops profiles whose TTL elapsed or whose last event predates idleBefore.
func (s *InMemoryStore) Sweep(_ context.Context, idleBefore time.Time) (int, error) {
	return s.profiles.Sweep(func(_ string, p *behavior.Profile) bool {
		return p.LastSeen.Before(idleBefore)
	}, nil), nil
}
