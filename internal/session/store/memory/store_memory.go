// Package memory is the in-process session store. Sessions live in one
// sharded map and a per-principal index in another; operations that touch
// both always lock the principal before the session.
package memory

import (
	"context"
	"slices"

	"sanctum/internal/session"
	"sanctum/pkg/platform/sentinel"
	"sanctum/pkg/platform/shardmap"
)

type InMemoryStore struct {
	sessions   *shardmap.Map[*session.Session]
	principals *shardmap.Map[[]string]
}

func NewInMemoryStore(opts ...shardmap.Option) *InMemoryStore {
	return &InMemoryStore{
		sessions:   shardmap.New[*session.Session](opts...),
		principals: shardmap.New[[]string](opts...),
	}
}

func (s *InMemoryStore) Create(_ context.Context, sess *session.Session, maxActive int, live func(*session.Session) bool) ([]*session.Session, error) {
	var evicted []*session.Session
	_, err := s.principals.Compute(sess.PrincipalID, 0, func(ids []string, _ bool) ([]string, shardmap.Action, error) {
		var active []*session.Session
		for _, id := range ids {
			existing, ok := s.sessions.Get(id)
			if !ok {
				continue
			}
			if !live(existing) {
				s.sessions.Delete(id)
				continue
			}
			active = append(active, existing)
		}
		slices.SortStableFunc(active, func(a, b *session.Session) int { return a.CreatedAt.Compare(b.CreatedAt) })

		for maxActive > 0 && len(active) >= maxActive {
			oldest := active[0]
			s.sessions.Delete(oldest.ID)
			evicted = append(evicted, oldest.Clone())
			active = active[1:]
		}

		s.sessions.Set(sess.ID, sess.Clone(), 0)
		next := make([]string, 0, len(active)+1)
		for _, a := range active {
			next = append(next, a.ID)
		}
		return append(next, sess.ID), shardmap.Keep, nil
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*session.Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *InMemoryStore) Execute(_ context.Context, id string, fn func(*session.Session) (session.Mutation, error)) (*session.Session, error) {
	var (
		result  *session.Session
		deleted bool
	)
	_, err := s.sessions.Compute(id, 0, func(cur *session.Session, exists bool) (*session.Session, shardmap.Action, error) {
		if !exists {
			return nil, shardmap.Skip, sentinel.ErrNotFound
		}
		working := cur.Clone()
		mutation, err := fn(working)
		if err != nil {
			return nil, shardmap.Skip, err
		}
		result = working
		switch mutation {
		case session.MutationSave:
			return working.Clone(), shardmap.Keep, nil
		case session.MutationDelete:
			deleted = true
			return nil, shardmap.Remove, nil
		default:
			result = cur.Clone()
			return cur, shardmap.Skip, nil
		}
	})
	if err != nil {
		return nil, err
	}
	if deleted {
		s.unindex(result.PrincipalID, id)
	}
	return result, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil
	}
	s.sessions.Delete(id)
	s.unindex(sess.PrincipalID, id)
	return nil
}

func (s *InMemoryStore) ListByPrincipal(_ context.Context, principalID string) ([]*session.Session, error) {
	ids, _ := s.principals.Get(principalID)
	out := make([]*session.Session, 0, len(ids))
	for _, id := range ids {
		if sess, ok := s.sessions.Get(id); ok {
			out = append(out, sess.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryStore) Sweep(_ context.Context, expired func(*session.Session) bool) ([]*session.Session, error) {
	var removed []*session.Session
	s.sessions.Sweep(func(_ string, sess *session.Session) bool {
		return expired(sess)
	}, func(id string, sess *session.Session) {
		removed = append(removed, sess.Clone())
		s.unindex(sess.PrincipalID, id)
	})
	return removed, nil
}

func (s *InMemoryStore) unindex(principalID, id string) {
	_, _ = s.principals.Compute(principalID, 0, func(ids []string, exists bool) ([]string, shardmap.Action, error) {
		if !exists {
			return nil, shardmap.Skip, nil
		}
		next := slices.DeleteFunc(slices.Clone(ids), func(v string) bool { return v == id })
		if len(next) == 0 {
			return nil, shardmap.Remove, nil
		}
		return next, shardmap.Keep, nil
	})
}
