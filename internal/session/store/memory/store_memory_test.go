package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanctum/internal/session"
	"sanctum/pkg/platform/sentinel"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newSession(id, principal string, offset time.Duration) *session.Session {
	return &session.Session{
		ID:           id,
		PrincipalID:  principal,
		CreatedAt:    base.Add(offset),
		LastActivity: base.Add(offset),
	}
}

func alwaysLive(*session.Session) bool { return true }

func TestCreateEvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for i, id := range []string{"a", "b", "c"} {
		evicted, err := store.Create(ctx, newSession(id, "u1", time.Duration(i)*time.Second), 3, alwaysLive)
		require.NoError(t, err)
		assert.Empty(t, evicted)
	}

	evicted, err := store.Create(ctx, newSession("d", "u1", 3*time.Second), 3, alwaysLive)
	require.NoError(t, err)
	require.Len(t, evicted, 1)
	assert.Equal(t, "a", evicted[0].ID)

	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	sessions, err := store.ListByPrincipal(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}

func TestCreateDropsDeadSessionsFirst(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	for i, id := range []string{"a", "b", "c"} {
		_, err := store.Create(ctx, newSession(id, "u1", time.Duration(i)*time.Second), 3, alwaysLive)
		require.NoError(t, err)
	}

	evicted, err := store.Create(ctx, newSession("d", "u1", time.Hour), 3, func(s *session.Session) bool {
		return s.ID != "b"
	})
	require.NoError(t, err)
	assert.Empty(t, evicted)

	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	sessions, err := store.ListByPrincipal(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	_, err := store.Create(ctx, newSession("a", "u1", 0), 3, alwaysLive)
	require.NoError(t, err)

	t.Run("save", func(t *testing.T) {
		got, err := store.Execute(ctx, "a", func(s *session.Session) (session.Mutation, error) {
			s.Touch(base.Add(time.Minute))
			return session.MutationSave, nil
		})
		require.NoError(t, err)
		assert.Equal(t, base.Add(time.Minute), got.LastActivity)

		stored, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, base.Add(time.Minute), stored.LastActivity)
	})

	t.Run("none discards changes", func(t *testing.T) {
		_, err := store.Execute(ctx, "a", func(s *session.Session) (session.Mutation, error) {
			s.SecurityScore = 0.1
			return session.MutationNone, nil
		})
		require.NoError(t, err)
		stored, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Zero(t, stored.SecurityScore)
	})

	t.Run("error discards changes", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := store.Execute(ctx, "a", func(s *session.Session) (session.Mutation, error) {
			s.PrincipalID = "someone-else"
			return session.MutationSave, boom
		})
		assert.ErrorIs(t, err, boom)
		stored, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "u1", stored.PrincipalID)
	})

	t.Run("delete unindexes", func(t *testing.T) {
		_, err := store.Execute(ctx, "a", func(*session.Session) (session.Mutation, error) {
			return session.MutationDelete, nil
		})
		require.NoError(t, err)
		_, err = store.Get(ctx, "a")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		sessions, err := store.ListByPrincipal(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := store.Execute(ctx, "nope", func(*session.Session) (session.Mutation, error) {
			return session.MutationSave, nil
		})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	_, err := store.Create(ctx, newSession("a", "u1", 0), 3, alwaysLive)
	require.NoError(t, err)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	got.PrincipalID = "mutated"

	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "u1", again.PrincipalID)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	_, err := store.Create(ctx, newSession("old", "u1", 0), 3, alwaysLive)
	require.NoError(t, err)
	_, err = store.Create(ctx, newSession("new", "u1", time.Hour), 3, alwaysLive)
	require.NoError(t, err)

	removed, err := store.Sweep(ctx, func(s *session.Session) bool { return s.CreatedAt.Before(base.Add(time.Minute)) })
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "old", removed[0].ID)

	sessions, err := store.ListByPrincipal(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "new", sessions[0].ID)
}

func TestConcurrentCreateAndExecute(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := store.Create(ctx, newSession(string(rune('A'+i)), "u1", time.Duration(i)*time.Millisecond), 3, alwaysLive)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := store.Execute(ctx, string(rune('A'+i)), func(s *session.Session) (session.Mutation, error) {
				s.Touch(base.Add(time.Hour))
				return session.MutationSave, nil
			})
			if err != nil {
				assert.ErrorIs(t, err, sentinel.ErrNotFound)
			}
		}()
	}
	wg.Wait()

	sessions, err := store.ListByPrincipal(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}
