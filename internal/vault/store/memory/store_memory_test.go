package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanctum/internal/vault"
	"sanctum/pkg/platform/sentinel"
)

func TestCreateOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []string
		conflict int
	)
	for _, owner := range []string{"alice", "mallory", "eve", "bob"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Create(ctx, &vault.StoredRecord{ID: "r1", OwnerID: owner})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, owner)
				return
			}
			assert.ErrorIs(t, err, sentinel.ErrConflict)
			conflict++
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, 3, conflict)
	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, winners[0], got.OwnerID)
}
