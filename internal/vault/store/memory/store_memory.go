package memory

import (
	"context"
	"time"

	"sanctum/internal/vault"
	"sanctum/pkg/platform/sentinel"
	"sanctum/pkg/platform/shardmap"
)

type InMemoryStore struct {
	records *shardmap.Map[*vault.StoredRecord]
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: shardmap.New[*vault.StoredRecord]()}
}

func (s *InMemoryStore) Create(_ context.Context, rec *vault.StoredRecord) error {
	_, err := s.records.Compute(rec.ID, 0, func(_ *vault.StoredRecord, exists bool) (*vault.StoredRecord, shardmap.Action, error) {
		if exists {
			return nil, shardmap.Skip, sentinel.ErrConflict
		}
		return rec.Clone(), shardmap.Keep, nil
	})
	return err
}

func (s *InMemoryStore) Put(_ context.Context, rec *vault.StoredRecord) error {
	s.records.Set(rec.ID, rec.Clone(), 0)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*vault.StoredRecord, error) {
	rec, ok := s.records.Get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.records.Delete(id)
	return nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	return s.records.Sweep(func(_ string, rec *vault.StoredRecord) bool {
		return rec.Expired(now)
	}, nil), nil
}
