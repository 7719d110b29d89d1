// Package badger stores sealed records in an embedded Badger database. Records
// with a retention deadline are written with a matching TTL so Badger drops
// them on its own.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"sanctum/internal/vault"
	"sanctum/pkg/platform/sentinel"
)

const keyPrefix = "record:"

type Store struct {
	db *badger.DB
}

func New(db *badger.DB) *Store {
	return &Store{db: db}
}

// Open opens (or creates) a database at path. An empty path keeps it in memory.
func Open(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

func key(id string) []byte { return []byte(keyPrefix + id) }

// Create reads the key inside the write transaction, so a concurrent create
// of the same ID fails either here or at commit with badger.ErrConflict.
func (s *Store) Create(_ context.Context, rec *vault.StoredRecord) error {
	entry, err := newEntry(rec)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(entry.Key)
		if err == nil {
			return sentinel.ErrConflict
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.SetEntry(entry)
	})
	switch {
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, badger.ErrConflict):
		return sentinel.ErrConflict
	case err != nil:
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

func (s *Store) Put(_ context.Context, rec *vault.StoredRecord) error {
	entry, err := newEntry(rec)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func newEntry(rec *vault.StoredRecord) (*badger.Entry, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	entry := badger.NewEntry(key(rec.ID), data)
	if !rec.RetentionDeadline.IsZero() {
		ttl := time.Until(rec.RetentionDeadline)
		if ttl <= 0 {
			ttl = time.Second
		}
		entry = entry.WithTTL(ttl)
	}
	return entry, nil
}

func (s *Store) Get(_ context.Context, id string) (*vault.StoredRecord, error) {
	var rec vault.StoredRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	return &rec, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(id))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// DeleteExpired removes records whose deadline passed in the service's clock
// but whose TTL has not fired yet.
func (s *Store) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	var expired [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var rec vault.StoredRecord
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return err
			}
			if rec.Expired(now) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan records: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range expired {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete expired records: %w", err)
	}
	return len(expired), nil
}
