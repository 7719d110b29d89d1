//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"sanctum/internal/encryption"
	"sanctum/internal/vault"
	"sanctum/internal/vault/store/postgres"
	"sanctum/pkg/platform/sentinel"
	"sanctum/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pool  *pgxpool.Pool
	store *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()
	pg := containers.GetManager().GetPostgres(s.T())
	pool, err := pgxpool.New(ctx, pg.DSN)
	s.Require().NoError(err)
	s.pool = pool
	s.store = postgres.New(pool)
	s.Require().NoError(s.store.Migrate(ctx))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.pool.Close()
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `TRUNCATE sensitive_records`)
	s.Require().NoError(err)
}

func record(id string, deadline time.Time) *vault.StoredRecord {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &vault.StoredRecord{
		ID:       id,
		DataType: "personal",
		OwnerID:  "u1",
		Record: encryption.SensitiveRecord{
			Classification: "personal",
			Ciphertext:     []byte{0xde, 0xad},
			Metadata: encryption.Metadata{
				Algorithm:  encryption.AlgorithmXChaCha20Poly1305,
				IV:         make([]byte, 24),
				Checksum:   "c0ffee",
				Timestamp:  now,
				KeyVersion: 2,
			},
		},
		CreatedAt:         now,
		UpdatedAt:         now,
		RetentionDeadline: deadline,
	}
}

func (s *PostgresStoreSuite) TestRoundTripAndUpsert() {
	ctx := context.Background()
	rec := record("r1", time.Time{})
	s.Require().NoError(s.store.Put(ctx, rec))

	got, err := s.store.Get(ctx, "r1")
	s.Require().NoError(err)
	s.Equal(rec.Record.Ciphertext, got.Record.Ciphertext)
	s.Equal(encryption.AlgorithmXChaCha20Poly1305, got.Record.Metadata.Algorithm)
	s.Equal(2, got.Record.Metadata.KeyVersion)
	s.True(got.RetentionDeadline.IsZero())

	rec.Record.Ciphertext = []byte{0xbe, 0xef}
	rec.UpdatedAt = rec.UpdatedAt.Add(time.Hour)
	s.Require().NoError(s.store.Put(ctx, rec))
	got, err = s.store.Get(ctx, "r1")
	s.Require().NoError(err)
	s.Equal([]byte{0xbe, 0xef}, got.Record.Ciphertext)
	s.True(got.CreatedAt.Equal(rec.CreatedAt))
}

func (s *PostgresStoreSuite) TestDeleteAndExpiry() {
	ctx := context.Background()
	deadline := time.Date(2027, 3, 10, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Put(ctx, record("soon", deadline)))
	s.Require().NoError(s.store.Put(ctx, record("forever", time.Time{})))

	n, err := s.store.DeleteExpired(ctx, deadline)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.store.Get(ctx, "soon")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Delete(ctx, "forever"))
	_, err = s.store.Get(ctx, "forever")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCreateDoesNotOverwrite() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, record("r1", time.Time{})))

	other := record("r1", time.Time{})
	other.OwnerID = "u2"
	s.ErrorIs(s.store.Create(ctx, other), sentinel.ErrConflict)

	got, err := s.store.Get(ctx, "r1")
	s.Require().NoError(err)
	s.Equal("u1", got.OwnerID)
}
