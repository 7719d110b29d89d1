package vault_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sanctum/internal/encryption"
	"sanctum/internal/policy"
	"sanctum/internal/vault"
	"sanctum/internal/vault/store/memory"
	dErrors "sanctum/pkg/domain-errors"
	"sanctum/pkg/platform/audit"
	auditmemory "sanctum/pkg/platform/audit/store/memory"
	"sanctum/pkg/requestcontext"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type VaultSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.InMemoryStore
	auditLog *auditmemory.InMemoryStore
	engine   *encryption.Engine
	vault    *vault.Service
}

func TestVaultSuite(t *testing.T) {
	suite.Run(t, new(VaultSuite))
}

func (s *VaultSuite) SetupSuite() {
	engine, err := encryption.New([]byte("vault test master secret"))
	s.Require().NoError(err)
	s.engine = engine
}

func (s *VaultSuite) TearDownSuite() {
	s.engine.Close()
}

func (s *VaultSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), t0)
	s.store = memory.NewInMemoryStore()
	s.auditLog = auditmemory.NewInMemoryStore()
	log, err := audit.New(s.auditLog)
	s.Require().NoError(err)

	policies := policy.New(policy.WithAuditLogger(log))
	s.Require().NoError(policies.Replace(policy.DefaultRules()))

	s.vault, err = vault.New(s.store, s.engine, policies, vault.WithAuditLogger(log))
	s.Require().NoError(err)
}

func owner(id string) policy.Subject {
	return policy.Subject{PrincipalID: id}
}

func (s *VaultSuite) TestPutThenGet() {
	rec, err := s.vault.Put(s.ctx, "r1", "personal", owner("u1"), []byte("my address"))
	s.Require().NoError(err)
	s.Equal("u1", rec.OwnerID)
	s.Equal(t0.AddDate(0, 0, 365), rec.RetentionDeadline)
	s.NotContains(string(rec.Record.Ciphertext), "my address")

	opened, err := s.vault.Get(s.ctx, "r1", owner("u1"))
	s.Require().NoError(err)
	s.Equal([]byte("my address"), opened.Plaintext)
	s.Equal("personal", opened.DataType)

	stored, err := s.auditLog.ListByType(s.ctx, audit.EventRecordStored)
	s.Require().NoError(err)
	s.Len(stored, 1)
	accessed, err := s.auditLog.ListByType(s.ctx, audit.EventRecordAccessed)
	s.Require().NoError(err)
	s.Len(accessed, 1)
}

func (s *VaultSuite) TestOtherPrincipalIsDenied() {
	_, err := s.vault.Put(s.ctx, "r1", "personal", owner("u1"), []byte("mine"))
	s.Require().NoError(err)

	// A forged owner claim does not help: the stored owner is authoritative.
	_, err = s.vault.Get(s.ctx, "r1", policy.Subject{PrincipalID: "u2", ResourceOwnerID: "u2"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal("ACCESS_CONTROL_FAILED:OWNER_ONLY", dErrors.ReasonOf(err))

	_, err = s.vault.Put(s.ctx, "r1", "personal", owner("u2"), []byte("overwrite"))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	err = s.vault.Delete(s.ctx, "r1", owner("u2"))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	opened, err := s.vault.Get(s.ctx, "r1", owner("u1"))
	s.Require().NoError(err)
	s.Equal([]byte("mine"), opened.Plaintext)
}

func (s *VaultSuite) TestSacredNeedsTwoFactor() {
	_, err := s.vault.Put(s.ctx, "j1", "sacred", owner("u1"), []byte("journal"))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal(policy.ReasonTwoFactorRequired, dErrors.ReasonOf(err))

	verified := policy.Subject{PrincipalID: "u1", TwoFactorVerified: true}
	rec, err := s.vault.Put(s.ctx, "j1", "sacred", verified, []byte("journal"))
	s.Require().NoError(err)
	s.True(rec.RetentionDeadline.IsZero(), "sacred records have no retention limit")

	_, err = s.vault.Get(s.ctx, "j1", owner("u1"))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	opened, err := s.vault.Get(s.ctx, "j1", verified)
	s.Require().NoError(err)
	s.Equal([]byte("journal"), opened.Plaintext)
}

func (s *VaultSuite) TestUpdateKeepsOwnerAndCreation() {
	_, err := s.vault.Put(s.ctx, "r1", "personal", owner("u1"), []byte("v1"))
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), t0.Add(time.Hour))
	rec, err := s.vault.Put(later, "r1", "personal", owner("u1"), []byte("v2"))
	s.Require().NoError(err)
	s.Equal(t0, rec.CreatedAt)
	s.Equal(t0.Add(time.Hour), rec.UpdatedAt)

	_, err = s.vault.Put(later, "r1", "sacred", policy.Subject{PrincipalID: "u1", TwoFactorVerified: true}, []byte("v3"))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	opened, err := s.vault.Get(later, "r1", owner("u1"))
	s.Require().NoError(err)
	s.Equal([]byte("v2"), opened.Plaintext)
}

func (s *VaultSuite) TestUnknownDataTypeFailsClosed() {
	_, err := s.vault.Put(s.ctx, "r1", "genome", owner("u1"), []byte("ACGT"))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal(policy.ReasonNoPolicyDefined, dErrors.ReasonOf(err))

	_, err = s.store.Get(s.ctx, "r1")
	s.Error(err, "nothing is stored for a denied write")
}

func (s *VaultSuite) TestRetention() {
	_, err := s.vault.Put(s.ctx, "r1", "personal", owner("u1"), []byte("old"))
	s.Require().NoError(err)
	_, err = s.vault.Put(s.ctx, "r2", "personal", owner("u1"), []byte("old too"))
	s.Require().NoError(err)

	expired := requestcontext.WithTime(context.Background(), t0.AddDate(0, 0, 366))
	_, err = s.vault.Get(expired, "r1", owner("u1"))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	n, err := s.vault.Sweep(expired)
	s.Require().NoError(err)
	s.Equal(1, n, "r1 was already removed on read")
}

func (s *VaultSuite) TestDelete() {
	_, err := s.vault.Put(s.ctx, "r1", "personal", owner("u1"), []byte("bye"))
	s.Require().NoError(err)

	s.Require().NoError(s.vault.Delete(s.ctx, "r1", owner("u1")))
	_, err = s.vault.Get(s.ctx, "r1", owner("u1"))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.vault.Delete(s.ctx, "r1", owner("u1"))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *VaultSuite) TestTamperedRecordIsIntegrityError() {
	_, err := s.vault.Put(s.ctx, "r1", "personal", owner("u1"), []byte("intact"))
	s.Require().NoError(err)

	rec, err := s.store.Get(s.ctx, "r1")
	s.Require().NoError(err)
	rec.Record.Ciphertext[0] ^= 0xff
	s.Require().NoError(s.store.Put(s.ctx, rec))

	_, err = s.vault.Get(s.ctx, "r1", owner("u1"))
	s.True(dErrors.HasCode(err, dErrors.CodeIntegrity))
}

func (s *VaultSuite) TestValidation() {
	_, err := s.vault.Put(s.ctx, " ", "personal", owner("u1"), []byte("x"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = vault.New(nil, s.engine, policy.New())
	s.Error(err)
}

// lockstepStore holds the first two reads, after they have run, until both
// writers have looked up the ID, so both see it as absent before either writes.
type lockstepStore struct {
	*memory.InMemoryStore
	reads   atomic.Int32
	arrived sync.WaitGroup
}

func newLockstepStore(writers int) *lockstepStore {
	st := &lockstepStore{InMemoryStore: memory.NewInMemoryStore()}
	st.arrived.Add(writers)
	return st
}

func (l *lockstepStore) Get(ctx context.Context, id string) (*vault.StoredRecord, error) {
	rec, err := l.InMemoryStore.Get(ctx, id)
	if l.reads.Add(1) <= 2 {
		l.arrived.Done()
		l.arrived.Wait()
	}
	return rec, err
}

func (s *VaultSuite) TestConcurrentCreateHasOneOwner() {
	store := newLockstepStore(2)
	log, err := audit.New(auditmemory.NewInMemoryStore())
	s.Require().NoError(err)
	policies := policy.New(policy.WithAuditLogger(log))
	s.Require().NoError(policies.Replace(policy.DefaultRules()))
	svc, err := vault.New(store, s.engine, policies, vault.WithAuditLogger(log))
	s.Require().NoError(err)

	principals := []string{"alice", "mallory"}
	errs := make([]error, len(principals))
	var wg sync.WaitGroup
	for i, id := range principals {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Put(s.ctx, "shared", "personal", owner(id), []byte("written by "+id))
		}()
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			s.Require().Equal(-1, winner, "only one create may succeed")
			winner = i
			continue
		}
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), err)
		s.Equal("RECORD_EXISTS", dErrors.ReasonOf(err))
	}
	s.Require().NotEqual(-1, winner)

	rec, err := store.InMemoryStore.Get(s.ctx, "shared")
	s.Require().NoError(err)
	s.Equal(principals[winner], rec.OwnerID)

	loser := principals[1-winner]
	_, err = svc.Get(s.ctx, "shared", owner(loser))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
