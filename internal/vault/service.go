// Package vault stores classified records. Every read and write is authorized
// against the record's policy and its real owner before the cipher runs.
package vault

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"sanctum/internal/encryption"
	"sanctum/internal/policy"
	dErrors "sanctum/pkg/domain-errors"
	"sanctum/pkg/platform/audit"
	"sanctum/pkg/platform/sentinel"
	"sanctum/pkg/requestcontext"
)

const maxRecordIDLen = 128

type Store interface {
	// Create inserts rec only if no record has its ID, returning
	// sentinel.ErrConflict otherwise.
	Create(ctx context.Context, rec *StoredRecord) error
	// Put inserts or replaces the record with the same ID.
	Put(ctx context.Context, rec *StoredRecord) error
	Get(ctx context.Context, id string) (*StoredRecord, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes records past their retention deadline.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type Cipher interface {
	Encrypt(ctx context.Context, plaintext []byte, classification string) (*encryption.SensitiveRecord, error)
	Decrypt(ctx context.Context, record *encryption.SensitiveRecord) ([]byte, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, dataType string, op policy.Operation, subject policy.Subject) policy.Decision
	Rule(dataType string) (policy.Rule, bool)
}

type AuditLogger interface {
	Record(ctx context.Context, eventType audit.EventType, severity audit.Severity, details map[string]any) error
}

type Service struct {
	store      Store
	cipher     Cipher
	authorizer Authorizer
	audit      AuditLogger
	logger     *slog.Logger
}

type Option func(*Service)

func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, cipher Cipher, authorizer Authorizer, opts ...Option) (*Service, error) {
	if store == nil || cipher == nil || authorizer == nil {
		return nil, errors.New("vault requires a store, cipher and authorizer")
	}
	s := &Service{store: store, cipher: cipher, authorizer: authorizer, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Put seals plaintext and stores it under id. A new record is owned by the
// calling principal; an existing one keeps its owner and data type. When two
// callers create the same ID concurrently only one wins; the other gets a
// conflict.
func (s *Service) Put(ctx context.Context, id, dataType string, subject policy.Subject, plaintext []byte) (*StoredRecord, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	existing, err := s.load(ctx, id)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}
	rec := &StoredRecord{ID: id, DataType: dataType, OwnerID: subject.PrincipalID, CreatedAt: now}
	if existing != nil {
		if existing.DataType != dataType {
			return nil, dErrors.New(dErrors.CodeConflict, "record data type cannot change").WithReason("DATA_TYPE_MISMATCH")
		}
		rec.OwnerID = existing.OwnerID
		rec.CreatedAt = existing.CreatedAt
	}

	subject.ResourceOwnerID = rec.OwnerID
	rule, err := s.authorize(ctx, dataType, policy.OperationWrite, subject)
	if err != nil {
		return nil, err
	}

	sealed, err := s.cipher.Encrypt(ctx, plaintext, dataType)
	if err != nil {
		return nil, err
	}
	rec.Record = *sealed
	rec.UpdatedAt = now
	rec.RetentionDeadline = rule.RetentionDeadline(rec.CreatedAt)

	if err := s.save(ctx, rec, existing == nil); err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventRecordStored, rec)
	return rec, nil
}

// Get authorizes a read against the stored owner and returns the plaintext.
func (s *Service) Get(ctx context.Context, id string, subject policy.Subject) (*Opened, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	subject.ResourceOwnerID = rec.OwnerID
	if _, err := s.authorize(ctx, rec.DataType, policy.OperationRead, subject); err != nil {
		return nil, err
	}

	plaintext, err := s.cipher.Decrypt(ctx, &rec.Record)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventRecordAccessed, rec)
	return &Opened{
		ID:        rec.ID,
		DataType:  rec.DataType,
		OwnerID:   rec.OwnerID,
		Plaintext: plaintext,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (s *Service) Delete(ctx context.Context, id string, subject policy.Subject) error {
	rec, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	subject.ResourceOwnerID = rec.OwnerID
	if _, err := s.authorize(ctx, rec.DataType, policy.OperationDelete, subject); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete record")
	}
	s.record(ctx, audit.EventRecordDeleted, rec)
	return nil
}

func (s *Service) save(ctx context.Context, rec *StoredRecord, create bool) error {
	if !create {
		if err := s.store.Put(ctx, rec); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store record")
		}
		return nil
	}
	err := s.store.Create(ctx, rec)
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "record was created concurrently").WithReason("RECORD_EXISTS")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store record")
	}
	return nil
}

// Sweep deletes records past their retention deadline.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.store.DeleteExpired(ctx, requestcontext.Now(ctx))
}

// load returns the live record or a not-found error. A record found past its
// retention deadline is deleted on the spot.
func (s *Service) load(ctx context.Context, id string) (*StoredRecord, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}
	if rec.Expired(requestcontext.Now(ctx)) {
		if err := s.store.Delete(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete record past retention", "error", err, "record_id", id)
		}
		return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	return rec, nil
}

func (s *Service) authorize(ctx context.Context, dataType string, op policy.Operation, subject policy.Subject) (policy.Rule, error) {
	decision := s.authorizer.Authorize(ctx, dataType, op, subject)
	if !decision.Allowed {
		if decision.Reason == policy.ReasonAuditUnavailable {
			return policy.Rule{}, dErrors.New(dErrors.CodeInternal, "access decision could not be audited").WithReason(decision.Reason)
		}
		return policy.Rule{}, dErrors.New(dErrors.CodeForbidden, "access denied").WithReason(decision.Reason)
	}
	if decision.Rule != nil {
		return *decision.Rule, nil
	}
	rule, _ := s.authorizer.Rule(dataType)
	return rule, nil
}

func (s *Service) record(ctx context.Context, eventType audit.EventType, rec *StoredRecord) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, eventType, audit.SeverityInfo, map[string]any{
		"record_id":   rec.ID,
		"data_type":   rec.DataType,
		"owner_id":    rec.OwnerID,
		"key_version": rec.Record.Metadata.KeyVersion,
		"algorithm":   string(rec.Record.Metadata.Algorithm),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to audit record event", "error", err, "event_type", string(eventType))
	}
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > maxRecordIDLen {
		return dErrors.New(dErrors.CodeValidation, "record ID must be 1-128 characters")
	}
	return nil
}
