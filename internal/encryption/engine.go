// Package encryption implements authenticated encryption of classified payloads.
//
// Key material is derived once from the master secret with scrypt and a fixed
// salt (KDFSalt), then held in locked memory for the life of the process. Each
// Encrypt call draws a fresh random nonce that is passed to the AEAD and stored
// as Metadata.IV. The classification, algorithm and key version are bound as
// additional authenticated data, and an HMAC of the plaintext under a separate
// derived key is checked after the cipher's own tag.
package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	dErrors "sanctum/pkg/domain-errors"
	"sanctum/pkg/platform/audit"
	"sanctum/pkg/requestcontext"
)

// KDFSalt is the fixed, documented scrypt salt. Changing it changes every key.
const KDFSalt = "sanctum/field-encryption/v1"

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	cipherKeyLen = 32
	macKeyLen    = 32

	// MinSecretLength is enforced on every master secret.
	MinSecretLength = 16
)

var (
	// ErrDecryptionFailed means the AEAD rejected the ciphertext, IV or bound data.
	ErrDecryptionFailed = errors.New("cipher authentication failed")
	// ErrChecksumMismatch means the plaintext checksum did not match the metadata.
	ErrChecksumMismatch = errors.New("plaintext checksum mismatch")
)

// AuditLogger is the write-only audit sink.
type AuditLogger interface {
	Record(ctx context.Context, eventType audit.EventType, severity audit.Severity, details map[string]any) error
}

type keySet struct {
	material *memguard.LockedBuffer // cipher key || mac key
	aeads    map[Algorithm]cipher.AEAD
}

func (k *keySet) checksum(plaintext []byte) string {
	mac := hmac.New(sha256.New, k.material.Bytes()[cipherKeyLen:])
	mac.Write(plaintext)
	return hex.EncodeToString(mac.Sum(nil))
}

type Engine struct {
	algorithm Algorithm
	current   int
	keys      map[int]*keySet

	audit   AuditLogger
	logger  *slog.Logger
	metrics *Metrics

	previous map[int][]byte
}

type Option func(*Engine)

func WithAlgorithm(a Algorithm) Option {
	return func(e *Engine) { e.algorithm = a }
}

// WithKeyVersion sets the version stamped on new ciphertexts.
func WithKeyVersion(v int) Option {
	return func(e *Engine) { e.current = v }
}

// WithPreviousKey keeps an older master secret available for decryption.
func WithPreviousKey(version int, secret []byte) Option {
	return func(e *Engine) { e.previous[version] = secret }
}

func WithAuditLogger(a AuditLogger) Option {
	return func(e *Engine) { e.audit = a }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New derives key material from masterSecret. The caller's secret slices are
// wiped once copied into locked memory.
func New(masterSecret []byte, opts ...Option) (*Engine, error) {
	e := &Engine{
		algorithm: AlgorithmAES256GCM,
		current:   1,
		keys:      make(map[int]*keySet),
		logger:    slog.Default(),
		previous:  make(map[int][]byte),
	}
	for _, opt := range opts {
		opt(e)
	}
	if !e.algorithm.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unsupported algorithm "+string(e.algorithm))
	}
	if e.current <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "key version must be positive")
	}
	if _, clash := e.previous[e.current]; clash {
		return nil, dErrors.New(dErrors.CodeValidation, "previous key reuses the current key version")
	}

	ks, err := deriveKeySet(masterSecret)
	if err != nil {
		return nil, err
	}
	e.keys[e.current] = ks
	for version, secret := range e.previous {
		prev, err := deriveKeySet(secret)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("key version %d: %w", version, err)
		}
		e.keys[version] = prev
	}
	e.previous = nil
	return e, nil
}

func deriveKeySet(secret []byte) (*keySet, error) {
	if len(secret) < MinSecretLength {
		return nil, dErrors.New(dErrors.CodeValidation, "master secret must be at least "+strconv.Itoa(MinSecretLength)+" bytes")
	}
	derived, err := scrypt.Key(secret, []byte(KDFSalt), scryptN, scryptR, scryptP, cipherKeyLen+macKeyLen)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "derive key material")
	}
	memguard.WipeBytes(secret)

	material := memguard.NewBufferFromBytes(derived)
	cipherKey := material.Bytes()[:cipherKeyLen]

	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		material.Destroy()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "init aes")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		material.Destroy()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "init gcm")
	}
	xchacha, err := chacha20poly1305.NewX(cipherKey)
	if err != nil {
		material.Destroy()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "init xchacha20-poly1305")
	}
	material.Freeze()

	return &keySet{
		material: material,
		aeads: map[Algorithm]cipher.AEAD{
			AlgorithmAES256GCM:         gcm,
			AlgorithmXChaCha20Poly1305: xchacha,
		},
	}, nil
}

// Close destroys all key material. The engine is unusable afterwards.
func (e *Engine) Close() {
	for v, ks := range e.keys {
		ks.material.Destroy()
		delete(e.keys, v)
	}
}

func (e *Engine) KeyVersion() int { return e.current }

func (e *Engine) Algorithm() Algorithm { return e.algorithm }

// Encrypt seals plaintext for the given classification.
func (e *Engine) Encrypt(ctx context.Context, plaintext []byte, classification string) (*SensitiveRecord, error) {
	if classification == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "classification is required")
	}
	ks, ok := e.keys[e.current]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "encryption engine closed")
	}
	aead := ks.aeads[e.algorithm]

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		e.metrics.incOperation("encrypt", e.algorithm, "error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate iv")
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, additionalData(classification, e.algorithm, e.current))
	e.metrics.incOperation("encrypt", e.algorithm, "ok")

	return &SensitiveRecord{
		Classification: classification,
		Ciphertext:     ciphertext,
		Metadata: Metadata{
			Algorithm:  e.algorithm,
			IV:         nonce,
			Checksum:   ks.checksum(plaintext),
			Timestamp:  requestcontext.Now(ctx).UTC(),
			KeyVersion: e.current,
		},
	}, nil
}

// Decrypt opens a record. Both failure kinds carry CodeIntegrity, are audited
// as critical before returning, and never return plaintext.
func (e *Engine) Decrypt(ctx context.Context, record *SensitiveRecord) ([]byte, error) {
	if record == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "record is required")
	}
	meta := record.Metadata
	ks, ok := e.keys[meta.KeyVersion]
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown key version").WithReason("UNKNOWN_KEY_VERSION")
	}
	aead, ok := ks.aeads[meta.Algorithm]
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "unsupported algorithm").WithReason("UNSUPPORTED_ALGORITHM")
	}

	if len(meta.IV) != aead.NonceSize() {
		return nil, e.integrityFailure(ctx, record, audit.EventDecryptionFailed, ErrDecryptionFailed, "DECRYPTION_FAILED")
	}
	plaintext, err := aead.Open(nil, meta.IV, record.Ciphertext, additionalData(record.Classification, meta.Algorithm, meta.KeyVersion))
	if err != nil {
		return nil, e.integrityFailure(ctx, record, audit.EventDecryptionFailed, ErrDecryptionFailed, "DECRYPTION_FAILED")
	}

	if !hmac.Equal([]byte(ks.checksum(plaintext)), []byte(meta.Checksum)) {
		memguard.WipeBytes(plaintext)
		return nil, e.integrityFailure(ctx, record, audit.EventIntegrityFailed, ErrChecksumMismatch, "CHECKSUM_MISMATCH")
	}

	e.metrics.incOperation("decrypt", meta.Algorithm, "ok")
	return plaintext, nil
}

func (e *Engine) integrityFailure(ctx context.Context, record *SensitiveRecord, eventType audit.EventType, cause error, reason string) error {
	e.metrics.incOperation("decrypt", record.Metadata.Algorithm, "integrity_failure")
	e.logger.ErrorContext(ctx, "classified payload failed integrity verification",
		"reason", reason,
		"classification", record.Classification,
		"key_version", record.Metadata.KeyVersion,
		"request_id", requestcontext.RequestID(ctx),
	)
	if e.audit != nil {
		if err := e.audit.Record(ctx, eventType, audit.SeverityCritical, map[string]any{
			"reason":         reason,
			"classification": record.Classification,
			"algorithm":      string(record.Metadata.Algorithm),
			"key_version":    record.Metadata.KeyVersion,
		}); err != nil {
			e.logger.ErrorContext(ctx, "failed to audit integrity failure", "error", err)
		}
	}
	return dErrors.Wrap(cause, dErrors.CodeIntegrity, "integrity verification failed").WithReason(reason)
}

func additionalData(classification string, alg Algorithm, version int) []byte {
	return []byte("sanctum|" + classification + "|" + string(alg) + "|" + strconv.Itoa(version))
}
