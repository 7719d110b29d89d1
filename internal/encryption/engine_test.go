package encryption

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "sanctum/pkg/domain-errors"
	"sanctum/pkg/platform/audit"
)

type auditCall struct {
	eventType audit.EventType
	severity  audit.Severity
	details   map[string]any
}

type fakeAudit struct {
	calls []auditCall
}

func (f *fakeAudit) Record(_ context.Context, t audit.EventType, s audit.Severity, d map[string]any) error {
	f.calls = append(f.calls, auditCall{t, s, d})
	return nil
}

func secret(s string) []byte { return []byte(s) }

type EngineSuite struct {
	suite.Suite
	audit  *fakeAudit
	engine *Engine
	ctx    context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.audit = &fakeAudit{}
	engine, err := New(secret("correct horse battery staple"), WithAuditLogger(s.audit))
	s.Require().NoError(err)
	s.engine = engine
	s.T().Cleanup(engine.Close)
}

func (s *EngineSuite) TestRoundTrip() {
	messages := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("journal entry: today was hard"),
		bytes.Repeat([]byte{0x00, 0xff}, 4096),
	}
	for _, m := range messages {
		rec, err := s.engine.Encrypt(s.ctx, m, "SACRED")
		s.Require().NoError(err)

		got, err := s.engine.Decrypt(s.ctx, rec)
		s.Require().NoError(err)
		s.Equal(len(m), len(got))
		s.True(bytes.Equal(m, got))
	}
	s.Empty(s.audit.calls)
}

func (s *EngineSuite) TestMetadata() {
	rec, err := s.engine.Encrypt(s.ctx, []byte("hello"), "PERSONAL")
	s.Require().NoError(err)

	s.Equal("PERSONAL", rec.Classification)
	s.Equal(AlgorithmAES256GCM, rec.Metadata.Algorithm)
	s.Len(rec.Metadata.IV, 12)
	s.Len(rec.Metadata.Checksum, 64)
	s.Equal(1, rec.Metadata.KeyVersion)
	s.False(rec.Metadata.Timestamp.IsZero())
}

func (s *EngineSuite) TestFreshIVPerCall() {
	seen := make(map[string]bool)
	var ciphertexts [][]byte
	for i := 0; i < 50; i++ {
		rec, err := s.engine.Encrypt(s.ctx, []byte("same plaintext"), "SACRED")
		s.Require().NoError(err)
		s.False(seen[string(rec.Metadata.IV)], "iv reused")
		seen[string(rec.Metadata.IV)] = true
		ciphertexts = append(ciphertexts, rec.Ciphertext)
	}
	s.NotEqual(ciphertexts[0], ciphertexts[1], "identical plaintexts must not produce identical ciphertexts")
}

func (s *EngineSuite) TestIVParameterizesCipher() {
	rec, err := s.engine.Encrypt(s.ctx, []byte("bound to its iv"), "SACRED")
	s.Require().NoError(err)

	other, err := s.engine.Encrypt(s.ctx, []byte("bound to its iv"), "SACRED")
	s.Require().NoError(err)

	rec.Metadata.IV = other.Metadata.IV
	_, err = s.engine.Decrypt(s.ctx, rec)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrDecryptionFailed))
}

func (s *EngineSuite) TestTamperedCiphertext() {
	rec, err := s.engine.Encrypt(s.ctx, []byte("do not alter"), "SACRED")
	s.Require().NoError(err)
	rec.Ciphertext[0] ^= 0x01

	plaintext, err := s.engine.Decrypt(s.ctx, rec)
	s.Require().Error(err)
	s.Nil(plaintext)
	s.True(dErrors.HasCode(err, dErrors.CodeIntegrity))
	s.True(errors.Is(err, ErrDecryptionFailed))
	s.Equal("DECRYPTION_FAILED", dErrors.ReasonOf(err))

	s.Require().Len(s.audit.calls, 1)
	s.Equal(audit.EventDecryptionFailed, s.audit.calls[0].eventType)
	s.Equal(audit.SeverityCritical, s.audit.calls[0].severity)
}

func (s *EngineSuite) TestTamperedChecksum() {
	rec, err := s.engine.Encrypt(s.ctx, []byte("do not alter"), "SACRED")
	s.Require().NoError(err)
	flipped := "0"
	if rec.Metadata.Checksum[0] == '0' {
		flipped = "1"
	}
	rec.Metadata.Checksum = flipped + rec.Metadata.Checksum[1:]

	plaintext, err := s.engine.Decrypt(s.ctx, rec)
	s.Require().Error(err)
	s.Nil(plaintext)
	s.True(dErrors.HasCode(err, dErrors.CodeIntegrity))
	s.True(errors.Is(err, ErrChecksumMismatch))
	s.Equal("CHECKSUM_MISMATCH", dErrors.ReasonOf(err))

	s.Require().Len(s.audit.calls, 1)
	s.Equal(audit.EventIntegrityFailed, s.audit.calls[0].eventType)
	s.Equal(audit.SeverityCritical, s.audit.calls[0].severity)
}

func (s *EngineSuite) TestClassificationIsBound() {
	rec, err := s.engine.Encrypt(s.ctx, []byte("sacred text"), "SACRED")
	s.Require().NoError(err)
	rec.Classification = "BEHAVIORAL"

	_, err = s.engine.Decrypt(s.ctx, rec)
	s.True(errors.Is(err, ErrDecryptionFailed))
}

func (s *EngineSuite) TestTruncatedIV() {
	rec, err := s.engine.Encrypt(s.ctx, []byte("x"), "SACRED")
	s.Require().NoError(err)
	rec.Metadata.IV = rec.Metadata.IV[:4]

	_, err = s.engine.Decrypt(s.ctx, rec)
	s.True(dErrors.HasCode(err, dErrors.CodeIntegrity))
}

func (s *EngineSuite) TestValidation() {
	s.Run("empty classification", func() {
		_, err := s.engine.Encrypt(s.ctx, []byte("x"), "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown key version", func() {
		rec, err := s.engine.Encrypt(s.ctx, []byte("x"), "SACRED")
		s.Require().NoError(err)
		rec.Metadata.KeyVersion = 99
		_, err = s.engine.Decrypt(s.ctx, rec)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("UNKNOWN_KEY_VERSION", dErrors.ReasonOf(err))
	})

	s.Run("short secret", func() {
		_, err := New(secret("short"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown algorithm", func() {
		_, err := New(secret("correct horse battery staple"), WithAlgorithm("rot13"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *EngineSuite) TestXChaCha20Poly1305() {
	engine, err := New(secret("correct horse battery staple"), WithAlgorithm(AlgorithmXChaCha20Poly1305))
	s.Require().NoError(err)
	defer engine.Close()

	rec, err := engine.Encrypt(s.ctx, []byte("extended nonce"), "PERSONAL")
	s.Require().NoError(err)
	s.Len(rec.Metadata.IV, 24)

	got, err := engine.Decrypt(s.ctx, rec)
	s.Require().NoError(err)
	s.Equal("extended nonce", string(got))
}

func (s *EngineSuite) TestSameSecretDerivesSameKey() {
	rec, err := s.engine.Encrypt(s.ctx, []byte("survives restart"), "SACRED")
	s.Require().NoError(err)

	restarted, err := New(secret("correct horse battery staple"))
	s.Require().NoError(err)
	defer restarted.Close()

	got, err := restarted.Decrypt(s.ctx, rec)
	s.Require().NoError(err)
	s.Equal("survives restart", string(got))
}

func (s *EngineSuite) TestKeyRotation() {
	rec, err := s.engine.Encrypt(s.ctx, []byte("written under v1"), "SACRED")
	s.Require().NoError(err)

	rotated, err := New(secret("a brand new master secret"),
		WithKeyVersion(2),
		WithPreviousKey(1, secret("correct horse battery staple")),
	)
	s.Require().NoError(err)
	defer rotated.Close()

	got, err := rotated.Decrypt(s.ctx, rec)
	s.Require().NoError(err)
	s.Equal("written under v1", string(got))

	fresh, err := rotated.Encrypt(s.ctx, []byte("written under v2"), "SACRED")
	s.Require().NoError(err)
	s.Equal(2, fresh.Metadata.KeyVersion)

	_, err = s.engine.Decrypt(s.ctx, fresh)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
