// Package session implements zero-trust session validation. No session is
// trusted by ID alone: every request re-checks freshness, the device
// fingerprint and the transport security score.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	jwttoken "sanctum/internal/jwt_token"
	"sanctum/internal/session/device"
	dErrors "sanctum/pkg/domain-errors"
	"sanctum/pkg/platform/audit"
	"sanctum/pkg/platform/sentinel"
	"sanctum/pkg/requestcontext"
)

const (
	noTLSPenalty     = 0.2
	noAgentPenalty   = 0.4
	evictionReason   = "CONCURRENT_LIMIT"
	tokenIssuer      = "sanctum"
	tokenAudience    = "sanctum-session"
	minSigningKeyLen = 32
)

// Store owns session state. Implementations must serialize Execute and Create
// per session and per principal respectively.
type Store interface {
	// Create stores sess after removing the principal's sessions for which live
	// returns false, then evicting the oldest until fewer than maxActive remain.
	// It returns the evicted live sessions.
	Create(ctx context.Context, sess *Session, maxActive int, live func(*Session) bool) ([]*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	// Execute runs fn on the stored session under its lock and applies the
	// returned mutation. It returns the session as fn left it.
	Execute(ctx context.Context, id string, fn func(*Session) (Mutation, error)) (*Session, error)
	Delete(ctx context.Context, id string) error
	ListByPrincipal(ctx context.Context, principalID string) ([]*Session, error)
	// Sweep removes sessions for which expired returns true.
	Sweep(ctx context.Context, expired func(*Session) bool) ([]*Session, error)
}

// AuditLogger is the write-only audit sink.
type AuditLogger interface {
	Record(ctx context.Context, eventType audit.EventType, severity audit.Severity, details map[string]any) error
}

type Config struct {
	RotationInterval time.Duration
	TokenTTL         time.Duration
	MaxConcurrent    int
	ScoreThreshold   float64
	SigningKey       []byte
}

func DefaultConfig() Config {
	return Config{
		RotationInterval: 15 * time.Minute,
		TokenTTL:         12 * time.Hour,
		MaxConcurrent:    3,
		ScoreThreshold:   0.5,
	}
}

type Guard struct {
	store   Store
	cfg     Config
	tokens  *jwttoken.JWTService
	audit   AuditLogger
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Guard)

func WithAuditLogger(a AuditLogger) Option {
	return func(g *Guard) { g.audit = a }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

func New(store Store, cfg Config, opts ...Option) (*Guard, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.RotationInterval <= 0 || cfg.TokenTTL <= 0 || cfg.MaxConcurrent <= 0 {
		return nil, errors.New("rotation interval, token TTL and max concurrent sessions must be positive")
	}
	if cfg.ScoreThreshold < 0 || cfg.ScoreThreshold > 1 {
		return nil, errors.New("score threshold must be within [0,1]")
	}
	if len(cfg.SigningKey) < minSigningKeyLen {
		return nil, fmt.Errorf("session signing key must be at least %d bytes", minSigningKeyLen)
	}
	g := &Guard{
		store:  store,
		cfg:    cfg,
		tokens: jwttoken.NewJWTService(cfg.SigningKey, tokenIssuer, tokenAudience),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// SecurityScore starts at 1.0 and is reduced for a non-confidential transport
// and for a missing user agent.
func SecurityScore(a device.Attributes) float64 {
	score := 1.0
	if !a.Confidential {
		score -= noTLSPenalty
	}
	if a.UserAgent == "" {
		score -= noAgentPenalty
	}
	return min(1, max(0, score))
}

// CreateSession opens a session for principalID bound to the requesting
// device and returns it with its bearer token.
func (g *Guard) CreateSession(ctx context.Context, principalID string, attrs device.Attributes) (*Session, string, error) {
	if principalID == "" {
		return nil, "", dErrors.New(dErrors.CodeValidation, "principal ID is required")
	}
	now := requestcontext.Now(ctx)
	sess := &Session{
		ID:                uuid.NewString(),
		PrincipalID:       principalID,
		DeviceFingerprint: device.Fingerprint(attrs),
		DeviceName:        device.ParseUserAgent(attrs.UserAgent),
		CreatedAt:         now,
		LastActivity:      now,
		SecurityScore:     SecurityScore(attrs),
		Location:          attrs.Location,
		IPAddress:         attrs.ClientIP,
	}

	evicted, err := g.store.Create(ctx, sess, g.cfg.MaxConcurrent, func(s *Session) bool {
		return !s.Expired(now, g.cfg.RotationInterval)
	})
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	for _, old := range evicted {
		g.metrics.incEvicted()
		g.record(ctx, audit.EventSessionEvicted, audit.SeverityInfo, map[string]any{
			"principal_id": principalID,
			"session_id":   old.ID,
			"reason":       evictionReason,
		})
	}

	token, err := g.tokens.GenerateSessionToken(principalID, sess.ID, now, g.cfg.TokenTTL)
	if err != nil {
		if delErr := g.store.Delete(ctx, sess.ID); delErr != nil {
			g.logger.ErrorContext(ctx, "failed to remove session after token failure", "error", delErr, "session_id", sess.ID)
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session token")
	}

	g.metrics.incCreated()
	g.record(ctx, audit.EventSessionCreated, audit.SeverityInfo, map[string]any{
		"principal_id":   principalID,
		"session_id":     sess.ID,
		"device_name":    sess.DeviceName,
		"security_score": sess.SecurityScore,
	})
	return sess, token, nil
}

// ValidateSession re-checks a session against the current request. Invalid
// sessions are reported through the result, not an error; errors mean the
// check itself could not run.
func (g *Guard) ValidateSession(ctx context.Context, sessionID string, attrs device.Attributes) (*ValidationResult, error) {
	if sessionID == "" {
		return g.outcome(invalid(ReasonNotFound)), nil
	}
	now := requestcontext.Now(ctx)
	fingerprint := device.Fingerprint(attrs)

	var reason string
	sess, err := g.store.Execute(ctx, sessionID, func(s *Session) (Mutation, error) {
		reason = ""
		if s.Expired(now, g.cfg.RotationInterval) {
			reason = ReasonExpired
			return MutationDelete, nil
		}
		if !device.Match(s.DeviceFingerprint, fingerprint) {
			reason = ReasonDeviceMismatch
			return MutationDelete, nil
		}
		s.Touch(now)
		s.SecurityScore = SecurityScore(attrs)
		if attrs.ClientIP != "" {
			s.IPAddress = attrs.ClientIP
		}
		return MutationSave, nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return g.outcome(invalid(ReasonNotFound)), nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate session")
	}

	switch reason {
	case ReasonExpired:
		g.record(ctx, audit.EventSessionExpired, audit.SeverityInfo, map[string]any{
			"principal_id":  sess.PrincipalID,
			"session_id":    sess.ID,
			"last_activity": sess.LastActivity,
		})
		return g.outcome(invalid(ReasonExpired)), nil

	case ReasonDeviceMismatch:
		g.logger.WarnContext(ctx, "session device fingerprint mismatch",
			"principal_id", sess.PrincipalID,
			"session_id", sess.ID,
			"client_ip", attrs.ClientIP,
			"request_id", requestcontext.RequestID(ctx),
		)
		g.record(ctx, audit.EventSessionDeviceMismatch, audit.SeverityCritical, map[string]any{
			"principal_id": sess.PrincipalID,
			"session_id":   sess.ID,
			"device_name":  sess.DeviceName,
			"client_ip":    attrs.ClientIP,
		})
		return g.outcome(invalid(ReasonDeviceMismatch)), nil
	}

	result := &ValidationResult{
		Valid:          true,
		Session:        sess,
		RequiresReauth: g.RequiresReauth(sess),
	}
	if result.RequiresReauth {
		g.record(ctx, audit.EventSessionReauthRequired, audit.SeverityInfo, map[string]any{
			"principal_id":   sess.PrincipalID,
			"session_id":     sess.ID,
			"security_score": sess.SecurityScore,
		})
	}
	return g.outcome(result), nil
}

// RequiresReauth reports whether the session's security score is below the
// configured threshold.
func (g *Guard) RequiresReauth(s *Session) bool {
	return s.SecurityScore < g.cfg.ScoreThreshold
}

// IdleTimeout is how long a session survives without activity.
func (g *Guard) IdleTimeout() time.Duration { return g.cfg.RotationInterval }

// ValidateToken verifies a bearer token and validates the session it names.
func (g *Guard) ValidateToken(ctx context.Context, token string, attrs device.Attributes) (*ValidationResult, error) {
	claims, err := g.tokens.ValidateToken(token, requestcontext.Now(ctx))
	if err != nil {
		return g.outcome(invalid(ReasonInvalidToken)), nil
	}
	result, err := g.ValidateSession(ctx, claims.SessionID, attrs)
	if err != nil {
		return nil, err
	}
	if result.Valid && result.Session.PrincipalID != claims.Subject {
		g.logger.WarnContext(ctx, "session token subject does not match session owner", "session_id", claims.SessionID)
		return g.outcome(invalid(ReasonInvalidToken)), nil
	}
	return result, nil
}

// ListSessions returns the principal's sessions, oldest first.
func (g *Guard) ListSessions(ctx context.Context, principalID string) ([]*Session, error) {
	if principalID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "principal ID required")
	}
	sessions, err := g.store.ListByPrincipal(ctx, principalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}
	slices.SortFunc(sessions, func(a, b *Session) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return sessions, nil
}

// RevokeSession deletes one of the principal's own sessions. Ownership is
// checked under the session's lock.
func (g *Guard) RevokeSession(ctx context.Context, principalID, sessionID string) error {
	if principalID == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "principal ID required")
	}
	if sessionID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "session ID required")
	}

	_, err := g.store.Execute(ctx, sessionID, func(s *Session) (Mutation, error) {
		if s.PrincipalID != principalID {
			return MutationNone, dErrors.New(dErrors.CodeForbidden, "forbidden")
		}
		return MutationDelete, nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeForbidden) {
			g.logger.WarnContext(ctx, "session revoke by non-owner", "principal_id", principalID, "session_id", sessionID)
			return err
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke session")
	}

	g.record(ctx, audit.EventSessionRevoked, audit.SeverityInfo, map[string]any{
		"principal_id": principalID,
		"session_id":   sessionID,
	})
	return nil
}

// Sweep removes sessions idle past the rotation interval.
func (g *Guard) Sweep(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	removed, err := g.store.Sweep(ctx, func(s *Session) bool {
		return s.Expired(now, g.cfg.RotationInterval)
	})
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	for _, s := range removed {
		g.record(ctx, audit.EventSessionExpired, audit.SeverityInfo, map[string]any{
			"principal_id": s.PrincipalID,
			"session_id":   s.ID,
			"swept":        true,
		})
	}
	g.metrics.addSwept(len(removed))
	return len(removed), nil
}

func (g *Guard) outcome(r *ValidationResult) *ValidationResult {
	g.metrics.incValidation(r)
	return r
}

func (g *Guard) record(ctx context.Context, eventType audit.EventType, severity audit.Severity, details map[string]any) {
	if g.audit == nil {
		return
	}
	if err := g.audit.Record(ctx, eventType, severity, details); err != nil {
		g.logger.ErrorContext(ctx, "failed to audit session event",
			"error", err,
			"event_type", string(eventType),
		)
	}
}
