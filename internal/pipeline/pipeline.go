// Package pipeline is the ordered gate every classified request passes
// through: session, rate limit, behavioral risk, content scan, policy and a
// final audit record, in that order. The first failing stage rejects the
// request and nothing after it runs.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sanctum/internal/behavior"
	"sanctum/internal/dlp"
	"sanctum/internal/policy"
	"sanctum/internal/ratelimit"
	"sanctum/internal/session"
	"sanctum/internal/session/device"
	dErrors "sanctum/pkg/domain-errors"
	"sanctum/pkg/platform/audit"
	"sanctum/pkg/platform/httputil"
	"sanctum/pkg/requestcontext"
)

// Request headers read by the pipeline.
const (
	HeaderAuthorization     = "Authorization"
	HeaderClassification    = "X-Data-Classification"
	HeaderResourceOwner     = "X-Resource-Owner"
	HeaderTwoFactorVerified = "X-Two-Factor-Verified"
)

// Rejection reasons added by the pipeline itself.
const (
	ReasonReauthRequired = "REAUTH_REQUIRED"
	ReasonRateExceeded   = "RATE_EXCEEDED"
	ReasonHighRiskAction = "HIGH_RISK_ACTION"
	ReasonDLPCeiling     = "DLP_RISK_CEILING"
	ReasonBodyTooLarge   = "BODY_TOO_LARGE"
)

const (
	stageSession   = "session"
	stageRateLimit = "rate_limit"
	stageBehavior  = "behavior"
	stageDLP       = "dlp"
	stagePolicy    = "policy"
	stageAudit     = "audit"
	stageHandler   = "handler"

	defaultDLPCeiling = 0.9
	tracerName        = "sanctum/pipeline"
)

type SessionValidator interface {
	ValidateToken(ctx context.Context, token string, attrs device.Attributes) (*session.ValidationResult, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) ratelimit.Result
}

type RiskScorer interface {
	RecordAndScore(ctx context.Context, principalID, action string, at time.Time) (*behavior.RiskAssessment, error)
}

type ContentScanner interface {
	Scan(content string) *dlp.Result
}

type Authorizer interface {
	Authorize(ctx context.Context, dataType string, op policy.Operation, subject policy.Subject) policy.Decision
}

type AuditLogger interface {
	Record(ctx context.Context, eventType audit.EventType, severity audit.Severity, details map[string]any) error
}

type Pipeline struct {
	sessions   SessionValidator
	limiter    RateLimiter
	risk       RiskScorer
	scanner    ContentScanner
	authorizer Authorizer
	audit      AuditLogger

	dlpCeiling float64
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

type Option func(*Pipeline)

// WithDLPCeiling sets the scan risk above which request bodies are refused.
func WithDLPCeiling(ceiling float64) Option {
	return func(p *Pipeline) { p.dlpCeiling = ceiling }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) { p.tracer = tp.Tracer(tracerName) }
}

func New(
	sessions SessionValidator,
	limiter RateLimiter,
	risk RiskScorer,
	scanner ContentScanner,
	authorizer Authorizer,
	auditLog AuditLogger,
	opts ...Option,
) (*Pipeline, error) {
	if sessions == nil || limiter == nil || risk == nil || scanner == nil || authorizer == nil || auditLog == nil {
		return nil, errors.New("pipeline requires a session validator, rate limiter, risk scorer, scanner, authorizer and audit log")
	}
	p := &Pipeline{
		sessions:   sessions,
		limiter:    limiter,
		risk:       risk,
		scanner:    scanner,
		authorizer: authorizer,
		audit:      auditLog,
		dlpCeiling: defaultDLPCeiling,
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dlpCeiling <= 0 || p.dlpCeiling > 1 {
		return nil, fmt.Errorf("DLP ceiling must be within (0,1], got %v", p.dlpCeiling)
	}
	return p, nil
}

// Guard returns middleware that runs the pipeline for op before next.
func (p *Pipeline) Guard(op policy.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p.serve(w, r, op, next)
		})
	}
}

func (p *Pipeline) serve(w http.ResponseWriter, r *http.Request, op policy.Operation, next http.Handler) {
	ctx := r.Context()
	sc := &SecurityContext{
		State:     StateEntered,
		RequestID: requestcontext.RequestID(ctx),
		DataType:  strings.TrimSpace(r.Header.Get(HeaderClassification)),
		Operation: op,
	}

	if !p.step(ctx, w, sc, stageSession, StateSessionChecked, func(ctx context.Context) error {
		return p.checkSession(ctx, r, sc)
	}) {
		return
	}
	ctx = requestcontext.WithPrincipalID(ctx, sc.PrincipalID)
	ctx = requestcontext.WithSessionID(ctx, sc.SessionID)
	ctx = requestcontext.WithTwoFactorVerified(ctx, sc.TwoFactorVerified)

	if !p.step(ctx, w, sc, stageBehavior, StateRiskScored, func(ctx context.Context) error {
		return p.scoreRisk(ctx, sc)
	}) {
		return
	}
	if !p.step(ctx, w, sc, stageDLP, StateDLPScanned, func(ctx context.Context) error {
		return p.scanContent(ctx, r, sc)
	}) {
		return
	}
	if !p.step(ctx, w, sc, stagePolicy, StatePolicyChecked, func(ctx context.Context) error {
		return p.authorize(ctx, sc)
	}) {
		return
	}
	if !p.step(ctx, w, sc, stageAudit, StateAudited, func(ctx context.Context) error {
		return p.recordOutcome(ctx, sc)
	}) {
		return
	}

	if p.cancelled(ctx, sc, stageHandler) {
		return
	}
	ctx, span := p.tracer.Start(WithSecurityContext(ctx, sc), "pipeline."+stageHandler)
	next.ServeHTTP(w, r.WithContext(ctx))
	span.End()
	if err := sc.advance(StateHandled); err != nil {
		p.logger.ErrorContext(ctx, "pipeline state fault after handler", "error", err)
	}
	p.metrics.incRequest("handled", stageHandler)
}

// step runs one stage in its own span. It returns false when the request must
// not continue, after the rejection (if any) has been written.
func (p *Pipeline) step(ctx context.Context, w http.ResponseWriter, sc *SecurityContext, name string, next State, fn func(context.Context) error) bool {
	if p.cancelled(ctx, sc, name) {
		return false
	}

	ctx, span := p.tracer.Start(ctx, "pipeline."+name, trace.WithAttributes(
		attribute.String("sanctum.data_type", sc.DataType),
		attribute.String("sanctum.operation", string(sc.Operation)),
	))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.metrics.observeStage(name, time.Since(start))

	if err == nil {
		err = sc.advance(next)
	}
	if err != nil {
		span.SetStatus(codes.Error, dErrors.ReasonOf(err))
		p.reject(ctx, w, sc, name, err)
		return false
	}

	span.SetStatus(codes.Ok, "")
	if name != stageAudit {
		p.record(ctx, audit.EventStagePassed, audit.SeverityInfo, map[string]any{
			"stage":        name,
			"state":        sc.State.String(),
			"principal_id": sc.PrincipalID,
		})
	}
	return true
}

func (p *Pipeline) cancelled(ctx context.Context, sc *SecurityContext, stage string) bool {
	if ctx.Err() == nil {
		return false
	}
	if err := sc.advance(StateRejected); err != nil {
		p.logger.ErrorContext(ctx, "pipeline state fault on cancellation", "error", err)
	}
	p.logger.DebugContext(ctx, "request cancelled in pipeline", "stage", stage, "error", ctx.Err())
	p.metrics.incRequest("cancelled", stage)
	return true
}

func (p *Pipeline) reject(ctx context.Context, w http.ResponseWriter, sc *SecurityContext, stage string, err error) {
	de, ok := dErrors.As(err)
	if !ok {
		de = dErrors.Wrap(err, dErrors.CodeInternal, "pipeline fault")
	}
	if advErr := sc.advance(StateRejected); advErr != nil {
		p.logger.ErrorContext(ctx, "pipeline state fault on rejection", "error", advErr)
	}
	sc.Rejection = de

	if dErrors.Exposed(de.Code) {
		p.logger.InfoContext(ctx, "request rejected",
			"stage", stage,
			"code", string(de.Code),
			"reason", de.Reason,
			"principal_id", sc.PrincipalID,
		)
	} else {
		p.logger.ErrorContext(ctx, "request failed in pipeline", "stage", stage, "error", err)
	}

	// The audit stage only fails when the log is unavailable.
	if stage != stageAudit {
		p.record(ctx, audit.EventRequestRejected, audit.SeverityInfo, map[string]any{
			"stage":     stage,
			"code":      string(de.Code),
			"reason":    de.Reason,
			"data_type": sc.DataType,
			"operation": string(sc.Operation),
		})
	}

	if de.Code == dErrors.CodeRateLimited {
		if secs, ok := de.Details["retry_after_seconds"].(int); ok {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
	}
	httputil.WriteError(w, de)
	p.metrics.incRequest("rejected", stage)
}

func (p *Pipeline) checkSession(ctx context.Context, r *http.Request, sc *SecurityContext) error {
	token, ok := BearerToken(r)
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "session token required").WithReason(session.ReasonInvalidToken)
	}
	result, err := p.sessions.ValidateToken(ctx, token, device.FromRequest(r))
	if err != nil {
		return err
	}
	if !result.Valid {
		return dErrors.New(dErrors.CodeUnauthorized, "session rejected").WithReason(result.Reason)
	}
	if result.RequiresReauth {
		return dErrors.New(dErrors.CodeUnauthorized, "re-authentication required").WithReason(ReasonReauthRequired)
	}

	sc.Session = result.Session
	sc.SessionID = result.Session.ID
	sc.PrincipalID = result.Session.PrincipalID
	sc.TwoFactorVerified, _ = strconv.ParseBool(r.Header.Get(HeaderTwoFactorVerified))
	sc.ResourceOwnerID = strings.TrimSpace(r.Header.Get(HeaderResourceOwner))
	if sc.ResourceOwnerID == "" {
		sc.ResourceOwnerID = sc.PrincipalID
	}

	_, span := p.tracer.Start(ctx, "pipeline."+stageRateLimit)
	defer span.End()
	limit := p.limiter.Allow(ctx, sc.PrincipalID)
	if !limit.Allowed {
		span.SetStatus(codes.Error, ReasonRateExceeded)
		p.record(ctx, audit.EventRateLimitExceeded, audit.SeverityInfo, map[string]any{
			"principal_id": sc.PrincipalID,
			"limit":        limit.Limit,
		})
		return dErrors.New(dErrors.CodeRateLimited, "too many requests").
			WithReason(ReasonRateExceeded).
			WithDetails(map[string]any{"retry_after_seconds": limit.RetryAfter})
	}
	return nil
}

func (p *Pipeline) scoreRisk(ctx context.Context, sc *SecurityContext) error {
	assessment, err := p.risk.RecordAndScore(ctx, sc.PrincipalID, actionName(sc.Operation, sc.DataType), requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	sc.Risk = assessment
	if assessment.RecommendedAction == behavior.ActionRequireAdditionalAuth {
		anomalies := make([]string, len(assessment.Anomalies))
		for i, a := range assessment.Anomalies {
			anomalies[i] = string(a)
		}
		return dErrors.New(dErrors.CodeForbidden, "additional authentication required").
			WithReason(ReasonHighRiskAction).
			WithDetails(map[string]any{"risk_level": assessment.RiskLevel, "anomalies": anomalies})
	}
	return nil
}

func (p *Pipeline) scanContent(ctx context.Context, r *http.Request, sc *SecurityContext) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, httputil.MaxBodyBytes+1))
	_ = r.Body.Close()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read request body")
	}
	if len(body) > httputil.MaxBodyBytes {
		return dErrors.New(dErrors.CodeValidation, "request body too large").WithReason(ReasonBodyTooLarge)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	if len(body) == 0 {
		return nil
	}

	result := p.scanner.Scan(scannableText(body))
	sc.Scan = result
	if !result.HasSensitiveData {
		return nil
	}

	details := map[string]any{
		"findings":        result.CountsByType(),
		"risk_level":      result.RiskLevel,
		"requires_review": result.RequiresReview,
		"data_type":       sc.DataType,
	}
	if result.RiskLevel > p.dlpCeiling {
		p.record(ctx, audit.EventSensitiveContentBlocked, audit.SeverityCritical, details)
		return dErrors.New(dErrors.CodeForbidden, "content exceeds the sensitive data ceiling").
			WithReason(ReasonDLPCeiling).
			WithDetails(map[string]any{"risk_level": result.RiskLevel})
	}
	p.record(ctx, audit.EventSensitiveContentDetected, audit.SeverityInfo, details)
	return nil
}

func (p *Pipeline) authorize(ctx context.Context, sc *SecurityContext) error {
	decision := p.authorizer.Authorize(ctx, sc.DataType, sc.Operation, policy.Subject{
		PrincipalID:       sc.PrincipalID,
		ResourceOwnerID:   sc.ResourceOwnerID,
		TwoFactorVerified: sc.TwoFactorVerified,
	})
	sc.Decision = &decision
	if decision.Allowed {
		return nil
	}
	if decision.Reason == policy.ReasonAuditUnavailable {
		return dErrors.New(dErrors.CodeInternal, "access decision could not be audited").WithReason(decision.Reason)
	}
	return dErrors.New(dErrors.CodeForbidden, "access denied").
		WithReason(decision.Reason).
		WithDetails(map[string]any{"data_type": sc.DataType})
}

func (p *Pipeline) recordOutcome(ctx context.Context, sc *SecurityContext) error {
	details := map[string]any{
		"data_type":  sc.DataType,
		"operation":  string(sc.Operation),
		"risk_level": sc.Risk.RiskLevel,
	}
	if sc.Scan != nil {
		details["dlp_risk_level"] = sc.Scan.RiskLevel
	}
	if err := p.audit.Record(ctx, audit.EventRequestAuthorized, audit.SeverityInfo, details); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit log unavailable").WithReason(policy.ReasonAuditUnavailable)
	}
	return nil
}

func (p *Pipeline) record(ctx context.Context, eventType audit.EventType, severity audit.Severity, details map[string]any) {
	if err := p.audit.Record(ctx, eventType, severity, details); err != nil {
		p.logger.ErrorContext(ctx, "failed to audit pipeline event",
			"error", err,
			"event_type", string(eventType),
		)
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get(HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// actionName is the behavior key for an operation on a data type, e.g. "read:sacred".
func actionName(op policy.Operation, dataType string) string {
	name := strings.ToLower(string(op))
	if dataType != "" {
		name += ":" + strings.ToLower(dataType)
	}
	return name
}

// scannableText returns what the scanner should see for body. A JSON body is
// reduced to its decoded keys, strings and numbers, one per line in key order, so escape
// sequences cannot hide an identifier. Anything else is scanned as is.
func scannableText(body []byte) string {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return string(body)
	}
	var values []string
	collectValues(v, &values)
	return strings.Join(values, "\n")
}

func collectValues(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		*out = append(*out, t)
	case json.Number:
		*out = append(*out, t.String())
	case []any:
		for _, item := range t {
			collectValues(item, out)
		}
	case map[string]any:
		for _, key := range slices.Sorted(maps.Keys(t)) {
			*out = append(*out, key)
			collectValues(t[key], out)
		}
	}
}
