// Package policy maps data types to handling rules and authorizes operations
// against them. The engine fails closed: a data type without a registered rule
// is always denied.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	dErrors "sanctum/pkg/domain-errors"
	"sanctum/pkg/platform/audit"
	"sanctum/pkg/requestcontext"
)

// AuditLogger is the write-only audit sink.
type AuditLogger interface {
	Record(ctx context.Context, eventType audit.EventType, severity audit.Severity, details map[string]any) error
}

type Engine struct {
	mu    sync.RWMutex
	rules map[string]Rule

	validate *validator.Validate
	audit    AuditLogger
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Engine)

func WithAuditLogger(a AuditLogger) Option {
	return func(e *Engine) { e.audit = a }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		rules:    make(map[string]Rule),
		validate: newValidator(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		r := sl.Current().Interface().(Rule)
		if r.RetentionDays > 0 && r.AnonymizationAfterDays > r.RetentionDays {
			sl.ReportError(r.AnonymizationAfterDays, "AnonymizationAfterDays", "anonymization_after_days", "ltefield", "RetentionDays")
		}
	}, Rule{})
	return v
}

// Validate checks a rule without registering it.
func (e *Engine) Validate(dataType string, rule Rule) error {
	if strings.TrimSpace(dataType) == "" {
		return dErrors.New(dErrors.CodeValidation, "data type is required")
	}
	if err := e.validate.Struct(rule); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("invalid policy for %q", dataType))
	}
	return nil
}

// Register adds or replaces the rule for dataType.
func (e *Engine) Register(dataType string, rule Rule) error {
	if err := e.Validate(dataType, rule); err != nil {
		return err
	}
	rule.AccessControls = slices.Clone(rule.AccessControls)

	e.mu.Lock()
	e.rules[dataType] = rule
	e.mu.Unlock()
	return nil
}

// Replace swaps the whole rule set. Nothing changes if any rule is invalid.
func (e *Engine) Replace(rules map[string]Rule) error {
	next := make(map[string]Rule, len(rules))
	for dataType, rule := range rules {
		if err := e.Validate(dataType, rule); err != nil {
			return err
		}
		rule.AccessControls = slices.Clone(rule.AccessControls)
		next[dataType] = rule
	}

	e.mu.Lock()
	e.rules = next
	e.mu.Unlock()
	return nil
}

func (e *Engine) Rule(dataType string) (Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rules[dataType]
	return r, ok
}

// DataTypes lists registered data types in sorted order.
func (e *Engine) DataTypes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Sorted(maps.Keys(e.rules))
}

// Authorize decides whether subject may perform op on dataType. Predicates
// run in declared order and the first failure short-circuits. Two-factor is
// checked after all predicates pass.
func (e *Engine) Authorize(ctx context.Context, dataType string, op Operation, subject Subject) Decision {
	rule, ok := e.Rule(dataType)
	if !ok {
		return e.finish(ctx, Decision{Reason: ReasonNoPolicyDefined, DataType: dataType}, op, subject)
	}
	decision := Decision{DataType: dataType, Rule: &rule}

	if !op.Valid() {
		decision.Reason = ReasonInvalidOperation
		return e.finish(ctx, decision, op, subject)
	}
	for _, p := range rule.AccessControls {
		if !evaluate(p, op, subject) {
			decision.Reason = ReasonAccessControlFailed + ":" + string(p)
			return e.finish(ctx, decision, op, subject)
		}
	}
	if rule.TwoFactorRequired && !subject.TwoFactorVerified {
		decision.Reason = ReasonTwoFactorRequired
		return e.finish(ctx, decision, op, subject)
	}

	decision.Allowed = true
	return e.finish(ctx, decision, op, subject)
}

func evaluate(p Predicate, op Operation, subject Subject) bool {
	switch p {
	case PredicateAuthenticated:
		return subject.PrincipalID != ""
	case PredicateOwnerOnly:
		return subject.PrincipalID != "" && subject.PrincipalID == subject.ResourceOwnerID
	case PredicateAnalyticsOnly:
		return op == OperationAggregate
	default:
		return false
	}
}

// finish audits the decision. A SACRED allow that cannot be audited is turned
// into a denial.
func (e *Engine) finish(ctx context.Context, d Decision, op Operation, subject Subject) Decision {
	sacred := d.Rule != nil && d.Rule.Classification == ClassificationSacred
	details := map[string]any{
		"data_type":    d.DataType,
		"operation":    string(op),
		"principal_id": subject.PrincipalID,
	}
	if d.Rule != nil {
		details["classification"] = string(d.Rule.Classification)
	}

	if !d.Allowed {
		details["reason"] = d.Reason
		severity := audit.SeverityInfo
		if sacred {
			severity = audit.SeverityCritical
		}
		e.metrics.incDecision(false, d.Reason)
		e.logger.InfoContext(ctx, "access denied",
			"data_type", d.DataType,
			"operation", string(op),
			"reason", d.Reason,
			"principal_id", subject.PrincipalID,
			"request_id", requestcontext.RequestID(ctx),
		)
		e.record(ctx, audit.EventAccessDenied, severity, details)
		return d
	}

	if sacred || d.Rule.AuditLevel == AuditLevelFull {
		if err := e.record(ctx, audit.EventAccessGranted, audit.SeverityInfo, details); err != nil {
			d.Allowed = false
			d.Reason = ReasonAuditUnavailable
			e.metrics.incDecision(false, d.Reason)
			return d
		}
	}
	e.metrics.incDecision(true, "")
	return d
}

func (e *Engine) record(ctx context.Context, eventType audit.EventType, severity audit.Severity, details map[string]any) error {
	if e.audit == nil {
		return nil
	}
	if err := e.audit.Record(ctx, eventType, severity, details); err != nil {
		e.logger.ErrorContext(ctx, "failed to audit policy decision",
			"error", err,
			"event_type", string(eventType),
		)
		return err
	}
	return nil
}
