// Package behavior scores each action against the principal's rolling history.
//
// Three signals are computed independently, each capped at its weight, then
// summed and clamped to 1.0: a burst of actions in the trailing window, access
// outside the normal local-time window, and deviation from the principal's
// established action mix once enough history exists.
package behavior

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	dErrors "sanctum/pkg/domain-errors"
	"sanctum/pkg/platform/audit"
	"sanctum/pkg/requestcontext"
)

const (
	burstWeight     = 0.5
	offHoursWeight  = 0.2
	deviationWeight = 0.3

	// deviationAnomaly is the deviation score at which PATTERN_DEVIATION is tagged.
	deviationAnomaly = 0.7

	requireAuthThreshold = 0.8
	monitorThreshold     = 0.5
)

// Store persists profiles. Update must run fn atomically per principal and
// may call it more than once on contention.
type Store interface {
	Update(ctx context.Context, principalID string, fn func(p *Profile) error) (*Profile, error)
	Get(ctx context.Context, principalID string) (*Profile, error)
	Sweep(ctx context.Context, idleBefore time.Time) (int, error)
}

// AuditLogger is the write-only audit sink.
type AuditLogger interface {
	Record(ctx context.Context, eventType audit.EventType, severity audit.Severity, details map[string]any) error
}

type Config struct {
	HistorySize    int
	BurstThreshold int
	BurstWindow    time.Duration
	// Normal hours are [WindowStart, WindowEnd) in Location. A start after the
	// end wraps past midnight.
	WindowStart int
	WindowEnd   int
	Location    *time.Location
	BaselineMin int
	IdleTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		HistorySize:    100,
		BurstThreshold: 20,
		BurstWindow:    60 * time.Second,
		WindowStart:    6,
		WindowEnd:      23,
		Location:       time.UTC,
		BaselineMin:    20,
		IdleTTL:        24 * time.Hour,
	}
}

func (c Config) validate() error {
	if c.HistorySize <= 0 || c.BurstThreshold <= 0 || c.BurstWindow <= 0 || c.BaselineMin <= 0 {
		return errors.New("history size, burst threshold, burst window and baseline must be positive")
	}
	if c.WindowStart < 0 || c.WindowStart > 23 || c.WindowEnd < 0 || c.WindowEnd > 24 {
		return errors.New("normal window hours out of range")
	}
	if c.WindowStart == c.WindowEnd%24 {
		return errors.New("normal window must not be empty")
	}
	if c.Location == nil {
		return errors.New("location is required")
	}
	return nil
}

type Analyzer struct {
	store   Store
	cfg     Config
	audit   AuditLogger
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Analyzer)

func WithAuditLogger(a AuditLogger) Option {
	return func(an *Analyzer) { an.audit = a }
}

func WithLogger(logger *slog.Logger) Option {
	return func(an *Analyzer) { an.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(an *Analyzer) { an.metrics = m }
}

func New(store Store, cfg Config, opts ...Option) (*Analyzer, error) {
	if store == nil {
		return nil, errors.New("profile store is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid behavior config: %w", err)
	}
	a := &Analyzer{
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// RecordAndScore appends the action to the principal's history and scores it.
// A REQUIRE_ADDITIONAL_AUTH outcome is always audited as critical; if that
// write fails the assessment is withheld.
func (a *Analyzer) RecordAndScore(ctx context.Context, principalID, action string, at time.Time) (*RiskAssessment, error) {
	if principalID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "principal ID is required")
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "action is required")
	}
	if at.IsZero() {
		at = requestcontext.Now(ctx)
	}

	var assessment *RiskAssessment
	_, err := a.store.Update(ctx, principalID, func(p *Profile) error {
		assessment = a.score(p, action, at)
		p.Append(Event{Action: action, At: at}, a.cfg.HistorySize)
		assessment.EventsInWindow = p.CountSince(at.Add(-a.cfg.BurstWindow), at)
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update behavior profile")
	}
	a.metrics.observe(assessment)

	switch assessment.RecommendedAction {
	case ActionRequireAdditionalAuth:
		a.logger.WarnContext(ctx, "high-risk behavior detected",
			"principal_id", principalID,
			"action", action,
			"risk_level", assessment.RiskLevel,
			"anomalies", assessment.Anomalies,
			"request_id", requestcontext.RequestID(ctx),
		)
		if a.audit != nil {
			if err := a.audit.Record(ctx, audit.EventHighRiskBehavior, audit.SeverityCritical, map[string]any{
				"principal_id":       principalID,
				"action":             action,
				"risk_level":         assessment.RiskLevel,
				"anomalies":          anomalyNames(assessment.Anomalies),
				"recommended_action": string(assessment.RecommendedAction),
			}); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit high-risk behavior")
			}
		}
	case ActionMonitor:
		a.logger.InfoContext(ctx, "behavior flagged for monitoring",
			"principal_id", principalID,
			"risk_level", assessment.RiskLevel,
			"anomalies", assessment.Anomalies,
		)
	}
	return assessment, nil
}

// score evaluates action at time at against p, which does not yet contain it.
func (a *Analyzer) score(p *Profile, action string, at time.Time) *RiskAssessment {
	r := &RiskAssessment{PrincipalID: p.PrincipalID, Action: action, Anomalies: []Anomaly{}}

	// The current event counts toward the burst.
	inWindow := p.CountSince(at.Add(-a.cfg.BurstWindow), at) + 1
	if inWindow > a.cfg.BurstThreshold {
		r.Signals.Burst = burstWeight
		r.Anomalies = append(r.Anomalies, AnomalyRapidActionSequence)
	}

	if !a.withinNormalHours(at) {
		r.Signals.OffHours = offHoursWeight
		r.Anomalies = append(r.Anomalies, AnomalyUnusualTimeAccess)
	}

	if p.BaselineEstablished(a.cfg.BaselineMin) {
		deviation := patternDeviation(p.Events, action)
		r.Signals.Deviation = deviationWeight * deviation
		if deviation >= deviationAnomaly {
			r.Anomalies = append(r.Anomalies, AnomalyPatternDeviation)
		}
	}

	r.RiskLevel = math.Min(1.0, r.Signals.Burst+r.Signals.OffHours+r.Signals.Deviation)
	r.RecommendedAction = recommend(r.RiskLevel)
	return r
}

func (a *Analyzer) withinNormalHours(at time.Time) bool {
	hour := at.In(a.cfg.Location).Hour()
	start, end := a.cfg.WindowStart, a.cfg.WindowEnd
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// patternDeviation is 1 - share(action)/maxShare over history, in [0,1]. An
// action never seen scores 1; the principal's most common action scores 0.
func patternDeviation(history []Event, action string) float64 {
	if len(history) == 0 {
		return 0
	}
	counts := make(map[string]int)
	maxCount := 0
	for _, e := range history {
		counts[e.Action]++
		maxCount = max(maxCount, counts[e.Action])
	}
	return 1 - float64(counts[action])/float64(maxCount)
}

func recommend(risk float64) RecommendedAction {
	switch {
	case risk >= requireAuthThreshold:
		return ActionRequireAdditionalAuth
	case risk >= monitorThreshold:
		return ActionMonitor
	default:
		return ActionAllow
	}
}

// Profile returns a copy of the principal's current profile.
func (a *Analyzer) Profile(ctx context.Context, principalID string) (*Profile, error) {
	return a.store.Get(ctx, principalID)
}

// Sweep evicts profiles idle for longer than the configured TTL.
func (a *Analyzer) Sweep(ctx context.Context) (int, error) {
	n, err := a.store.Sweep(ctx, requestcontext.Now(ctx).Add(-a.cfg.IdleTTL))
	if err != nil {
		return 0, fmt.Errorf("sweep behavior profiles: %w", err)
	}
	a.metrics.addEvicted(n)
	return n, nil
}

func anomalyNames(as []Anomaly) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = string(a)
	}
	return out
}
