package behavior_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"sanctum/internal/behavior"
	"sanctum/internal/behavior/store/memory"
	dErrors "sanctum/pkg/domain-errors"
	"sanctum/pkg/platform/audit"
	auditmemory "sanctum/pkg/platform/audit/store/memory"
	"sanctum/pkg/requestcontext"
)

var noon = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("unavailable") }

type AnalyzerSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.InMemoryStore
	auditLog *auditmemory.InMemoryStore
	metrics  *behavior.Metrics
	analyzer *behavior.Analyzer
}

func TestAnalyzerSuite(t *testing.T) {
	suite.Run(t, new(AnalyzerSuite))
}

func (s *AnalyzerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewInMemoryStore(24 * time.Hour)
	s.auditLog = auditmemory.NewInMemoryStore()
	log, err := audit.New(s.auditLog)
	s.Require().NoError(err)
	s.metrics = behavior.NewMetrics(prometheus.NewRegistry())
	s.analyzer = s.newAnalyzer(behavior.DefaultConfig(), log)
}

func (s *AnalyzerSuite) newAnalyzer(cfg behavior.Config, log behavior.AuditLogger) *behavior.Analyzer {
	a, err := behavior.New(s.store, cfg, behavior.WithAuditLogger(log), behavior.WithMetrics(s.metrics))
	s.Require().NoError(err)
	return a
}

func (s *AnalyzerSuite) record(principal, action string, at time.Time) *behavior.RiskAssessment {
	r, err := s.analyzer.RecordAndScore(s.ctx, principal, action, at)
	s.Require().NoError(err)
	return r
}

// spread records n actions two minutes apart so no burst builds up.
func (s *AnalyzerSuite) spread(principal, action string, n int, start time.Time) time.Time {
	at := start
	for range n {
		s.record(principal, action, at)
		at = at.Add(2 * time.Minute)
	}
	return at
}

func (s *AnalyzerSuite) TestFirstActionIsAllowed() {
	r := s.record("u1", "journal.read", noon)
	s.Equal(0.0, r.RiskLevel)
	s.Empty(r.Anomalies)
	s.Equal(behavior.ActionAllow, r.RecommendedAction)
	s.Equal(1, r.EventsInWindow)
}

func (s *AnalyzerSuite) TestBurstThreshold() {
	var last *behavior.RiskAssessment
	for i := range 20 {
		last = s.record("u1", "journal.read", noon.Add(time.Duration(i)*time.Second))
	}
	s.False(last.HasAnomaly(behavior.AnomalyRapidActionSequence), "20 events is at the threshold, not over it")

	r := s.record("u1", "journal.read", noon.Add(20*time.Second))
	s.True(r.HasAnomaly(behavior.AnomalyRapidActionSequence))
	s.Equal(0.5, r.Signals.Burst)
	s.Equal(0.0, r.Signals.Deviation)
	s.Equal(behavior.ActionMonitor, r.RecommendedAction)
	s.Equal(21, r.EventsInWindow)
}

func (s *AnalyzerSuite) TestBurstWindowSlides() {
	for i := range 21 {
		s.record("u1", "journal.read", noon.Add(time.Duration(i)*time.Second))
	}
	r := s.record("u1", "journal.read", noon.Add(2*time.Minute))
	s.False(r.HasAnomaly(behavior.AnomalyRapidActionSequence))
	s.Equal(1, r.EventsInWindow)
}

func (s *AnalyzerSuite) TestBurstContributionIsMonotonic() {
	prev := 0.0
	for i := range 40 {
		r := s.record("u1", "journal.read", noon.Add(time.Duration(i)*time.Second))
		s.GreaterOrEqual(r.Signals.Burst, prev)
		prev = r.Signals.Burst
	}
	s.Equal(0.5, prev)
}

func (s *AnalyzerSuite) TestOffHours() {
	cases := []struct {
		hour int
		off  bool
	}{
		{3, true},
		{5, true},
		{6, false},
		{12, false},
		{22, false},
		{23, true},
	}
	for _, tc := range cases {
		at := time.Date(2026, 3, 10, tc.hour, 30, 0, 0, time.UTC)
		r := s.record("hours", "journal.read", at)
		s.Equal(tc.off, r.HasAnomaly(behavior.AnomalyUnusualTimeAccess), "hour %d", tc.hour)
		if tc.off {
			s.Equal(0.2, r.Signals.OffHours)
		}
	}
}

func (s *AnalyzerSuite) TestOffHoursUsesConfiguredZone() {
	cfg := behavior.DefaultConfig()
	cfg.Location = time.FixedZone("UTC-5", -5*3600)
	a := s.newAnalyzer(cfg, nil)

	// 04:00 UTC is 23:00 local.
	r, err := a.RecordAndScore(s.ctx, "tz", "journal.read", time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.True(r.HasAnomaly(behavior.AnomalyUnusualTimeAccess))

	// 12:00 UTC is 07:00 local.
	r, err = a.RecordAndScore(s.ctx, "tz", "journal.read", noon)
	s.Require().NoError(err)
	s.False(r.HasAnomaly(behavior.AnomalyUnusualTimeAccess))
}

func (s *AnalyzerSuite) TestOvernightWindow() {
	cfg := behavior.DefaultConfig()
	cfg.WindowStart, cfg.WindowEnd = 22, 6
	a := s.newAnalyzer(cfg, nil)

	r, err := a.RecordAndScore(s.ctx, "night", "shift.log", time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.False(r.HasAnomaly(behavior.AnomalyUnusualTimeAccess))

	r, err = a.RecordAndScore(s.ctx, "night", "shift.log", noon)
	s.Require().NoError(err)
	s.True(r.HasAnomaly(behavior.AnomalyUnusualTimeAccess))
}

func (s *AnalyzerSuite) TestDeviationNeedsBaseline() {
	next := s.spread("u1", "journal.read", 19, noon)
	r := s.record("u1", "records.export", next)
	s.Equal(0.0, r.Signals.Deviation)
	s.False(r.HasAnomaly(behavior.AnomalyPatternDeviation))
}

func (s *AnalyzerSuite) TestDeviationAfterBaseline() {
	next := s.spread("u1", "journal.read", 20, noon)

	r := s.record("u1", "records.export", next)
	s.True(r.HasAnomaly(behavior.AnomalyPatternDeviation))
	s.InDelta(0.3, r.Signals.Deviation, 1e-9)
	s.Equal(behavior.ActionAllow, r.RecommendedAction)

	r = s.record("u1", "journal.read", next.Add(2*time.Minute))
	s.Equal(0.0, r.Signals.Deviation)
}

func (s *AnalyzerSuite) TestPartialDeviationBelowTag() {
	next := s.spread("u1", "journal.read", 10, noon)
	next = s.spread("u1", "journal.write", 6, next)
	next = s.spread("u1", "mood.log", 4, next)

	// share(write)/maxShare = 6/10
	r := s.record("u1", "journal.write", next)
	s.InDelta(0.3*0.4, r.Signals.Deviation, 1e-9)
	s.False(r.HasAnomaly(behavior.AnomalyPatternDeviation))

	// share(mood)/maxShare = 4/10
	r = s.record("u1", "mood.log", next.Add(2*time.Minute))
	s.InDelta(0.3*0.6, r.Signals.Deviation, 1e-9)
	s.False(r.HasAnomaly(behavior.AnomalyPatternDeviation))
}

func (s *AnalyzerSuite) TestHighRiskRequiresAdditionalAuth() {
	for i := range 21 {
		s.record("u1", "journal.read", noon.Add(time.Duration(i)*time.Second))
	}
	r := s.record("u1", "records.export", noon.Add(25*time.Second))

	s.InDelta(0.8, r.RiskLevel, 1e-9)
	s.Equal(behavior.ActionRequireAdditionalAuth, r.RecommendedAction)
	s.ElementsMatch([]behavior.Anomaly{behavior.AnomalyRapidActionSequence, behavior.AnomalyPatternDeviation}, r.Anomalies)

	events, err := s.auditLog.ListByType(s.ctx, audit.EventHighRiskBehavior)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.SeverityCritical, events[0].Severity)
	s.Equal("u1", events[0].PrincipalID)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Assessments.WithLabelValues(string(behavior.ActionRequireAdditionalAuth))))
}

func (s *AnalyzerSuite) TestRiskIsClamped() {
	for i := range 21 {
		s.record("u1", "journal.read", time.Date(2026, 3, 10, 2, 0, i, 0, time.UTC))
	}
	r := s.record("u1", "records.export", time.Date(2026, 3, 10, 2, 0, 30, 0, time.UTC))
	s.InDelta(1.0, r.RiskLevel, 1e-9)
	s.LessOrEqual(r.RiskLevel, 1.0)
	s.Len(r.Anomalies, 3)
}

func (s *AnalyzerSuite) TestHighRiskWithoutAuditIsAnError() {
	log, err := audit.New(failingStore{})
	s.Require().NoError(err)
	a := s.newAnalyzer(behavior.DefaultConfig(), log)

	for i := range 21 {
		_, err := a.RecordAndScore(s.ctx, "u2", "journal.read", noon.Add(time.Duration(i)*time.Second))
		s.Require().NoError(err)
	}
	_, err = a.RecordAndScore(s.ctx, "u2", "records.export", noon.Add(25*time.Second))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *AnalyzerSuite) TestHistoryIsBounded() {
	s.spread("u1", "journal.read", 150, noon)

	p, err := s.analyzer.Profile(s.ctx, "u1")
	s.Require().NoError(err)
	s.Len(p.Events, 100)
	s.Equal(150, p.TotalObserved)
	s.True(p.BaselineEstablished(20))
	s.Equal(noon.Add(149*2*time.Minute), p.LastSeen)
	s.Equal(noon.Add(50*2*time.Minute), p.Events[0].At)
}

func (s *AnalyzerSuite) TestValidation() {
	_, err := s.analyzer.RecordAndScore(s.ctx, "", "journal.read", noon)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.analyzer.RecordAndScore(s.ctx, "u1", "  ", noon)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = behavior.New(s.store, behavior.Config{})
	s.Error(err)

	for _, bounds := range [][2]int{{9, 9}, {0, 24}} {
		cfg := behavior.DefaultConfig()
		cfg.WindowStart, cfg.WindowEnd = bounds[0], bounds[1]
		_, err = behavior.New(s.store, cfg)
		s.Error(err, "empty normal window %v", bounds)
	}
}

func (s *AnalyzerSuite) TestZeroTimeUsesRequestTime() {
	ctx := requestcontext.WithTime(s.ctx, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC))
	r, err := s.analyzer.RecordAndScore(ctx, "u1", "journal.read", time.Time{})
	s.Require().NoError(err)
	s.True(r.HasAnomaly(behavior.AnomalyUnusualTimeAccess))
}

func (s *AnalyzerSuite) TestSweepEvictsIdleProfiles() {
	s.record("idle", "journal.read", noon)
	s.record("active", "journal.read", noon.Add(23*time.Hour))

	ctx := requestcontext.WithTime(s.ctx, noon.Add(25*time.Hour))
	n, err := s.analyzer.Sweep(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.analyzer.Profile(s.ctx, "idle")
	s.Error(err)
	_, err = s.analyzer.Profile(s.ctx, "active")
	s.NoError(err)
}
