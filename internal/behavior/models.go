package behavior

import (
	"slices"
	"time"
)

type Anomaly string

const (
	AnomalyRapidActionSequence Anomaly = "RAPID_ACTION_SEQUENCE"
	AnomalyUnusualTimeAccess   Anomaly = "UNUSUAL_TIME_ACCESS"
	AnomalyPatternDeviation    Anomaly = "PATTERN_DEVIATION"
)

type RecommendedAction string

const (
	ActionAllow                 RecommendedAction = "ALLOW"
	ActionMonitor               RecommendedAction = "MONITOR"
	ActionRequireAdditionalAuth RecommendedAction = "REQUIRE_ADDITIONAL_AUTH"
)

// Event is one observed action.
type Event struct {
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// Profile is the rolling history for one principal. Events holds at most the
// configured history size, oldest first.
type Profile struct {
	PrincipalID   string    `json:"principal_id"`
	Events        []Event   `json:"events"`
	TotalObserved int       `json:"total_observed"`
	LastSeen      time.Time `json:"last_seen"`
}

func NewProfile(principalID string) *Profile {
	return &Profile{PrincipalID: principalID}
}

// Append records e and drops the oldest events beyond capacity.
func (p *Profile) Append(e Event, capacity int) {
	p.Events = append(p.Events, e)
	if over := len(p.Events) - capacity; capacity > 0 && over > 0 {
		p.Events = slices.Delete(p.Events, 0, over)
	}
	p.TotalObserved++
	if e.At.After(p.LastSeen) {
		p.LastSeen = e.At
	}
}

// BaselineEstablished reports whether enough actions have been observed to
// judge deviation from them.
func (p *Profile) BaselineEstablished(minSamples int) bool {
	return p.TotalObserved >= minSamples
}

// CountSince counts events at or after from and not after to.
func (p *Profile) CountSince(from, to time.Time) int {
	n := 0
	for _, e := range p.Events {
		if !e.At.Before(from) && !e.At.After(to) {
			n++
		}
	}
	return n
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Events = slices.Clone(p.Events)
	return &c
}

// Signals are the individual capped contributions to a risk level.
type Signals struct {
	Burst     float64 `json:"burst"`
	OffHours  float64 `json:"off_hours"`
	Deviation float64 `json:"deviation"`
}

type RiskAssessment struct {
	PrincipalID       string            `json:"principal_id"`
	Action            string            `json:"action"`
	RiskLevel         float64           `json:"risk_level"`
	Anomalies         []Anomaly         `json:"anomalies"`
	RecommendedAction RecommendedAction `json:"recommended_action"`
	Signals           Signals           `json:"signals"`
	EventsInWindow    int               `json:"events_in_window"`
}

func (r *RiskAssessment) HasAnomaly(a Anomaly) bool {
	return slices.Contains(r.Anomalies, a)
}
