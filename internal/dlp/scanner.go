// Package dlp scans payloads for structured identifiers and sensitive topics.
//
// Identifiers (card numbers, ID numbers, emails, phone numbers) are matched by
// deterministic patterns and replaced with [REDACTED_<TYPE>]. Topics (crisis,
// medical and relationship-crisis language) are matched by keyword lists and
// only flagged: rewriting therapeutic language would change its meaning for
// the human reviewer.
//
// Both families are heuristics. Keyword and regex matching has false positives
// and false negatives; callers should treat a clean scan as "nothing obvious",
// not as proof the content is safe.
package dlp

import (
	"slices"
	"sort"
	"strings"
)

type Scanner struct {
	identifiers []identifierRule
	topics      []topicRule
	metrics     *Metrics
}

type Option func(*Scanner)

// WithTopic adds a keyword category flagged (never redacted) like the built-ins.
func WithTopic(t FindingType, confidence float64, keywords ...string) Option {
	return func(s *Scanner) {
		if len(keywords) == 0 {
			return
		}
		s.topics = append(s.topics, newTopicRule(t, clamp(confidence), keywords...))
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

func New(opts ...Option) *Scanner {
	s := &Scanner{
		identifiers: identifierRules,
		topics:      defaultTopicRules(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type span struct {
	rule       FindingType
	start, end int
}

// Scan inspects content and returns findings, a risk level in [0,1] and the
// content with identifiers redacted. Spans refer to the original content.
//
// Each rule runs on the text as redacted by the rules before it, and passes
// repeat until none of them matches. Scanning RedactedContent again therefore
// finds no identifiers.
func (s *Scanner) Scan(content string) *Result {
	result := &Result{Findings: []Finding{}}

	var accepted []span
	for found := true; found; {
		found = false
		for _, rule := range s.identifiers {
			text, origin := redact(content, accepted)
			for _, m := range rule.matches(text) {
				if slices.Contains(origin[m[0]:m[1]], -1) {
					continue
				}
				accepted = append(accepted, span{rule: rule.Type, start: origin[m[0]], end: origin[m[1]-1] + 1})
				found = true
			}
			sort.Slice(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })
		}
	}

	for _, sp := range accepted {
		result.Findings = append(result.Findings, Finding{
			Type:       sp.rule,
			Family:     FamilyIdentifier,
			Start:      sp.start,
			End:        sp.end,
			Confidence: identifierConfidence,
		})
		result.RiskLevel += identifierWeight * identifierConfidence
	}
	result.RedactedContent, _ = redact(content, accepted)

	for _, topic := range s.topics {
		locs := topic.Pattern.FindAllStringIndex(content, -1)
		if len(locs) == 0 {
			continue
		}
		result.Findings = append(result.Findings, Finding{
			Type:        topic.Type,
			Family:      FamilyTopic,
			Start:       locs[0][0],
			End:         locs[0][1],
			Confidence:  topic.Confidence,
			Occurrences: len(locs),
		})
		result.RiskLevel += topicWeight * topic.Confidence
		if topic.Type == TopicCrisis {
			result.RequiresReview = true
		}
	}

	result.RiskLevel = clamp(result.RiskLevel)
	result.HasSensitiveData = len(result.Findings) > 0
	s.metrics.observe(result)
	return result
}

func redactionToken(t FindingType) string {
	return "[REDACTED_" + string(t) + "]"
}

// redact renders content with spans, sorted and disjoint, replaced by their
// tokens. origin maps each byte of the output to its offset in content, or -1
// for token bytes.
func redact(content string, spans []span) (string, []int) {
	var b strings.Builder
	b.Grow(len(content))
	origin := make([]int, 0, len(content))
	cursor := 0
	for _, sp := range spans {
		b.WriteString(content[cursor:sp.start])
		for i := cursor; i < sp.start; i++ {
			origin = append(origin, i)
		}
		token := redactionToken(sp.rule)
		b.WriteString(token)
		for range len(token) {
			origin = append(origin, -1)
		}
		cursor = sp.end
	}
	b.WriteString(content[cursor:])
	for i := cursor; i < len(content); i++ {
		origin = append(origin, i)
	}
	return b.String(), origin
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
