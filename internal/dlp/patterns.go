package dlp

import (
	"regexp"
	"strings"
)

const (
	identifierConfidence = 0.95
	identifierWeight     = 0.3
	topicWeight          = 0.15
)

type identifierRule struct {
	Type FindingType
	// Pattern locates candidates. When it has a capture group, the group is
	// the identifier and the rest of the match is context.
	Pattern *regexp.Regexp
	// Validate filters candidates; nil accepts every one.
	Validate func(match string) bool
	// Narrow looks inside a rejected candidate for a shorter valid one and
	// returns its offsets relative to the candidate.
	Narrow func(match string) (start, end int, ok bool)
}

func (r identifierRule) matches(text string) [][2]int {
	var out [][2]int
	for _, loc := range r.Pattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		if len(loc) >= 4 && loc[2] >= 0 {
			start, end = loc[2], loc[3]
		}
		if r.Validate == nil || r.Validate(text[start:end]) {
			out = append(out, [2]int{start, end})
			continue
		}
		if r.Narrow == nil {
			continue
		}
		if s, e, ok := r.Narrow(text[start:end]); ok {
			out = append(out, [2]int{start + s, start + e})
		}
	}
	return out
}

// identifierRules are evaluated in order; an earlier rule wins any overlap.
var identifierRules = []identifierRule{
	{
		Type:     TypeCreditCard,
		Pattern:  regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`),
		Validate: luhnValid,
		Narrow:   longestLuhnRun,
	},
	{
		Type:    TypeIDNumber,
		Pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	},
	{
		Type:    TypeEmail,
		Pattern: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	},
	{
		Type:    TypePhone,
		Pattern: regexp.MustCompile(`(?:^|[^\d])((?:\+?1[-. ]?)?(?:\(\d{3}\)\s?|\d{3}[-. ]?)\d{3}[-. ]?\d{4})\b`),
	},
}

type topicRule struct {
	Type       FindingType
	Confidence float64
	Pattern    *regexp.Regexp
}

func newTopicRule(t FindingType, confidence float64, keywords ...string) topicRule {
	alts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		words := strings.Fields(kw)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		alts = append(alts, strings.Join(words, `[\s-]+`))
	}
	return topicRule{
		Type:       t,
		Confidence: confidence,
		Pattern:    regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`),
	}
}

func defaultTopicRules() []topicRule {
	return []topicRule{
		newTopicRule(TopicCrisis, 0.9,
			"suicide", "suicidal", "kill myself", "end my life", "self harm", "hurt myself",
			"want to die", "no reason to live", "overdose", "cutting myself"),
		newTopicRule(TopicMedical, 0.7,
			"diagnosis", "diagnosed", "medication", "prescription", "therapy", "therapist",
			"psychiatrist", "depression", "anxiety", "panic attack", "bipolar", "ptsd",
			"eating disorder", "antidepressant"),
		newTopicRule(TopicRelationshipCrisis, 0.6,
			"divorce", "separation", "affair", "cheating", "domestic violence",
			"abusive relationship", "breakup", "custody battle"),
	}
}

func luhnValid(s string) bool {
	sum, n := 0, 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			continue
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
		n++
	}
	return n >= 13 && n <= 19 && sum%10 == 0
}

// longestLuhnRun finds the longest, then leftmost, proper run of at least 16
// digits inside match that passes the Luhn check. Shorter runs are not tried,
// so a mistyped 16-digit number is not split into an accidental 13-digit hit.
func longestLuhnRun(match string) (int, int, bool) {
	var digits []int
	for i := 0; i < len(match); i++ {
		if match[i] >= '0' && match[i] <= '9' {
			digits = append(digits, i)
		}
	}
	for n := min(len(digits)-1, 19); n >= 16; n-- {
		for i := 0; i+n <= len(digits); i++ {
			start, end := digits[i], digits[i+n-1]+1
			if luhnValid(match[start:end]) {
				return start, end, true
			}
		}
	}
	return 0, 0, false
}
