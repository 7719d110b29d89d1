package dlp

// Family separates redactable identifiers from topics that are only flagged.
type Family string

const (
	FamilyIdentifier Family = "IDENTIFIER"
	FamilyTopic      Family = "TOPIC"
)

type FindingType string

const (
	TypeCreditCard FindingType = "CREDIT_CARD"
	TypeIDNumber   FindingType = "ID_NUMBER"
	TypeEmail      FindingType = "EMAIL"
	TypePhone      FindingType = "PHONE"

	TopicCrisis             FindingType = "CRISIS"
	TopicMedical            FindingType = "MEDICAL"
	TopicRelationshipCrisis FindingType = "RELATIONSHIP_CRISIS"
)

// Finding locates one detection in the scanned content. Start and End are
// byte offsets into the original content. The matched text itself is not kept.
type Finding struct {
	Type        FindingType `json:"type"`
	Family      Family      `json:"family"`
	Start       int         `json:"start"`
	End         int         `json:"end"`
	Confidence  float64     `json:"confidence"`
	Occurrences int         `json:"occurrences,omitempty"`
}

type Result struct {
	HasSensitiveData bool      `json:"has_sensitive_data"`
	Findings         []Finding `json:"findings"`
	RiskLevel        float64   `json:"risk_level"`
	RedactedContent  string    `json:"redacted_content"`
	// RequiresReview is set when crisis language is present so a human sees it.
	RequiresReview bool `json:"requires_review"`
}

// IdentifierCount returns the number of identifier findings.
func (r *Result) IdentifierCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Family == FamilyIdentifier {
			n++
		}
	}
	return n
}

// CountsByType summarises findings for audit details without exposing content.
func (r *Result) CountsByType() map[string]int {
	out := make(map[string]int, len(r.Findings))
	for _, f := range r.Findings {
		out[string(f.Type)]++
	}
	return out
}
