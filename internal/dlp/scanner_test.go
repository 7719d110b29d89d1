package dlp

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ScannerSuite struct {
	suite.Suite
	scanner *Scanner
}

func TestScannerSuite(t *testing.T) {
	suite.Run(t, new(ScannerSuite))
}

func (s *ScannerSuite) SetupTest() {
	s.scanner = New()
}

func (s *ScannerSuite) TestPhoneAndIDNumber() {
	content := "Call me at 555-123-4567 or ssn 123-45-6789"
	result := s.scanner.Scan(content)

	s.Require().Equal(2, result.IdentifierCount())
	s.Len(result.Findings, 2)
	s.Equal(TypePhone, result.Findings[0].Type)
	s.Equal(TypeIDNumber, result.Findings[1].Type)
	s.Equal("555-123-4567", content[result.Findings[0].Start:result.Findings[0].End])

	s.Equal("Call me at [REDACTED_PHONE] or ssn [REDACTED_ID_NUMBER]", result.RedactedContent)
	s.False(regexp.MustCompile(`\d{3}-\d{3}-\d{4}`).MatchString(result.RedactedContent))
	s.False(regexp.MustCompile(`\d{3}-\d{2}-\d{4}`).MatchString(result.RedactedContent))
	s.Greater(result.RiskLevel, 0.5)
	s.True(result.HasSensitiveData)
}

func (s *ScannerSuite) TestRedactedContentIsIdempotent() {
	inputs := []string{
		"Call me at 555-123-4567 or ssn 123-45-6789",
		"card 4111 1111 1111 1111, mail jane.doe@example.com, (555) 987-6543",
		"+1 555.222.3333 and 4111-1111-1111-1111",
		"card 41111111111111111 555 123 4567",
		"order 20241 555 123 4567",
	}
	for _, in := range inputs {
		first := s.scanner.Scan(in)
		s.Greater(first.IdentifierCount(), 0, in)

		second := s.scanner.Scan(first.RedactedContent)
		s.Zero(second.IdentifierCount(), in)
		s.Equal(first.RedactedContent, second.RedactedContent)
	}
}

func (s *ScannerSuite) TestCreditCardRequiresLuhn() {
	valid := s.scanner.Scan("pay with 4111 1111 1111 1111 today")
	s.Require().Len(valid.Findings, 1)
	s.Equal(TypeCreditCard, valid.Findings[0].Type)
	s.Contains(valid.RedactedContent, "[REDACTED_CREDIT_CARD]")

	invalid := s.scanner.Scan("order 4111 1111 1111 1112 today")
	s.Zero(invalid.IdentifierCount())
}

func (s *ScannerSuite) TestCardInsideLongerDigitRun() {
	content := "card 41111111111111111 555 123 4567"
	result := s.scanner.Scan(content)

	s.Require().Equal(2, result.IdentifierCount())
	s.Equal(TypeCreditCard, result.Findings[0].Type)
	s.Equal("4111111111111111", content[result.Findings[0].Start:result.Findings[0].End])
	s.Equal(TypePhone, result.Findings[1].Type)
	s.NotContains(result.RedactedContent, "4111111111111111")
}

func (s *ScannerSuite) TestPhonePrefixNeedsBoundary() {
	content := "order 20241 555 123 4567"
	result := s.scanner.Scan(content)

	s.Require().Equal(1, result.IdentifierCount())
	s.Equal("555 123 4567", content[result.Findings[0].Start:result.Findings[0].End])
	s.Equal("order 20241 [REDACTED_PHONE]", result.RedactedContent)
}

func (s *ScannerSuite) TestEmail() {
	result := s.scanner.Scan("reach me at first.last+tag@mail.example.org please")
	s.Require().Len(result.Findings, 1)
	s.Equal(TypeEmail, result.Findings[0].Type)
	s.Equal("reach me at [REDACTED_EMAIL] please", result.RedactedContent)
}

func (s *ScannerSuite) TestTopicsAreFlaggedNotRedacted() {
	content := "Since the divorce my therapist changed my medication and some days I want to die."
	result := s.scanner.Scan(content)

	s.Equal(content, result.RedactedContent)
	s.Zero(result.IdentifierCount())

	types := map[FindingType]Finding{}
	for _, f := range result.Findings {
		s.Equal(FamilyTopic, f.Family)
		types[f.Type] = f
	}
	s.Contains(types, TopicCrisis)
	s.Contains(types, TopicMedical)
	s.Contains(types, TopicRelationshipCrisis)
	s.Equal(2, types[TopicMedical].Occurrences)
	s.True(result.RequiresReview)
}

func (s *ScannerSuite) TestIdentifiersOutweighTopics() {
	identifier := s.scanner.Scan("ssn 123-45-6789")
	topic := s.scanner.Scan("I was diagnosed last year")
	s.Greater(identifier.RiskLevel, topic.RiskLevel)
}

func (s *ScannerSuite) TestRiskLevelIsCapped() {
	content := "123-45-6789 234-56-7890 345-67-8901 456-78-9012 jane@example.com suicide divorce therapy"
	result := s.scanner.Scan(content)
	s.Equal(1.0, result.RiskLevel)
}

func (s *ScannerSuite) TestCleanContent() {
	result := s.scanner.Scan("Lovely weather for a walk in the park.")
	s.False(result.HasSensitiveData)
	s.Empty(result.Findings)
	s.Zero(result.RiskLevel)
	s.False(result.RequiresReview)
}

func (s *ScannerSuite) TestCustomTopic() {
	scanner := New(WithTopic("FINANCIAL_DISTRESS", 0.5, "bankruptcy", "debt collector"))
	result := scanner.Scan("The debt collector called again")
	s.Require().Len(result.Findings, 1)
	s.Equal(FindingType("FINANCIAL_DISTRESS"), result.Findings[0].Type)
}

func (s *ScannerSuite) TestSelfHarmHyphenation() {
	result := s.scanner.Scan("thoughts of self-harm")
	s.Require().Len(result.Findings, 1)
	s.Equal(TopicCrisis, result.Findings[0].Type)
}
