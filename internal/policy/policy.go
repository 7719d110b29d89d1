package policy

import "time"

// Classification determines how a data type must be handled.
type Classification string

const (
	ClassificationSacred     Classification = "SACRED"
	ClassificationPersonal   Classification = "PERSONAL"
	ClassificationBehavioral Classification = "BEHAVIORAL"
)

type AuditLevel string

const (
	AuditLevelNone     AuditLevel = "NONE"
	AuditLevelStandard AuditLevel = "STANDARD"
	AuditLevelFull     AuditLevel = "FULL"
)

// Predicate names an access-control check evaluated in declared order.
type Predicate string

const (
	// PredicateAuthenticated requires a principal.
	PredicateAuthenticated Predicate = "AUTHENTICATED"
	// PredicateOwnerOnly requires the principal to own the resource.
	PredicateOwnerOnly Predicate = "OWNER_ONLY"
	// PredicateAnalyticsOnly permits aggregate reads only, never a raw fetch.
	PredicateAnalyticsOnly Predicate = "ANALYTICS_ONLY"
)

type Operation string

const (
	OperationRead      Operation = "READ"
	OperationWrite     Operation = "WRITE"
	OperationDelete    Operation = "DELETE"
	OperationAggregate Operation = "AGGREGATE"
)

// Valid reports whether op is a recognized operation.
func (op Operation) Valid() bool {
	switch op {
	case OperationRead, OperationWrite, OperationDelete, OperationAggregate:
		return true
	}
	return false
}

// Denial reasons.
const (
	ReasonNoPolicyDefined     = "NO_POLICY_DEFINED"
	ReasonAccessControlFailed = "ACCESS_CONTROL_FAILED"
	ReasonTwoFactorRequired   = "TWO_FACTOR_REQUIRED"
	ReasonInvalidOperation    = "INVALID_OPERATION"
	ReasonAuditUnavailable    = "AUDIT_UNAVAILABLE"
)

// Rule is the handling policy for one data type. AnonymizationAfterDays is
// carried for downstream consumers and checked against RetentionDays on load;
// the vault does not anonymize records itself.
type Rule struct {
	Classification         Classification `yaml:"classification" json:"classification" validate:"required,oneof=SACRED PERSONAL BEHAVIORAL"`
	EncryptionRequired     bool           `yaml:"encryption_required" json:"encryption_required"`
	AuditLevel             AuditLevel     `yaml:"audit_level" json:"audit_level" validate:"omitempty,oneof=NONE STANDARD FULL"`
	AccessControls         []Predicate    `yaml:"access_controls" json:"access_controls" validate:"dive,oneof=AUTHENTICATED OWNER_ONLY ANALYTICS_ONLY"`
	RetentionDays          int            `yaml:"retention_days" json:"retention_days" validate:"gte=0"`
	AnonymizationAfterDays int            `yaml:"anonymization_after_days" json:"anonymization_after_days" validate:"gte=0"`
	TwoFactorRequired      bool           `yaml:"two_factor_required" json:"two_factor_required"`
}

// RetentionDeadline is the instant after which data created at createdAt must
// be purged. Zero when retention is unlimited.
func (r Rule) RetentionDeadline(createdAt time.Time) time.Time {
	if r.RetentionDays <= 0 {
		return time.Time{}
	}
	return createdAt.AddDate(0, 0, r.RetentionDays)
}

// Subject is the slice of the security context the engine decides on.
// TwoFactorVerified is asserted by the identity provider, not proven here.
type Subject struct {
	PrincipalID       string
	ResourceOwnerID   string
	TwoFactorVerified bool
}

type Decision struct {
	Allowed  bool
	Reason   string
	DataType string
	Rule     *Rule
}
