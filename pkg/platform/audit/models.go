package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose so stores and
// downstream consumers can apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers access to classified data and policy decisions.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to monitoring and forensics:
	// device mismatches, integrity failures, high-risk behavior, denials.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Severity tiers. Critical events additionally trigger the alerting hook.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityCritical Severity = "critical"
)

// Event is an immutable audit record. Details must never carry plaintext,
// secrets or raw matched identifiers.
type Event struct {
	ID          uuid.UUID      `json:"id"`
	Type        EventType      `json:"event_type"`
	Category    EventCategory  `json:"category"`
	Severity    Severity       `json:"severity"`
	PrincipalID string         `json:"principal_id,omitempty"`
	SessionID   string         `json:"session_id,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

type EventType string

const (
	// Session events
	EventSessionCreated        EventType = "session_created"
	EventSessionExpired        EventType = "session_expired"
	EventSessionDeviceMismatch EventType = "session_device_mismatch"
	EventSessionEvicted        EventType = "session_evicted"
	EventSessionRevoked        EventType = "session_revoked"
	EventSessionReauthRequired EventType = "session_reauth_required"

	// Cryptographic events
	EventDecryptionFailed EventType = "decryption_failed"
	EventIntegrityFailed  EventType = "integrity_check_failed"

	// Behavioral events
	EventHighRiskBehavior EventType = "high_risk_behavior"

	// DLP events
	EventSensitiveContentDetected EventType = "sensitive_content_detected"
	EventSensitiveContentBlocked  EventType = "sensitive_content_blocked"

	// Policy events
	EventAccessGranted      EventType = "access_granted"
	EventAccessDenied       EventType = "access_denied"
	EventPolicyReloaded     EventType = "policy_reloaded"
	EventPolicyReloadFailed EventType = "policy_reload_failed"

	// Pipeline events
	EventStagePassed       EventType = "pipeline_stage_passed"
	EventRequestRejected   EventType = "request_rejected"
	EventRequestAuthorized EventType = "request_authorized"
	EventRateLimitExceeded EventType = "rate_limit_exceeded"

	// Record events
	EventRecordStored   EventType = "record_stored"
	EventRecordAccessed EventType = "record_accessed"
	EventRecordDeleted  EventType = "record_deleted"

	// Alerting
	EventAlertFailed EventType = "alert_failed"
)

var eventCategories = map[EventType]EventCategory{
	EventAccessGranted:     CategoryCompliance,
	EventAccessDenied:      CategoryCompliance,
	EventRequestAuthorized: CategoryCompliance,
	EventRecordStored:      CategoryCompliance,
	EventRecordAccessed:    CategoryCompliance,
	EventRecordDeleted:     CategoryCompliance,

	EventSessionDeviceMismatch:   CategorySecurity,
	EventSessionRevoked:          CategorySecurity,
	EventSessionReauthRequired:   CategorySecurity,
	EventDecryptionFailed:        CategorySecurity,
	EventIntegrityFailed:         CategorySecurity,
	EventHighRiskBehavior:        CategorySecurity,
	EventSensitiveContentBlocked: CategorySecurity,
	EventRequestRejected:         CategorySecurity,
	EventRateLimitExceeded:       CategorySecurity,
	EventPolicyReloadFailed:      CategorySecurity,

	EventSessionCreated:           CategoryOperations,
	EventSessionExpired:           CategoryOperations,
	EventSessionEvicted:           CategoryOperations,
	EventSensitiveContentDetected: CategoryOperations,
	EventPolicyReloaded:           CategoryOperations,
	EventStagePassed:              CategoryOperations,
	EventAlertFailed:              CategoryOperations,
}

// Category returns the category for this event type.
// Unknown types default to CategoryOperations.
func (e EventType) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
