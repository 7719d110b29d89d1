package session

import (
	"time"
)

// Validation outcomes.
const (
	ReasonNotFound       = "NOT_FOUND"
	ReasonExpired        = "EXPIRED"
	ReasonDeviceMismatch = "DEVICE_MISMATCH"
	ReasonInvalidToken   = "INVALID_TOKEN"
)

// Session binds a principal to one device. LastActivity never moves backwards.
type Session struct {
	ID                string    `json:"id"`
	PrincipalID       string    `json:"principal_id"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	DeviceName        string    `json:"device_name"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivity      time.Time `json:"last_activity"`
	SecurityScore     float64   `json:"security_score"`
	Location          string    `json:"location,omitempty"`
	IPAddress         string    `json:"ip_address,omitempty"`
}

// Expired reports whether the session has been idle for at least rotation.
func (s *Session) Expired(now time.Time, rotation time.Duration) bool {
	return now.Sub(s.LastActivity) >= rotation
}

// Touch advances LastActivity to now unless now is earlier.
func (s *Session) Touch(now time.Time) {
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

type ValidationResult struct {
	Valid          bool
	Reason         string
	Session        *Session
	RequiresReauth bool
}

func invalid(reason string) *ValidationResult {
	return &ValidationResult{Reason: reason}
}

// Mutation tells a store what to do with a session after Execute's callback.
type Mutation int

const (
	// MutationSave persists the callback's changes.
	MutationSave Mutation = iota
	// MutationDelete removes the session.
	MutationDelete
	// MutationNone leaves the stored session unchanged.
	MutationNone
)
