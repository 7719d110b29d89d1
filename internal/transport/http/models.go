package httptransport

import (
	"time"

	"sanctum/internal/dlp"
)

type CreateSessionResponse struct {
	SessionID      string  `json:"session_id"`
	Token          string  `json:"token"`
	ExpiresIn      int     `json:"expires_in"`
	SecurityScore  float64 `json:"security_score"`
	RequiresReauth bool    `json:"requires_reauth"`
	DeviceName     string  `json:"device_name"`
}

type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	DeviceName    string    `json:"device_name"`
	Location      string    `json:"location,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
	SecurityScore float64   `json:"security_score"`
	Current       bool      `json:"current"`
}

type ListSessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

type PutRecordRequest struct {
	Content string `json:"content"`
}

// RecordMetadata describes a stored record without its content.
type RecordMetadata struct {
	ID                string     `json:"id"`
	DataType          string     `json:"data_type"`
	OwnerID           string     `json:"owner_id"`
	Algorithm         string     `json:"algorithm"`
	KeyVersion        int        `json:"key_version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	RetentionDeadline *time.Time `json:"retention_deadline,omitempty"`
}

type RecordResponse struct {
	ID        string    `json:"id"`
	DataType  string    `json:"data_type"`
	OwnerID   string    `json:"owner_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ScanRequest struct {
	Content string `json:"content"`
}

// ScanResponse is the scanner result plus per-type finding counts.
type ScanResponse struct {
	*dlp.Result
	Counts map[string]int `json:"counts"`
}
