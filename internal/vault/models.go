package vault

import (
	"time"

	"sanctum/internal/encryption"
)

// StoredRecord is a classified payload at rest. Only the sealed form is
// kept; there is no plaintext field.
type StoredRecord struct {
	ID                string                     `json:"id"`
	DataType          string                     `json:"data_type"`
	OwnerID           string                     `json:"owner_id"`
	Record            encryption.SensitiveRecord `json:"record"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
	RetentionDeadline time.Time                  `json:"retention_deadline,omitzero"`
}

// Expired reports whether the record is past its retention deadline.
func (r *StoredRecord) Expired(now time.Time) bool {
	return !r.RetentionDeadline.IsZero() && !now.Before(r.RetentionDeadline)
}

func (r *StoredRecord) Clone() *StoredRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Record.Ciphertext = append([]byte(nil), r.Record.Ciphertext...)
	c.Record.Metadata.IV = append([]byte(nil), r.Record.Metadata.IV...)
	return &c
}

// Opened is a decrypted record handed back to its authorized reader.
type Opened struct {
	ID        string
	DataType  string
	OwnerID   string
	Plaintext []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}
