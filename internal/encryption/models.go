package encryption

import "time"

type Algorithm string

const (
	AlgorithmAES256GCM         Algorithm = "aes-256-gcm"
	AlgorithmXChaCha20Poly1305 Algorithm = "xchacha20-poly1305"
)

func (a Algorithm) Valid() bool {
	return a == AlgorithmAES256GCM || a == AlgorithmXChaCha20Poly1305
}

// Metadata travels with every ciphertext. IV is the nonce actually passed to
// the cipher; Checksum is an HMAC-SHA256 of the plaintext under a key
// independent of the cipher key.
type Metadata struct {
	Algorithm  Algorithm `json:"algorithm"`
	IV         []byte    `json:"iv"`
	Checksum   string    `json:"checksum"`
	Timestamp  time.Time `json:"timestamp"`
	KeyVersion int       `json:"key_version"`
}

// SensitiveRecord is the only form in which classified data is persisted or
// logged. It has no plaintext field.
type SensitiveRecord struct {
	Classification string   `json:"classification"`
	Ciphertext     []byte   `json:"ciphertext"`
	Metadata       Metadata `json:"metadata"`
}
