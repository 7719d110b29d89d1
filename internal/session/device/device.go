// Package device binds sessions to the client that created them. The
// fingerprint covers a fixed, declared set of request attributes so benign
// variance in other headers never invalidates a session.
package device

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"sanctum/pkg/platform/middleware/request"
)

// LocationHeader carries an edge-resolved approximate location, if any.
const LocationHeader = "X-Client-Location"

// Attributes are the request properties a session is evaluated against.
// Only UserAgent, AcceptLanguage, AcceptEncoding and Connection feed the
// fingerprint.
type Attributes struct {
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
	Connection     string

	ClientIP     string
	Location     string
	Confidential bool
}

func FromRequest(r *http.Request) Attributes {
	return Attributes{
		UserAgent:      r.Header.Get("User-Agent"),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
		Connection:     r.Header.Get("Connection"),
		ClientIP:       request.ClientIP(r),
		Location:       r.Header.Get(LocationHeader),
		Confidential:   request.IsConfidential(r),
	}
}

// Fingerprint is the SHA-256 hex digest of the tracked attributes exactly as
// received. Any byte change in one of them yields a different fingerprint.
func Fingerprint(a Attributes) string {
	h := sha256.New()
	for _, field := range []string{a.UserAgent, a.AcceptLanguage, a.AcceptEncoding, a.Connection} {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(field)))
		h.Write(n[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Match compares fingerprints in constant time.
func Match(stored, current string) bool {
	if stored == "" || current == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(current)) == 1
}

// ParseUserAgent returns a display name such as "Chrome on Intel Mac OS X 10_15_7".
func ParseUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Unknown Device"
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS()
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.Join(strings.Fields(browser+" on "+os), " ")
}
