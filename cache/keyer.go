package cache

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Keyer derives a cache key from an inline image payload.
//
// Contract:
// - Determinism: byte-identical images must produce the same key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(imageData string) string
}

// ContentKeyer hashes the decoded image bytes with SHA-256.
//
// imageData may be a data URL ("data:image/png;base64,....") or bare
// base64. When the payload does not decode, the raw string is hashed so the
// key stays deterministic.
type ContentKeyer struct{}

// NewContentKeyer creates a new content keyer.
func NewContentKeyer() *ContentKeyer {
	return &ContentKeyer{}
}

// Key returns the lowercase hex SHA-256 of the image bytes.
func (ContentKeyer) Key(imageData string) string {
	raw, ok := DecodeImage(imageData)
	if !ok {
		raw = []byte(imageData)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// DecodeImage extracts and decodes the base64 payload of a data URL or bare
// base64 string.
func DecodeImage(imageData string) ([]byte, bool) {
	payload := imageData
	if strings.HasPrefix(payload, "data:") {
		i := strings.IndexByte(payload, ',')
		if i < 0 || !strings.Contains(payload[:i], ";base64") {
			return nil, false
		}
		payload = payload[i+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, false
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, false
		}
	}
	return raw, true
}

var _ Keyer = (*ContentKeyer)(nil)
