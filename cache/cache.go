package cache

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrRejected   = errors.New("cache: description rejected by policy")
)

// Entry is one cached caption.
type Entry struct {
	ContentHash string    `json:"-"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"timestamp"`
}

// Store is the interface for caption storage.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; it returns (Entry{}, false) on miss.
// - Put on an existing key keeps the first entry.
type Store interface {
	Get(ctx context.Context, hash string) (Entry, bool)
	Put(ctx context.Context, e Entry) error
	Len() int
}

// ValidateKey checks that key is a lowercase hex SHA-256 digest.
func ValidateKey(key string) error {
	if len(key) != 64 {
		return ErrInvalidKey
	}
	for _, c := range key {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return ErrInvalidKey
		}
	}
	return nil
}
