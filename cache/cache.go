package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a key or operation identity.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilBackend       = errors.New("cache: backend is nil")
	ErrInvalidKey       = errors.New("cache: key is invalid")
	ErrKeyTooLong       = errors.New("cache: key exceeds max length")
	ErrUnsupportedValue = errors.New("cache: unsupported value type")
	ErrWrongType        = errors.New("cache: operation against a key holding the wrong kind of value")
)

// Backend is the key-value store an InstrumentedCache writes through.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines.
// - Errors: Get reports a missing key as (nil, false, nil), never as an error.
type Backend interface {
	// Get returns the raw bytes stored under key.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// FlushDB removes every key in the backing database.
	FlushDB(ctx context.Context) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// Counter is implemented by backends with an atomic increment.
type Counter interface {
	// Incr increments the integer under key by one and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
}

// Recorder is implemented by backends with append-only lists.
type Recorder interface {
	// RPush appends values to the list under key.
	RPush(ctx context.Context, key string, values ...string) error

	// LRange returns list elements start..stop inclusive; negative indexes
	// count from the end, so (0, -1) is the whole list.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// ValidateKey checks that key is usable as a store key.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
