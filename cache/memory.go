package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
)

// ErrNotInteger is returned by MemoryBackend.Incr when the key holds a value
// that does not parse as an integer.
var ErrNotInteger = errors.New("cache: value is not an integer")

// MemoryBackend is an in-process Backend with Redis-like semantics for the
// subset of commands the cache uses.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte   // string value; nil for lists
	list      []string // list value; nil for strings
	isList    bool
	expiresAt time.Time // zero means no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// lookup returns the live entry under key, dropping it if expired. Callers
// must hold the write lock.
func (m *MemoryBackend) lookup(key string) *memoryEntry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return nil
	}
	return e
}

// Get returns the value under key. Expired values are removed lazily.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return nil, false, nil
	}
	if e.isList {
		return nil, false, ErrWrongType
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set stores value under key, replacing whatever was there.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := &memoryEntry{value: make([]byte, len(value))}
	copy(e.value, value)
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// Incr increments the integer under key, creating it at 0 first if missing.
func (m *MemoryBackend) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		e = &memoryEntry{value: []byte("0")}
		m.entries[key] = e
	}
	if e.isList {
		return 0, ErrWrongType
	}
	n, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	n++
	e.value = strconv.AppendInt(e.value[:0], n, 10)
	return n, nil
}

// RPush appends values to the list under key.
func (m *MemoryBackend) RPush(_ context.Context, key string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		e = &memoryEntry{isList: true}
		m.entries[key] = e
	}
	if !e.isList {
		return ErrWrongType
	}
	e.list = append(e.list, values...)
	return nil
}

// LRange returns list elements start..stop inclusive with Redis index rules.
func (m *MemoryBackend) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return []string{}, nil
	}
	if !e.isList {
		return nil, ErrWrongType
	}

	n := int64(len(e.list))
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return []string{}, nil
	}

	out := make([]string, stop-start+1)
	copy(out, e.list[start:stop+1])
	return out, nil
}

// FlushDB removes every key.
func (m *MemoryBackend) FlushDB(context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]*memoryEntry)
	m.mu.Unlock()
	return nil
}

// Len returns the number of live keys.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	n := 0
	for _, e := range m.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// Ping always succeeds.
func (m *MemoryBackend) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }

var (
	_ Backend  = (*MemoryBackend)(nil)
	_ Counter  = (*MemoryBackend)(nil)
	_ Recorder = (*MemoryBackend)(nil)
)
