package cache

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// plainBackend exposes only the Backend methods of a MemoryBackend, so the
// Counter and Recorder capabilities are absent.
type plainBackend struct {
	m *MemoryBackend
}

func (b plainBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return b.m.Get(ctx, key)
}

func (b plainBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.m.Set(ctx, key, value, ttl)
}

func (b plainBackend) FlushDB(ctx context.Context) error { return b.m.FlushDB(ctx) }
func (b plainBackend) Ping(ctx context.Context) error    { return b.m.Ping(ctx) }
func (b plainBackend) Close() error                      { return nil }

// faultyBackend wraps a MemoryBackend and fails selected commands.
type faultyBackend struct {
	*MemoryBackend
	flushErr error
	pingErr  error
	setErr   error
	getErr   error
	incrErr  error
	pushErr  error
	closed   bool
}

func (b *faultyBackend) FlushDB(ctx context.Context) error {
	if b.flushErr != nil {
		return b.flushErr
	}
	return b.MemoryBackend.FlushDB(ctx)
}

func (b *faultyBackend) Ping(ctx context.Context) error {
	if b.pingErr != nil {
		return b.pingErr
	}
	return b.MemoryBackend.Ping(ctx)
}

func (b *faultyBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if b.setErr != nil {
		return b.setErr
	}
	return b.MemoryBackend.Set(ctx, key, value, ttl)
}

func (b *faultyBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b.getErr != nil {
		return nil, false, b.getErr
	}
	return b.MemoryBackend.Get(ctx, key)
}

func (b *faultyBackend) Incr(ctx context.Context, key string) (int64, error) {
	if b.incrErr != nil {
		return 0, b.incrErr
	}
	return b.MemoryBackend.Incr(ctx, key)
}

func (b *faultyBackend) RPush(ctx context.Context, key string, values ...string) error {
	if b.pushErr != nil {
		return b.pushErr
	}
	return b.MemoryBackend.RPush(ctx, key, values...)
}

func (b *faultyBackend) Close() error {
	b.closed = true
	return nil
}

var errStoreDown = errors.New("store down")

// sequenceKeys issues key-1, key-2, ...
func sequenceKeys() KeyGenerator {
	n := 0
	return KeyGeneratorFunc(func() (string, error) {
		n++
		return "key-" + strconv.Itoa(n), nil
	})
}
