package cache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"
)

// redisTestBackend connects to the server named by KVOPS_TEST_REDIS_ADDR.
// The database is flushed by the tests, so point it at a scratch instance.
func redisTestBackend(t *testing.T) *RedisBackend {
	t.Helper()
	addr := os.Getenv("KVOPS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("KVOPS_TEST_REDIS_ADDR not set")
	}
	b, err := NewRedisBackend(RedisOptions{Addr: addr, DB: 15})
	if err != nil {
		t.Fatalf("NewRedisBackend() error: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	if err := b.Ping(context.Background()); err != nil {
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}
	return b
}

func TestNewRedisBackend_Options(t *testing.T) {
	b, err := NewRedisBackend(RedisOptions{})
	if err != nil {
		t.Fatalf("NewRedisBackend() error: %v", err)
	}
	defer b.Close()
	if got := b.Client().(*redis.Client).Options().Addr; got != DefaultRedisAddr {
		t.Errorf("default addr = %q, want %q", got, DefaultRedisAddr)
	}

	b, err = NewRedisBackend(RedisOptions{URL: "redis://example.com:6380/3", Addr: "ignored:1"})
	if err != nil {
		t.Fatalf("NewRedisBackend(url) error: %v", err)
	}
	defer b.Close()
	opts := b.Client().(*redis.Client).Options()
	if opts.Addr != "example.com:6380" || opts.DB != 3 {
		t.Errorf("url options = %s db %d", opts.Addr, opts.DB)
	}

	if _, err := NewRedisBackend(RedisOptions{URL: "http://nope"}); err == nil {
		t.Error("expected error for non-redis URL")
	}
}

func TestNewRedisBackendFromClient_CloseLeavesClientOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: DefaultRedisAddr})
	defer client.Close()

	b := NewRedisBackendFromClient(client)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if client.Options().Addr != DefaultRedisAddr {
		t.Error("client options changed")
	}
}

func TestMapRedisError(t *testing.T) {
	if mapRedisError(nil) != nil {
		t.Error("nil error mapped to non-nil")
	}
	wrong := errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	if err := mapRedisError(wrong); !errors.Is(err, ErrWrongType) {
		t.Errorf("mapRedisError(WRONGTYPE) = %v, want ErrWrongType", err)
	}
	if err := mapRedisError(errStoreDown); err != errStoreDown {
		t.Errorf("mapRedisError(other) = %v, want unchanged", err)
	}
}

func TestRedisBackend_Integration(t *testing.T) {
	b := redisTestBackend(t)
	ctx := context.Background()

	c, err := New(ctx, b)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	key, err := c.Store(ctx, []byte("bar"))
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	if got, ok, err := c.Retrieve(ctx, key); err != nil || !ok || !bytes.Equal(got, []byte("bar")) {
		t.Errorf("Retrieve() = (%q, %v, %v)", got, ok, err)
	}

	intKey, _ := c.Store(ctx, 7)
	if n, ok, err := c.RetrieveInt(ctx, intKey); err != nil || !ok || n != 7 {
		t.Errorf("RetrieveInt() = (%d, %v, %v)", n, ok, err)
	}

	if _, ok, err := c.Retrieve(ctx, "nonexistent-key"); err != nil || ok {
		t.Errorf("Retrieve(missing) = (%v, %v)", ok, err)
	}

	var buf bytes.Buffer
	if err := Replay(ctx, &buf, c, OpStore); err != nil {
		t.Fatalf("Replay() error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Cache.store was called 2 times:\n") {
		t.Errorf("Replay() = %q", buf.String())
	}

	if _, err := b.Incr(ctx, key); err == nil {
		t.Error("Incr on a non-integer value should fail")
	}
	if err := b.RPush(ctx, key, "x"); !errors.Is(err, ErrWrongType) {
		t.Errorf("RPush on a string = %v, want ErrWrongType", err)
	}
}
