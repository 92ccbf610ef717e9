package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisAddr is the local default Redis endpoint.
const DefaultRedisAddr = "localhost:6379"

// RedisOptions configures a RedisBackend.
type RedisOptions struct {
	// URL is a redis:// or rediss:// URL. When set it takes precedence over
	// Addr and DB.
	URL string

	// Addr is host:port. Default: DefaultRedisAddr.
	Addr string

	// DB selects the logical database.
	DB int
}

// RedisBackend is a Backend on top of a go-redis client.
type RedisBackend struct {
	client redis.Cmdable
	closer func() error
}

// NewRedisBackend creates a client for opts. No connection is made until the
// first command.
func NewRedisBackend(opts RedisOptions) (*RedisBackend, error) {
	var clientOpts *redis.Options
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("cache: parse redis url: %w", err)
		}
		clientOpts = parsed
	} else {
		addr := opts.Addr
		if addr == "" {
			addr = DefaultRedisAddr
		}
		clientOpts = &redis.Options{Addr: addr, DB: opts.DB}
	}

	client := redis.NewClient(clientOpts)
	return &RedisBackend{client: client, closer: client.Close}, nil
}

// NewRedisBackendFromClient wraps an existing client. Close on the returned
// backend does not close the client.
func NewRedisBackendFromClient(client redis.Cmdable) *RedisBackend {
	return &RedisBackend{client: client, closer: func() error { return nil }}
}

// Client returns the underlying go-redis client.
func (r *RedisBackend) Client() redis.Cmdable {
	return r.client
}

// Get returns the bytes under key; redis.Nil becomes (nil, false, nil).
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapRedisError(err)
	}
	return b, true, nil
}

// Set writes value under key with an optional TTL.
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return mapRedisError(r.client.Set(ctx, key, value, ttl).Err())
}

// Incr runs INCR.
func (r *RedisBackend) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	return n, mapRedisError(err)
}

// RPush runs RPUSH.
func (r *RedisBackend) RPush(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return mapRedisError(r.client.RPush(ctx, key, args...).Err())
}

// LRange runs LRANGE.
func (r *RedisBackend) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	out, err := r.client.LRange(ctx, key, start, stop).Result()
	return out, mapRedisError(err)
}

// FlushDB runs FLUSHDB ASYNC.
func (r *RedisBackend) FlushDB(ctx context.Context) error {
	return mapRedisError(r.client.FlushDBAsync(ctx).Err())
}

// Ping runs PING.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return mapRedisError(r.client.Ping(ctx).Err())
}

// Close closes the client if this backend created it.
func (r *RedisBackend) Close() error {
	return r.closer()
}

// mapRedisError turns WRONGTYPE replies into ErrWrongType and leaves every
// other error as returned by the client.
func mapRedisError(err error) error {
	if err == nil {
		return nil
	}
	if strings.HasPrefix(err.Error(), "WRONGTYPE") {
		return fmt.Errorf("%w: %v", ErrWrongType, err)
	}
	return err
}

var (
	_ Backend  = (*RedisBackend)(nil)
	_ Counter  = (*RedisBackend)(nil)
	_ Recorder = (*RedisBackend)(nil)
)
