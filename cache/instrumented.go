package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonwraymond/kvops/observe"
)

// Operation names. The identity of an operation is "<namespace>.<name>".
const (
	OpStore    = "store"
	OpRetrieve = "retrieve"
)

// DefaultNamespace prefixes operation identities unless WithNamespace is used.
const DefaultNamespace = "Cache"

var (
	// ErrNilTransform is returned by RetrieveAs when no transform is given.
	ErrNilTransform = errors.New("cache: transform is nil")

	// ErrInvalidText is returned by AsText for bytes that are not UTF-8.
	ErrInvalidText = errors.New("cache: value is not valid UTF-8 text")

	// ErrHistoryUnsupported is returned by History when the backend does not
	// implement Recorder.
	ErrHistoryUnsupported = errors.New("cache: backend does not record history")
)

// InstrumentedCache stores scalar values under generated keys and records
// call counts and call history for its instrumented operations.
//
// Contract:
//   - Concurrency: safe for concurrent use when the backend is. History order
//     across concurrent callers follows the store's append order.
//   - Errors: a missing key is not an error; Retrieve reports it with ok=false.
type InstrumentedCache struct {
	backend      Backend
	namespace    string
	keys         KeyGenerator
	policy       Policy
	logger       observe.Logger
	instrumented []string

	store    OperationFunc
	retrieve OperationFunc
}

type options struct {
	namespace       string
	keys            KeyGenerator
	policy          Policy
	logger          observe.Logger
	middleware      []Middleware
	instrumentReads bool
	flush           bool
}

// Option configures an InstrumentedCache.
type Option func(*options)

// WithNamespace sets the identity prefix. Default: DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithKeyGenerator replaces the UUID key generator.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.keys = g
		}
	}
}

// WithPolicy sets the value expiry policy.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMiddleware adds middleware inside the counting and history layers.
func WithMiddleware(mws ...Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mws...) }
}

// WithInstrumentedReads also counts and records retrieve calls.
func WithInstrumentedReads() Option {
	return func(o *options) { o.instrumentReads = true }
}

// WithoutFlush keeps existing store contents instead of flushing them on
// construction. Reachability is still checked with a ping.
func WithoutFlush() Option {
	return func(o *options) { o.flush = false }
}

// New connects the cache to backend and flushes the backing database.
//
// The flush is destructive: it removes every key in the database, including
// data written by other clients. An unreachable store fails here.
func New(ctx context.Context, backend Backend, opts ...Option) (*InstrumentedCache, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}

	o := options{
		namespace: DefaultNamespace,
		keys:      UUIDKeyGenerator{},
		policy:    DefaultPolicy(),
		logger:    observe.NopLogger(),
		flush:     true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := ValidateKey(Identity(o.namespace, OpStore)); err != nil {
		return nil, fmt.Errorf("cache: namespace %q: %w", o.namespace, err)
	}

	c := &InstrumentedCache{
		backend:   backend,
		namespace: o.namespace,
		keys:      o.keys,
		policy:    o.policy,
		logger:    o.logger.With(observe.F("component", "cache"), observe.F("namespace", o.namespace)),
	}

	if o.flush {
		c.logger.Warn(ctx, "flushing backing store")
		if err := backend.FlushDB(ctx); err != nil {
			c.logger.Error(ctx, "flush failed", observe.F("error", err))
			return nil, fmt.Errorf("cache: flush backing store: %w", err)
		}
	} else if err := backend.Ping(ctx); err != nil {
		c.logger.Error(ctx, "ping failed", observe.F("error", err))
		return nil, fmt.Errorf("cache: ping backing store: %w", err)
	}

	instrument := func(op string, fn OperationFunc) OperationFunc {
		c.instrumented = append(c.instrumented, op)
		mws := append([]Middleware{CallHistory(backend), CountCalls(backend)}, o.middleware...)
		return Chain(c.Identity(op), fn, mws...)
	}

	c.store = instrument(OpStore, c.storeOp)
	if o.instrumentReads {
		c.retrieve = instrument(OpRetrieve, c.retrieveOp)
	} else {
		c.retrieve = Chain(c.Identity(OpRetrieve), c.retrieveOp, o.middleware...)
	}

	return c, nil
}

// Backend returns the backing store.
func (c *InstrumentedCache) Backend() Backend { return c.backend }

// Namespace returns the identity prefix.
func (c *InstrumentedCache) Namespace() string { return c.namespace }

// Identity returns the identity of op on this cache, e.g. "Cache.store".
func (c *InstrumentedCache) Identity(op string) string {
	return Identity(c.namespace, op)
}

// Operations lists the instrumented operation names.
func (c *InstrumentedCache) Operations() []string {
	return slices.Clone(c.instrumented)
}

// IsInstrumented reports whether op is counted and recorded on this cache.
func (c *InstrumentedCache) IsInstrumented(op string) bool {
	return slices.Contains(c.instrumented, op)
}

// Close closes the backend.
func (c *InstrumentedCache) Close() error { return c.backend.Close() }

// Store writes value under a freshly generated key and returns the key.
// Supported values are strings, byte slices, integers and floats.
func (c *InstrumentedCache) Store(ctx context.Context, value any) (string, error) {
	out, err := c.store(ctx, []any{value})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *InstrumentedCache) storeOp(ctx context.Context, args []any) (any, error) {
	data, err := encodeValue(args[0])
	if err != nil {
		return nil, err
	}
	key, err := c.keys.NewKey()
	if err != nil {
		return nil, fmt.Errorf("cache: generate key: %w", err)
	}
	if err := c.backend.Set(ctx, key, data, c.policy.EffectiveTTL()); err != nil {
		return nil, fmt.Errorf("cache: set %s: %w", key, err)
	}
	return key, nil
}

// Retrieve returns the raw bytes stored under key. ok is false, with a nil
// error, when the key does not exist.
func (c *InstrumentedCache) Retrieve(ctx context.Context, key string) (value []byte, ok bool, err error) {
	out, err := c.retrieve(ctx, []any{key})
	if err != nil || out == nil {
		return nil, false, err
	}
	return out.([]byte), true, nil
}

func (c *InstrumentedCache) retrieveOp(ctx context.Context, args []any) (any, error) {
	key := args[0].(string)
	b, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return b, nil
}

// Transform converts the raw stored bytes into T.
type Transform[T any] func([]byte) (T, error)

// RetrieveAs retrieves key and applies fn to the stored bytes. A missing key
// skips fn and returns (zero, false, nil).
func RetrieveAs[T any](ctx context.Context, c *InstrumentedCache, key string, fn Transform[T]) (T, bool, error) {
	var zero T
	if fn == nil {
		return zero, false, ErrNilTransform
	}
	raw, ok, err := c.Retrieve(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := fn(raw)
	if err != nil {
		return zero, true, fmt.Errorf("cache: transform %s: %w", key, err)
	}
	return v, true, nil
}

// AsText decodes UTF-8 bytes to a string.
func AsText(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrInvalidText
	}
	return string(b), nil
}

// AsInt parses decimal integer text, ignoring surrounding whitespace.
func AsInt(b []byte) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
}

// AsFloat parses floating-point text, ignoring surrounding whitespace. The
// text is parsed as float64: a float32 stored as 0.1 reads back as 0.1, not as
// float64(float32(0.1)).
func AsFloat(b []byte) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
}

// RetrieveText retrieves key as text.
func (c *InstrumentedCache) RetrieveText(ctx context.Context, key string) (string, bool, error) {
	return RetrieveAs(ctx, c, key, AsText)
}

// RetrieveInt retrieves key as an integer.
func (c *InstrumentedCache) RetrieveInt(ctx context.Context, key string) (int64, bool, error) {
	return RetrieveAs(ctx, c, key, AsInt)
}

// RetrieveFloat retrieves key as a float64. See AsFloat for float32 values.
func (c *InstrumentedCache) RetrieveFloat(ctx context.Context, key string) (float64, bool, error) {
	return RetrieveAs(ctx, c, key, AsFloat)
}

// CallRecord is one entry of an operation's call history.
type CallRecord struct {
	Inputs string
	Output string
}

// CallCount returns how many times op has been called since the last flush.
func (c *InstrumentedCache) CallCount(ctx context.Context, op string) (int64, error) {
	raw, ok, err := c.backend.Get(ctx, c.Identity(op))
	if err != nil {
		return 0, fmt.Errorf("cache: read %s counter: %w", c.Identity(op), err)
	}
	if !ok {
		return 0, nil
	}
	n, err := AsInt(raw)
	if err != nil {
		return 0, fmt.Errorf("cache: read %s counter: %w", c.Identity(op), err)
	}
	return n, nil
}

// History returns op's recorded calls in invocation order. The i-th input is
// paired with the i-th output; unmatched trailing entries are dropped.
func (c *InstrumentedCache) History(ctx context.Context, op string) ([]CallRecord, error) {
	rec, ok := c.backend.(Recorder)
	if !ok {
		return nil, ErrHistoryUnsupported
	}
	inKey, outKey := HistoryKeys(c.Identity(op))

	inputs, err := rec.LRange(ctx, inKey, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("cache: read %s: %w", inKey, err)
	}
	outputs, err := rec.LRange(ctx, outKey, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("cache: read %s: %w", outKey, err)
	}

	n := min(len(inputs), len(outputs))
	records := make([]CallRecord, n)
	for i := range n {
		records[i] = CallRecord{Inputs: inputs[i], Output: outputs[i]}
	}
	return records, nil
}
