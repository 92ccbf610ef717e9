package health

import (
	"context"
	"fmt"
	"time"
)

// Status is the health of one store.
type Status int

const (
	// StatusHealthy indicates the store answers promptly.
	StatusHealthy Status = iota
	// StatusDegraded indicates the store answers, but slowly.
	StatusDegraded
	// StatusUnhealthy indicates the store cannot be reached.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one check.
type Result struct {
	Status  Status
	Message string

	// Latency is the store round trip measured by the checker. Zero when the
	// checker does not measure one.
	Latency time.Duration

	// Duration is the wall time of the whole check, set by the Aggregator.
	Duration time.Duration

	Timestamp time.Time
	Error     error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, Timestamp: time.Now()}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err, Timestamp: time.Now()}
}

// WithLatency sets the measured round trip.
func (r Result) WithLatency(d time.Duration) Result {
	r.Latency = d
	return r
}

// Checker checks one store.
type Checker interface {
	// Name identifies the checked store, e.g. "redis".
	Name() string

	// Check performs the health check and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string { return f.name }

// Check performs the health check.
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// Pinger is anything that can check its own connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// DefaultSlowThreshold is the ping latency above which a store is degraded.
const DefaultSlowThreshold = 500 * time.Millisecond

// PingChecker reports a store healthy when Ping succeeds within
// SlowThreshold, degraded when it succeeds slower, and unhealthy when it
// fails.
type PingChecker struct {
	name   string
	pinger Pinger

	// SlowThreshold of zero or less disables the degraded state.
	SlowThreshold time.Duration

	now func() time.Time
}

// NewPingChecker creates a checker for p using DefaultSlowThreshold.
func NewPingChecker(name string, p Pinger) *PingChecker {
	return &PingChecker{
		name:          name,
		pinger:        p,
		SlowThreshold: DefaultSlowThreshold,
		now:           time.Now,
	}
}

// Name returns the store name.
func (c *PingChecker) Name() string { return c.name }

// Check pings the store once.
func (c *PingChecker) Check(ctx context.Context) Result {
	if c.pinger == nil {
		return Unhealthy(c.name+" not configured", ErrNilPinger)
	}

	start := c.now()
	err := c.pinger.Ping(ctx)
	latency := c.now().Sub(start)

	if err != nil {
		return Unhealthy(
			fmt.Sprintf("%s unreachable", c.name),
			fmt.Errorf("%w: %s: %w", ErrCheckFailed, c.name, err),
		).WithLatency(latency)
	}
	if c.SlowThreshold > 0 && latency > c.SlowThreshold {
		return Degraded(fmt.Sprintf("%s slow: %s", c.name, latency)).WithLatency(latency)
	}
	return Healthy(fmt.Sprintf("%s reachable", c.name)).WithLatency(latency)
}
