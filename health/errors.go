package health

import "errors"

var (
	// ErrCheckFailed wraps the error returned by a failed ping.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrNoCheckers indicates no checkers are registered.
	ErrNoCheckers = errors.New("health: no checkers registered")

	// ErrNilPinger is reported by a ping checker built without a Pinger.
	ErrNilPinger = errors.New("health: pinger is nil")
)
