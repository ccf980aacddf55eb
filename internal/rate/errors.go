package rate

import "errors"

var (
	// ErrRedisUnavailable wraps every Redis command failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrCounterCorrupt reports a counter key holding a non-integer value.
	ErrCounterCorrupt = errors.New("counter value corrupt")
)
