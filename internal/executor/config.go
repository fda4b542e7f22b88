package executor

import (
	"time"
)

// Config holds the settings shared by every execution.
type Config struct {
	// Timeout bounds a single strategy call.
	Timeout time.Duration
	// CancelGrace is how long the Dispatcher waits, after Timeout expires,
	// for a strategy to report its own timeout before giving up on it.
	CancelGrace time.Duration
}

// DefaultConfig provides the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		CancelGrace: 2 * time.Second,
	}
}
