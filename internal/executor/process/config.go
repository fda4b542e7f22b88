package process

import (
	"time"
)

// Config holds the configuration for one external-process strategy.
type Config struct {
	// Timeout is only used to word the timeout message. The deadline
	// itself arrives through the context.
	Timeout time.Duration
	// TempDir is where source files are written. Empty means os.TempDir().
	TempDir string
	// Binary overrides the runtime's default interpreter name or path.
	Binary string
	// WaitDelay bounds how long Run waits for the output pipes to close
	// after the interpreter has been killed.
	WaitDelay time.Duration
}

// DefaultConfig provides sensible defaults for a local interpreter.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		WaitDelay: 500 * time.Millisecond,
	}
}
