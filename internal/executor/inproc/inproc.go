// Package inproc implements the python strategy by evaluating code
// in-process with Starlark, the Python dialect designed for embedding
// in Go programs.
//
// NAMESPACE:
// Every call gets a fresh set of predeclared names, built from three layers
// (later layers win):
//  1. a fixed allow-list of general-purpose builtins; every other universe
//     builtin is replaced by a stub that fails when called.
//  2. optional analysis modules (math, json, time), found once at
//     construction.
//  3. the request's context entries.
//
// This is a best-effort allow-list that limits accidental damage. It is
// NOT a sandbox against hostile code.
package inproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/sakif/cellexec/internal/apperror"
	"github.com/sakif/cellexec/internal/executor"
)

const noOutput = "Code executed successfully (no output)"

// Config controls the python strategy.
type Config struct {
	// Timeout is only used to word the timeout message. The deadline
	// itself arrives through the context.
	Timeout time.Duration
	// MaxSteps bounds the number of interpreter steps per call.
	// Zero means unbounded.
	MaxSteps uint64
	// AnalysisModules enables the math, json and time modules.
	AnalysisModules bool
}

func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxSteps:        100_000_000,
		AnalysisModules: true,
	}
}

// Recursion stays disabled: deep recursion in Starlark would overflow the
// Go stack, which cannot be recovered.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

type Strategy struct {
	config   Config
	logger   *slog.Logger
	builtins starlark.StringDict
}

// New builds the shared, frozen builtin layer once. Per-call state lives
// on the Starlark thread.
func New(cfg Config, logger *slog.Logger) *Strategy {
	builtins := restrictedBuiltins()
	if cfg.AnalysisModules {
		modules := probeModules()
		for name, mod := range modules {
			builtins[name] = mod
		}
		logger.Debug("analysis modules enabled", slog.Int("count", len(modules)))
	}
	builtins.Freeze()

	return &Strategy{
		config:   cfg,
		logger:   logger,
		builtins: builtins,
	}
}

func (s *Strategy) Run(ctx context.Context, code string, vars map[string]any) (executor.Outcome, error) {
	predeclared, err := s.namespace(vars)
	if err != nil {
		return executor.Failed(apperror.ProcessFailure("Python execution error: "+err.Error()), ""), nil
	}

	out := &streams{}
	thread := &starlark.Thread{Name: "cell"}
	thread.SetLocal(streamsKey, out)
	if s.config.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(s.config.MaxSteps)
	}

	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer stop()

	_, execErr := starlark.ExecFileOptions(fileOptions, thread, "<cell>", code, predeclared)

	stdout := out.stdout.String()
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return executor.Failed(apperror.Timeout("Python", s.config.Timeout), stdout), nil
	case errors.Is(ctx.Err(), context.Canceled):
		return executor.Failed(apperror.Cancelled("Python"), stdout), nil
	case execErr != nil:
		return executor.Failed(apperror.ProcessFailure(describe(execErr)), stdout), nil
	case out.stderr.Len() > 0:
		return executor.Failed(apperror.ProcessFailure(out.stderr.String()), stdout), nil
	default:
		return executor.Succeeded(stdout, noOutput), nil
	}
}

// namespace layers the request's context over the shared builtins.
func (s *Strategy) namespace(vars map[string]any) (starlark.StringDict, error) {
	predeclared := make(starlark.StringDict, len(s.builtins)+len(vars))
	for name, v := range s.builtins {
		predeclared[name] = v
	}
	for name, raw := range vars {
		v, err := toValue(raw)
		if err != nil {
			return nil, fmt.Errorf("context entry %q: %w", name, err)
		}
		predeclared[name] = v
	}
	return predeclared, nil
}

// describe renders an evaluation failure with its traceback.
func describe(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return "Python execution error: " + evalErr.Msg + "\n" + evalErr.Backtrace()
	}
	return "Python execution error: " + err.Error()
}

// streams holds the per-call output buffers.
type streams struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

const streamsKey = "cellexec.streams"

func threadStreams(thread *starlark.Thread) (*streams, error) {
	out, ok := thread.Local(streamsKey).(*streams)
	if !ok {
		return nil, errors.New("output streams are not attached to this thread")
	}
	return out, nil
}
