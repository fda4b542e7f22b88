// Package executor is the execution dispatcher: it resolves a language to a
// Strategy, runs it under one timeout budget and turns whatever happened
// (output, parse error, exit code, timeout, missing runtime, panic) into a
// single Result shape.
//
// The strategies themselves live in subpackages (inproc, process, sqlite,
// markup) and are wired together by the builtin package.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/cellexec/internal/apperror"
)

// Dispatcher is safe for concurrent use. It holds no per-call state, so
// independent executions may run in parallel.
type Dispatcher struct {
	registry *Registry
	config   Config
	logger   *slog.Logger
}

func NewDispatcher(registry *Registry, cfg Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		config:   cfg,
		logger:   logger,
	}
}

// Languages returns the identifiers the registry can resolve.
func (d *Dispatcher) Languages() []string {
	return d.registry.Languages()
}

// Status probes every registered strategy that depends on the host.
func (d *Dispatcher) Status() []RuntimeStatus {
	langs := d.registry.Languages()
	statuses := make([]RuntimeStatus, 0, len(langs))
	for _, lang := range langs {
		s, err := d.registry.Resolve(lang)
		if err != nil {
			continue
		}
		status := RuntimeStatus{Language: lang, Available: true}
		if p, ok := s.(Prober); ok {
			if err := p.Probe(); err != nil {
				status.Available = false
				status.Detail = err.Error()
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Execute runs one request to completion and always returns a Result.
// No failure path panics or returns an error to the caller.
func (d *Dispatcher) Execute(ctx context.Context, req Request) *Result {
	logger := d.logger.With(
		slog.String("execution_id", xid.New().String()),
		slog.String("language", req.Language),
	)

	strategy, err := d.registry.Resolve(req.Language)
	if err != nil {
		// No strategy ran, so no time is reported.
		logger.Warn("unsupported language", slog.String("error", err.Error()))
		return &Result{Error: err.Error()}
	}

	runCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	start := time.Now()
	outcome := d.invoke(runCtx, strategy, req, logger)
	elapsed := time.Since(start)

	logger.Info("execution finished",
		slog.Bool("success", outcome.Success),
		slog.Duration("duration", elapsed),
	)

	return &Result{
		Success:       outcome.Success,
		Output:        outcome.Output,
		Error:         outcome.Error,
		ExecutionTime: elapsed,
		HTMLContent:   outcome.HTMLContent,
	}
}

// invoke runs the strategy on its own goroutine so that a strategy which
// ignores cancellation cannot hold the caller past Timeout + CancelGrace.
func (d *Dispatcher) invoke(ctx context.Context, strategy Strategy, req Request, logger *slog.Logger) Outcome {
	done := make(chan Outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("strategy panicked", slog.Any("panic", r))
				done <- Failed(fmt.Errorf("%s execution error: %v", req.Language, r), "")
			}
		}()

		out, err := strategy.Run(ctx, req.Code, req.Context)
		if err != nil {
			logger.Error("strategy failed", slog.String("error", err.Error()))
			out = Failed(fmt.Errorf("%s execution error: %w", req.Language, err), out.Output)
		}
		done <- normalize(out, req.Language)
	}()

	select {
	case out := <-done:
		return out
	case <-ctx.Done():
	}

	grace := time.NewTimer(d.config.CancelGrace)
	defer grace.Stop()

	select {
	case out := <-done:
		return out
	case <-grace.C:
		logger.Error("strategy did not stop after cancellation",
			slog.Duration("grace", d.config.CancelGrace),
		)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Failed(apperror.Timeout(req.Language, d.config.Timeout), "")
		}
		return Failed(apperror.Cancelled(req.Language), "")
	}
}

// normalize enforces the result invariants: an error always means failure,
// and a failure always carries an error.
func normalize(out Outcome, language string) Outcome {
	if out.Error != "" {
		out.Success = false
	}
	if !out.Success && out.Error == "" {
		out.Error = fmt.Sprintf("%s execution failed without a diagnostic", language)
	}
	return out
}
