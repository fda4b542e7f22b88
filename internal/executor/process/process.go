// Package process implements the external-interpreter strategies
// (javascript via node, r via Rscript). Each call writes the code to a
// temporary source file, runs the interpreter on it under the shared
// timeout and removes the file on every exit path.
//
// EXECUTION FLOW:
//  1. Write a prologue declaring each scalar context entry as a native
//     literal (sorted by name), followed by the user's code verbatim.
//  2. Start the interpreter in its own process group, with stdout and
//     stderr captured separately.
//  3. On timeout or cancellation the whole group is killed, so anything
//     the script spawned goes with it.
//  4. Map the exit to an Outcome.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/sakif/cellexec/internal/apperror"
	"github.com/sakif/cellexec/internal/executor"
)

// Strategy runs code through one external interpreter.
type Strategy struct {
	runtime Runtime
	config  Config
	logger  *slog.Logger
}

// New creates a process strategy for rt. cfg.Binary, when set, replaces
// the runtime's default interpreter.
func New(rt Runtime, cfg Config, logger *slog.Logger) *Strategy {
	if cfg.Binary != "" {
		rt.Binary = cfg.Binary
	}
	return &Strategy{
		runtime: rt,
		config:  cfg,
		logger:  logger.With(slog.String("runtime", rt.Binary)),
	}
}

// Probe reports whether the interpreter can be found.
func (s *Strategy) Probe() error {
	if _, err := exec.LookPath(s.runtime.Binary); err != nil {
		return s.missing()
	}
	return nil
}

func (s *Strategy) Run(ctx context.Context, code string, vars map[string]any) (executor.Outcome, error) {
	path, err := s.writeSource(code, vars)
	if err != nil {
		return executor.Outcome{}, err
	}
	// Always ensure the source file is removed, whatever happened below.
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to remove source file", slog.String("path", path), slog.String("error", err.Error()))
		}
	}()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.runtime.Binary, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = s.config.WaitDelay
	killGroupOnCancel(cmd)

	runErr := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case errors.Is(runErr, exec.ErrNotFound), errors.Is(runErr, fs.ErrNotExist):
		return executor.Failed(s.missing(), ""), nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return executor.Failed(apperror.Timeout(s.runtime.Label, s.config.Timeout), stdout.String()), nil
	case errors.Is(ctx.Err(), context.Canceled):
		return executor.Failed(apperror.Cancelled(s.runtime.Label), stdout.String()), nil
	case runErr == nil:
		return executor.Succeeded(stdout.String(), s.runtime.Placeholder), nil
	case errors.As(runErr, &exitErr):
		msg := strings.TrimRight(stderr.String(), "\n")
		if msg == "" {
			msg = fmt.Sprintf("%s process exited with status %d", s.runtime.Label, exitErr.ExitCode())
		}
		return executor.Failed(apperror.ProcessFailure(msg), stdout.String()), nil
	default:
		return executor.Outcome{Output: stdout.String()}, fmt.Errorf("running %s: %w", s.runtime.Binary, runErr)
	}
}

// writeSource creates the temporary source file and returns its path.
func (s *Strategy) writeSource(code string, vars map[string]any) (string, error) {
	f, err := os.CreateTemp(s.config.TempDir, "cellexec-*"+s.runtime.Extension)
	if err != nil {
		return "", fmt.Errorf("creating source file: %w", err)
	}

	_, writeErr := f.WriteString(Prologue(s.runtime, vars) + code)
	closeErr := f.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing source file: %w", err)
	}
	return f.Name(), nil
}

func (s *Strategy) missing() error {
	return apperror.RuntimeMissing(s.runtime.RuntimeName, s.runtime.Binary, s.runtime.Label)
}

// Prologue declares every scalar context entry, one per line, in sorted
// name order. Entries that are not scalars, or whose names are not plain
// identifiers, are skipped.
func Prologue(rt Runtime, vars map[string]any) string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		if !isIdentifier(name) {
			continue
		}
		v, ok := executor.Scalar(vars[name])
		if !ok {
			continue
		}
		stmt, ok := rt.Declare(name, v)
		if !ok {
			continue
		}
		b.WriteString(stmt)
		b.WriteByte('\n')
	}
	return b.String()
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
