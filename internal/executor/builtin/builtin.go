// Package builtin assembles the standard strategy registry and dispatcher
// from configuration.
package builtin

import (
	"log/slog"

	"github.com/sakif/cellexec/internal/config"
	"github.com/sakif/cellexec/internal/executor"
	"github.com/sakif/cellexec/internal/executor/inproc"
	"github.com/sakif/cellexec/internal/executor/markup"
	"github.com/sakif/cellexec/internal/executor/process"
	"github.com/sakif/cellexec/internal/executor/sqlite"
)

// Language identifiers accepted by the dispatcher.
const (
	Python     = "python"
	JavaScript = "javascript"
	R          = "r"
	SQL        = "sql"
	HTML       = "html"
)

// NewRegistry registers every built-in strategy. The registry is not
// modified afterwards.
func NewRegistry(cfg config.Config, logger *slog.Logger) *executor.Registry {
	timeout := cfg.Execution.Timeout

	reg := executor.NewRegistry()
	reg.Register(Python, inproc.New(inproc.Config{
		Timeout:         timeout,
		MaxSteps:        cfg.Python.MaxSteps,
		AnalysisModules: cfg.Python.AnalysisModules,
	}, logger))
	reg.Register(JavaScript, process.New(process.JavaScript(), processConfig(cfg, cfg.Runtimes.Node), logger))
	reg.Register(R, process.New(process.R(), processConfig(cfg, cfg.Runtimes.Rscript), logger))
	reg.Register(SQL, sqlite.New(timeout, logger))
	reg.Register(HTML, markup.New())
	return reg
}

// NewDispatcher is the usual entry point: the built-in registry behind a
// dispatcher using the configured timeouts.
func NewDispatcher(cfg config.Config, logger *slog.Logger) *executor.Dispatcher {
	return executor.NewDispatcher(NewRegistry(cfg, logger), executor.Config{
		Timeout:     cfg.Execution.Timeout,
		CancelGrace: cfg.Execution.CancelGrace,
	}, logger)
}

func processConfig(cfg config.Config, binary string) process.Config {
	pc := process.DefaultConfig()
	pc.Timeout = cfg.Execution.Timeout
	pc.TempDir = cfg.Execution.TempDir
	pc.Binary = binary
	return pc
}
