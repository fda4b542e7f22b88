// Package cli implements the cellexec command line.
//
//	cellexec python 'print(1 + 1)'          run one cell, print the result as JSON
//	cellexec run sql - < query.sql          same, code from stdin, with flags
//	cellexec languages                      list language identifiers
//	cellexec serve                          start the HTTP bridge
//	cellexec token --subject notebook       mint a bridge bearer token
//
// Results go to stdout and logs to stderr, so stdout can be piped into
// other tools.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/cellexec/internal/config"
	"github.com/sakif/cellexec/internal/executor"
	"github.com/sakif/cellexec/internal/executor/builtin"
)

// errUsage marks an invocation error whose usage text is already printed.
var errUsage = errors.New("usage")

// app holds what every command shares once flags are parsed.
type app struct {
	configPath string
	envFile    string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "cellexec <language> <code>",
		Short: "Execute code cells in python, javascript, r, sql or html",
		Long: `cellexec runs a snippet of code in the requested language under a time
limit and reports a uniform result: success, output, error and execution time.

Languages: python (in-process), javascript (node), r (Rscript),
sql (in-memory SQLite) and html (validated and echoed).`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return a.usage(cmd, fmt.Sprintf("expected <language> <code>, got %d argument(s)", len(args)))
			}
			return a.runCell(cmd, args[0], args[1], runOptions{})
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file (default $CELLEXEC_CONFIG)")
	flags.StringVar(&a.envFile, "env-file", "", "load environment variables from a .env file first")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newRunCommand(a),
		newLanguagesCommand(a),
		newServeCommand(a),
		newTokenCommand(a),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

// setup resolves configuration and the logger before any command runs.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		if _, err := config.ParseLevel(a.logLevel); err != nil {
			return err
		}
		cfg.Log.Level = a.logLevel
	}

	a.cfg = cfg
	a.logger = config.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level)
	return nil
}

func (a *app) dispatcher() *executor.Dispatcher {
	return builtin.NewDispatcher(a.cfg, a.logger)
}

// usage prints the problem, the command's usage and the supported
// languages, then returns errUsage.
func (a *app) usage(cmd *cobra.Command, problem string) error {
	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, "Error:", problem)
	fmt.Fprint(w, cmd.UsageString())
	fmt.Fprintf(w, "\nSupported languages: %s\n", strings.Join(a.dispatcher().Languages(), ", "))
	return errUsage
}
