package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/cellexec/internal/executor"
)

type runOptions struct {
	context string
	pretty  bool
	timeout time.Duration
}

func newRunCommand(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <language> <code|->",
		Short: "Execute one cell and print the result",
		Long: `Execute one cell and print the result as JSON.

Pass "-" as the code to read it from stdin. Context variables are given as
a JSON object, inline or from a file with @path:

  cellexec run python 'print(n * 2)' --context '{"n": 21}'
  cellexec run sql - --context @tables.json < report.sql`,
		// Checked in RunE rather than Args so the usage text can list the
		// configured languages.
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return a.usage(cmd, fmt.Sprintf("expected <language> <code|->, got %d argument(s)", len(args)))
			}
			return a.runCell(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.context, "context", "c", "", "context variables as a JSON object, or @file")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "render a styled summary instead of JSON")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "override the configured execution timeout")
	return cmd
}

// runCell executes one request and prints its result. The exit status is
// 0 whenever a result was produced, whether or not the code succeeded.
func (a *app) runCell(cmd *cobra.Command, language, code string, opts runOptions) error {
	if code == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading code from stdin: %w", err)
		}
		code = string(data)
	}

	vars, err := parseContext(opts.context)
	if err != nil {
		return err
	}

	if opts.timeout > 0 {
		a.cfg.Execution.Timeout = opts.timeout
	}

	res := a.dispatcher().Execute(cmd.Context(), executor.Request{
		Code:     code,
		Language: language,
		Context:  vars,
	})

	out := cmd.OutOrStdout()
	if opts.pretty {
		fmt.Fprintln(out, renderResult(language, res))
		return nil
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// parseContext decodes --context. Numbers are kept as json.Number so
// integers stay integers.
func parseContext(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	data := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading context file: %w", err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var vars map[string]any
	if err := dec.Decode(&vars); err != nil {
		return nil, fmt.Errorf("--context must be a JSON object: %w", err)
	}
	return vars, nil
}
