package executor

import (
	"context"
	"encoding/json"
	"time"
)

// Request is one cell to execute. It is built by the caller, consumed once
// and never mutated.
type Request struct {
	Code     string         `json:"code"`
	Language string         `json:"language"`
	Context  map[string]any `json:"context,omitempty"`
}

// Result is the uniform shape every execution produces, whatever strategy
// ran it. ExecutionTime is owned by the Dispatcher.
type Result struct {
	Success       bool          `json:"success"`
	Output        string        `json:"output"`
	Error         string        `json:"error"`
	ExecutionTime time.Duration `json:"-"`
	// HTMLContent carries raw markup for direct rendering. Only the html
	// strategy sets it.
	HTMLContent string `json:"html_content,omitempty"`
}

type resultJSON struct {
	Success       bool    `json:"success"`
	Output        string  `json:"output"`
	Error         string  `json:"error"`
	ExecutionTime float64 `json:"execution_time"`
	HTMLContent   string  `json:"html_content,omitempty"`
}

// MarshalJSON renders execution_time as fractional seconds.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Success:       r.Success,
		Output:        r.Output,
		Error:         r.Error,
		ExecutionTime: r.ExecutionTime.Seconds(),
		HTMLContent:   r.HTMLContent,
	})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result{
		Success:       raw.Success,
		Output:        raw.Output,
		Error:         raw.Error,
		ExecutionTime: time.Duration(raw.ExecutionTime * float64(time.Second)),
		HTMLContent:   raw.HTMLContent,
	}
	return nil
}

// Outcome is what a strategy reports: a Result without timing.
type Outcome struct {
	Success     bool
	Output      string
	Error       string
	HTMLContent string
}

// Succeeded builds a successful outcome. An empty output is replaced by the
// placeholder so callers can tell "ran with nothing to show" from
// "never ran".
func Succeeded(output, placeholder string) Outcome {
	if output == "" {
		output = placeholder
	}
	return Outcome{Success: true, Output: output}
}

// Failed builds a failed outcome. Output captured before the failure is
// kept alongside the error.
func Failed(err error, output string) Outcome {
	return Outcome{Error: err.Error(), Output: output}
}

// Strategy executes code for one language.
//
// Run returns an Outcome for everything the user's code can cause,
// including timeouts and missing runtimes. A non-nil error means the
// strategy itself could not operate (for example, the temp directory is
// unwritable). The Dispatcher reports both the same way. Implementations
// keep no state between calls and must release every resource they
// acquire before returning.
type Strategy interface {
	Run(ctx context.Context, code string, vars map[string]any) (Outcome, error)
}

// Prober is implemented by strategies that depend on something outside the
// process, such as an interpreter binary. Probe returns nil when the
// dependency is usable.
type Prober interface {
	Probe() error
}

// RuntimeStatus describes whether a language can currently be executed.
type RuntimeStatus struct {
	Language  string `json:"language"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}
