package inproc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStrategy(cfg Config) *Strategy {
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func runCode(t *testing.T, s *Strategy, code string, vars map[string]any) (output, errText string, ok bool) {
	t.Helper()
	out, err := s.Run(context.Background(), code, vars)
	require.NoError(t, err)
	return out.Output, out.Error, out.Success
}

func TestRun_OutputBeforeFailureIsKept(t *testing.T) {
	s := newTestStrategy(DefaultConfig())
	code := strings.Join([]string{
		`print("first")`,
		`print("second")`,
		`fail("boom")`,
		`print("never")`,
	}, "\n")

	output, errText, ok := runCode(t, s, code, nil)

	assert.False(t, ok)
	assert.Equal(t, "first\nsecond\n", output)
	assert.True(t, strings.HasPrefix(errText, "Python execution error: "), errText)
	assert.Contains(t, errText, "boom")
	assert.Contains(t, errText, "Traceback")
}

func TestRun_Stderr(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		wantOutput string
		wantError  string
	}{
		{
			name:       "print to stderr",
			code:       "print(\"ok\")\nprint(\"oops\", file=sys.stderr)",
			wantOutput: "ok\n",
			wantError:  "oops\n",
		},
		{
			name:      "stderr write",
			code:      `sys.stderr.write("warning")`,
			wantError: "warning",
		},
	}

	s := newTestStrategy(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, errText, ok := runCode(t, s, tt.code, nil)

			assert.False(t, ok)
			assert.Equal(t, tt.wantOutput, output)
			assert.Equal(t, tt.wantError, errText)
		})
	}
}

func TestRun_Placeholder(t *testing.T) {
	s := newTestStrategy(DefaultConfig())

	output, errText, ok := runCode(t, s, "x = 1 + 1", nil)

	assert.True(t, ok)
	assert.Empty(t, errText)
	assert.Equal(t, "Code executed successfully (no output)", output)
}

func TestRun_Print(t *testing.T) {
	s := newTestStrategy(DefaultConfig())

	output, _, ok := runCode(t, s, `print("a", 1, [2], sep="-", end="!")
sys.stdout.write("done")`, nil)

	assert.True(t, ok)
	assert.Equal(t, "a-1-[2]!done", output)
}

func TestRun_ContextOverridesBuiltins(t *testing.T) {
	s := newTestStrategy(DefaultConfig())
	vars := map[string]any{
		"len":  "shadowed",
		"data": []any{json.Number("1"), json.Number("2.5")},
		"cfg":  map[string]any{"name": "ada", "on": true, "none": nil},
	}

	output, errText, ok := runCode(t, s, `print(len)
print(sum(data))
print(cfg["name"], cfg["on"], cfg["none"])`, vars)

	assert.True(t, ok, errText)
	assert.Equal(t, "shadowed\n3.5\nada True None\n", output)
}

func TestRun_Extras(t *testing.T) {
	s := newTestStrategy(DefaultConfig())

	output, errText, ok := runCode(t, s,
		`print(sum([1, 2, 3]), round(2.5), round(3.14159, 2), map(lambda x: x * 2, [1, 2]), filter(None, [0, 1, 2]))`, nil)

	assert.True(t, ok, errText)
	assert.Equal(t, "6 2 3.14 [2, 4] [1, 2]\n", output)
}

func TestRun_DeniedBuiltins(t *testing.T) {
	s := newTestStrategy(DefaultConfig())

	for _, name := range []string{"hash", "open", "eval"} {
		t.Run(name, func(t *testing.T) {
			_, errText, ok := runCode(t, s, fmt.Sprintf("%s(\"x\")", name), nil)

			assert.False(t, ok)
			assert.Contains(t, errText, name+" is not available in this environment")
		})
	}
}

func TestRun_LoadIsDisabled(t *testing.T) {
	s := newTestStrategy(DefaultConfig())

	_, errText, ok := runCode(t, s, `load("helpers.star", "helper")`, nil)

	assert.False(t, ok)
	assert.Contains(t, errText, "load")
}

func TestRun_RecursionIsRejected(t *testing.T) {
	s := newTestStrategy(DefaultConfig())
	code := "def f(n):\n    return f(n - 1) if n else 0\nprint(f(3))"

	_, errText, ok := runCode(t, s, code, nil)

	assert.False(t, ok)
	assert.Contains(t, errText, "recursive")
}

func TestRun_SyntaxError(t *testing.T) {
	s := newTestStrategy(DefaultConfig())

	_, errText, ok := runCode(t, s, "def broken(:\n", nil)

	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(errText, "Python execution error: "), errText)
}

func TestRun_AnalysisModules(t *testing.T) {
	enabled := newTestStrategy(DefaultConfig())
	output, errText, ok := runCode(t, enabled, `print(math.sqrt(16))
print(json.encode({"a": [1, 2]}))`, nil)
	assert.True(t, ok, errText)
	assert.Equal(t, "4.0\n{\"a\":[1,2]}\n", output)

	cfg := DefaultConfig()
	cfg.AnalysisModules = false
	disabled := newTestStrategy(cfg)
	_, errText, ok = runCode(t, disabled, `print(math.sqrt(16))`, nil)
	assert.False(t, ok)
	assert.Contains(t, errText, "undefined: math")

	// Everything else is unaffected.
	output, _, ok = runCode(t, disabled, `print(abs(-2))`, nil)
	assert.True(t, ok)
	assert.Equal(t, "2\n", output)
}

func TestRun_Timeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 100 * time.Millisecond
	cfg.MaxSteps = 0
	s := newTestStrategy(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	start := time.Now()
	out, err := s.Run(ctx, "print(\"spinning\")\nwhile True:\n    pass", nil)
	require.NoError(t, err)

	assert.False(t, out.Success)
	assert.Equal(t, "Python code execution timed out after 0.1 seconds", out.Error)
	assert.Equal(t, "spinning\n", out.Output)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_StepBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 1000
	s := newTestStrategy(cfg)

	_, errText, ok := runCode(t, s, "for i in range(1000000):\n    pass", nil)

	assert.False(t, ok)
	assert.Contains(t, errText, "too many steps")
}

func TestRun_Idempotent(t *testing.T) {
	s := newTestStrategy(DefaultConfig())
	code := "xs = [n * n for n in range(5)]\nprint(xs)"

	first, _, _ := runCode(t, s, code, nil)
	second, _, _ := runCode(t, s, code, nil)

	assert.Equal(t, "[0, 1, 4, 9, 16]\n", first)
	assert.Equal(t, first, second)
}

func TestRun_Parallel(t *testing.T) {
	s := newTestStrategy(DefaultConfig())

	var wg sync.WaitGroup
	outputs := make([]string, 16)
	for i := range outputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := s.Run(context.Background(), "print(n)", map[string]any{"n": i})
			if err == nil {
				outputs[i] = out.Output
			}
		}(i)
	}
	wg.Wait()

	for i, got := range outputs {
		assert.Equal(t, fmt.Sprintf("%d\n", i), got)
	}
}

func TestToValue_Unsupported(t *testing.T) {
	_, err := toValue(struct{}{})
	assert.Error(t, err)

	s := newTestStrategy(DefaultConfig())
	_, errText, ok := runCode(t, s, "print(1)", map[string]any{"weird": struct{}{}})
	assert.False(t, ok)
	assert.Contains(t, errText, `context entry "weird"`)
}
