package inproc

import (
	"fmt"
	"math"
	"strings"

	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// allowed lists the universe builtins left untouched.
var allowed = map[string]bool{
	"None": true, "True": true, "False": true,
	"abs": true, "all": true, "any": true, "bool": true, "dict": true,
	"dir": true, "enumerate": true, "fail": true, "float": true,
	"getattr": true, "hasattr": true, "int": true, "len": true,
	"list": true, "max": true, "min": true, "range": true, "repr": true,
	"reversed": true, "set": true, "sorted": true, "str": true,
	"tuple": true, "type": true, "zip": true,
}

// pythonOnly are familiar Python builtins Starlark never had. Stubbing them
// turns "undefined: open" into a clearer message.
var pythonOnly = []string{
	"open", "exec", "eval", "compile", "input", "globals", "locals",
	"vars", "__import__", "exit", "quit", "breakpoint", "help",
}

var (
	stdoutStream = &stream{name: "stdout"}
	stderrStream = &stream{name: "stderr", isErr: true}
)

// restrictedBuiltins returns the unfrozen builtin layer: replacements,
// extras, the sys module and a stub for every denied name.
func restrictedBuiltins() starlark.StringDict {
	builtins := starlark.StringDict{
		"print":  starlark.NewBuiltin("print", printFn),
		"sum":    starlark.NewBuiltin("sum", sumFn),
		"round":  starlark.NewBuiltin("round", roundFn),
		"map":    starlark.NewBuiltin("map", mapFn),
		"filter": starlark.NewBuiltin("filter", filterFn),
		"sys": &starlarkstruct.Module{
			Name: "sys",
			Members: starlark.StringDict{
				"stdout": stdoutStream,
				"stderr": stderrStream,
			},
		},
	}

	for name := range starlark.Universe {
		if allowed[name] || builtins[name] != nil {
			continue
		}
		builtins[name] = denied(name)
	}
	for _, name := range pythonOnly {
		builtins[name] = denied(name)
	}
	return builtins
}

// probeModules returns the analysis modules this build provides.
func probeModules() starlark.StringDict {
	return starlark.StringDict{
		"math": starlarkmath.Module,
		"json": starlarkjson.Module,
		"time": starlarktime.Module,
	}
}

func denied(name string) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
		return nil, fmt.Errorf("%s is not available in this environment", name)
	})
}

// print(*args, sep=" ", end="\n", file=sys.stdout)
func printFn(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	out, err := threadStreams(thread)
	if err != nil {
		return nil, err
	}

	sep, end := " ", "\n"
	target := stdoutStream
	for _, kv := range kwargs {
		key := string(kv[0].(starlark.String))
		switch key {
		case "sep", "end":
			s, ok := kv[1].(starlark.String)
			if !ok && kv[1] != starlark.None {
				return nil, fmt.Errorf("%s: %s must be None or a string, not %s", b.Name(), key, kv[1].Type())
			}
			if !ok {
				continue
			}
			if key == "sep" {
				sep = string(s)
			} else {
				end = string(s)
			}
		case "file":
			if kv[1] == starlark.None {
				continue
			}
			s, ok := kv[1].(*stream)
			if !ok {
				return nil, fmt.Errorf("%s: file must be sys.stdout or sys.stderr, not %s", b.Name(), kv[1].Type())
			}
			target = s
		default:
			return nil, fmt.Errorf("%s: unexpected keyword argument %s", b.Name(), key)
		}
	}

	var line strings.Builder
	for i, arg := range args {
		if i > 0 {
			line.WriteString(sep)
		}
		if s, ok := arg.(starlark.String); ok {
			line.WriteString(string(s))
		} else {
			line.WriteString(arg.String())
		}
	}
	line.WriteString(end)

	out.buffer(target).WriteString(line.String())
	return starlark.None, nil
}

// sum(iterable, start=0)
func sumFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		iterable starlark.Iterable
		start    starlark.Value = starlark.MakeInt(0)
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "iterable", &iterable, "start?", &start); err != nil {
		return nil, err
	}

	iter := iterable.Iterate()
	defer iter.Done()

	acc := start
	var x starlark.Value
	for iter.Next(&x) {
		next, err := starlark.Binary(syntax.PLUS, acc, x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		acc = next
	}
	return acc, nil
}

// round(number, ndigits=None) rounds half to even.
func roundFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		number  starlark.Value
		ndigits starlark.Value = starlark.None
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "number", &number, "ndigits?", &ndigits); err != nil {
		return nil, err
	}

	f, ok := starlark.AsFloat(number)
	if !ok {
		return nil, fmt.Errorf("%s: got %s, want int or float", b.Name(), number.Type())
	}
	_, isInt := number.(starlark.Int)

	if ndigits == starlark.None {
		if isInt {
			return number, nil
		}
		return starlark.NumberToInt(starlark.Float(math.RoundToEven(f)))
	}

	n, err := starlark.AsInt32(ndigits)
	if err != nil {
		return nil, fmt.Errorf("%s: ndigits: %w", b.Name(), err)
	}
	if isInt && n >= 0 {
		return number, nil
	}
	p := math.Pow(10, float64(n))
	return starlark.Float(math.RoundToEven(f*p) / p), nil
}

// map(function, iterable) returns a list.
func mapFn(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		fn       starlark.Callable
		iterable starlark.Iterable
	)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &fn, &iterable); err != nil {
		return nil, err
	}

	iter := iterable.Iterate()
	defer iter.Done()

	var (
		out []starlark.Value
		x   starlark.Value
	)
	for iter.Next(&x) {
		v, err := starlark.Call(thread, fn, starlark.Tuple{x}, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return starlark.NewList(out), nil
}

// filter(function, iterable) returns a list. A None function keeps truthy
// elements.
func filterFn(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		fn       starlark.Value
		iterable starlark.Iterable
	)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &fn, &iterable); err != nil {
		return nil, err
	}
	callable, isCallable := fn.(starlark.Callable)
	if fn != starlark.None && !isCallable {
		return nil, fmt.Errorf("%s: %s is not callable", b.Name(), fn.Type())
	}

	iter := iterable.Iterate()
	defer iter.Done()

	var (
		out []starlark.Value
		x   starlark.Value
	)
	for iter.Next(&x) {
		keep := x
		if isCallable {
			v, err := starlark.Call(thread, callable, starlark.Tuple{x}, nil)
			if err != nil {
				return nil, err
			}
			keep = v
		}
		if keep.Truth() {
			out = append(out, x)
		}
	}
	return starlark.NewList(out), nil
}

// stream is the value behind sys.stdout and sys.stderr. It holds no
// buffer itself: writes go to the calling thread's streams.
type stream struct {
	name  string
	isErr bool
}

var _ starlark.HasAttrs = (*stream)(nil)

func (s *stream) String() string        { return "<sys." + s.name + ">" }
func (s *stream) Type() string          { return "stream" }
func (s *stream) Freeze()               {}
func (s *stream) Truth() starlark.Bool  { return starlark.True }
func (s *stream) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: stream") }
func (s *stream) AttrNames() []string   { return []string{"write"} }

func (s *stream) Attr(name string) (starlark.Value, error) {
	if name != "write" {
		return nil, nil
	}
	return starlark.NewBuiltin("write", s.write).BindReceiver(s), nil
}

func (s *stream) write(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &text); err != nil {
		return nil, err
	}
	out, err := threadStreams(thread)
	if err != nil {
		return nil, err
	}
	out.buffer(s).WriteString(text)
	return starlark.MakeInt(len(text)), nil
}

func (o *streams) buffer(s *stream) interface{ WriteString(string) (int, error) } {
	if s.isErr {
		return &o.stderr
	}
	return &o.stdout
}
