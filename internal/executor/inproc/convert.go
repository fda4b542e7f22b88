package inproc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"go.starlark.net/starlark"

	"github.com/sakif/cellexec/internal/executor"
)

// toValue converts a decoded context value into a Starlark value.
// Lists become lists and string-keyed maps become dicts.
func toValue(v any) (starlark.Value, error) {
	switch v := v.(type) {
	case nil:
		return starlark.None, nil
	case json.Number:
		if n, ok := new(big.Int).SetString(string(v), 10); ok {
			return starlark.MakeBigInt(n), nil
		}
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", string(v))
		}
		return starlark.Float(f), nil
	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			ev, err := toValue(e)
			if err != nil {
				return nil, err
			}
			elems[i] = ev
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		dict := starlark.NewDict(len(v))
		for _, k := range keys {
			ev, err := toValue(v[k])
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), ev); err != nil {
				return nil, err
			}
		}
		return dict, nil
	}

	scalar, ok := executor.Scalar(v)
	if !ok {
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
	switch s := scalar.(type) {
	case string:
		return starlark.String(s), nil
	case bool:
		return starlark.Bool(s), nil
	case int64:
		return starlark.MakeInt64(s), nil
	case float64:
		return starlark.Float(s), nil
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}
