package executor

import (
	"encoding/json"
	"math"
)

// Scalar normalizes a context value to one of string, bool, int64 or
// float64. It reports false for anything else (nil, lists, maps, structs),
// which strategies that only understand scalars skip.
//
// json.Number is accepted because request bodies are decoded with
// UseNumber, which keeps integers from turning into floats.
func Scalar(v any) (any, bool) {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint:
		return unsigned(uint64(x))
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return unsigned(x)
	case float32:
		return float64(x), true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		if f, err := x.Float64(); err == nil {
			return f, true
		}
	}
	return nil, false
}

func unsigned(u uint64) (any, bool) {
	if u > math.MaxInt64 {
		return float64(u), true
	}
	return int64(u), true
}
