package cache

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// encodeValue converts a scalar to the bytes the store keeps. Integers are
// written in decimal and floats in their shortest round-trip form, matching
// what the Redis client sends on the wire. Unsigned values above
// math.MaxInt64 are rejected so every stored integer reads back with AsInt.
func encodeValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return []byte(val), nil
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out, nil
	case int:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case int64:
		return strconv.AppendInt(nil, val, 10), nil
	case uint:
		return encodeUint(uint64(val))
	case uint8:
		return strconv.AppendUint(nil, uint64(val), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(val), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(val), 10), nil
	case uint64:
		return encodeUint(val)
	case float32:
		return strconv.AppendFloat(nil, float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.AppendFloat(nil, val, 'f', -1, 64), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func encodeUint(v uint64) ([]byte, error) {
	if v > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedValue, v)
	}
	return strconv.AppendUint(nil, v, 10), nil
}

// formatArgs renders call arguments for the inputs history list: each
// argument formatted by formatArg, joined with ", ".
func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatArg(a)
	}
	return strings.Join(parts, ", ")
}

func formatArg(a any) string {
	switch v := a.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(v)
	case []byte:
		return "[]byte(" + strconv.Quote(string(v)) + ")"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// formatOutput renders a call result for the outputs history list.
func formatOutput(out any, err error) string {
	if err != nil {
		return errorMarker + err.Error()
	}
	switch v := out.(type) {
	case nil:
		return "nil"
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// errorMarker prefixes the output recorded for a failed call.
const errorMarker = "error: "
