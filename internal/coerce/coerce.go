// Package coerce normalizes loosely-typed request parameters before
// validation. Certain MCP transport bridges stringify all tool arguments,
// so a boolean may arrive as "true" and a number as "5"; these helpers
// bring such values back to their declared types.
//
// All functions are pure and side-effect free. A value that cannot be
// coerced is reported as an error rather than silently guessed at: the old
// behavior of falling back to string truthiness turned inputs like "maybe"
// into true, which was a latent bug, not a contract.
package coerce

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bool coerces v to a boolean. Strings are matched case-insensitively:
// "true"/"1"/"yes" are true, "false"/"0"/"no"/"" are false, anything else
// is an error. Numbers are true when non-zero.
func Bool(v interface{}) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no", "":
			return false, nil
		default:
			return false, fmt.Errorf("cannot interpret %q as a boolean", t)
		}
	case float64:
		return t != 0, nil
	case int:
		return t != 0, nil
	default:
		return false, fmt.Errorf("cannot interpret %T as a boolean", v)
	}
}

// Float coerces v to a float64. Range checks belong to the validation layer.
func Float(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot interpret %q as a number", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot interpret %T as a number", v)
	}
}

// Int coerces v to an int, rejecting fractional values.
func Int(v interface{}) (int, error) {
	f, err := Float(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("expected an integer, got %v", f)
	}
	return int(f), nil
}

// String coerces v to a string. Only genuine strings pass; numbers and
// booleans are not silently stringified.
func String(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("cannot interpret %T as a string", v)
	}
	return s, nil
}

// Strings coerces v to a []string. Accepts []string directly or a JSON
// []interface{} whose members are all strings.
func Strings(v interface{}) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, expected string", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot interpret %T as a string list", v)
	}
}

// Map coerces v to a map[string]interface{}.
func Map(v interface{}) (map[string]interface{}, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("cannot interpret %T as an object", v)
	}
	return m, nil
}

// Slice coerces v to a []interface{}.
func Slice(v interface{}) ([]interface{}, error) {
	s, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("cannot interpret %T as a list", v)
	}
	return s, nil
}
