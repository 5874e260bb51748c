package templating

import (
	"strconv"
	"strings"
)

// Bool renders as a target literal (true/false) instead of pongo2's True/False.
type Bool bool

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Float renders with the shortest exact representation and always keeps a
// decimal point.
type Float float64

func (f Float) String() string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// normalize copies v, replacing bools and floats with their literal-rendering
// counterparts. Maps and slices are copied so callers' values are untouched.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case bool:
		return Bool(val)
	case float64:
		return Float(val)
	case float32:
		return Float(val)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func normalizeVars(vars Vars) Vars {
	out := make(Vars, len(vars))
	for k, v := range vars {
		out[k] = normalize(v)
	}
	return out
}
