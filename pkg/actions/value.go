package actions

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
)

// ResolveValue turns a scalar action value into a target expression.
//
//	"$count" -> count
//	"hello"  -> "hello"
//	true     -> true
//	2.5      -> 2.5
//
// Mappings, sequences and null have no expression form and are rejected
// with UNSUPPORTED_VALUE_SHAPE.
func ResolveValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, "$") {
			name := strings.TrimPrefix(val, "$")
			if name == "" {
				return "", engine.NewError(engine.ErrCodeUndefinedReference, "empty '$' reference")
			}
			return name, nil
		}
		return quoteLiteral(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float64:
		return formatFloat(val)
	case nil:
		return "", engine.NewError(engine.ErrCodeUnsupportedValueShape, "null has no expression form")
	default:
		return "", engine.Errorf(engine.ErrCodeUnsupportedValueShape,
			"value of shape %s has no expression form", shapeOf(v))
	}
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", engine.Errorf(engine.ErrCodeUnsupportedValueShape, "non-finite number %v", f)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}

func quoteLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// asMapping returns v as a string-keyed mapping. yaml.v3 decodes nested
// mappings of an action list with the list's element type, config.Action.
func asMapping(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case config.Action:
		return m, true
	}
	return nil, false
}

func shapeOf(v interface{}) string {
	switch v.(type) {
	case map[string]interface{}, map[interface{}]interface{}, config.Action:
		return "mapping"
	case []interface{}:
		return "sequence"
	default:
		return fmt.Sprintf("%T", v)
	}
}
