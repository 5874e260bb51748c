package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/espforge/espforge/pkg/config"
)

// rustTypes maps app.variables types to target types. Unknown types are i32.
var rustTypes = map[string]string{
	"bool":  "bool",
	"int":   "i32",
	"u8":    "u8",
	"u32":   "u32",
	"float": "f32",
}

// RustType returns the target type for a variable type name.
func RustType(t string) string {
	if rt, ok := rustTypes[t]; ok {
		return rt
	}
	return "i32"
}

// ResolveVariables declares every app variable as a mutable binding, in
// sorted name order.
func ResolveVariables(cfg *config.ProjectConfig) []string {
	out := []string{}
	if cfg.App == nil {
		return out
	}
	for _, name := range cfg.VariableNames() {
		def := cfg.App.Variables[name]
		rt := RustType(def.Type)
		out = append(out, fmt.Sprintf("let mut %s: %s = %s;", name, rt, initialLiteral(def.Initial, rt)))
	}
	return out
}

// initialLiteral renders a bool or number initial value. Anything else
// becomes the zero value of rt.
func initialLiteral(v interface{}, rt string) string {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val)
	case int:
		if rt == "f32" {
			return strconv.Itoa(val) + ".0"
		}
		return strconv.Itoa(val)
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		if rt == "f32" && !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	switch rt {
	case "bool":
		return "false"
	case "f32":
		return "0.0"
	default:
		return "0"
	}
}
