package actions

import (
	"strings"
	"testing"

	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/manifest"
	"github.com/espforge/espforge/pkg/templating"
)

func testEnv(t *testing.T) *Env {
	t.Helper()
	catalog, err := manifest.LoadBuiltin()
	if err != nil {
		t.Fatalf("LoadBuiltin() error = %v", err)
	}
	cfg := &config.ProjectConfig{
		Espforge: config.ProjectMeta{Name: "blink", Platform: config.PlatformESP32C3},
		Components: map[string]config.Instance{
			"red_led": {Using: "led", With: map[string]interface{}{"gpio": "$LED_PIN"}},
			"ghost":   {Using: "hologram"},
		},
		Devices: map[string]config.Instance{
			"screen": {Using: "ssd1306", With: map[string]interface{}{"i2c": "$bus"}},
		},
		App: &config.AppConfig{
			Variables: map[string]config.VariableDef{
				"count": {Type: "int", Initial: 0},
				"lit":   {Type: "bool"},
			},
		},
	}
	return &Env{Config: cfg, Catalog: catalog, Templates: templating.NewEngine()}
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	var names []string
	for _, s := range r.Strategies() {
		names = append(names, s.Name())
	}
	if got := strings.Join(names, ","); got != "component,global,set,if" {
		t.Fatalf("dispatch order = %s", got)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"$red_led.toggle", "component"},
		{"$red_led", "component"},
		{"logger.info", "global"},
		{"set", "set"},
		{"if", "if"},
		{"set.x", "global"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				s, ok := r.Lookup(tt.key)
				if !ok {
					t.Fatalf("Lookup(%q) found nothing", tt.key)
				}
				if s.Name() != tt.want {
					t.Fatalf("Lookup(%q) = %s, want %s", tt.key, s.Name(), tt.want)
				}
			}
		})
	}

	if _, ok := r.Lookup("toggle"); ok {
		t.Error("plain word should not be claimed")
	}
}

func TestRegistryWithSubset(t *testing.T) {
	r := NewRegistryWith(&globalStrategy{})
	env := testEnv(t)
	if _, err := r.Render("$red_led.toggle", nil, env); !engine.HasCode(err, engine.ErrCodeUnknownActionFormat) {
		t.Fatalf("Render() error = %v, want UNKNOWN_ACTION_FORMAT", err)
	}
	out, err := r.Render("delay.delay_ms", 500, env)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "delay.delay_ms(500);" {
		t.Errorf("Render() = %q", out)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		action   config.Action
		want     string
		wantCode string
	}{
		{
			name:   "component method",
			action: config.Action{"$red_led.toggle": nil},
			want:   "red_led.toggle();",
		},
		{
			name:   "global method with args",
			action: config.Action{"logger.info": "Hello"},
			want:   `EspforgeLog::info("Hello");`,
		},
		{
			name:   "set literal",
			action: config.Action{"set": map[string]interface{}{"variable": "count", "value": 0}},
			want:   "count = 0;",
		},
		{
			name:   "set reference",
			action: config.Action{"set": map[string]interface{}{"variable": "count", "value": "$other"}},
			want:   "count = other;",
		},
		{
			name: "set call",
			action: config.Action{"set": map[string]interface{}{
				"variable": "lit",
				"call":     map[string]interface{}{"target": "red_led", "method": "is_on"},
			}},
			want: "lit = red_led.is_on();",
		},
		{
			name: "if with nested actions",
			action: config.Action{"if": map[string]interface{}{
				"condition": map[string]interface{}{"lhs": "$count", "op": "gt", "rhs": 10},
				"then": []interface{}{
					map[string]interface{}{"$red_led.on": nil},
					map[string]interface{}{"set": map[string]interface{}{"variable": "count", "value": 0}},
				},
			}},
			want: "if count > 10 {\nred_led.on();\ncount = 0;\n}",
		},
		{
			name: "if literal operator",
			action: config.Action{"if": map[string]interface{}{
				"condition": map[string]interface{}{"lhs": "$count", "op": "%", "rhs": 2},
				"then":      []interface{}{},
			}},
			want: "if count % 2 {\n\n}",
		},
		{
			name:     "unknown method",
			action:   config.Action{"$red_led.explode": nil},
			wantCode: engine.ErrCodeMethodNotFound,
		},
		{
			name:     "unknown instance",
			action:   config.Action{"$blue_led.on": nil},
			wantCode: engine.ErrCodeUndefinedReference,
		},
		{
			name:     "instance with unknown manifest",
			action:   config.Action{"$ghost.on": nil},
			wantCode: engine.ErrCodeUnknownManifest,
		},
		{
			name:     "unknown global module",
			action:   config.Action{"radio.send": nil},
			wantCode: engine.ErrCodeUnknownManifest,
		},
		{
			name:     "unclaimed key",
			action:   config.Action{"blink": nil},
			wantCode: engine.ErrCodeUnknownActionFormat,
		},
		{
			name:     "set undeclared variable",
			action:   config.Action{"set": map[string]interface{}{"variable": "nope", "value": 1}},
			wantCode: engine.ErrCodeUndefinedReference,
		},
		{
			name:     "set without value",
			action:   config.Action{"set": map[string]interface{}{"variable": "count"}},
			wantCode: engine.ErrCodeInvalidActionShape,
		},
		{
			name:     "set mapping value",
			action:   config.Action{"set": map[string]interface{}{"variable": "count", "value": map[string]interface{}{"a": 1}}},
			wantCode: engine.ErrCodeUnsupportedValueShape,
		},
		{
			name:     "if without then",
			action:   config.Action{"if": map[string]interface{}{"condition": map[string]interface{}{"lhs": 1, "op": "gt", "rhs": 2}}},
			wantCode: engine.ErrCodeInvalidActionShape,
		},
		{
			name:     "empty action",
			action:   config.Action{},
			wantCode: engine.ErrCodeInvalidActionShape,
		},
		{
			name:     "two keys",
			action:   config.Action{"$red_led.on": nil, "$red_led.off": nil},
			wantCode: engine.ErrCodeInvalidActionShape,
		},
	}

	r := NewRegistry()
	env := testEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.RenderAction(tt.action, env)
			if tt.wantCode != "" {
				if !engine.HasCode(err, tt.wantCode) {
					t.Fatalf("RenderAction() = %q, %v; want code %s", got, err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("RenderAction() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RenderAction() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		action   config.Action
		want     engine.ValidationKind
		contains string
	}{
		{"component ok", config.Action{"$red_led.toggle": nil}, engine.ValidationOk, ""},
		{"device ok", config.Action{"$screen.clear": nil}, engine.ValidationOk, ""},
		{"missing method", config.Action{"$red_led.explode": nil}, engine.ValidationError, "explode"},
		{"missing instance", config.Action{"$blue_led.on": nil}, engine.ValidationError, "blue_led"},
		{"global ok", config.Action{"delay.delay_ms": 100}, engine.ValidationOk, ""},
		{"global unknown module", config.Action{"radio.send": nil}, engine.ValidationIgnored, ""},
		{"global missing method", config.Action{"logger.shout": nil}, engine.ValidationError, "shout"},
		{"unknown format", config.Action{"toggle": nil}, engine.ValidationWarning, "Did you mean '$red_led.toggle'?"},
		{"near keyword", config.Action{"sett": nil}, engine.ValidationWarning, "Did you mean 'set'?"},
		{"set ok", config.Action{"set": map[string]interface{}{"variable": "count", "value": 3}}, engine.ValidationOk, ""},
		{"set undeclared", config.Action{"set": map[string]interface{}{"variable": "x", "value": 3}}, engine.ValidationError, "not declared"},
		{"set bad call", config.Action{"set": map[string]interface{}{
			"variable": "count",
			"call":     map[string]interface{}{"target": "red_led", "method": "nope"},
		}}, engine.ValidationError, "nope"},
		{"if nested warning", config.Action{"if": map[string]interface{}{
			"condition": map[string]interface{}{"lhs": "$count", "op": "equals", "rhs": 1},
			"then":      []interface{}{map[string]interface{}{"radio.send": nil}},
		}}, engine.ValidationWarning, "ignored"},
		{"if nested error", config.Action{"if": map[string]interface{}{
			"condition": map[string]interface{}{"lhs": "$count", "op": "equals", "rhs": 1},
			"then":      []interface{}{map[string]interface{}{}},
		}}, engine.ValidationError, "then[0]"},
		{"empty", config.Action{}, engine.ValidationError, "Empty action"},
	}

	r := NewRegistry()
	env := testEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.ValidateAction(tt.action, env)
			if res.Kind != tt.want {
				t.Fatalf("ValidateAction() = %+v, want kind %d", res, tt.want)
			}
			if tt.contains != "" && !strings.Contains(res.Message, tt.contains) {
				t.Errorf("message %q should contain %q", res.Message, tt.contains)
			}
		})
	}
}

func TestResolveValue(t *testing.T) {
	tests := []struct {
		name     string
		in       interface{}
		want     string
		wantCode string
	}{
		{"reference", "$count", "count", ""},
		{"string", "hello", `"hello"`, ""},
		{"string with quotes", `say "hi"`, `"say \"hi\""`, ""},
		{"bool", true, "true", ""},
		{"int", 42, "42", ""},
		{"negative", -7, "-7", ""},
		{"float", 2.5, "2.5", ""},
		{"whole float", 3.0, "3.0", ""},
		{"mapping", map[string]interface{}{"a": 1}, "", engine.ErrCodeUnsupportedValueShape},
		{"sequence", []interface{}{1, 2}, "", engine.ErrCodeUnsupportedValueShape},
		{"null", nil, "", engine.ErrCodeUnsupportedValueShape},
		{"bare sigil", "$", "", engine.ErrCodeUndefinedReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveValue(tt.in)
			if tt.wantCode != "" {
				if !engine.HasCode(err, tt.wantCode) {
					t.Fatalf("ResolveValue() = %q, %v; want %s", got, err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveValue() = %q, want %q", got, tt.want)
			}
			again, _ := ResolveValue(tt.in)
			if again != got {
				t.Errorf("ResolveValue() not stable: %q then %q", got, again)
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	candidates := []string{"$red_led.on", "$red_led.toggle", "logger.info", "set", "if"}
	tests := []struct {
		key  string
		want string
	}{
		{"toggle", "$red_led.toggle"},
		{"LOGGER.INFO", "logger.info"},
		{"ste", "set"},
		{"completely_unrelated_key", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := Suggest(tt.key, candidates); got != tt.want {
				t.Errorf("Suggest(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestMapOperator(t *testing.T) {
	tests := map[string]string{
		"equals":     "==",
		"not_equals": "!=",
		"gt":         ">",
		"lt":         "<",
		"gte":        ">=",
		"lte":        "<=",
		"&&":         "&&",
	}
	for op, want := range tests {
		if got := MapOperator(op); got != want {
			t.Errorf("MapOperator(%q) = %q, want %q", op, got, want)
		}
	}
}

func TestRenderDecodedActions(t *testing.T) {
	doc := `
espforge:
  name: blink
  platform: esp32c3
components:
  red_led:
    using: led
    with:
      gpio: 5
app:
  variables:
    count:
      type: int
      initial: 0
    lit:
      type: bool
  setup:
    - set:
        variable: count
        value: 0
    - set:
        variable: lit
        call:
          target: $red_led
          method: is_on
  loop:
    - if:
        condition:
          lhs: $count
          op: gt
          rhs: 10
        then:
          - $red_led.on:
          - set:
              variable: count
              value: 0
`
	cfg, err := config.NewLoader().Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	catalog, err := manifest.LoadBuiltin()
	if err != nil {
		t.Fatalf("LoadBuiltin() error = %v", err)
	}
	env := &Env{Config: cfg, Catalog: catalog, Templates: templating.NewEngine()}

	tests := []struct {
		name   string
		action config.Action
		want   string
	}{
		{"set value", cfg.App.Setup[0], "count = 0;"},
		{"set call", cfg.App.Setup[1], "lit = red_led.is_on();"},
		{"if with nested actions", cfg.App.Loop[0], "if count > 10 {\nred_led.on();\ncount = 0;\n}"},
	}
	r := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := r.ValidateAction(tt.action, env); res.Kind != engine.ValidationOk {
				t.Fatalf("ValidateAction() = %+v", res)
			}
			got, err := r.RenderAction(tt.action, env)
			if err != nil {
				t.Fatalf("RenderAction() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RenderAction() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShapeOfDecodedMapping(t *testing.T) {
	tests := []struct {
		value interface{}
		want  string
	}{
		{config.Action{"a": 1}, "mapping"},
		{map[string]interface{}{"a": 1}, "mapping"},
		{[]interface{}{1}, "sequence"},
	}
	for _, tt := range tests {
		if got := shapeOf(tt.value); got != tt.want {
			t.Errorf("shapeOf(%T) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
