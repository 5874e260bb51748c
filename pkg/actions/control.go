package actions

import (
	"fmt"
	"strings"

	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
)

const (
	keywordSet = "set"
	keywordIf  = "if"
)

// comparisonOps maps symbolic operator names to target operators. Any other
// op is emitted literally.
var comparisonOps = map[string]string{
	"equals":     "==",
	"not_equals": "!=",
	"gt":         ">",
	"lt":         "<",
	"gte":        ">=",
	"lte":        "<=",
}

// MapOperator returns the target operator for op.
func MapOperator(op string) string {
	if mapped, ok := comparisonOps[op]; ok {
		return mapped
	}
	return op
}

// setStrategy handles {set: {variable, value | call}}.
type setStrategy struct {
	registry *Registry
}

type setPayload struct {
	variable string
	value    interface{}
	hasValue bool
	target   string
	method   string
	hasCall  bool
}

func parseSet(value interface{}) (*setPayload, error) {
	m, ok := asMapping(value)
	if !ok {
		return nil, fmt.Errorf("'set' expects a mapping, got %s", shapeOf(value))
	}
	p := &setPayload{}
	p.variable, ok = m["variable"].(string)
	if !ok || p.variable == "" {
		return nil, fmt.Errorf("'set' requires a string 'variable'")
	}
	p.value, p.hasValue = m["value"]
	if raw, ok := m["call"]; ok {
		call, ok := asMapping(raw)
		if !ok {
			return nil, fmt.Errorf("'set.call' expects a mapping with 'target' and 'method'")
		}
		p.target, _ = call["target"].(string)
		p.method, _ = call["method"].(string)
		if p.target == "" || p.method == "" {
			return nil, fmt.Errorf("'set.call' requires string 'target' and 'method'")
		}
		p.target = strings.TrimPrefix(p.target, "$")
		p.hasCall = true
	}
	switch {
	case p.hasValue && p.hasCall:
		return nil, fmt.Errorf("'set' takes either 'value' or 'call', not both")
	case !p.hasValue && !p.hasCall:
		return nil, fmt.Errorf("'set' requires 'value' or 'call'")
	}
	return p, nil
}

func (p *setPayload) callKey() string {
	return "$" + p.target + "." + p.method
}

func (s *setStrategy) Name() string { return keywordSet }

func (s *setStrategy) CanHandle(key string) bool { return key == keywordSet }

func (s *setStrategy) Validate(_ string, value interface{}, env *Env) engine.ValidationResult {
	p, err := parseSet(value)
	if err != nil {
		return engine.Invalid("%s", err.Error())
	}
	if !env.Config.VariableDeclared(p.variable) {
		return engine.Invalid("Variable '%s' is not declared in app.variables", p.variable)
	}
	if p.hasCall {
		return s.registry.Validate(p.callKey(), nil, env)
	}
	if _, err := ResolveValue(p.value); err != nil {
		return engine.Invalid("Variable '%s': %s", p.variable, messageOf(err))
	}
	return engine.Ok("Assignment to '%s' is valid", p.variable)
}

func (s *setStrategy) Render(_ string, value interface{}, env *Env) (string, error) {
	p, err := parseSet(value)
	if err != nil {
		return "", engine.NewError(engine.ErrCodeInvalidActionShape, err.Error())
	}
	if !env.Config.VariableDeclared(p.variable) {
		return "", engine.Errorf(engine.ErrCodeUndefinedReference,
			"Variable '%s' is not declared in app.variables", p.variable)
	}

	var expr string
	if p.hasCall {
		rendered, err := s.registry.Render(p.callKey(), nil, env)
		if err != nil {
			return "", err
		}
		expr = strings.TrimSuffix(strings.TrimSpace(rendered), ";")
	} else {
		expr, err = ResolveValue(p.value)
		if err != nil {
			return "", err
		}
	}
	return p.variable + " = " + expr + ";", nil
}

// ifStrategy handles {if: {condition: {lhs, op, rhs}, then: [action...]}}.
type ifStrategy struct {
	registry *Registry
}

type ifPayload struct {
	lhs, op, rhs interface{}
	then         []config.Action
}

func parseIf(value interface{}) (*ifPayload, error) {
	m, ok := asMapping(value)
	if !ok {
		return nil, fmt.Errorf("'if' expects a mapping, got %s", shapeOf(value))
	}
	cond, ok := asMapping(m["condition"])
	if !ok {
		return nil, fmt.Errorf("'if' requires a 'condition' mapping")
	}
	p := &ifPayload{lhs: cond["lhs"], op: cond["op"], rhs: cond["rhs"]}
	if _, ok := p.op.(string); !ok {
		return nil, fmt.Errorf("'if.condition' requires a string 'op'")
	}
	list, ok := m["then"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("'if' requires a 'then' list")
	}
	for i, entry := range list {
		action, ok := asMapping(entry)
		if !ok {
			return nil, fmt.Errorf("'if.then[%d]' must be a mapping", i)
		}
		p.then = append(p.then, config.Action(action))
	}
	return p, nil
}

func (s *ifStrategy) Name() string { return keywordIf }

func (s *ifStrategy) CanHandle(key string) bool { return key == keywordIf }

func (s *ifStrategy) Validate(_ string, value interface{}, env *Env) engine.ValidationResult {
	p, err := parseIf(value)
	if err != nil {
		return engine.Invalid("%s", err.Error())
	}
	for _, side := range []interface{}{p.lhs, p.rhs} {
		if _, err := ResolveValue(side); err != nil {
			return engine.Invalid("Condition operand: %s", messageOf(err))
		}
	}

	var warnings []string
	for i, action := range p.then {
		res := s.registry.ValidateAction(action, env)
		switch res.Kind {
		case engine.ValidationError:
			return engine.Invalid("then[%d]: %s", i, res.Message)
		case engine.ValidationWarning:
			warnings = append(warnings, fmt.Sprintf("then[%d]: %s", i, res.Message))
		case engine.ValidationIgnored:
			key, _, _ := action.Single()
			warnings = append(warnings, fmt.Sprintf("then[%d]: action '%s' was ignored", i, key))
		}
	}
	if len(warnings) > 0 {
		return engine.Warning("%s", strings.Join(warnings, "; "))
	}
	return engine.Ok("Conditional is valid")
}

func (s *ifStrategy) Render(_ string, value interface{}, env *Env) (string, error) {
	p, err := parseIf(value)
	if err != nil {
		return "", engine.NewError(engine.ErrCodeInvalidActionShape, err.Error())
	}
	lhs, err := ResolveValue(p.lhs)
	if err != nil {
		return "", err
	}
	rhs, err := ResolveValue(p.rhs)
	if err != nil {
		return "", err
	}

	body := make([]string, 0, len(p.then))
	for i, action := range p.then {
		line, err := s.registry.RenderAction(action, env)
		if err != nil {
			return "", wrapOperation(err, fmt.Sprintf("then[%d]", i))
		}
		body = append(body, line)
	}
	return fmt.Sprintf("if %s %s %s {\n%s\n}", lhs, MapOperator(p.op.(string)), rhs, strings.Join(body, "\n")), nil
}

func messageOf(err error) string {
	if ee, ok := err.(*engine.EngineError); ok {
		return ee.Message
	}
	return err.Error()
}

func wrapOperation(err error, op string) error {
	if ee, ok := err.(*engine.EngineError); ok {
		return ee.WithOperation(op)
	}
	return err
}
