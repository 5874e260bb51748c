package script

import (
	"context"
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/espforge/espforge/pkg/actions"
)

const (
	defaultEvalTimeout = 2 * time.Second
	defaultEvalSteps   = 10000
)

// taskParam is one task parameter projected into Rust.
type taskParam struct {
	Name string
	Type string
	Arg  string
}

func (p taskParam) declaration() string {
	return p.Name + ": " + p.Type
}

// defaultEvaluator evaluates task parameter defaults in a sandboxed thread.
type defaultEvaluator struct {
	timeout time.Duration
}

func newDefaultEvaluator(timeout time.Duration) *defaultEvaluator {
	if timeout == 0 {
		timeout = defaultEvalTimeout
	}
	return &defaultEvaluator{timeout: timeout}
}

// params projects def's parameters. A parameter without a default, or whose
// default cannot be evaluated to a scalar, becomes an i32.
func (d *defaultEvaluator) params(ctx context.Context, def *syntax.DefStmt) ([]taskParam, error) {
	params := make([]taskParam, 0, len(def.Params))
	for _, p := range def.Params {
		switch x := p.(type) {
		case *syntax.Ident:
			params = append(params, taskParam{Name: x.Name, Type: "i32", Arg: "0"})
		case *syntax.BinaryExpr:
			id, ok := x.X.(*syntax.Ident)
			if !ok || x.Op != syntax.EQ {
				return nil, unsupported(p, "task parameter")
			}
			param := taskParam{Name: id.Name, Type: "i32", Arg: "0"}
			if value, err := d.eval(ctx, x.Y); err == nil {
				if t, lit, ok := rustScalar(value); ok {
					param.Type, param.Arg = t, lit
				}
			}
			params = append(params, param)
		default:
			return nil, unsupported(p, "variadic task parameter")
		}
	}
	return params, nil
}

// eval runs one default expression with a step budget and timeout.
func (d *defaultEvaluator) eval(ctx context.Context, expr syntax.Expr) (interface{}, error) {
	evalCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	thread := &starlark.Thread{
		Name:  "task-defaults",
		Print: func(*starlark.Thread, string) {},
	}
	thread.SetMaxExecutionSteps(defaultEvalSteps)

	resultCh := make(chan starlark.Value, 1)
	errCh := make(chan error, 1)
	go func() {
		v, err := starlark.EvalExpr(thread, expr, nil)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- v
	}()

	select {
	case <-evalCtx.Done():
		thread.Cancel(evalCtx.Err().Error())
		return nil, fmt.Errorf("default evaluation cancelled: %w", evalCtx.Err())
	case err := <-errCh:
		return nil, err
	case v := <-resultCh:
		return fromStarlarkValue(v)
	}
}

// rustScalar maps an evaluated default to its Rust type and literal.
func rustScalar(v interface{}) (typ, literal string, ok bool) {
	switch s := v.(type) {
	case int64:
		typ = "i32"
	case float64:
		typ = "f32"
	case bool:
		typ = "bool"
	case string:
		return "&'static str", QuoteString(s), true
	default:
		return "", "", false
	}
	literal, err := actions.ResolveValue(v)
	if err != nil {
		return "", "", false
	}
	return typ, literal, true
}

// fromStarlarkValue converts a scalar Starlark value to Go.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	default:
		return nil, fmt.Errorf("unsupported default of type %s", v.Type())
	}
}
