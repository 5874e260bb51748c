package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.starlark.net/syntax"

	"github.com/espforge/espforge/pkg/engine"
)

// Indentation levels of the generated sections.
const (
	SetupLevel = 1
	LoopLevel  = 2
	TaskLevel  = 2
)

// Output is the transpiled script, shaped like the lifecycle fields of
// engine.RenderContext so the two can be merged.
type Output struct {
	Setup           string   `json:"setup"`
	LoopBody        string   `json:"loop_body"`
	Variables       []string `json:"variables"`
	TaskDefinitions []string `json:"task_definitions"`
	TaskNames       []string `json:"task_names"`
	TaskSpawns      []string `json:"task_spawns"`
}

func newOutput() *Output {
	return &Output{
		Variables:       []string{},
		TaskDefinitions: []string{},
		TaskNames:       []string{},
		TaskSpawns:      []string{},
	}
}

// Options control one transpilation.
type Options struct {
	// Filename is used in parse errors.
	Filename string

	// Async enables tasks and the awaited delay rewrite.
	Async bool
}

// Bridge turns app scripts into Rust statements.
type Bridge struct {
	logger   zerolog.Logger
	defaults *defaultEvaluator
}

// NewBridge creates a bridge logging through logger.
func NewBridge(logger zerolog.Logger) *Bridge {
	return &Bridge{
		logger:   logger.With().Str("component", "script").Logger(),
		defaults: newDefaultEvaluator(0),
	}
}

// Transpile parses src and processes its top-level statements in order.
func (b *Bridge) Transpile(ctx context.Context, src string, opts Options) (*Output, error) {
	if opts.Filename == "" {
		opts.Filename = "app.star"
	}
	src = strings.ReplaceAll(src, "\r\n", "\n")

	f, err := syntax.Parse(opts.Filename, src, 0)
	if err != nil {
		return nil, engine.NewParseError("failed to parse script", err).WithResource(opts.Filename)
	}

	comments := indexComments(src)
	active := make([]syntax.Stmt, 0, len(f.Stmts))
	state := make(map[string]bool)
	for _, stmt := range f.Stmts {
		start, _ := stmt.Span()
		if comments.markers(start.Line)[MarkerDisabled] {
			b.logger.Debug().Str("position", start.String()).Msg("Skipping disabled statement")
			continue
		}
		active = append(active, stmt)
		if assign, ok := stmt.(*syntax.AssignStmt); ok {
			if id, ok := assign.LHS.(*syntax.Ident); ok {
				state[id.Name] = true
			}
		}
	}

	out := newOutput()
	t := newTranspiler(state)
	seen := make(map[string]bool)
	for _, stmt := range active {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start, _ := stmt.Span()

		switch s := stmt.(type) {
		case *syntax.DefStmt:
			name := s.Name.Name
			if seen[name] {
				return nil, engine.Errorf(engine.ErrCodeParse, "function '%s' is defined twice", name).
					WithResource(start.String())
			}
			seen[name] = true

			isTask := comments.markers(start.Line)[MarkerTask] || strings.HasPrefix(name, TaskPrefix)
			if err := b.function(ctx, t, s, isTask, opts, out); err != nil {
				return nil, err
			}

		case *syntax.AssignStmt:
			decl, err := t.declaration(s)
			if err != nil {
				return nil, err
			}
			out.Variables = append(out.Variables, ForceMutable(CleanArtifacts(decl)))

		case *syntax.ExprStmt:
			if isDocstring(s) {
				continue
			}
			return nil, unsupported(s, "module-level expression")

		default:
			return nil, unsupported(s, fmt.Sprintf("module-level %T", s))
		}
	}

	b.logger.Debug().
		Int("variables", len(out.Variables)).
		Int("tasks", len(out.TaskNames)).
		Msg("Script transpiled")
	return out, nil
}

func (b *Bridge) function(ctx context.Context, t *transpiler, def *syntax.DefStmt, isTask bool, opts Options, out *Output) error {
	name := def.Name.Name
	switch {
	case isTask:
		if !opts.Async {
			return engine.Errorf(engine.ErrCodeAsyncFeatureRequired,
				"Task '%s' requires espforge.enable_async: true", name).
				WithResource(name).
				WithOperation("transpile_task")
		}
		return b.task(ctx, t, def, out)

	case name == "setup" || name == "forever":
		raw, err := t.function(def)
		if err != nil {
			return withFunction(err, name)
		}
		if name == "setup" {
			out.Setup = FormatBody(raw, SetupLevel, opts.Async)
		} else {
			out.LoopBody = FormatBody(raw, LoopLevel, opts.Async)
		}

	default:
		b.logger.Debug().Str("function", name).Msg("Ignoring auxiliary function")
	}
	return nil
}

func (b *Bridge) task(ctx context.Context, t *transpiler, def *syntax.DefStmt, out *Output) error {
	name := def.Name.Name
	params, err := b.defaults.params(ctx, def)
	if err != nil {
		return withFunction(err, name)
	}
	raw, err := t.function(def)
	if err != nil {
		return withFunction(err, name)
	}

	decls := make([]string, len(params))
	args := make([]string, len(params))
	for i, p := range params {
		decls[i] = p.declaration()
		args[i] = p.Arg
	}

	body := FormatBody(raw, TaskLevel, true)
	out.TaskDefinitions = append(out.TaskDefinitions, fmt.Sprintf(
		"#[embassy_executor::task]\nasync fn %s(%s) {\n%s%s\n}",
		name, strings.Join(decls, ", "), strings.Repeat(Indent, TaskLevel), body))
	out.TaskNames = append(out.TaskNames, name)
	out.TaskSpawns = append(out.TaskSpawns, fmt.Sprintf(
		"spawner.spawn(%s(%s)).unwrap();", name, strings.Join(args, ", ")))

	b.logger.Debug().Str("task", name).Int("params", len(params)).Msg("Transpiled task")
	return nil
}

// ForceMutable rewrites a module-level statement into a mutable let binding
// ending in ';'.
func ForceMutable(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if !strings.HasSuffix(stmt, ";") {
		stmt += ";"
	}
	switch {
	case strings.HasPrefix(stmt, "let mut "):
		return stmt
	case strings.HasPrefix(stmt, "let "):
		return "let mut " + strings.TrimPrefix(stmt, "let ")
	default:
		return "let mut " + stmt
	}
}

func withFunction(err error, name string) error {
	var e *engine.EngineError
	if errors.As(err, &e) {
		return e.WithOperation("function " + name)
	}
	return err
}
