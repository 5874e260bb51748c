package script

import (
	"fmt"
	"strings"

	"go.starlark.net/syntax"

	"github.com/espforge/espforge/pkg/engine"
)

// Binary operators whose Rust spelling differs from Starlark's.
var binaryOps = map[syntax.Token]string{
	syntax.AND:        "&&",
	syntax.OR:         "||",
	syntax.SLASHSLASH: "/",
}

// Augmented assignments whose Rust spelling differs from Starlark's.
var assignOps = map[syntax.Token]string{
	syntax.SLASHSLASH_EQ: "/=",
}

var identifiers = map[string]string{
	"True":  "true",
	"False": "false",
}

// transpiler writes one statement tree as space-separated Rust tokens.
type transpiler struct {
	state  map[string]bool
	locals map[string]bool
	tokens []string
	glue   bool
}

func newTranspiler(state map[string]bool) *transpiler {
	return &transpiler{state: state, locals: make(map[string]bool)}
}

func (t *transpiler) emit(tokens ...string) {
	for _, tok := range tokens {
		if t.glue && len(t.tokens) > 0 {
			t.tokens[len(t.tokens)-1] += tok
			t.glue = false
			continue
		}
		t.tokens = append(t.tokens, tok)
	}
}

// prefix emits op attached to the next token, as in !x or -x.
func (t *transpiler) prefix(op string) {
	t.emit(op)
	t.glue = true
}

func (t *transpiler) String() string {
	return strings.Join(t.tokens, " ")
}

// function transpiles a def body into "{ ... }" with params bound as locals.
func (t *transpiler) function(def *syntax.DefStmt) (string, error) {
	t.tokens = t.tokens[:0]
	t.locals = make(map[string]bool)
	for _, p := range def.Params {
		if name := paramName(p); name != "" {
			t.locals[name] = true
		}
	}
	if err := t.block(def.Body); err != nil {
		return "", err
	}
	return t.String(), nil
}

// declaration transpiles a module-level assignment as a let binding.
func (t *transpiler) declaration(stmt *syntax.AssignStmt) (string, error) {
	t.tokens = t.tokens[:0]
	id, ok := stmt.LHS.(*syntax.Ident)
	if !ok || stmt.Op != syntax.EQ {
		return "", unsupported(stmt, "module-level statement other than name = value")
	}
	t.emit("let", id.Name, "=")
	if err := t.expr(stmt.RHS); err != nil {
		return "", err
	}
	t.emit(";")
	return t.String(), nil
}

func (t *transpiler) block(stmts []syntax.Stmt) error {
	t.emit("{")
	for _, stmt := range stmts {
		if err := t.stmt(stmt); err != nil {
			return err
		}
	}
	t.emit("}")
	return nil
}

func (t *transpiler) stmt(stmt syntax.Stmt) error {
	switch s := stmt.(type) {
	case *syntax.ExprStmt:
		if isDocstring(s) {
			return nil
		}
		if err := t.expr(s.X); err != nil {
			return err
		}
		t.emit(";")

	case *syntax.AssignStmt:
		return t.assign(s)

	case *syntax.IfStmt:
		return t.ifStmt(s)

	case *syntax.ForStmt:
		return t.forStmt(s)

	case *syntax.WhileStmt:
		t.emit("while")
		if err := t.expr(s.Cond); err != nil {
			return err
		}
		return t.block(s.Body)

	case *syntax.ReturnStmt:
		t.emit("return")
		if s.Result != nil {
			if err := t.expr(s.Result); err != nil {
				return err
			}
		}
		t.emit(";")

	case *syntax.BranchStmt:
		switch s.Token {
		case syntax.BREAK:
			t.emit("break", ";")
		case syntax.CONTINUE:
			t.emit("continue", ";")
		}

	case *syntax.DefStmt:
		return unsupported(s, "nested function definition")

	case *syntax.LoadStmt:
		return unsupported(s, "load statement")

	default:
		return unsupported(stmt, fmt.Sprintf("statement %T", stmt))
	}
	return nil
}

func (t *transpiler) assign(s *syntax.AssignStmt) error {
	switch lhs := s.LHS.(type) {
	case *syntax.Ident:
		if s.Op == syntax.EQ && !t.state[lhs.Name] && !t.locals[lhs.Name] {
			t.locals[lhs.Name] = true
			t.emit("let", "mut")
		}
		t.emit(lhs.Name)
	case *syntax.DotExpr, *syntax.IndexExpr:
		if err := t.expr(lhs); err != nil {
			return err
		}
	default:
		return unsupported(s, "destructuring assignment")
	}

	op, ok := assignOps[s.Op]
	if !ok {
		op = s.Op.String()
	}
	t.emit(op)
	if err := t.expr(s.RHS); err != nil {
		return err
	}
	t.emit(";")
	return nil
}

func (t *transpiler) ifStmt(s *syntax.IfStmt) error {
	t.emit("if")
	if err := t.expr(s.Cond); err != nil {
		return err
	}
	if err := t.block(s.True); err != nil {
		return err
	}
	if len(s.False) == 0 {
		return nil
	}
	t.emit("else")
	// elif chains arrive as a lone nested IfStmt.
	if len(s.False) == 1 {
		if elif, ok := s.False[0].(*syntax.IfStmt); ok {
			return t.ifStmt(elif)
		}
	}
	return t.block(s.False)
}

func (t *transpiler) forStmt(s *syntax.ForStmt) error {
	id, ok := s.Vars.(*syntax.Ident)
	if !ok {
		return unsupported(s, "for loop over several variables")
	}
	t.locals[id.Name] = true
	t.emit("for", id.Name, "in")

	call, isCall := s.X.(*syntax.CallExpr)
	if fn, ok := callName(call, isCall); ok && fn == "range" {
		if err := t.rangeExpr(call); err != nil {
			return err
		}
	} else if err := t.expr(s.X); err != nil {
		return err
	}
	return t.block(s.Body)
}

// rangeExpr writes range(n), range(a, b) and range(a, b, step) as Rust ranges.
func (t *transpiler) rangeExpr(call *syntax.CallExpr) error {
	args := call.Args
	switch len(args) {
	case 1:
		t.emit("0", "..")
		return t.expr(args[0])
	case 2, 3:
		if len(args) == 3 {
			t.emit("(")
		}
		if err := t.expr(args[0]); err != nil {
			return err
		}
		t.emit("..")
		if err := t.expr(args[1]); err != nil {
			return err
		}
		if len(args) == 3 {
			t.emit(")", ".", "step_by", "(")
			if err := t.expr(args[2]); err != nil {
				return err
			}
			t.emit(")")
		}
		return nil
	}
	return unsupported(call, fmt.Sprintf("range with %d arguments", len(args)))
}

func (t *transpiler) expr(e syntax.Expr) error {
	switch x := e.(type) {
	case *syntax.Ident:
		if mapped, ok := identifiers[x.Name]; ok {
			t.emit(mapped)
		} else {
			t.emit(x.Name)
		}

	case *syntax.Literal:
		return t.literal(x)

	case *syntax.ParenExpr:
		t.emit("(")
		if err := t.expr(x.X); err != nil {
			return err
		}
		t.emit(")")

	case *syntax.DotExpr:
		if err := t.expr(x.X); err != nil {
			return err
		}
		t.emit(".", x.Name.Name)

	case *syntax.CallExpr:
		if err := t.expr(x.Fn); err != nil {
			return err
		}
		return t.list("(", x.Args, ")")

	case *syntax.IndexExpr:
		if err := t.expr(x.X); err != nil {
			return err
		}
		t.emit("[")
		if err := t.expr(x.Y); err != nil {
			return err
		}
		t.emit("]")

	case *syntax.ListExpr:
		return t.list("[", x.List, "]")

	case *syntax.TupleExpr:
		return t.list("(", x.List, ")")

	case *syntax.UnaryExpr:
		return t.unary(x)

	case *syntax.BinaryExpr:
		return t.binary(x)

	case *syntax.CondExpr:
		// Parenthesized so the formatter keeps the branches inline.
		t.emit("(", "if")
		if err := t.expr(x.Cond); err != nil {
			return err
		}
		t.emit("{")
		if err := t.expr(x.True); err != nil {
			return err
		}
		t.emit("}", "else", "{")
		if err := t.expr(x.False); err != nil {
			return err
		}
		t.emit("}", ")")

	default:
		return unsupported(e, fmt.Sprintf("expression %T", e))
	}
	return nil
}

func (t *transpiler) list(open string, items []syntax.Expr, close string) error {
	t.emit(open)
	for i, item := range items {
		if i > 0 {
			t.emit(",")
		}
		if b, ok := item.(*syntax.BinaryExpr); ok && b.Op == syntax.EQ {
			return unsupported(item, "keyword argument")
		}
		if err := t.expr(item); err != nil {
			return err
		}
	}
	t.emit(close)
	return nil
}

func (t *transpiler) unary(x *syntax.UnaryExpr) error {
	switch x.Op {
	case syntax.NOT, syntax.TILDE:
		t.prefix("!")
	case syntax.MINUS:
		t.prefix("-")
	case syntax.PLUS:
	default:
		return unsupported(x, "unpacking operator "+x.Op.String())
	}
	return t.expr(x.X)
}

func (t *transpiler) binary(x *syntax.BinaryExpr) error {
	switch x.Op {
	case syntax.IN, syntax.NOT_IN, syntax.EQ, syntax.STARSTAR:
		return unsupported(x, "operator "+x.Op.String())
	}
	if err := t.expr(x.X); err != nil {
		return err
	}
	op, ok := binaryOps[x.Op]
	if !ok {
		op = x.Op.String()
	}
	t.emit(op)
	return t.expr(x.Y)
}

func (t *transpiler) literal(x *syntax.Literal) error {
	switch x.Token {
	case syntax.STRING:
		s, _ := x.Value.(string)
		t.emit(QuoteString(s))
	case syntax.INT, syntax.FLOAT:
		t.emit(x.Raw)
	default:
		return unsupported(x, "bytes literal")
	}
	return nil
}

// QuoteString renders s as a Rust string literal.
func QuoteString(s string) string {
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

func callName(call *syntax.CallExpr, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	id, ok := call.Fn.(*syntax.Ident)
	if !ok {
		return "", false
	}
	return id.Name, true
}

func paramName(p syntax.Expr) string {
	switch x := p.(type) {
	case *syntax.Ident:
		return x.Name
	case *syntax.BinaryExpr:
		if id, ok := x.X.(*syntax.Ident); ok {
			return id.Name
		}
	}
	return ""
}

func isDocstring(s *syntax.ExprStmt) bool {
	lit, ok := s.X.(*syntax.Literal)
	return ok && lit.Token == syntax.STRING
}

func unsupported(n syntax.Node, what string) error {
	start, _ := n.Span()
	return engine.Errorf(engine.ErrCodeParse, "%s is not supported", what).
		WithResource(start.String())
}
