// Package templating renders manifest setup and method templates.
//
// Templates use the Django-like pongo2 syntax ({{ name }}, {{ params.gpio.pin }},
// {% if params.rotation %}). Output is Rust source text, so HTML autoescaping is
// disabled and file-loading tags are banned.
package templating

import (
	"embed"
	"fmt"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// Vars is the variable set a template is rendered with.
type Vars = pongo2.Context

var bannedTags = []string{"include", "extends", "import", "ssi"}

// Engine compiles templates once and renders them many times.
// It is safe for concurrent use.
type Engine struct {
	set   *pongo2.TemplateSet
	cache map[string]*pongo2.Template
	mu    sync.RWMutex

	// err is set when the template set could not be configured; every
	// compile reports it.
	err error
}

// NewEngine creates a template engine.
func NewEngine() *Engine {
	return newEngine(bannedTags)
}

func newEngine(banned []string) *Engine {
	var empty embed.FS
	set := pongo2.NewSet("espforge", pongo2.NewFSLoader(empty))
	set.Options.TrimBlocks = true
	e := &Engine{
		set:   set,
		cache: make(map[string]*pongo2.Template),
	}
	for _, tag := range banned {
		if err := set.BanTag(tag); err != nil {
			e.err = fmt.Errorf("failed to ban template tag %q: %w", tag, err)
			break
		}
	}
	return e
}

// Compile parses src, returning the cached template when src was seen before.
func (e *Engine) Compile(src string) (*pongo2.Template, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.mu.RLock()
	tpl, ok := e.cache[src]
	e.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tpl, ok := e.cache[src]; ok {
		return tpl, nil
	}
	tpl, err := e.set.FromString("{% autoescape off %}" + src + "{% endautoescape %}")
	if err != nil {
		return nil, fmt.Errorf("failed to compile template: %w", err)
	}
	e.cache[src] = tpl
	return tpl, nil
}

// Render compiles src and executes it with vars. Bools and floats in vars
// are rendered as target literals.
func (e *Engine) Render(src string, vars Vars) (string, error) {
	tpl, err := e.Compile(src)
	if err != nil {
		return "", err
	}
	out, err := tpl.Execute(normalizeVars(vars))
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return out, nil
}

// Check reports whether src compiles.
func (e *Engine) Check(src string) error {
	_, err := e.Compile(src)
	return err
}

// Len returns the number of cached templates.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
