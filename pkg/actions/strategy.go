package actions

import (
	"errors"
	"sort"
	"strings"

	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/manifest"
	"github.com/espforge/espforge/pkg/templating"
)

// Env bundles the read-only inputs a strategy validates and renders against.
type Env struct {
	Config    *config.ProjectConfig
	Catalog   *manifest.Catalog
	Templates *templating.Engine
}

// Strategy validates and renders one action-key shape.
type Strategy interface {
	// Name identifies the strategy in logs and tests.
	Name() string

	// CanHandle reports whether the strategy claims key.
	CanHandle(key string) bool

	// Validate checks the action without producing code.
	Validate(key string, value interface{}, env *Env) engine.ValidationResult

	// Render produces one target statement.
	Render(key string, value interface{}, env *Env) (string, error)
}

// Registry is an ordered list of strategies. Dispatch picks the first
// strategy whose CanHandle returns true.
type Registry struct {
	strategies []Strategy
}

// NewRegistry returns the built-in strategies in dispatch order:
// component, global, set, if.
func NewRegistry() *Registry {
	r := &Registry{}
	r.strategies = []Strategy{
		&componentStrategy{},
		&globalStrategy{},
		&setStrategy{registry: r},
		&ifStrategy{registry: r},
	}
	return r
}

// NewRegistryWith returns a registry holding exactly strategies, in order.
func NewRegistryWith(strategies ...Strategy) *Registry {
	return &Registry{strategies: strategies}
}

// Strategies returns the strategies in dispatch order.
func (r *Registry) Strategies() []Strategy {
	out := make([]Strategy, len(r.strategies))
	copy(out, r.strategies)
	return out
}

// Lookup returns the first strategy claiming key.
func (r *Registry) Lookup(key string) (Strategy, bool) {
	for _, s := range r.strategies {
		if s.CanHandle(key) {
			return s, true
		}
	}
	return nil, false
}

// Validate dispatches key to its strategy. Keys no strategy claims produce
// a warning, never an error.
func (r *Registry) Validate(key string, value interface{}, env *Env) engine.ValidationResult {
	s, ok := r.Lookup(key)
	if !ok {
		msg := "Unknown action format '" + key + "'. No strategy found."
		if hint := Suggest(key, r.Candidates(env)); hint != "" {
			msg += " Did you mean '" + hint + "'?"
		}
		return engine.Warning("%s", msg)
	}
	return s.Validate(key, value, env)
}

// Render dispatches key to its strategy.
func (r *Registry) Render(key string, value interface{}, env *Env) (string, error) {
	s, ok := r.Lookup(key)
	if !ok {
		return "", engine.Errorf(engine.ErrCodeUnknownActionFormat,
			"Unknown action format '%s'. No strategy found.", key).WithResource(key)
	}
	out, err := s.Render(key, value, env)
	if err != nil {
		var ee *engine.EngineError
		if errors.As(err, &ee) {
			return "", ee.WithResource(key)
		}
		return "", err
	}
	return out, nil
}

// ValidateAction validates one action entry, which must hold exactly one key.
func (r *Registry) ValidateAction(a config.Action, env *Env) engine.ValidationResult {
	if len(a) == 0 {
		return engine.Invalid("Empty action")
	}
	key, value, ok := a.Single()
	if !ok {
		return engine.Invalid("Action has %d keys (%s), expected exactly one", len(a), strings.Join(actionKeys(a), ", "))
	}
	return r.Validate(key, value, env)
}

// RenderAction renders one action entry.
func (r *Registry) RenderAction(a config.Action, env *Env) (string, error) {
	if len(a) == 0 {
		return "", engine.NewError(engine.ErrCodeInvalidActionShape, "Empty action")
	}
	key, value, ok := a.Single()
	if !ok {
		return "", engine.Errorf(engine.ErrCodeInvalidActionShape,
			"Action has %d keys (%s), expected exactly one", len(a), strings.Join(actionKeys(a), ", "))
	}
	return r.Render(key, value, env)
}

// Candidates lists the action keys that would be claimed in env: every
// instance method, every global method, and the control keywords.
func (r *Registry) Candidates(env *Env) []string {
	var out []string
	if env != nil && env.Config != nil && env.Catalog != nil {
		names := append(env.Config.ComponentNames(), env.Config.DeviceNames()...)
		for _, name := range names {
			inst, _ := env.Config.LookupInstance(name)
			m, ok := env.Catalog.Get(inst.Using)
			if !ok {
				continue
			}
			for _, method := range m.MethodNames() {
				out = append(out, "$"+name+"."+method)
			}
		}
		for _, m := range env.Catalog.List(manifest.CategoryGlobal) {
			for _, method := range m.MethodNames() {
				out = append(out, m.Name+"."+method)
			}
		}
	}
	return append(out, keywordSet, keywordIf)
}

func actionKeys(a config.Action) []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
