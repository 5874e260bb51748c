package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/espforge/espforge/pkg/actions"
	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/manifest"
	"github.com/espforge/espforge/pkg/templating"
)

// Resolver turns a validated project document into render context fields.
type Resolver struct {
	catalog   *manifest.Catalog
	params    *ParameterRegistry
	actions   *actions.Registry
	templates *templating.Engine
	logger    zerolog.Logger
}

// NewResolver creates a resolver. Nil registries and engines are replaced
// by the built-in ones.
func NewResolver(catalog *manifest.Catalog, params *ParameterRegistry, registry *actions.Registry, templates *templating.Engine, logger zerolog.Logger) *Resolver {
	if params == nil {
		params = NewParameterRegistry()
	}
	if registry == nil {
		registry = actions.NewRegistry()
	}
	if templates == nil {
		templates = templating.NewEngine()
	}
	return &Resolver{
		catalog:   catalog,
		params:    params,
		actions:   registry,
		templates: templates,
		logger:    logger.With().Str("component", "resolver").Logger(),
	}
}

// Env returns the action environment for cfg.
func (r *Resolver) Env(cfg *config.ProjectConfig) *actions.Env {
	return &actions.Env{Config: cfg, Catalog: r.catalog, Templates: r.templates}
}

// Resolve fills a new render context with initializations, includes,
// variable declarations and setup/loop code.
func (r *Resolver) Resolve(ctx context.Context, cfg *config.ProjectConfig) (*engine.RenderContext, error) {
	rc := engine.NewRenderContext()

	inits, includes, err := r.ResolveInstances(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rc.Initializations = inits
	rc.Includes = includes
	rc.Variables = ResolveVariables(cfg)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	setup, loop, err := r.ResolveLifecycle(cfg)
	if err != nil {
		return nil, err
	}
	rc.SetupCode = setup
	rc.LoopCode = loop
	return rc, nil
}

// ResolveInstances renders every component then every device, each in
// sorted name order, and collects the manifests' requirements.
func (r *Resolver) ResolveInstances(ctx context.Context, cfg *config.ProjectConfig) (inits, includes []string, err error) {
	rc := NewResolutionContext(cfg)
	inits = []string{}
	includes = []string{}

	groups := []struct {
		kind      string
		names     []string
		instances map[string]config.Instance
	}{
		{"component", cfg.ComponentNames(), cfg.Components},
		{"device", cfg.DeviceNames(), cfg.Devices},
	}
	for _, group := range groups {
		for _, name := range group.names {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			code, requires, err := r.ResolveInstance(name, group.instances[name], rc)
			if err != nil {
				return nil, nil, withInstance(err, name, "resolve_"+group.kind)
			}
			inits = append(inits, code)
			includes = append(includes, requires...)
		}
	}
	return inits, includes, nil
}

// ResolveInstance renders one instance's setup template.
func (r *Resolver) ResolveInstance(name string, inst config.Instance, rc *ResolutionContext) (string, []string, error) {
	m, ok := r.catalog.Get(inst.Using)
	if !ok {
		return "", nil, engine.Errorf(engine.ErrCodeUnknownManifest,
			"Component type '%s' not found in manifests", inst.Using)
	}

	params := make(map[string]interface{}, len(m.Parameters))
	for _, def := range m.Parameters {
		raw, present := inst.With[def.Name]
		if !present {
			if def.Required {
				return "", nil, engine.Errorf(engine.ErrCodeMissingParameter,
					"Missing required parameter '%s' for '%s' (%s)", def.Name, name, m.Name)
			}
			continue
		}
		value, err := r.params.Resolve(def.Type, raw, rc)
		if err != nil {
			return "", nil, withOperation(err, "parameter "+def.Name)
		}
		params[def.Name] = value
	}

	code, err := r.templates.Render(m.SetupTemplate, templating.Vars{
		"name":   name,
		"params": params,
	})
	if err != nil {
		return "", nil, engine.Errorf(engine.ErrCodeInternal,
			"failed to render setup template of %s", m.Name).WithCause(err)
	}

	r.logger.Debug().
		Str("instance", name).
		Str("manifest", m.Name).
		Int("params", len(params)).
		Msg("Resolved instance")

	return strings.TrimRight(code, " \t\r\n"), m.Requires, nil
}

// ResolveLifecycle renders app.setup and app.loop in source order.
func (r *Resolver) ResolveLifecycle(cfg *config.ProjectConfig) (setup, loop []string, err error) {
	setup, loop = []string{}, []string{}
	if cfg.App == nil {
		return setup, loop, nil
	}
	env := r.Env(cfg)
	if setup, err = r.renderBlock("setup", cfg.App.Setup, env); err != nil {
		return nil, nil, err
	}
	if loop, err = r.renderBlock("loop", cfg.App.Loop, env); err != nil {
		return nil, nil, err
	}
	return setup, loop, nil
}

func (r *Resolver) renderBlock(block string, list []config.Action, env *actions.Env) ([]string, error) {
	out := make([]string, 0, len(list))
	for i, action := range list {
		if len(action) == 0 {
			return nil, engine.Errorf(engine.ErrCodeInvalidActionShape,
				"Empty action in %s block at index %d", block, i)
		}
		code, err := r.actions.RenderAction(action, env)
		if err != nil {
			return nil, withOperation(err, fmt.Sprintf("%s[%d]", block, i))
		}
		out = append(out, code)
	}
	return out, nil
}

func withInstance(err error, name, op string) error {
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		return ee.WithResource(name).WithOperation(op)
	}
	return fmt.Errorf("%s %s: %w", op, name, err)
}

func withOperation(err error, op string) error {
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		return ee.WithOperation(op)
	}
	return fmt.Errorf("%s: %w", op, err)
}
