package nibblers

import (
	"context"

	"github.com/espforge/espforge/pkg/actions"
	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
)

// AppNibbler validates every app.setup and app.loop action through the
// action registry without rendering anything.
type AppNibbler struct {
	registry *actions.Registry
	env      func(*config.ProjectConfig) *actions.Env
}

// NewAppNibbler returns an app nibbler validating against registry and env.
func NewAppNibbler(registry *actions.Registry, env func(*config.ProjectConfig) *actions.Env) *AppNibbler {
	return &AppNibbler{registry: registry, env: env}
}

func (n *AppNibbler) Name() string  { return "app" }
func (n *AppNibbler) Priority() int { return 30 }

func (n *AppNibbler) Process(ctx context.Context, cfg *config.ProjectConfig) engine.NibblerResult {
	f := newFindings(n.Name())
	if cfg.App == nil {
		return f.result
	}
	env := n.env(cfg)
	n.block(ctx, f, "app.setup", cfg.App.Setup, env)
	n.block(ctx, f, "app.loop", cfg.App.Loop, env)
	return f.result
}

func (n *AppNibbler) block(ctx context.Context, f *findings, scope string, list []config.Action, env *actions.Env) {
	for _, action := range list {
		if ctx.Err() != nil {
			f.add(engine.StatusError, "Error in %s: %v", scope, ctx.Err())
			return
		}
		result := n.registry.ValidateAction(action, env)
		switch result.Kind {
		case engine.ValidationOk:
			if result.Message != "" {
				f.info("%s", result.Message)
			}
		case engine.ValidationError:
			f.add(engine.StatusError, "Error in %s: %s", scope, result.Message)
		case engine.ValidationWarning:
			f.add(engine.StatusWarning, "Warning in %s: %s", scope, result.Message)
		case engine.ValidationIgnored:
			key, _, _ := action.Single()
			f.add(engine.StatusWarning, "Warning in %s: Unknown action '%s'", scope, key)
		}
	}
}
