package nibblers

import (
	"context"
	"strings"

	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/examples"
)

// ProjectNibbler checks the project name charset.
type ProjectNibbler struct{}

func (n *ProjectNibbler) Name() string  { return "project" }
func (n *ProjectNibbler) Priority() int { return 0 }

func (n *ProjectNibbler) Process(_ context.Context, cfg *config.ProjectConfig) engine.NibblerResult {
	f := newFindings(n.Name())
	name := cfg.Espforge.Name
	switch {
	case strings.Contains(name, " "):
		f.fail("Project name '%s' contains spaces.", name)
	case strings.IndexFunc(name, func(r rune) bool { return !isWordRune(r) }) >= 0:
		f.warn("Project name '%s' contains special characters.", name)
	default:
		f.info("Project name '%s' is valid.", name)
	}
	return f.result
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// TemplateNibbler reports the selected example and the props it falls back on.
type TemplateNibbler struct {
	examples *examples.Registry
}

func (n *TemplateNibbler) Name() string  { return "template" }
func (n *TemplateNibbler) Priority() int { return 1 }

func (n *TemplateNibbler) Process(_ context.Context, cfg *config.ProjectConfig) engine.NibblerResult {
	f := newFindings(n.Name())
	if cfg.Example == nil || cfg.Example.Name == "" {
		f.info("No example template specified. Using minimal default.")
		return f.result
	}

	name := cfg.Example.Name
	ex, ok := n.examples.Get(name)
	if !ok {
		f.fail("Unknown example template '%s'.", name)
		return f.result
	}

	f.info("Using template: %s", name)
	for _, prop := range ex.MissingProps(cfg.Example.Props) {
		f.info("Note: '%s' not set. Using template default.", prop)
	}
	if ex.Async && !cfg.Espforge.EnableAsync {
		f.fail("Template '%s' spawns tasks and requires espforge.enable_async: true.", name)
	}
	return f.result
}
