package nibblers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/espforge/espforge/pkg/actions"
	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/examples"
	"github.com/espforge/espforge/pkg/manifest"
	"github.com/espforge/espforge/pkg/policy"
	"github.com/espforge/espforge/pkg/templating"
)

// Nibbler is one independent configuration check.
type Nibbler interface {
	// Name identifies the nibbler in reports.
	Name() string

	// Priority orders nibblers; lower runs first.
	Priority() int

	// Process checks cfg. Problems are reported as findings, never as errors.
	Process(ctx context.Context, cfg *config.ProjectConfig) engine.NibblerResult
}

// Dispatcher runs nibblers in priority order.
type Dispatcher struct {
	nibblers []Nibbler
	logger   zerolog.Logger
}

// NewDispatcher sorts nibblers by priority, ties broken by name.
func NewDispatcher(logger zerolog.Logger, nibblers ...Nibbler) *Dispatcher {
	sorted := make([]Nibbler, len(nibblers))
	copy(sorted, nibblers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority() != sorted[j].Priority() {
			return sorted[i].Priority() < sorted[j].Priority()
		}
		return sorted[i].Name() < sorted[j].Name()
	})
	return &Dispatcher{
		nibblers: sorted,
		logger:   logger.With().Str("component", "nibblers").Logger(),
	}
}

// Nibblers returns the dispatch order.
func (d *Dispatcher) Nibblers() []Nibbler {
	out := make([]Nibbler, len(d.nibblers))
	copy(out, d.nibblers)
	return out
}

// Run processes cfg with every nibbler and returns all results. A failing
// nibbler never stops the ones after it.
func (d *Dispatcher) Run(ctx context.Context, cfg *config.ProjectConfig) ([]engine.NibblerResult, error) {
	results := make([]engine.NibblerResult, 0, len(d.nibblers))
	for _, n := range d.nibblers {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		start := time.Now()
		result := d.process(ctx, n, cfg)
		d.logger.Debug().
			Str("nibbler", n.Name()).
			Str("status", string(result.Status)).
			Int("findings", len(result.Findings)).
			Dur("duration", time.Since(start)).
			Msg("Nibbler finished")
		results = append(results, result)
	}
	return results, nil
}

// process isolates a panicking nibbler into an error result.
func (d *Dispatcher) process(ctx context.Context, n Nibbler, cfg *config.ProjectConfig) (result engine.NibblerResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Str("nibbler", n.Name()).Interface("panic", r).Msg("Nibbler panicked")
			result = engine.NibblerResult{
				Name:     n.Name(),
				Findings: []string{fmt.Sprintf("Internal error in nibbler '%s': %v", n.Name(), r)},
				Status:   engine.StatusError,
			}
		}
	}()
	result = n.Process(ctx, cfg)
	if result.Name == "" {
		result.Name = n.Name()
	}
	if result.Status == "" {
		result.Status = engine.StatusOk
	}
	if result.Findings == nil {
		result.Findings = []string{}
	}
	return result
}

// Deps are the collaborators of the built-in nibblers.
type Deps struct {
	Catalog   *manifest.Catalog
	Actions   *actions.Registry
	Templates *templating.Engine
	Examples  *examples.Registry
	Schemas   *config.SchemaRegistry
	Policies  *policy.Engine
}

// Builtin returns the built-in nibblers wired to deps.
func Builtin(deps Deps) []Nibbler {
	env := func(cfg *config.ProjectConfig) *actions.Env {
		return &actions.Env{Config: cfg, Catalog: deps.Catalog, Templates: deps.Templates}
	}
	registry := deps.Actions
	if registry == nil {
		registry = actions.NewRegistry()
	}
	if deps.Schemas == nil {
		deps.Schemas = config.NewSchemaRegistry()
	}
	return []Nibbler{
		&ProjectNibbler{},
		&TemplateNibbler{examples: deps.Examples},
		&SchemaNibbler{schemas: deps.Schemas},
		&HardwareNibbler{},
		&PolicyNibbler{engine: deps.Policies},
		&ComponentNibbler{},
		NewAppNibbler(registry, env),
	}
}

// findings accumulates one nibbler's result.
type findings struct {
	result engine.NibblerResult
}

func newFindings(name string) *findings {
	return &findings{result: engine.NibblerResult{Name: name, Findings: []string{}, Status: engine.StatusOk}}
}

func (f *findings) add(status engine.Status, format string, args ...interface{}) {
	f.result.Findings = append(f.result.Findings, fmt.Sprintf(format, args...))
	f.result.Escalate(status)
}

func (f *findings) info(format string, args ...interface{}) {
	f.add(engine.StatusOk, format, args...)
}

func (f *findings) warn(format string, args ...interface{}) {
	f.add(engine.StatusWarning, "Warning: "+format, args...)
}

func (f *findings) fail(format string, args ...interface{}) {
	f.add(engine.StatusError, "Error: "+format, args...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
