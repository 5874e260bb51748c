package compile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/espforge/espforge/pkg/actions"
	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/examples"
	"github.com/espforge/espforge/pkg/manifest"
	"github.com/espforge/espforge/pkg/nibblers"
	"github.com/espforge/espforge/pkg/policy"
	"github.com/espforge/espforge/pkg/resolver"
	"github.com/espforge/espforge/pkg/script"
	"github.com/espforge/espforge/pkg/stores"
	"github.com/espforge/espforge/pkg/telemetry"
	"github.com/espforge/espforge/pkg/templating"
)

// Compile phases, used as span names and metric labels.
const (
	PhaseLoad     = "load"
	PhaseValidate = "validate"
	PhaseResolve  = "resolve"
	PhaseScript   = "script"
)

// Result is the outcome of one compile run.
type Result struct {
	RunID         uuid.UUID              `json:"run_id"`
	ConfigPath    string                 `json:"config_path"`
	RenderContext *engine.RenderContext  `json:"render_context,omitempty"`
	Findings      []engine.NibblerResult `json:"findings"`
	GateOpen      bool                   `json:"gate_open"`
	ScriptSource  string                 `json:"script_source,omitempty"`
	Duration      time.Duration          `json:"duration"`
}

// Options configure a Compiler. Nil collaborators are replaced by the
// built-in ones; History may stay nil to disable run recording.
type Options struct {
	Catalog   *manifest.Catalog
	Examples  *examples.Registry
	Policies  *policy.Engine
	Actions   *actions.Registry
	Params    *resolver.ParameterRegistry
	Templates *templating.Engine
	Nibblers  []nibblers.Nibbler
	History   stores.HistoryStore
	Telemetry *telemetry.Telemetry
	Logger    zerolog.Logger
}

// Compiler runs load, validation, resolution and script transpilation.
type Compiler struct {
	loader     *config.Loader
	dispatcher *nibblers.Dispatcher
	resolver   *resolver.Resolver
	bridge     *script.Bridge
	examples   *examples.Registry
	templates  *templating.Engine
	history    stores.HistoryStore
	tel        *telemetry.Telemetry
	logger     *telemetry.Logger
}

// New wires a compiler from opts.
func New(opts Options) (*Compiler, error) {
	var err error
	if opts.Catalog == nil {
		if opts.Catalog, err = manifest.LoadBuiltin(); err != nil {
			return nil, err
		}
	}
	if opts.Examples == nil {
		if opts.Examples, err = examples.LoadBuiltin(); err != nil {
			return nil, err
		}
	}
	if opts.Policies == nil {
		if opts.Policies, err = policy.NewEngine(opts.Logger); err != nil {
			return nil, err
		}
	}
	if opts.Actions == nil {
		opts.Actions = actions.NewRegistry()
	}
	if opts.Templates == nil {
		opts.Templates = templating.NewEngine()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.Nop()
		opts.Telemetry.Logger = telemetry.WrapLogger(opts.Logger)
	}
	if opts.Nibblers == nil {
		opts.Nibblers = nibblers.Builtin(nibblers.Deps{
			Catalog:   opts.Catalog,
			Actions:   opts.Actions,
			Templates: opts.Templates,
			Examples:  opts.Examples,
			Policies:  opts.Policies,
		})
	}

	return &Compiler{
		loader:     config.NewLoader(),
		dispatcher: nibblers.NewDispatcher(opts.Logger, opts.Nibblers...),
		resolver:   resolver.NewResolver(opts.Catalog, opts.Params, opts.Actions, opts.Templates, opts.Logger),
		bridge:     script.NewBridge(opts.Logger),
		examples:   opts.Examples,
		templates:  opts.Templates,
		history:    opts.History,
		tel:        opts.Telemetry,
		logger:     opts.Telemetry.Logger.NewComponentLogger("compiler"),
	}, nil
}

// Validate loads path and runs the nibblers without resolving anything.
// The returned error is ValidationFailed when the gate is closed.
func (c *Compiler) Validate(ctx context.Context, path string) ([]engine.NibblerResult, error) {
	cfg, err := c.load(ctx, path)
	if err != nil {
		return nil, err
	}
	results, err := c.validate(ctx, cfg)
	if err != nil {
		return results, err
	}
	return results, gateError(results)
}

// Compile runs every phase for the project document at path. A closed gate
// returns the findings together with a ValidationFailed error.
func (c *Compiler) Compile(ctx context.Context, path string) (*Result, error) {
	res := &Result{RunID: uuid.New(), ConfigPath: path, Findings: []engine.NibblerResult{}}
	timer := telemetry.NewTimer()
	started := time.Now()

	ctx, span := c.tel.Tracer.StartCompileSpan(ctx, res.RunID.String(), path)
	defer span.End()
	logger := c.logger.WithRunID(res.RunID.String())
	if traceID := telemetry.TraceID(ctx); traceID != "" {
		logger = logger.WithField("trace_id", traceID)
	}
	ctx = logger.WithContext(ctx)

	var cfg *config.ProjectConfig
	err := c.run(ctx, path, res, &cfg)
	res.Duration = timer.Duration()

	if cfg != nil {
		logger = logger.WithProject(cfg.Espforge.Name, path)
	} else {
		logger = logger.WithField("config_path", path)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		logger.WithError(err).WithField("code", engine.CodeOf(err)).Error("Compile failed")
	} else {
		telemetry.RecordSuccess(span)
		logger.Infof("Compile finished in %s", res.Duration)
	}
	span.SetAttributes(telemetry.AttrGateOpen.Bool(res.GateOpen))
	c.finish(ctx, res, cfg, started, err)
	return res, err
}

func (c *Compiler) run(ctx context.Context, path string, res *Result, cfgOut **config.ProjectConfig) error {
	var cfg *config.ProjectConfig
	err := c.tel.Phase(ctx, PhaseLoad, func(ctx context.Context) error {
		var err error
		cfg, err = c.load(ctx, path)
		return err
	})
	if err != nil {
		return err
	}
	*cfgOut = cfg

	err = c.tel.Phase(ctx, PhaseValidate, func(ctx context.Context) error {
		results, err := c.validate(ctx, cfg)
		res.Findings = results
		if err != nil {
			return err
		}
		res.GateOpen = engine.GateOpen(results)
		return gateError(results)
	})
	if err != nil {
		return err
	}

	var rc *engine.RenderContext
	err = c.tel.Phase(ctx, PhaseResolve, func(ctx context.Context) error {
		var err error
		rc, err = c.resolver.Resolve(ctx, cfg)
		return err
	})
	if err != nil {
		return err
	}

	err = c.tel.Phase(ctx, PhaseScript, func(ctx context.Context) error {
		src, origin, err := c.scriptSource(path, cfg)
		if err != nil || src == "" {
			return err
		}
		res.ScriptSource = origin
		out, err := c.bridge.Transpile(ctx, src, script.Options{
			Filename: origin,
			Async:    cfg.Espforge.EnableAsync,
		})
		if err != nil {
			return err
		}
		Merge(rc, out)
		return nil
	})
	if err != nil {
		return err
	}

	res.RenderContext = rc
	return nil
}

func (c *Compiler) load(ctx context.Context, path string) (*config.ProjectConfig, error) {
	cfg, err := c.loader.LoadFile(ctx, path)
	if err != nil {
		var ee *engine.EngineError
		if errors.As(err, &ee) {
			return nil, ee.WithOperation(PhaseLoad)
		}
		return nil, err
	}
	return cfg, nil
}

func (c *Compiler) validate(ctx context.Context, cfg *config.ProjectConfig) ([]engine.NibblerResult, error) {
	results, err := c.dispatcher.Run(ctx, cfg)
	for _, r := range results {
		c.tel.Metrics.RecordFindings(r.Name, string(r.Status), len(r.Findings))
	}
	return results, err
}

// gateError returns ValidationFailed naming the nibblers that reported errors.
func gateError(results []engine.NibblerResult) error {
	var failed []string
	for _, r := range results {
		if r.Status == engine.StatusError {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return engine.Errorf(engine.ErrCodeValidationFailed,
		"validation failed: %d nibbler(s) reported errors", len(failed)).
		WithOperation(PhaseValidate).
		WithDetail("nibblers", failed)
}

// finish records metrics and history. Neither can fail the compile.
func (c *Compiler) finish(ctx context.Context, res *Result, cfg *config.ProjectConfig, started time.Time, err error) {
	status := statusOf(err)
	c.tel.Metrics.RecordCompile(string(status), res.Duration)
	if rc := res.RenderContext; rc != nil {
		c.tel.Metrics.SetSectionSize("initializations", len(rc.Initializations))
		c.tel.Metrics.SetSectionSize("setup_code", len(rc.SetupCode))
		c.tel.Metrics.SetSectionSize("loop_code", len(rc.LoopCode))
		c.tel.Metrics.SetSectionSize("task_definitions", len(rc.TaskDefinitions))
	}
	if werr := c.tel.Metrics.WriteTextfile(); werr != nil {
		c.logger.WithError(werr).Warn("Failed to write metrics textfile")
	}

	if c.history == nil {
		return
	}
	run := &stores.CompileRun{
		ID:         res.RunID.String(),
		ConfigPath: res.ConfigPath,
		Status:     status,
		GateOpen:   res.GateOpen,
		Duration:   res.Duration,
		StartedAt:  started,
	}
	if cfg != nil {
		run.Project = cfg.Espforge.Name
		run.Platform = string(cfg.Espforge.Platform)
	}
	if err != nil {
		msg := err.Error()
		run.Error = &msg
		if code := engine.CodeOf(err); code != "" {
			run.ErrorCode = &code
		}
	}
	// History outlives a cancelled compile.
	if herr := c.history.RecordRun(context.WithoutCancel(ctx), run, flatten(res.Findings)); herr != nil {
		telemetry.FromContext(ctx).WithError(herr).Warn("Failed to record compile history")
	}
}

func statusOf(err error) stores.RunStatus {
	switch {
	case err == nil:
		return stores.RunStatusSucceeded
	case engine.HasCode(err, engine.ErrCodeValidationFailed):
		return stores.RunStatusRejected
	default:
		return stores.RunStatusFailed
	}
}

func flatten(results []engine.NibblerResult) []stores.Finding {
	var out []stores.Finding
	for _, r := range results {
		for _, msg := range r.Findings {
			out = append(out, stores.Finding{Nibbler: r.Name, Status: string(r.Status), Message: msg})
		}
	}
	return out
}
