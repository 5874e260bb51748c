package telemetry

import (
	"context"
	"errors"

	"github.com/espforge/espforge/pkg/engine"
)

// Telemetry bundles logging, tracing and metrics.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Config:  cfg,
	}, nil
}

// Nop returns telemetry that logs nothing, exports nothing and keeps metrics
// in a private registry.
func Nop() *Telemetry {
	cfg := DefaultConfig()
	tracer, _ := NewTracer(TracingConfig{}, cfg.ServiceName, cfg.ServiceVersion)
	metrics, _ := NewMetrics(cfg.Metrics)
	return &Telemetry{
		Logger:  FromContext(context.Background()),
		Tracer:  tracer,
		Metrics: metrics,
		Config:  cfg,
	}
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.Tracer.Shutdown(ctx)
}

// Phase runs fn inside a span named after phase and observes its duration.
// A failing phase records the error class and code. The outcome is logged
// through the logger carried by ctx.
func (t *Telemetry) Phase(ctx context.Context, phase string, fn func(context.Context) error) error {
	spanCtx, span := t.Tracer.StartPhaseSpan(ctx, phase)
	defer span.End()

	timer := NewTimer()
	err := fn(spanCtx)
	elapsed := timer.Duration()
	t.Metrics.ObservePhase(phase, elapsed)

	log := FromContext(ctx).WithField("phase", phase)
	if err != nil {
		RecordError(span, err)
		t.recordError(err)
		log.WithError(err).Warn("Phase failed")
		return err
	}
	RecordSuccess(span)
	log.Debugf("Phase finished in %s", elapsed)
	return nil
}

func (t *Telemetry) recordError(err error) {
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		t.Metrics.RecordError(string(ee.Class), ee.Code)
		return
	}
	t.Metrics.RecordError("unclassified", "")
}
