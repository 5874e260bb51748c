// Package telemetry provides logging, tracing and metrics for compile runs.
//
// Logging uses zerolog, tracing uses OpenTelemetry (stdout or OTLP/gRPC
// exporters) and metrics use a private Prometheus registry.
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Each compile phase runs through Phase, which opens a child span and
// observes espforge_compile_phase_duration_seconds:
//
//	err := tel.Phase(ctx, "resolve", func(ctx context.Context) error {
//	    return resolve(ctx)
//	})
//
// The CLI is short-lived, so metrics are exported either by dumping them to a
// textfile (Metrics.WriteTextfile, for node_exporter's textfile collector) or
// by serving /metrics while "espforge watch" runs (Metrics.Serve).
package telemetry
