// Package observability wires OpenTelemetry tracing and metrics, grounded
// on the teacher's internal/observability package and its otel-heavy
// go.mod. Metrics are recorded through the otel Meter API and exported to
// Prometheus via the otel/exporters/prometheus bridge, so /metrics stays a
// plain promhttp.Handler scrape even though instrumentation is otel-native.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the tracer and the core's metric instruments.
type Observability struct {
	Tracer trace.Tracer

	tasksDispatched   metric.Int64Counter
	taskDurations     metric.Float64Histogram
	hookRuns          metric.Int64Counter
	samplingFallbacks metric.Int64Counter
	sseDrops          metric.Int64Counter

	shutdown func(context.Context) error
}

// Config configures otel export; OTLPEndpoint empty disables remote trace
// export (the tracer still works locally, spans are simply not shipped).
type Config struct {
	ServiceName  string
	OTLPEndpoint string
}

// New builds an Observability bundle. Errors setting up the OTLP trace
// exporter are non-fatal — the core falls back to a no-export tracer
// provider so a missing collector never blocks startup. A failure building
// the Prometheus metric reader is fatal since /metrics would silently
// report nothing.
func New(ctx context.Context, cfg Config) (*Observability, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	var traceOpts []sdktrace.TracerProviderOption
	traceOpts = append(traceOpts, sdktrace.WithResource(res))

	traceShutdown := func(context.Context) error { return nil }
	if cfg.OTLPEndpoint != "" {
		exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint), otlptracehttp.WithInsecure())
		if err == nil {
			traceOpts = append(traceOpts, sdktrace.WithBatcher(exp))
			traceShutdown = exp.Shutdown
		}
	}

	tp := sdktrace.NewTracerProvider(traceOpts...)
	otel.SetTracerProvider(tp)

	reader, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("build prometheus metric reader: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)
	meter := mp.Meter(cfg.ServiceName)

	tasksDispatched, err := meter.Int64Counter("core_tasks_dispatched_total",
		metric.WithDescription("Background turns dispatched, by workspace outcome."))
	if err != nil {
		return nil, fmt.Errorf("build tasks_dispatched counter: %w", err)
	}
	taskDurations, err := meter.Float64Histogram("core_task_duration_seconds",
		metric.WithDescription("Background turn execution duration."))
	if err != nil {
		return nil, fmt.Errorf("build task_duration histogram: %w", err)
	}
	hookRuns, err := meter.Int64Counter("core_hook_runs_total",
		metric.WithDescription("Hook runner outcomes, by hook_type and outcome."))
	if err != nil {
		return nil, fmt.Errorf("build hook_runs counter: %w", err)
	}
	samplingFallbacks, err := meter.Int64Counter("core_sampling_fallbacks_total",
		metric.WithDescription("Sampling gate fallback tier usage, by source."))
	if err != nil {
		return nil, fmt.Errorf("build sampling_fallbacks counter: %w", err)
	}
	sseDrops, err := meter.Int64Counter("core_sse_events_dropped_total",
		metric.WithDescription("SSE events dropped because a client's channel was full."))
	if err != nil {
		return nil, fmt.Errorf("build sse_drops counter: %w", err)
	}

	return &Observability{
		Tracer:            tp.Tracer(cfg.ServiceName),
		tasksDispatched:   tasksDispatched,
		taskDurations:     taskDurations,
		hookRuns:          hookRuns,
		samplingFallbacks: samplingFallbacks,
		sseDrops:          sseDrops,
		shutdown: func(ctx context.Context) error {
			if err := traceShutdown(ctx); err != nil {
				return err
			}
			return mp.Shutdown(ctx)
		},
	}, nil
}

// RecordTaskDispatched counts one background turn reaching a terminal
// outcome for workspaceID.
func (o *Observability) RecordTaskDispatched(ctx context.Context, workspaceID, status string) {
	if o == nil {
		return
	}
	o.tasksDispatched.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workspace_id", workspaceID), attribute.String("status", status)))
}

// RecordTaskDuration records how long a background turn took to reach a
// terminal outcome.
func (o *Observability) RecordTaskDuration(ctx context.Context, workspaceID string, seconds float64) {
	if o == nil {
		return
	}
	o.taskDurations.Record(ctx, seconds, metric.WithAttributes(attribute.String("workspace_id", workspaceID)))
}

// RecordHookRun counts one hook body execution by its step and outcome.
func (o *Observability) RecordHookRun(ctx context.Context, hookType, outcome string) {
	if o == nil {
		return
	}
	o.hookRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("hook_type", hookType), attribute.String("outcome", outcome)))
}

// RecordSamplingFallback counts one with_fallback call resolving through
// source instead of the primary sampling tier.
func (o *Observability) RecordSamplingFallback(ctx context.Context, source string) {
	if o == nil {
		return
	}
	o.samplingFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordSSEDrop counts one envelope dropped because a subscriber's fan-out
// channel was full.
func (o *Observability) RecordSSEDrop(ctx context.Context) {
	if o == nil {
		return
	}
	o.sseDrops.Add(ctx, 1)
}

// Shutdown flushes the tracer and meter providers.
func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.shutdown == nil {
		return nil
	}
	return o.shutdown(ctx)
}
