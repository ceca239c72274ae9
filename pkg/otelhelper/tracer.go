// Package otelhelper provides distributed tracing for transition and
// automation monitoring.
package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Common attribute keys.
	OrgIDKey      = "pipewise.org.id"
	RecordIDKey   = "pipewise.record.id"
	ModuleIDKey   = "pipewise.module.id"
	StageFromKey  = "pipewise.stage.from"
	StageToKey    = "pipewise.stage.to"
	WorkflowIDKey = "pipewise.workflow.id"
	RunIDKey      = "pipewise.run.id"
	TriggerKey    = "pipewise.trigger.type"
	ActionTypeKey = "pipewise.action.type"
	MacroIDKey    = "pipewise.macro.id"
	ApprovalIDKey = "pipewise.approval.id"
	DryRunKey     = "pipewise.dry_run"
)

// InitTracer installs a global OTLP tracer provider for the named service.
// The returned provider must be shut down on exit to flush pending spans.
func InitTracer(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp, nil
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
