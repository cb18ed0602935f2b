package tracing

import (
	"context"

	"github.com/jademcosta/pescador/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/jademcosta/pescador"

func NewNoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(instrumentationName)
}

// NewTracer returns the tracer plus its shutdown function. With tracing
// disabled the tracer is a noop and the shutdown does nothing, so callers
// never have to branch.
func NewTracer(conf config.TracingConfig) (trace.Tracer, func(context.Context) error, error) {
	if !conf.Enabled {
		return NewNoopTracer(), func(_ context.Context) error {
			return nil
		}, nil
	}

	exporter, err := otlptracehttp.New(context.Background())
	if err != nil {
		return nil, nil, err
	}

	res, err := buildResource(conf)
	if err != nil {
		return nil, nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tracerProvider.Tracer(instrumentationName), tracerProvider.Shutdown, nil
}

func buildResource(conf config.TracingConfig) (*resource.Resource, error) {
	serviceName := conf.ServiceName
	if serviceName == "" {
		serviceName = "pescador"
	}

	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}
