// Package otel wires optional OpenTelemetry tracing.
package otel

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	EndpointEnv    = "CARBON_OTEL_ENDPOINT"
	EnabledEnv     = "CARBON_OTEL_ENABLED"
	SampleRatioEnv = "CARBON_OTEL_SAMPLE_RATIO"
)

// Game identifies the running game on every exported span.
type Game struct {
	Service         string
	ScenarioVersion string
	Class           string
}

// Attributes returns the resource attributes for g. Empty fields are left out.
func (g Game) Attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(g.Service)}
	if g.ScenarioVersion != "" {
		attrs = append(attrs, attribute.String("carbon.scenario.version", g.ScenarioVersion))
	}
	if g.Class != "" {
		attrs = append(attrs, attribute.String("carbon.class", g.Class))
	}
	return attrs
}

// Sampler parses a sample ratio in [0, 1]. Empty samples every trace.
func Sampler(raw string) (sdktrace.Sampler, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sdktrace.AlwaysSample(), nil
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("%s must be a number in [0, 1], got %q", SampleRatioEnv, raw)
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio)), nil
}

// Setup registers a global tracer provider exporting over OTLP/HTTP.
//
// Tracing stays off unless CARBON_OTEL_ENDPOINT is set; CARBON_OTEL_ENABLED
// set to "false" turns it off again without clearing the endpoint.
func Setup(ctx context.Context, g Game) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	endpoint := strings.TrimSpace(os.Getenv(EndpointEnv))
	if endpoint == "" || strings.EqualFold(os.Getenv(EnabledEnv), "false") {
		return noop, nil
	}
	sampler, err := Sampler(os.Getenv(SampleRatioEnv))
	if err != nil {
		return noop, err
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return noop, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(g.Attributes()...))
	if err != nil {
		return noop, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}
