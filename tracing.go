package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"lg/stride-api/internal/logger"
)

const serviceName = "stride-api"

// initTracing installs a global tracer provider when OTEL_ENABLED is set.
// Spans go to OTEL_EXPORTER_OTLP_ENDPOINT over HTTP, or to stdout when no
// endpoint is configured. The returned func flushes and shuts down; it is a
// no-op when tracing is off.
func initTracing(ctx context.Context, log *logger.Logger, appEnv string) func(context.Context) error {
	if !envBool("OTEL_ENABLED") {
		return func(context.Context) error { return nil }
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("deployment.environment", appEnv),
		),
	)
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(samplerRatio()))),
		sdktrace.WithResource(res),
	}
	exporter, err := traceExporter(ctx)
	if err != nil {
		log.Warn("otel exporter init failed (continuing)", "error", err)
	} else {
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("otel tracing initialized", "endpoint", envString("OTEL_EXPORTER_OTLP_ENDPOINT", "stdout"))
	return tp.Shutdown
}

func traceExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	endpoint := envString("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if envBool("OTEL_EXPORTER_OTLP_INSECURE") {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if headers := otlpHeaders(envString("OTEL_EXPORTER_OTLP_HEADERS", "")); headers != nil {
		opts = append(opts, otlptracehttp.WithHeaders(headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

// otlpHeaders parses "k1=v1,k2=v2".
func otlpHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		headers[k] = v
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

// samplerRatio reads OTEL_SAMPLER_RATIO, clamped to [0, 1], default 0.1.
func samplerRatio() float64 {
	f, err := strconv.ParseFloat(envString("OTEL_SAMPLER_RATIO", ""), 64)
	if err != nil {
		return 0.1
	}
	return max(0, min(1, f))
}

func envBool(name string) bool {
	switch strings.ToLower(envString(name, "")) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
