package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"match-engine/internal/config"
)

// TracingConfig es el subconjunto de Config que usa el tracer.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	SampleRatio float64
	Endpoint    string
	Insecure    bool
}

func TracingConfigFrom(cfg *config.Config) TracingConfig {
	if cfg == nil {
		return TracingConfig{}
	}
	return TracingConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.OtelServiceName,
		SampleRatio: cfg.OtelSampleRatio,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
	}
}

// InitTracing registra el TracerProvider global. Con tracing desactivado devuelve un shutdown no-op
// y los spans quedan en el provider no-op de otel.
func InitTracing(ctx context.Context, logger *zap.Logger, cfg TracingConfig) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "match-engine"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		logger.Warn("otel resource init failed (continuing)", zap.Error(err))
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(cfg.SampleRatio)))
	opts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sampler), sdktrace.WithResource(res)}

	exporter, err := buildExporter(ctx, logger, cfg)
	if err != nil {
		logger.Warn("otel exporter init failed (continuing)", zap.Error(err))
	} else {
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	logger.Info("otel tracing initialized", zap.String("service", serviceName), zap.String("endpoint", cfg.Endpoint))
	return tp.Shutdown
}

func buildExporter(ctx context.Context, logger *zap.Logger, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	logger.Warn("otel using stdout exporter (no OTLP endpoint configured)")
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
