package observability

import (
	"net/http"

	"niena/internal/config"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// FromConfig builds the observability settings from the loaded config
func FromConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		return ObservabilityConfig{
			ServiceName:    "niena",
			ServiceVersion: version,
			Enabled:        true,
			SampleRate:     1.0,
			Prometheus:     PrometheusConfig{Enabled: true, Endpoint: "/metrics", Port: "9090"},
			Toggles:        Toggles{AIOperations: true, TokenUsage: true, Business: true, Infrastructure: true},
		}
	}

	obs := cfg.Observability
	serviceVersion := obs.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	sampleRate := obs.SampleRate
	if !obs.Tracing.Enabled {
		sampleRate = 0
	} else if obs.Tracing.SampleRate > 0 {
		sampleRate = obs.Tracing.SampleRate
	}

	return ObservabilityConfig{
		ServiceName:        obs.ServiceName,
		ServiceVersion:     serviceVersion,
		ServiceInstance:    obs.ServiceInstance,
		Enabled:            obs.Enabled,
		ConsoleOutput:      obs.ConsoleOutput,
		SampleRate:         sampleRate,
		CollectionInterval: obs.Metrics.CollectionInterval,
		Prometheus: PrometheusConfig{
			Enabled:  obs.Prometheus.Enabled && obs.Metrics.Enabled,
			Endpoint: obs.Prometheus.Endpoint,
			Port:     obs.Prometheus.Port,
		},
		OTLP: obs.OTLP,
		Toggles: Toggles{
			AIOperations:   obs.CustomMetrics.AIOperations,
			TokenUsage:     obs.CustomMetrics.TokenUsage,
			Business:       obs.CustomMetrics.BusinessMetrics,
			Infrastructure: obs.CustomMetrics.Infrastructure,
		},
	}
}

// UserIDHeader carries the caller identity set by the API gateway
const UserIDHeader = "X-User-ID"

// RequestAttributes tags the active request span with the caller and route.
// It must run inside HTTPMiddleware so a span exists.
func RequestAttributes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := oteltrace.SpanFromContext(r.Context())
		if span.IsRecording() {
			attrs := []attribute.KeyValue{attribute.String("http.route", r.Pattern)}
			if uid := r.Header.Get(UserIDHeader); uid != "" {
				attrs = append(attrs, attribute.String("enduser.id", uid))
			}
			span.SetAttributes(attrs...)
		}
		next.ServeHTTP(w, r)
	})
}
