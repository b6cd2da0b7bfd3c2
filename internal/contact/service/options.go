package service

import (
	"go.opentelemetry.io/otel/trace"

	contactmetrics "contactbook/internal/contact/metrics"
)

type serviceConfig struct {
	metrics          *contactmetrics.Metrics
	tracerProvider   trace.TracerProvider
	serializedWrites bool
}

// Option configures a Gateway.
type Option func(*serviceConfig)

// WithMetrics records save, delete and latency metrics.
func WithMetrics(m *contactmetrics.Metrics) Option {
	return func(cfg *serviceConfig) {
		cfg.metrics = m
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *serviceConfig) {
		cfg.tracerProvider = tp
	}
}

// WithSerializedWrites makes the lookup-then-write sequences of Save and
// Delete mutually exclusive within this gateway. Without it two concurrent
// saves of the same name pair can both insert, or one update can be lost.
// Callers sharing a store across processes still need a store-level guard
// such as the Postgres unique index.
func WithSerializedWrites() Option {
	return func(cfg *serviceConfig) {
		cfg.serializedWrites = true
	}
}
