package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/kindflow/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) *MeterConfig {
	return &MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric names.
const (
	MetricChunks          = "kindflow.chunks"
	MetricRows            = "kindflow.rows"
	MetricComputeDuration = "kindflow.compute.duration"
	MetricErrors          = "kindflow.errors"
)

// StreamMetrics holds the instruments recorded for every compute call.
type StreamMetrics struct {
	chunks   metric.Int64Counter
	rows     metric.Int64Counter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewStreamMetrics creates metric instruments on the given meter.
func NewStreamMetrics(meter metric.Meter) (*StreamMetrics, error) {
	chunks, err := meter.Int64Counter(MetricChunks,
		metric.WithDescription("Chunks produced by plugin compute calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricChunks, err)
	}

	rows, err := meter.Int64Counter(MetricRows,
		metric.WithDescription("Records produced by plugin compute calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRows, err)
	}

	duration, err := meter.Float64Histogram(MetricComputeDuration,
		metric.WithDescription("Duration of plugin compute calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricComputeDuration, err)
	}

	errs, err := meter.Int64Counter(MetricErrors,
		metric.WithDescription("Failed plugin compute calls by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricErrors, err)
	}

	return &StreamMetrics{chunks: chunks, rows: rows, duration: duration, errors: errs}, nil
}

// RecordCompute records one successful compute call.
func (m *StreamMetrics) RecordCompute(ctx context.Context, plugin string, rows int, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrPlugin, plugin))
	m.chunks.Add(ctx, 1, attrs)
	m.rows.Add(ctx, int64(rows), attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}

// RecordError records a failed compute call.
func (m *StreamMetrics) RecordError(ctx context.Context, plugin, code string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrPlugin, plugin),
		attribute.String("code", code),
	))
}
