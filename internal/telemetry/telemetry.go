// SPDX-License-Identifier: MIT
// Package telemetry exposes capture and transcription counters as
// OpenTelemetry instruments, scraped through a Prometheus handler.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"openhush/internal/log"
)

const meterName = "openhush"

var logger = log.Component("telemetry")

// BufferStats is the view of the capture ring buffer that the metrics
// callbacks read from.
type BufferStats interface {
	CurrentPosition() uint64
	Retained() int
}

// Metrics owns the meter provider and every instrument the pipeline
// records into. A nil *Metrics is valid and records nothing.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler
	meter    metric.Meter

	clips      metric.Int64Counter
	evicted    metric.Int64Counter
	dropped    metric.Int64Counter
	latency    metric.Float64Histogram
	inputLevel metric.Float64Histogram
}

// New builds a provider with a Prometheus reader on a private registry.
// If the exporter cannot be created, metrics are still recorded but
// Handler returns nil.
func New(ctx context.Context, serviceName string) (*Metrics, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, err
	}

	m := &Metrics{}
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		logger.Warnf("prometheus exporter unavailable: %v", err)
		m.provider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	} else {
		m.provider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(res),
		)
		m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}
	m.meter = m.provider.Meter(meterName)

	if err := m.initInstruments(); err != nil {
		_ = m.provider.Shutdown(ctx)
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initInstruments() error {
	var err error
	if m.clips, err = m.meter.Int64Counter("openhush.clips",
		metric.WithDescription("Clips handed to the transcription worker, by outcome"),
	); err != nil {
		return err
	}
	if m.evicted, err = m.meter.Int64Counter("openhush.samples.evicted",
		metric.WithDescription("Samples lost because a dictation outlived the pre-buffer"),
	); err != nil {
		return err
	}
	if m.dropped, err = m.meter.Int64Counter("openhush.jobs.dropped",
		metric.WithDescription("Transcription jobs dropped because the queue was full"),
	); err != nil {
		return err
	}
	if m.latency, err = m.meter.Float64Histogram("openhush.transcription.duration",
		metric.WithDescription("Recognizer wall time per clip"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2, 5, 10, 30),
	); err != nil {
		return err
	}
	if m.inputLevel, err = m.meter.Float64Histogram("openhush.clip.level",
		metric.WithDescription("Clip RMS level before conditioning, in dBFS"),
		metric.WithExplicitBucketBoundaries(-90, -60, -48, -36, -24, -18, -12, -6, 0),
	); err != nil {
		return err
	}
	return nil
}

// ObserveBuffer registers asynchronous instruments that read the capture
// buffer on every collection, keeping the capture callback free of metric
// calls.
func (m *Metrics) ObserveBuffer(stats BufferStats) error {
	if m == nil {
		return nil
	}
	captured, err := m.meter.Int64ObservableCounter("openhush.samples.captured",
		metric.WithDescription("Samples pushed into the pre-buffer since start"),
	)
	if err != nil {
		return err
	}
	retained, err := m.meter.Int64ObservableGauge("openhush.buffer.retained",
		metric.WithDescription("Samples currently held in the pre-buffer"),
	)
	if err != nil {
		return err
	}
	_, err = m.meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		obs.ObserveInt64(captured, int64(stats.CurrentPosition()))
		obs.ObserveInt64(retained, int64(stats.Retained()))
		return nil
	}, captured, retained)
	return err
}

// RecordClip counts one clip under reason, e.g. "ok" or a validation
// failure label.
func (m *Metrics) RecordClip(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.clips.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// AddEvicted counts samples a dictation lost to eviction.
func (m *Metrics) AddEvicted(ctx context.Context, n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.evicted.Add(ctx, int64(n))
}

// AddDropped counts a job rejected by a full queue.
func (m *Metrics) AddDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.dropped.Add(ctx, 1)
}

// ObserveTranscription records how long the recognizer took.
func (m *Metrics) ObserveTranscription(ctx context.Context, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.latency.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("ok", ok)))
}

// ObserveInputLevel records a clip's RMS level.
func (m *Metrics) ObserveInputLevel(ctx context.Context, db float32) {
	if m == nil {
		return
	}
	m.inputLevel.Record(ctx, float64(db))
}

// Handler returns the scrape handler, or nil when no exporter is attached.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return nil
	}
	return m.handler
}

// Shutdown flushes and stops the provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
