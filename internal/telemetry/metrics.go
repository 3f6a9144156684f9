// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/model"
)

const meterName = "github.com/Elephant333/emojify"

// Metric names.
const (
	MetricGenerations        = "emojify.generations"
	MetricGenerationDuration = "emojify.generation.duration"
	MetricExplanations       = "emojify.explanations"
	MetricActive             = "emojify.generations.active"
	MetricBackendCalls       = "emojify.backend.calls"
)

// Metrics records engine and backend activity.
type Metrics struct {
	generations  metric.Int64Counter
	duration     metric.Float64Histogram
	explanations metric.Int64Counter
	active       metric.Int64UpDownCounter
	backendCalls metric.Int64Counter
}

var _ engine.Recorder = (*Metrics)(nil)

// NewMetrics creates the instruments on provider, or on the global meter
// provider when provider is nil.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	generations, err := meter.Int64Counter(
		MetricGenerations,
		metric.WithDescription("Finished generation requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		MetricGenerationDuration,
		metric.WithDescription("Duration of generation requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	explanations, err := meter.Int64Counter(
		MetricExplanations,
		metric.WithDescription("Finished explanation requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	active, err := meter.Int64UpDownCounter(
		MetricActive,
		metric.WithDescription("Generation requests currently in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	backendCalls, err := meter.Int64Counter(
		MetricBackendCalls,
		metric.WithDescription("Backend route attempts"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		generations:  generations,
		duration:     duration,
		explanations: explanations,
		active:       active,
		backendCalls: backendCalls,
	}, nil
}

// GenerationStarted implements engine.Recorder.
func (m *Metrics) GenerationStarted(ctx context.Context, mode model.Mode) {
	m.active.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode.String())))
}

// GenerationFinished implements engine.Recorder.
func (m *Metrics) GenerationFinished(ctx context.Context, mode model.Mode, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("mode", mode.String()),
		attribute.String("outcome", outcome),
	)
	m.generations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	m.active.Add(ctx, -1, metric.WithAttributes(attribute.String("mode", mode.String())))
}

// ExplanationFinished implements engine.Recorder.
func (m *Metrics) ExplanationFinished(ctx context.Context, mode model.Mode, outcome string, _ time.Duration) {
	m.explanations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode.String()),
		attribute.String("outcome", outcome),
	))
}

// BackendCall implements router.CallObserver.
func (m *Metrics) BackendCall(ctx context.Context, provider string, err error, _ time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.backendCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}
