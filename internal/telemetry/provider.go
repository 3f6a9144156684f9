// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Provider is an SDK meter provider backed by a manual reader, so the
// current values can be read on demand.
type Provider struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewProvider creates a Provider.
func NewProvider() *Provider {
	reader := sdkmetric.NewManualReader()
	return &Provider{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// MeterProvider returns the provider for NewMetrics.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.provider
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

// Point is one data point of a metric.
type Point struct {
	Attributes map[string]string `json:"attributes,omitempty"`

	// Value is the sum for counters and the total for histograms.
	Value float64 `json:"value"`

	// Count is the number of recorded samples for histograms.
	Count uint64 `json:"count,omitempty"`
}

// Series is one metric with its points.
type Series struct {
	Name   string  `json:"name"`
	Unit   string  `json:"unit,omitempty"`
	Points []Point `json:"points"`
}

// Snapshot collects the current values of every metric, sorted by name.
func (p *Provider) Snapshot(ctx context.Context) ([]Series, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	var out []Series
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			s := Series{Name: m.Name, Unit: m.Unit}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					s.Points = append(s.Points, Point{Attributes: attrMap(dp.Attributes), Value: float64(dp.Value)})
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					s.Points = append(s.Points, Point{Attributes: attrMap(dp.Attributes), Value: dp.Value})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					s.Points = append(s.Points, Point{Attributes: attrMap(dp.Attributes), Value: dp.Sum, Count: dp.Count})
				}
			default:
				continue
			}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func attrMap(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}
	m := make(map[string]string, set.Len())
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}

// Total sums the points of the named series whose attributes include all of
// match. It returns 0 when the series is missing.
func Total(series []Series, name string, match map[string]string) float64 {
	var total float64
	for _, s := range series {
		if s.Name != name {
			continue
		}
		for _, p := range s.Points {
			if matches(p.Attributes, match) {
				total += p.Value
			}
		}
	}
	return total
}

func matches(attrs, match map[string]string) bool {
	for k, v := range match {
		if attrs[k] != v {
			return false
		}
	}
	return true
}
