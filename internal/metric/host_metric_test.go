// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package metric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestProviderUsesGlobalProvider(t *testing.T) {
	prevProvider := otel.GetMeterProvider()
	recorder := &recorderMeterProvider{MeterProvider: noop.NewMeterProvider()}
	otel.SetMeterProvider(recorder)
	t.Cleanup(func() { otel.SetMeterProvider(prevProvider) })

	provider := NewProvider(WithMeterProvider(nil))
	require.NotNil(t, provider.Meter())
	assert.Equal(t, []string{instrumentationName}, recorder.called)
}

func TestProviderWithMeterProvider(t *testing.T) {
	custom := &recorderMeterProvider{MeterProvider: noop.NewMeterProvider()}
	provider := NewProvider(WithMeterProvider(custom))
	require.NotNil(t, provider.Meter())
	assert.Equal(t, []string{instrumentationName}, custom.called)
}

func TestHostMetric(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = meterProvider.Shutdown(ctx) })

	hostMetric, err := NewHostMetric(NewProvider(WithMeterProvider(meterProvider)).Meter())
	require.NoError(t, err)

	hostMetric.RecordActivation(ctx, OutcomeSuccess, true, 3*time.Millisecond)
	hostMetric.RecordActivation(ctx, OutcomeFailure, false, time.Millisecond)
	hostMetric.RecordEagerSweep(ctx, 10*time.Millisecond, true)
	hostMetric.RecordAbandonedDeactivations(ctx, 2)
	hostMetric.RecordAbandonedDeactivations(ctx, 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	found := make(map[string]metricdata.Aggregation)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			found[m.Name] = m.Data
		}
	}

	require.Contains(t, found, "exthost.activations")
	require.Contains(t, found, "exthost.activation.duration")
	require.Contains(t, found, "exthost.eager.duration")
	require.Contains(t, found, "exthost.deactivations.abandoned")

	activations, ok := found["exthost.activations"].(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range activations.DataPoints {
		total += dp.Value
	}
	assert.EqualValues(t, 2, total)

	abandoned, ok := found["exthost.deactivations.abandoned"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, abandoned.DataPoints, 1)
	assert.EqualValues(t, 2, abandoned.DataPoints[0].Value)
}

func TestNilHostMetric(t *testing.T) {
	var hostMetric *HostMetric
	assert.NotPanics(t, func() {
		hostMetric.RecordActivation(context.Background(), OutcomeSuccess, false, time.Millisecond)
		hostMetric.RecordEagerSweep(context.Background(), time.Millisecond, false)
		hostMetric.RecordAbandonedDeactivations(context.Background(), 1)
	})
}

type recorderMeterProvider struct {
	metric.MeterProvider
	called []string
}

func (p *recorderMeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	p.called = append(p.called, name)
	return p.MeterProvider.Meter(name, opts...)
}
