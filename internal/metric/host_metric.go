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
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Activation outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// HostMetric defines the extension host instrumentation.
// A nil HostMetric records nothing.
type HostMetric struct {
	// Specifies the total number of activation attempts
	activations metric.Int64Counter
	// Specifies the activation duration in milliseconds
	activationDuration metric.Int64Histogram
	// Specifies the eager sweep duration in milliseconds
	eagerDuration metric.Int64Histogram
	// Specifies the total number of deactivations abandoned at the termination deadline
	abandonedDeactivations metric.Int64Counter
}

// NewHostMetric creates an instance of HostMetric
func NewHostMetric(meter metric.Meter) (*HostMetric, error) {
	hostMetric := new(HostMetric)
	var err error
	if hostMetric.activations, err = meter.Int64Counter(
		"exthost.activations",
		metric.WithDescription("Total number of extension activation attempts"),
	); err != nil {
		return nil, fmt.Errorf("failed to create activations instrument, %w", err)
	}

	if hostMetric.activationDuration, err = meter.Int64Histogram(
		"exthost.activation.duration",
		metric.WithDescription("The duration of an extension activation in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create activationDuration instrument, %w", err)
	}

	if hostMetric.eagerDuration, err = meter.Int64Histogram(
		"exthost.eager.duration",
		metric.WithDescription("The duration of the eager activation sweep in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create eagerDuration instrument, %w", err)
	}

	if hostMetric.abandonedDeactivations, err = meter.Int64Counter(
		"exthost.deactivations.abandoned",
		metric.WithDescription("Total number of deactivations abandoned at the termination deadline"),
	); err != nil {
		return nil, fmt.Errorf("failed to create abandonedDeactivations instrument, %w", err)
	}

	return hostMetric, nil
}

// RecordActivation records one activation attempt
func (x *HostMetric) RecordActivation(ctx context.Context, outcome string, startup bool, elapsed time.Duration) {
	if x == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Bool("startup", startup),
	)
	x.activations.Add(ctx, 1, attrs)
	x.activationDuration.Record(ctx, elapsed.Milliseconds(), attrs)
}

// RecordEagerSweep records how long the eager sweep ran before startup finished
func (x *HostMetric) RecordEagerSweep(ctx context.Context, elapsed time.Duration, completed bool) {
	if x == nil {
		return
	}
	x.eagerDuration.Record(ctx, elapsed.Milliseconds(), metric.WithAttributes(attribute.Bool("completed", completed)))
}

// RecordAbandonedDeactivations records deactivations still running at the termination deadline
func (x *HostMetric) RecordAbandonedDeactivations(ctx context.Context, count int) {
	if x == nil || count <= 0 {
		return
	}
	x.abandonedDeactivations.Add(ctx, int64(count))
}
