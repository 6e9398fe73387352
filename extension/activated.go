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

package extension

import "time"

// Kind classifies an activation record.
type Kind int

const (
	// KindOrdinary is an extension whose code was loaded and activated.
	KindOrdinary Kind = iota
	// KindEmpty is an extension without entry point.
	KindEmpty
	// KindHost is an extension activated by the host process.
	KindHost
	// KindFailed is a sticky activation failure.
	KindFailed
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindOrdinary:
		return "ordinary"
	case KindEmpty:
		return "empty"
	case KindHost:
		return "host"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ActivationTimes records how long each activation step took.
type ActivationTimes struct {
	Startup              bool
	CodeLoadingTime      time.Duration
	ActivateCallTime     time.Duration
	ActivateResolvedTime time.Duration
}

// ActivationTimesBuilder measures the activation steps.
type ActivationTimesBuilder struct {
	startup           bool
	codeLoadingStart  time.Time
	codeLoadingStop   time.Time
	activateCallStart time.Time
	activateCallStop  time.Time
	activateResolved  time.Time
}

// NewActivationTimesBuilder creates a builder
func NewActivationTimesBuilder(startup bool) *ActivationTimesBuilder {
	return &ActivationTimesBuilder{startup: startup}
}

// CodeLoadingStart marks the start of code loading
func (b *ActivationTimesBuilder) CodeLoadingStart() { b.codeLoadingStart = time.Now() }

// CodeLoadingStop marks the end of code loading
func (b *ActivationTimesBuilder) CodeLoadingStop() { b.codeLoadingStop = time.Now() }

// ActivateCallStart marks the call of the activate hook
func (b *ActivationTimesBuilder) ActivateCallStart() { b.activateCallStart = time.Now() }

// ActivateCallStop marks the return of the activate hook
func (b *ActivationTimesBuilder) ActivateCallStop() { b.activateCallStop = time.Now() }

// ActivateResolved marks the moment the exports are available
func (b *ActivationTimesBuilder) ActivateResolved() { b.activateResolved = time.Now() }

// Build returns the measured times. Steps that did not happen measure zero.
func (b *ActivationTimesBuilder) Build() ActivationTimes {
	return ActivationTimes{
		Startup:              b.startup,
		CodeLoadingTime:      elapsed(b.codeLoadingStart, b.codeLoadingStop),
		ActivateCallTime:     elapsed(b.activateCallStart, b.activateCallStop),
		ActivateResolvedTime: elapsed(b.activateCallStart, b.activateResolved),
	}
}

func elapsed(start, stop time.Time) time.Duration {
	if start.IsZero() || stop.IsZero() || stop.Before(start) {
		return 0
	}
	return stop.Sub(start)
}

// Activated is the outcome of the activation of one extension.
// A failed record is sticky: it is never retried within the process lifetime.
type Activated struct {
	ID            Identifier
	Kind          Kind
	Module        Module
	Exports       any
	Subscriptions *DisposableStore
	Times         ActivationTimes
	Err           error
}

// Failed reports whether the activation failed.
func (a *Activated) Failed() bool {
	return a.Kind == KindFailed
}

// Deactivator returns the deactivate hook of the module, if any.
func (a *Activated) Deactivator() DeactivateFunc {
	if lm, ok := a.Module.(*LifecycleModule); ok {
		return lm.Deactivate
	}
	return nil
}

// NewFailedActivation creates a sticky failure record.
func NewFailedActivation(id Identifier, err error, times ActivationTimes) *Activated {
	return &Activated{ID: id, Kind: KindFailed, Err: err, Times: times}
}

// NewEmptyActivation creates the record of an extension without entry point.
func NewEmptyActivation(id Identifier, times ActivationTimes) *Activated {
	return &Activated{ID: id, Kind: KindEmpty, Subscriptions: NewDisposableStore(), Times: times}
}

// NewHostActivation creates the record of an extension activated by the host process.
func NewHostActivation(id Identifier) *Activated {
	return &Activated{ID: id, Kind: KindHost}
}
