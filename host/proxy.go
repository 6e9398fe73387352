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

package host

import (
	"context"

	"go.uber.org/atomic"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/eventstream"
	"github.com/tochemey/exthost/extension"
)

// eventsProxy forwards the activation callbacks to the host proxy and
// publishes them on the events stream. Once invalidated every call is dropped.
type eventsProxy struct {
	delegate extension.HostProxy
	stream   eventstream.Stream
	invalid  *atomic.Bool
}

var _ extension.HostProxy = (*eventsProxy)(nil)

func newEventsProxy(delegate extension.HostProxy, stream eventstream.Stream) *eventsProxy {
	if delegate == nil {
		delegate = extension.NoopHostProxy{}
	}
	return &eventsProxy{
		delegate: delegate,
		stream:   stream,
		invalid:  atomic.NewBool(false),
	}
}

func (p *eventsProxy) Invalidate() {
	p.invalid.Store(true)
}

func (p *eventsProxy) ActivateByID(ctx context.Context, id extension.Identifier, reason extension.ActivationReason) error {
	if p.invalid.Load() {
		return gerrors.ErrTerminating
	}
	return p.delegate.ActivateByID(ctx, id, reason)
}

func (p *eventsProxy) OnWillActivateExtension(ctx context.Context, id extension.Identifier) {
	if p.invalid.Load() {
		return
	}
	p.stream.Publish(TopicWillActivate, &WillActivateEvent{ID: id})
	p.delegate.OnWillActivateExtension(ctx, id)
}

func (p *eventsProxy) OnDidActivateExtension(ctx context.Context, id extension.Identifier, times extension.ActivationTimes, reason extension.ActivationReason) {
	if p.invalid.Load() {
		return
	}
	p.stream.Publish(TopicDidActivate, &DidActivateEvent{ID: id, Times: times, Reason: reason})
	p.delegate.OnDidActivateExtension(ctx, id, times, reason)
}

func (p *eventsProxy) OnExtensionActivationError(ctx context.Context, id extension.Identifier, err error, missingDependency *extension.Identifier) {
	if p.invalid.Load() {
		return
	}
	p.stream.Publish(TopicActivationError, &ActivationErrorEvent{ID: id, Err: err, MissingDependency: missingDependency})
	p.delegate.OnExtensionActivationError(ctx, id, err, missingDependency)
}

func (p *eventsProxy) SetPerformanceMarks(ctx context.Context, marks []extension.PerformanceMark) {
	if p.invalid.Load() {
		return
	}
	p.stream.Publish(TopicPerformanceMarks, marks)
	p.delegate.SetPerformanceMarks(ctx, marks)
}
