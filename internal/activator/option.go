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

package activator

import (
	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/internal/metric"
	"github.com/tochemey/exthost/log"
)

// ContextFactory creates the context handed to an extension activate hook.
type ContextFactory func(desc *extension.Descriptor) (*extension.Context, error)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of an engine.
	Apply(engine *Engine)
}

// enforce compilation error
var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Engine)

// Apply implements Option.
func (f OptionFunc) Apply(e *Engine) {
	f(e)
}

// WithLogger sets the engine logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(e *Engine) {
		e.logger = logger
	})
}

// WithHostProxy sets the proxy used to report activations and to activate host extensions
func WithHostProxy(proxy extension.HostProxy) Option {
	return OptionFunc(func(e *Engine) {
		e.proxy = proxy
	})
}

// WithContextFactory sets the factory of activation contexts
func WithContextFactory(factory ContextFactory) Option {
	return OptionFunc(func(e *Engine) {
		e.newContext = factory
	})
}

// WithMetric sets the instrumentation
func WithMetric(hostMetric *metric.HostMetric) Option {
	return OptionFunc(func(e *Engine) {
		e.metric = hostMetric
	})
}
