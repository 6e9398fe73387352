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
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/loader"
	"github.com/tochemey/exthost/log"
	"github.com/tochemey/exthost/storage"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(host *Host)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(host *Host)

// Apply applies the options to the Host
func (f OptionFunc) Apply(host *Host) {
	f(host)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(host *Host) {
		host.logger = logger
	})
}

// WithExtensions seeds the registry: global holds every known extension and
// local the ids of the extensions running in this host.
func WithExtensions(global []*extension.Descriptor, local []extension.Identifier) Option {
	return OptionFunc(func(host *Host) {
		host.initialGlobal = global
		host.initialLocal = local
	})
}

// WithLoader sets the module loader used to load extension entry points.
func WithLoader(loader loader.Loader) Option {
	return OptionFunc(func(host *Host) {
		host.loader = loader
	})
}

// WithStore sets the store backing extension global and workspace state.
// The host closes it on terminate.
func WithStore(store storage.Store) Option {
	return OptionFunc(func(host *Host) {
		host.store = store
	})
}

// WithHostProxy sets the callbacks into the process driving the host.
func WithHostProxy(proxy extension.HostProxy) Option {
	return OptionFunc(func(host *Host) {
		host.hostProxy = proxy
	})
}

// WithAutoStart starts the extension host as soon as it is ready to start.
func WithAutoStart() Option {
	return OptionFunc(func(host *Host) {
		host.autoStart = true
	})
}

// WithDeferredStartupFinished activates the onStartupFinished extensions in
// time sliced batches instead of in one go.
func WithDeferredStartupFinished() Option {
	return OptionFunc(func(host *Host) {
		host.deferredStartupFinished = true
	})
}

// WithRemoteAuthority sets the remote authority the host runs against.
// isRemote tells whether the host itself runs on the remote side.
func WithRemoteAuthority(authority string, isRemote bool) Option {
	return OptionFunc(func(host *Host) {
		host.remoteAuthority = authority
		host.isRemote = isRemote
	})
}

// WithStartupActivationWait sets how long starting waits for activations in flight.
func WithStartupActivationWait(timeout time.Duration) Option {
	return OptionFunc(func(host *Host) {
		host.startupActivationWait = timeout
	})
}

// WithEagerActivationTimeout sets the ceiling of the eager activation sweep.
func WithEagerActivationTimeout(timeout time.Duration) Option {
	return OptionFunc(func(host *Host) {
		host.eagerActivationTimeout = timeout
	})
}

// WithStartupFinishedSliceBudget sets the budget of a deferred startup finished slice.
func WithStartupFinishedSliceBudget(budget time.Duration) Option {
	return OptionFunc(func(host *Host) {
		host.sliceBudget = budget
	})
}

// WithTerminationTimeout sets the ceiling of the deactivation of all extensions.
func WithTerminationTimeout(timeout time.Duration) Option {
	return OptionFunc(func(host *Host) {
		host.terminationTimeout = timeout
	})
}

// WithWorkspaceContainsTimeout sets the ceiling of a workspace contains search.
func WithWorkspaceContainsTimeout(timeout time.Duration) Option {
	return OptionFunc(func(host *Host) {
		host.workspaceContainsTimeout = timeout
	})
}

// WithBeforeAlmostReady sets a hook run before the host becomes almost ready.
func WithBeforeAlmostReady(hook func(ctx context.Context) error) Option {
	return OptionFunc(func(host *Host) {
		host.beforeAlmostReady = hook
	})
}

// WithExit sets the function called with the exit code once the host terminated.
func WithExit(exit func(code int)) Option {
	return OptionFunc(func(host *Host) {
		host.exit = exit
	})
}

// WithPID sets the process id reported when exiting.
func WithPID(pid int) Option {
	return OptionFunc(func(host *Host) {
		host.pid = pid
	})
}

// WithDeactivateOnRemove deactivates activated extensions removed by a delta.
func WithDeactivateOnRemove() Option {
	return OptionFunc(func(host *Host) {
		host.deactivateOnRemove = true
	})
}

// WithUnexpectedErrorHandler sets the handler of errors that do not stop the host.
func WithUnexpectedErrorHandler(handler func(err error)) Option {
	return OptionFunc(func(host *Host) {
		host.onUnexpectedError = handler
	})
}

// WithMeterProvider sets the OpenTelemetry meter provider. The global one is used by default.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(host *Host) {
		host.meterProvider = provider
	})
}
