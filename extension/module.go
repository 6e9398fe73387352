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

import (
	"context"
	"time"

	"github.com/tochemey/exthost/log"
)

// Module is a loaded extension module. It is one of LifecycleModule or
// ExportsModule, decided once when the code is loaded.
type Module interface {
	isModule()
}

// ActivateFunc activates an extension and returns its exports.
type ActivateFunc func(ctx context.Context, extCtx *Context) (any, error)

// DeactivateFunc releases what an extension acquired during activation.
// The context is canceled when the termination deadline elapses.
type DeactivateFunc func(ctx context.Context) error

// LifecycleModule is a module exposing activate and, optionally, deactivate hooks.
type LifecycleModule struct {
	Activate   ActivateFunc
	Deactivate DeactivateFunc
}

// ExportsModule is a module without lifecycle hooks. Its exports are
// available as soon as it is loaded.
type ExportsModule struct {
	Exports any
}

func (*LifecycleModule) isModule() {}
func (*ExportsModule) isModule()   {}

// Context is handed to an extension activate hook.
type Context struct {
	// Descriptor is the descriptor of the extension being activated.
	Descriptor *Descriptor
	// Subscriptions are disposed when the extension is deactivated.
	Subscriptions *DisposableStore
	// GlobalState is persisted across workspaces.
	GlobalState Memento
	// WorkspaceState is persisted for the current workspace.
	WorkspaceState Memento
	// Logger carries the extension identifier.
	Logger log.Logger
	// Mode is the extension mode.
	Mode Mode
}

// PerformanceMark is a named point in time collected during startup.
type PerformanceMark struct {
	Name string
	Time time.Time
}

// HostProxy is the callback channel into the host process.
type HostProxy interface {
	// ActivateByID activates an extension hosted by the other side.
	ActivateByID(ctx context.Context, id Identifier, reason ActivationReason) error
	// OnWillActivateExtension is called before an extension activate hook runs.
	OnWillActivateExtension(ctx context.Context, id Identifier)
	// OnDidActivateExtension is called once an extension is activated.
	OnDidActivateExtension(ctx context.Context, id Identifier, times ActivationTimes, reason ActivationReason)
	// OnExtensionActivationError reports an activation failure. missingDependency is set when the
	// failure is caused by a dependency unknown to the host.
	OnExtensionActivationError(ctx context.Context, id Identifier, err error, missingDependency *Identifier)
	// SetPerformanceMarks publishes the collected startup marks.
	SetPerformanceMarks(ctx context.Context, marks []PerformanceMark)
}

// NoopHostProxy ignores every callback and activates nothing remotely.
type NoopHostProxy struct{}

var _ HostProxy = NoopHostProxy{}

func (NoopHostProxy) ActivateByID(context.Context, Identifier, ActivationReason) error { return nil }
func (NoopHostProxy) OnWillActivateExtension(context.Context, Identifier)              {}
func (NoopHostProxy) OnDidActivateExtension(context.Context, Identifier, ActivationTimes, ActivationReason) {
}
func (NoopHostProxy) OnExtensionActivationError(context.Context, Identifier, error, *Identifier) {}
func (NoopHostProxy) SetPerformanceMarks(context.Context, []PerformanceMark)                    {}
