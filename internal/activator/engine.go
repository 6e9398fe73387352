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

// Package activator is the default activation engine. It resolves activation
// requests against the local registry, activates dependencies first and keeps
// one sticky record per extension.
package activator

import (
	"context"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/future"
	"github.com/tochemey/exthost/internal/metric"
	"github.com/tochemey/exthost/internal/registry"
	"github.com/tochemey/exthost/internal/xsync"
	"github.com/tochemey/exthost/loader"
	"github.com/tochemey/exthost/log"
)

// Engine activates extensions.
//
// Activation is idempotent: once an extension has been activated, or has
// failed to activate, its record is returned without running anything again.
// Activations in flight are not canceled by the caller context.
type Engine struct {
	registry   *registry.Registry
	loader     loader.Loader
	proxy      extension.HostProxy
	newContext ContextFactory
	logger     log.Logger
	metric     *metric.HostMetric

	records         *xsync.Map[string, *extension.Activated]
	pending         *xsync.Map[string, *future.Future[*extension.Activated]]
	group           singleflight.Group
	activatedEvents mapset.Set[string]
	eventsEpoch     *atomic.Uint64
	disposed        *atomic.Bool
}

// New creates an Engine over the given registry.
func New(registry *registry.Registry, loader loader.Loader, opts ...Option) *Engine {
	engine := &Engine{
		registry:        registry,
		loader:          loader,
		proxy:           extension.NoopHostProxy{},
		logger:          log.DiscardLogger,
		records:         xsync.NewMap[string, *extension.Activated](),
		pending:         xsync.NewMap[string, *future.Future[*extension.Activated]](),
		activatedEvents: mapset.NewSet[string](),
		eventsEpoch:     atomic.NewUint64(0),
		disposed:        atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt.Apply(engine)
	}

	if engine.newContext == nil {
		engine.newContext = defaultContext(engine.logger)
	}
	return engine
}

// ActivateByEvent activates every local extension declaring the event and
// waits for them. Per-extension failures are kept in their records and are
// not reported here.
//
// Outside of startup, an event is only processed once. Concurrent callers of
// the same event wait for the activations started by the first one.
func (e *Engine) ActivateByEvent(ctx context.Context, event string, startup bool) error {
	if e.disposed.Load() {
		return gerrors.ErrEngineDisposed
	}
	if startup {
		e.activateAll(ctx, e.registry.Local().ForEvent(event), event, true)
		return nil
	}
	if e.activatedEvents.Contains(event) {
		return nil
	}

	_, _, _ = e.group.Do("event:"+event, func() (any, error) {
		if e.activatedEvents.Contains(event) {
			return nil, nil
		}
		epoch := e.eventsEpoch.Load()
		e.activateAll(ctx, e.registry.Local().ForEvent(event), event, false)
		// a reset during the run may have added extensions the run did not see
		if e.eventsEpoch.Load() == epoch {
			e.activatedEvents.Add(event)
		}
		return nil, nil
	})
	return nil
}

// ResetEvents forgets that the given events were processed so that extensions
// added afterwards can be activated by them.
func (e *Engine) ResetEvents(events ...string) {
	e.eventsEpoch.Inc()
	for _, event := range events {
		e.activatedEvents.Remove(event)
	}
}

// ActivateByID activates the given local extension and returns its record.
// A failed activation is reported through the record, not the error.
func (e *Engine) ActivateByID(ctx context.Context, id extension.Identifier, reason extension.ActivationReason) (*extension.Activated, error) {
	if e.disposed.Load() {
		return nil, gerrors.ErrEngineDisposed
	}
	desc, ok := e.registry.Local().Get(id)
	if !ok {
		return nil, gerrors.NewErrUnknownExtension(id.String())
	}
	return e.activate(context.WithoutCancel(ctx), desc, reason), nil
}

// IsActivated reports whether the extension activated successfully.
func (e *Engine) IsActivated(id extension.Identifier) bool {
	record, ok := e.records.Get(id.Key())
	return ok && !record.Failed()
}

// GetActivated returns the activation record of the extension, failed or not.
func (e *Engine) GetActivated(id extension.Identifier) (*extension.Activated, bool) {
	return e.records.Get(id.Key())
}

// Activated returns the records of the extensions activated in this process.
func (e *Engine) Activated() []*extension.Activated {
	records := e.records.Values()
	out := make([]*extension.Activated, 0, len(records))
	for _, record := range records {
		if record.Failed() || record.Kind == extension.KindHost {
			continue
		}
		out = append(out, record)
	}
	return out
}

// WaitForActivatingExtensions waits for the activations in flight when called.
func (e *Engine) WaitForActivatingExtensions(ctx context.Context) error {
	inflight := e.pending.Values()
	if len(inflight) == 0 {
		return nil
	}

	waitables := make([]future.Waitable, len(inflight))
	for i, f := range inflight {
		waitables[i] = f
	}
	if !future.WaitAll(ctx, 0, waitables...) {
		return ctx.Err()
	}
	return nil
}

// Forget drops the record of the extension.
func (e *Engine) Forget(id extension.Identifier) {
	e.records.Delete(id.Key())
}

// Dispose stops accepting activations. Activations in flight run to completion.
func (e *Engine) Dispose() {
	e.disposed.Store(true)
}

// IsDisposed reports whether Dispose was called
func (e *Engine) IsDisposed() bool {
	return e.disposed.Load()
}

func (e *Engine) activateAll(ctx context.Context, targets []*extension.Descriptor, event string, startup bool) {
	if len(targets) == 0 {
		return
	}

	eg := new(errgroup.Group)
	for _, desc := range targets {
		eg.Go(func() error {
			reason := extension.ActivationReason{Startup: startup, ExtensionID: desc.ID, ActivationEvent: event}
			if _, err := e.ActivateByID(ctx, desc.ID, reason); err != nil {
				e.logger.Debugf("activation of %s by %s skipped: %v", desc.ID, event, err)
			}
			return nil
		})
	}
	_ = eg.Wait()
}

func (e *Engine) activate(ctx context.Context, desc *extension.Descriptor, reason extension.ActivationReason) *extension.Activated {
	key := desc.ID.Key()
	if record, ok := e.records.Get(key); ok {
		return record
	}

	value, _, _ := e.group.Do(key, func() (any, error) {
		if record, ok := e.records.Get(key); ok {
			return record, nil
		}

		pending := future.Pending[*extension.Activated]()
		e.pending.Set(key, pending)
		defer e.pending.Delete(key)

		record := e.doActivate(ctx, desc, reason)
		e.records.Set(key, record)
		pending.Complete(record, nil)
		return record, nil
	})
	return value.(*extension.Activated)
}

func (e *Engine) doActivate(ctx context.Context, desc *extension.Descriptor, reason extension.ActivationReason) *extension.Activated {
	start := time.Now()
	id := desc.ID
	times := extension.NewActivationTimesBuilder(reason.Startup)
	logger := e.logger.With("extension", id.String())

	fail := func(err error, missingDependency *extension.Identifier) *extension.Activated {
		logger.Errorf("activating extension %s failed: %v", id, err)
		e.proxy.OnExtensionActivationError(ctx, id, err, missingDependency)
		e.metric.RecordActivation(ctx, metric.OutcomeFailure, reason.Startup, time.Since(start))
		return extension.NewFailedActivation(id, err, times.Build())
	}

	state := e.registry.State()
	if cycle := findCycle(state.Local, id); len(cycle) > 0 {
		return fail(gerrors.NewErrCyclicDependency(cycle), nil)
	}

	for _, dep := range desc.Dependencies {
		if depDesc, ok := state.Local.Get(dep); ok {
			depRecord := e.activate(ctx, depDesc, reason)
			if depRecord.Failed() {
				return fail(gerrors.NewErrDependencyFailed(id.String(), dep.String(), depRecord.Err), nil)
			}
			continue
		}

		if !state.Global.Contains(dep) {
			missing := dep
			return fail(gerrors.NewErrDependencyNotFound(id.String(), dep.String()), &missing)
		}

		if err := e.activateHostExtension(ctx, dep, reason); err != nil {
			return fail(gerrors.NewErrDependencyFailed(id.String(), dep.String(), err), nil)
		}
	}

	e.proxy.OnWillActivateExtension(ctx, id)

	var record *extension.Activated
	if !desc.HasEntryPoint() {
		record = extension.NewEmptyActivation(id, times.Build())
	} else {
		times.CodeLoadingStart()
		module, err := e.loader.Load(ctx, desc)
		times.CodeLoadingStop()
		if err != nil {
			return fail(gerrors.NewErrActivationFailed(err), nil)
		}

		extCtx, err := e.newContext(desc)
		if err != nil {
			return fail(gerrors.NewErrActivationFailed(err), nil)
		}

		exports, err := callActivate(ctx, module, extCtx, times)
		if err != nil {
			if disposeErr := extCtx.Subscriptions.Dispose(); disposeErr != nil {
				logger.Warnf("disposing subscriptions of %s failed: %v", id, disposeErr)
			}
			return fail(gerrors.NewErrActivationFailed(err), nil)
		}

		record = &extension.Activated{
			ID:            id,
			Kind:          extension.KindOrdinary,
			Module:        module,
			Exports:       exports,
			Subscriptions: extCtx.Subscriptions,
			Times:         times.Build(),
		}
	}

	logger.Debugf("extension %s activated (event=%s startup=%t)", id, reason.ActivationEvent, reason.Startup)
	e.proxy.OnDidActivateExtension(ctx, id, record.Times, reason)
	e.metric.RecordActivation(ctx, metric.OutcomeSuccess, reason.Startup, time.Since(start))
	return record
}

// activateHostExtension activates a dependency hosted by the other process once.
func (e *Engine) activateHostExtension(ctx context.Context, id extension.Identifier, reason extension.ActivationReason) error {
	key := id.Key()
	_, err, _ := e.group.Do("host:"+key, func() (any, error) {
		if _, ok := e.records.Get(key); ok {
			return nil, nil
		}
		if err := e.proxy.ActivateByID(ctx, id, reason); err != nil {
			return nil, err
		}
		e.records.Set(key, extension.NewHostActivation(id))
		return nil, nil
	})
	return err
}

func callActivate(ctx context.Context, module extension.Module, extCtx *extension.Context, times *extension.ActivationTimesBuilder) (exports any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = gerrors.Recovered(r)
		}
	}()

	times.ActivateCallStart()
	switch m := module.(type) {
	case *extension.LifecycleModule:
		exports, err = m.Activate(ctx, extCtx)
	case *extension.ExportsModule:
		exports = m.Exports
	}
	times.ActivateCallStop()
	times.ActivateResolved()
	return exports, err
}

// findCycle returns the dependency path leading back to a visited extension,
// following local dependencies only.
func findCycle(local *registry.Snapshot, root extension.Identifier) []string {
	const (
		visiting = 1
		done     = 2
	)

	state := make(map[string]int)
	var path []string
	var visit func(id extension.Identifier) []string
	visit = func(id extension.Identifier) []string {
		key := id.Key()
		switch state[key] {
		case visiting:
			return append(append([]string{}, path...), key)
		case done:
			return nil
		}

		desc, ok := local.Get(id)
		if !ok {
			return nil
		}

		state[key] = visiting
		path = append(path, key)
		for _, dep := range desc.Dependencies {
			if cycle := visit(dep); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		state[key] = done
		return nil
	}
	return visit(root)
}

func defaultContext(logger log.Logger) ContextFactory {
	return func(desc *extension.Descriptor) (*extension.Context, error) {
		return &extension.Context{
			Descriptor:    desc,
			Subscriptions: extension.NewDisposableStore(),
			Logger:        logger.With("extension", desc.ID.String()),
			Mode:          desc.Mode(),
		}, nil
	}
}
