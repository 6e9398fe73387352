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

// Package host is the extension activation and lifecycle controller. It
// brings the host up through staged barriers, activates extensions on
// demand, applies registry deltas, runs the eager activation sweep,
// resolves remote authorities and tears every extension down on terminate.
package host

import (
	"context"
	"net/url"
	"sync"
	"time"

	gods "github.com/Workiva/go-datastructures/queue"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/eventstream"
	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/internal/activator"
	"github.com/tochemey/exthost/internal/barrier"
	"github.com/tochemey/exthost/internal/chain"
	"github.com/tochemey/exthost/internal/metric"
	"github.com/tochemey/exthost/internal/pathindex"
	"github.com/tochemey/exthost/internal/perf"
	"github.com/tochemey/exthost/internal/registry"
	"github.com/tochemey/exthost/internal/validation"
	"github.com/tochemey/exthost/internal/workspacecontains"
	"github.com/tochemey/exthost/loader"
	"github.com/tochemey/exthost/log"
	"github.com/tochemey/exthost/remote"
	"github.com/tochemey/exthost/storage"
	"github.com/tochemey/exthost/workspace"
)

// ActivationKind tells how urgently an activation event must be processed.
type ActivationKind int

const (
	// ActivationNormal waits until the host is ready to run extensions.
	ActivationNormal ActivationKind = iota
	// ActivationImmediate only waits until the host is almost ready.
	ActivationImmediate
)

// Engine activates extensions on behalf of the host.
type Engine interface {
	ActivateByEvent(ctx context.Context, event string, startup bool) error
	ActivateByID(ctx context.Context, id extension.Identifier, reason extension.ActivationReason) (*extension.Activated, error)
	IsActivated(id extension.Identifier) bool
	GetActivated(id extension.Identifier) (*extension.Activated, bool)
	WaitForActivatingExtensions(ctx context.Context) error
	ResetEvents(events ...string)
	Forget(id extension.Identifier)
	Dispose()
}

// ExtensionRegistry is a read-only view of the extensions running in the host.
type ExtensionRegistry interface {
	Get(id extension.Identifier) (*extension.Descriptor, bool)
	Contains(id extension.Identifier) bool
	Len() int
	Descriptors() []*extension.Descriptor
	IDs() []extension.Identifier
	ForEvent(event string) []*extension.Descriptor
	ActivationEvents(id extension.Identifier) []string
}

var _ ExtensionRegistry = (*registry.Snapshot)(nil)

// Host is the extension activation and lifecycle controller.
//
// A Host is created once and passed around explicitly. Its barriers open in
// order: almost ready, ready to start, ready to run and eager activated.
// None of them ever closes again.
type Host struct {
	logger                   log.Logger
	initialGlobal            []*extension.Descriptor
	initialLocal             []extension.Identifier
	loader                   loader.Loader
	store                    storage.Store
	hostProxy                extension.HostProxy
	autoStart                bool
	deferredStartupFinished  bool
	remoteAuthority          string
	isRemote                 bool
	startupActivationWait    time.Duration
	eagerActivationTimeout   time.Duration
	sliceBudget              time.Duration
	terminationTimeout       time.Duration
	workspaceContainsTimeout time.Duration
	beforeAlmostReady        func(ctx context.Context) error
	exit                     func(code int)
	pid                      int
	deactivateOnRemove       bool
	onUnexpectedError        func(err error)
	meterProvider            otelmetric.MeterProvider

	workspace   workspace.Workspace
	registry    *registry.Registry
	engine      Engine
	proxy       *eventsProxy
	stream      eventstream.Stream
	coordinator *remote.Coordinator
	checker     *workspacecontains.Checker
	marks       *perf.Marks
	metric      *metric.HostMetric

	almostReady     *barrier.Barrier
	readyToStart    *barrier.Barrier
	readyToRun      *barrier.Barrier
	eagerActivated  *barrier.Barrier
	startupFinished *barrier.Barrier
	terminated      *barrier.Barrier

	started       *atomic.Bool
	terminating   *atomic.Bool
	subscriptions *extension.DisposableStore

	connectionMu         sync.RWMutex
	remoteConnectionData *RemoteConnectionData

	// startupFinishedFn activates one onStartupFinished extension.
	startupFinishedFn    func(ctx context.Context, desc *extension.Descriptor)
	startupFinishedQueue *gods.Queue
	startupFinishedOnce  sync.Once
	slices               *atomic.Int64
}

// New creates a Host over the given workspace.
// It returns errors.ErrInvalidConfig when an option is out of range.
func New(ws workspace.Workspace, opts ...Option) (*Host, error) {
	host := &Host{
		logger:                   log.DefaultLogger,
		loader:                   loader.NewRegistry(),
		hostProxy:                extension.NoopHostProxy{},
		startupActivationWait:    DefaultStartupActivationWait,
		eagerActivationTimeout:   DefaultEagerActivationTimeout,
		sliceBudget:              DefaultStartupFinishedSliceBudget,
		terminationTimeout:       DefaultTerminationTimeout,
		workspaceContainsTimeout: DefaultWorkspaceContainsTimeout,
		beforeAlmostReady:        func(context.Context) error { return nil },
		exit:                     func(int) {},
		workspace:                ws,
		marks:                    perf.NewMarks(),
		almostReady:              barrier.New(string(StageAlmostReady)),
		readyToStart:             barrier.New(string(StageReadyToStart)),
		readyToRun:               barrier.New(string(StageReadyToRun)),
		eagerActivated:           barrier.New(string(StageEagerActivated)),
		startupFinished:          barrier.New(string(StageStartupFinished)),
		terminated:               barrier.New("terminated"),
		started:                  atomic.NewBool(false),
		terminating:              atomic.NewBool(false),
		subscriptions:            extension.NewDisposableStore(),
		startupFinishedQueue:     gods.New(16),
		slices:                   atomic.NewInt64(0),
	}

	for _, opt := range opts {
		opt.Apply(host)
	}

	if err := host.validate(); err != nil {
		return nil, gerrors.NewErrInvalidConfig(err)
	}

	if host.onUnexpectedError == nil {
		host.onUnexpectedError = func(err error) {
			host.logger.Errorf("unexpected error: %v", err)
		}
	}
	if host.store == nil {
		host.store = storage.NewMemoryStore()
	}

	providerOpts := []metric.ProviderOption{}
	if host.meterProvider != nil {
		providerOpts = append(providerOpts, metric.WithMeterProvider(host.meterProvider))
	}
	hostMetric, err := metric.NewHostMetric(metric.NewProvider(providerOpts...).Meter())
	if err != nil {
		host.logger.Warnf("extension host metrics are disabled: %v", err)
	}
	host.metric = hostMetric

	host.stream = eventstream.New()
	host.proxy = newEventsProxy(host.hostProxy, host.stream)
	host.registry = registry.New(host.initialGlobal, host.initialLocal,
		pathindex.NewBuilder(pathindex.DefaultCacheSize, nil, host.logger), host.logger)
	host.engine = activator.New(host.registry, host.loader,
		activator.WithLogger(host.logger),
		activator.WithHostProxy(host.proxy),
		activator.WithContextFactory(host.newExtensionContext),
		activator.WithMetric(host.metric))
	host.coordinator = remote.NewCoordinator(host.engine,
		remote.WithLogger(host.logger),
		remote.WithGate(host.almostReady),
		remote.WithMarks(host.marks))
	host.checker = workspacecontains.NewChecker(host.workspaceContainsTimeout, host.logger)
	host.startupFinishedFn = host.activateOneStartupFinished
	return host, nil
}

// Initialize runs the startup sequence: the pre-init hook, almost ready,
// the workspace initialize handshake and ready to start. With auto start the
// extension host is then started in the background.
//
// Failures are reported to the unexpected error handler and returned; the
// host keeps serving in a degraded mode.
func (h *Host) Initialize(ctx context.Context) error {
	err := chain.
		New(chain.WithFailFast(), chain.WithContext(ctx)).
		AddNamedRunner("before almost ready", h.beforeAlmostReady).
		AddContextRunner(func(context.Context) error {
			h.open(h.almostReady)
			return nil
		}).
		AddNamedRunner("workspace initialize", h.workspace.WaitForInitializeCall).
		AddContextRunner(func(context.Context) error {
			h.marks.Mark("code/extHost/ready")
			h.open(h.readyToStart)
			return nil
		}).
		Run()
	if err != nil {
		h.onUnexpectedError(err)
		return err
	}

	if h.autoStart {
		go func() {
			if err := h.StartExtensionHost(context.WithoutCancel(ctx)); err != nil {
				h.onUnexpectedError(err)
			}
		}()
	}
	return nil
}

// StartExtensionHost opens ready to run, waits briefly for the activations
// requested so far and runs the eager activation sweep.
// It returns errors.ErrAlreadyStarted when called more than once.
func (h *Host) StartExtensionHost(ctx context.Context) error {
	if !h.started.CompareAndSwap(false, true) {
		return gerrors.ErrAlreadyStarted
	}
	if h.terminating.Load() {
		return gerrors.ErrTerminating
	}

	if err := h.readyToStart.Wait(ctx); err != nil {
		return err
	}
	h.open(h.readyToRun)

	waitCtx, cancel := context.WithTimeout(ctx, h.startupActivationWait)
	if err := h.engine.WaitForActivatingExtensions(waitCtx); err != nil {
		h.logger.Debugf("stopped waiting for startup activations: %v", err)
	}
	cancel()

	h.handleEagerExtensions(ctx)
	h.open(h.eagerActivated)
	h.logger.Info("Eager extensions activated")
	return nil
}

// StartExtensionHostWithDelta applies the delta and starts the extension host.
func (h *Host) StartExtensionHostWithDelta(ctx context.Context, delta extension.Delta) error {
	if err := h.DeltaExtensions(ctx, delta); err != nil {
		return err
	}
	return h.StartExtensionHost(ctx)
}

// ActivateByEvent activates the extensions declaring the event. Immediate
// activations only wait for the host to be almost ready.
func (h *Host) ActivateByEvent(ctx context.Context, event string, kind ActivationKind) error {
	gate := h.readyToRun
	if kind == ActivationImmediate {
		gate = h.almostReady
	}
	if err := gate.Wait(ctx); err != nil {
		return err
	}
	return h.engine.ActivateByEvent(ctx, event, false)
}

// ActivateByID activates a local extension once the host is ready to run.
// A failed activation is not reported; use ActivateByIDWithErrors for that.
// It returns errors.ErrUnknownExtension for extensions not running in this host.
func (h *Host) ActivateByID(ctx context.Context, id extension.Identifier, reason extension.ActivationReason) error {
	_, err := h.activateByID(ctx, id, reason)
	return err
}

// ActivateByIDWithErrors is ActivateByID also returning the cached activation failure.
func (h *Host) ActivateByIDWithErrors(ctx context.Context, id extension.Identifier, reason extension.ActivationReason) error {
	record, err := h.activateByID(ctx, id, reason)
	if err != nil {
		return err
	}
	if record.Failed() {
		return record.Err
	}
	return nil
}

// GetExtensionRegistry returns the local registry once the host is ready to run.
func (h *Host) GetExtensionRegistry(ctx context.Context) (ExtensionRegistry, error) {
	if err := h.readyToRun.Wait(ctx); err != nil {
		return nil, err
	}
	return h.registry.Local(), nil
}

// IsActivated reports whether the extension activated successfully. It is
// false until the host is ready to run.
func (h *Host) IsActivated(id extension.Identifier) bool {
	if !h.readyToRun.IsOpen() {
		return false
	}
	return h.engine.IsActivated(id)
}

// ExtensionExports returns what the extension exported on activation.
func (h *Host) ExtensionExports(id extension.Identifier) (any, bool) {
	record, ok := h.engine.GetActivated(id)
	if !ok || record.Failed() {
		return nil, false
	}
	return record.Exports, true
}

// FindByPath returns the local extension whose code location contains path.
func (h *Host) FindByPath(path string) (*extension.Descriptor, bool) {
	return h.registry.Paths().FindByPath(path)
}

// WaitEagerActivated blocks until the eager activation sweep finished or was abandoned.
func (h *Host) WaitEagerActivated(ctx context.Context) error {
	return h.eagerActivated.Wait(ctx)
}

// Events returns the stream the host publishes its events on.
func (h *Host) Events() eventstream.Stream {
	return h.stream
}

// RemoteAuthority returns the remote authority the host runs against, if any.
func (h *Host) RemoteAuthority() (authority string, isRemote bool) {
	return h.remoteAuthority, h.isRemote
}

// RemoteConnectionData returns the current remote connection data.
func (h *Host) RemoteConnectionData() *RemoteConnectionData {
	h.connectionMu.RLock()
	defer h.connectionMu.RUnlock()
	return h.remoteConnectionData
}

// UpdateRemoteConnectionData replaces the remote connection data and publishes the change.
func (h *Host) UpdateRemoteConnectionData(data *RemoteConnectionData) {
	h.connectionMu.Lock()
	h.remoteConnectionData = data
	h.connectionMu.Unlock()
	h.stream.Publish(TopicRemoteConnectionData, data)
}

// RegisterRemoteAuthorityResolver registers the resolver of an authority prefix.
func (h *Host) RegisterRemoteAuthorityResolver(prefix string, resolver remote.Resolver) extension.Disposable {
	return h.coordinator.RegisterResolver(prefix, resolver)
}

// ResolveAuthority resolves a remote authority chain.
func (h *Host) ResolveAuthority(ctx context.Context, chain string, attempt int) (*remote.Response, error) {
	response, err := h.coordinator.ResolveAuthority(ctx, chain, attempt)
	if err == nil && response.Value != nil {
		h.UpdateRemoteConnectionData(&RemoteConnectionData{
			ConnectTo:       response.Value.Authority.ConnectTo,
			ConnectionToken: response.Value.Authority.ConnectionToken,
		})
	}
	return response, err
}

// GetRemoteExecServer returns the exec server of a single authority.
func (h *Host) GetRemoteExecServer(ctx context.Context, authority string) (remote.ExecServer, error) {
	return h.coordinator.GetRemoteExecServer(ctx, authority)
}

// CanonicalURI canonicalizes uri through the resolver of authority.
func (h *Host) CanonicalURI(ctx context.Context, authority string, uri *url.URL) (*url.URL, error) {
	return h.coordinator.CanonicalURI(ctx, authority, uri)
}

// ManagedSockets returns the managed connection factories of resolved authorities.
func (h *Host) ManagedSockets() *remote.ManagedSockets {
	return h.coordinator.ManagedSockets()
}

func (h *Host) activateByID(ctx context.Context, id extension.Identifier, reason extension.ActivationReason) (*extension.Activated, error) {
	if err := h.readyToRun.Wait(ctx); err != nil {
		return nil, err
	}
	if !h.registry.Local().Contains(id) {
		return nil, gerrors.NewErrUnknownExtension(id.String())
	}
	return h.engine.ActivateByID(ctx, id, reason)
}

func (h *Host) newExtensionContext(desc *extension.Descriptor) (*extension.Context, error) {
	return &extension.Context{
		Descriptor:     desc,
		Subscriptions:  extension.NewDisposableStore(),
		GlobalState:    storage.NewMemento(h.store, storage.GlobalScope(desc.ID)),
		WorkspaceState: storage.NewMemento(h.store, storage.WorkspaceScope(desc.ID, h.workspace.ID())),
		Logger:         h.logger.With("extension", desc.ID.String()),
		Mode:           desc.Mode(),
	}, nil
}

func (h *Host) open(gate *barrier.Barrier) {
	if gate.IsOpen() {
		return
	}
	gate.Open()
	h.logger.Debugf("extension host barrier %s opened", gate.Name())
	h.stream.Publish(TopicLifecycle, &LifecycleEvent{Stage: Stage(gate.Name())})
}

func (h *Host) validate() error {
	return validation.
		New(validation.AllErrors()).
		AddAssertion(h.workspace != nil, "the [workspace] is required").
		AddAssertion(h.logger != nil, "the [logger] is required").
		AddAssertion(h.loader != nil, "the [loader] is required").
		AddValidator(validation.NewPositiveDurationValidator("startupActivationWait", h.startupActivationWait)).
		AddValidator(validation.NewPositiveDurationValidator("eagerActivationTimeout", h.eagerActivationTimeout)).
		AddValidator(validation.NewPositiveDurationValidator("startupFinishedSliceBudget", h.sliceBudget)).
		AddValidator(validation.NewPositiveDurationValidator("terminationTimeout", h.terminationTimeout)).
		AddValidator(validation.NewPositiveDurationValidator("workspaceContainsTimeout", h.workspaceContainsTimeout)).
		AddAssertion(h.beforeAlmostReady != nil, "the [beforeAlmostReady] hook is required").
		AddAssertion(h.exit != nil, "the [exit] function is required").
		Validate()
}
