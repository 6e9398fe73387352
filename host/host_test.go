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
	"errors"
	"net/url"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/loader"
	"github.com/tochemey/exthost/log"
	"github.com/tochemey/exthost/remote"
	"github.com/tochemey/exthost/storage"
	"github.com/tochemey/exthost/workspace"
)

type recordingProxy struct {
	extension.NoopHostProxy

	mu        sync.Mutex
	marks     []extension.PerformanceMark
	activated []extension.Identifier
	failed    []extension.Identifier
}

func (p *recordingProxy) OnDidActivateExtension(_ context.Context, id extension.Identifier, _ extension.ActivationTimes, _ extension.ActivationReason) {
	p.mu.Lock()
	p.activated = append(p.activated, id)
	p.mu.Unlock()
}

func (p *recordingProxy) OnExtensionActivationError(_ context.Context, id extension.Identifier, _ error, _ *extension.Identifier) {
	p.mu.Lock()
	p.failed = append(p.failed, id)
	p.mu.Unlock()
}

func (p *recordingProxy) SetPerformanceMarks(_ context.Context, marks []extension.PerformanceMark) {
	p.mu.Lock()
	p.marks = append(p.marks, marks...)
	p.mu.Unlock()
}

func (p *recordingProxy) activatedIDs() []extension.Identifier {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]extension.Identifier(nil), p.activated...)
}

func (p *recordingProxy) markNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.marks))
	for _, mark := range p.marks {
		names = append(names, mark.Name)
	}
	return names
}

func descriptor(id, main string, events ...string) *extension.Descriptor {
	return &extension.Descriptor{
		ID:               extension.Identifier(id),
		Name:             id,
		Version:          "1.0.0",
		Main:             main,
		ActivationEvents: events,
	}
}

func withLocal(descriptors ...*extension.Descriptor) Option {
	ids := make([]extension.Identifier, 0, len(descriptors))
	for _, desc := range descriptors {
		ids = append(ids, desc.ID)
	}
	return WithExtensions(descriptors, ids)
}

func newTestHost(t *testing.T, ws workspace.Workspace, opts ...Option) *Host {
	t.Helper()
	opts = append([]Option{WithLogger(log.DiscardLogger)}, opts...)
	host, err := New(ws, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { host.Terminate("test done", 0) })
	return host
}

func startHost(t *testing.T, host *Host) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, host.Initialize(ctx))
	require.NoError(t, host.StartExtensionHost(ctx))
}

func countingModule(activations *atomic.Int32, exports any) *extension.LifecycleModule {
	return &extension.LifecycleModule{
		Activate: func(context.Context, *extension.Context) (any, error) {
			activations.Inc()
			return exports, nil
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("With invalid timeouts", func(t *testing.T) {
		_, err := New(workspace.NewStatic("ws"), WithLogger(log.DiscardLogger), WithTerminationTimeout(0), WithEagerActivationTimeout(-time.Second))
		require.ErrorIs(t, err, gerrors.ErrInvalidConfig)
		assert.Contains(t, err.Error(), "terminationTimeout")
		assert.Contains(t, err.Error(), "eagerActivationTimeout")
	})
	t.Run("Without workspace", func(t *testing.T) {
		_, err := New(nil, WithLogger(log.DiscardLogger))
		require.ErrorIs(t, err, gerrors.ErrInvalidConfig)
	})
	t.Run("With defaults", func(t *testing.T) {
		host := newTestHost(t, workspace.NewStatic("ws"))
		assert.Equal(t, DefaultTerminationTimeout, host.terminationTimeout)
		assert.Equal(t, DefaultEagerActivationTimeout, host.eagerActivationTimeout)
		assert.False(t, host.IsTerminating())
		authority, isRemote := host.RemoteAuthority()
		assert.Empty(t, authority)
		assert.False(t, isRemote)
	})
}

func TestBarriers(t *testing.T) {
	ctx := context.Background()
	ws := workspace.NewGated("ws")
	host := newTestHost(t, ws, withLocal(descriptor("acme.early", "", "onCommand:early")))

	initialized := make(chan error, 1)
	go func() { initialized <- host.Initialize(ctx) }()

	require.Eventually(t, host.almostReady.IsOpen, time.Second, 5*time.Millisecond)
	assert.False(t, host.readyToStart.IsOpen())

	// immediate activations only need the host to be almost ready
	require.NoError(t, host.ActivateByEvent(ctx, "onCommand:early", ActivationImmediate))
	assert.True(t, host.engine.IsActivated("acme.early"))
	assert.False(t, host.IsActivated("acme.early"))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, host.ActivateByEvent(short, "onCommand:other", ActivationNormal), context.DeadlineExceeded)
	_, err := host.GetExtensionRegistry(short)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, host.ActivateByID(short, "acme.early", extension.ActivationReason{}), context.DeadlineExceeded)

	ws.Initialize()
	require.NoError(t, <-initialized)
	assert.True(t, host.readyToStart.IsOpen())
	assert.False(t, host.readyToRun.IsOpen())

	require.NoError(t, host.StartExtensionHost(ctx))
	require.ErrorIs(t, host.StartExtensionHost(ctx), gerrors.ErrAlreadyStarted)

	for _, gate := range []interface{ IsOpen() bool }{host.almostReady, host.readyToStart, host.readyToRun, host.eagerActivated} {
		assert.True(t, gate.IsOpen())
	}
	assert.True(t, host.IsActivated("acme.early"))

	registry, err := host.GetExtensionRegistry(ctx)
	require.NoError(t, err)
	assert.True(t, registry.Contains("ACME.EARLY"))
	require.NoError(t, host.WaitEagerActivated(ctx))
}

func TestInitialize(t *testing.T) {
	t.Run("With auto start", func(t *testing.T) {
		ctx := context.Background()
		host := newTestHost(t, workspace.NewStatic("ws"), WithAutoStart(), withLocal(descriptor("acme.star", "", extension.StarEvent)))
		require.NoError(t, host.Initialize(ctx))

		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		require.NoError(t, host.WaitEagerActivated(waitCtx))
		assert.True(t, host.IsActivated("acme.star"))
		require.ErrorIs(t, host.StartExtensionHost(ctx), gerrors.ErrAlreadyStarted)
	})
	t.Run("With a failing pre-init hook", func(t *testing.T) {
		boom := errors.New("boom")
		var reported []error
		host := newTestHost(t, workspace.NewStatic("ws"),
			WithBeforeAlmostReady(func(context.Context) error { return boom }),
			WithUnexpectedErrorHandler(func(err error) { reported = append(reported, err) }))

		err := host.Initialize(context.Background())
		require.ErrorIs(t, err, boom)
		require.Len(t, reported, 1)
		assert.ErrorIs(t, reported[0], boom)
		assert.False(t, host.almostReady.IsOpen())
	})
	t.Run("With performance marks pushed on startup finished", func(t *testing.T) {
		proxy := new(recordingProxy)
		host := newTestHost(t, workspace.NewStatic("ws"), WithHostProxy(proxy))
		startHost(t, host)
		assert.Contains(t, proxy.markNames(), "code/extHost/ready")
	})
}

func TestActivateByID(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	activations := atomic.NewInt32(0)

	ldr := loader.NewRegistry()
	ldr.RegisterModule("ok.go", countingModule(activations, "exports"))
	ldr.RegisterModule("fail.go", &extension.LifecycleModule{
		Activate: func(context.Context, *extension.Context) (any, error) { return nil, boom },
	})

	proxy := new(recordingProxy)
	host := newTestHost(t, workspace.NewStatic("ws"), WithLoader(ldr), WithHostProxy(proxy),
		withLocal(descriptor("acme.ok", "ok.go"), descriptor("acme.fail", "fail.go")))
	startHost(t, host)

	reason := extension.ActivationReason{ExtensionID: "acme.ok", ActivationEvent: "api"}
	require.NoError(t, host.ActivateByID(ctx, "acme.ok", reason))
	require.NoError(t, host.ActivateByID(ctx, "Acme.OK", reason))
	require.NoError(t, host.ActivateByIDWithErrors(ctx, "acme.ok", reason))
	assert.EqualValues(t, 1, activations.Load())
	assert.True(t, host.IsActivated("acme.ok"))

	exports, ok := host.ExtensionExports("acme.ok")
	require.True(t, ok)
	assert.Equal(t, "exports", exports)

	require.NoError(t, host.ActivateByID(ctx, "acme.fail", reason))
	err := host.ActivateByIDWithErrors(ctx, "acme.fail", reason)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, gerrors.ErrActivationFailed)
	assert.False(t, host.IsActivated("acme.fail"))
	_, ok = host.ExtensionExports("acme.fail")
	assert.False(t, ok)
	_, ok = host.ExtensionExports("acme.never")
	assert.False(t, ok)

	require.ErrorIs(t, host.ActivateByID(ctx, "acme.unknown", reason), gerrors.ErrUnknownExtension)
	require.ErrorIs(t, host.ActivateByIDWithErrors(ctx, "acme.unknown", reason), gerrors.ErrUnknownExtension)

	assert.Contains(t, proxy.activatedIDs(), extension.Identifier("acme.ok"))
}

func TestExtensionState(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	ldr := loader.NewRegistry()
	ldr.RegisterModule("state.go", &extension.LifecycleModule{
		Activate: func(ctx context.Context, extCtx *extension.Context) (any, error) {
			if err := extCtx.GlobalState.Update(ctx, "visits", 1); err != nil {
				return nil, err
			}
			return nil, extCtx.WorkspaceState.Update(ctx, "folder", "ws-1")
		},
	})

	host := newTestHost(t, workspace.NewStatic("ws-1"), WithLoader(ldr), WithStore(store),
		withLocal(descriptor("acme.state", "state.go")))
	startHost(t, host)
	require.NoError(t, host.ActivateByIDWithErrors(ctx, "acme.state", extension.ActivationReason{}))

	value, ok, err := store.Get(ctx, storage.GlobalScope("acme.state"), "visits")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, "1", string(value))

	value, ok, err = store.Get(ctx, storage.WorkspaceScope("acme.state", "ws-1"), "folder")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `"ws-1"`, string(value))
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	host := newTestHost(t, workspace.NewStatic("ws"), withLocal(descriptor("acme.cmd", "", "onCommand:go")))

	sub := host.Events().AddSubscriber()
	host.Events().Subscribe(sub, TopicLifecycle)
	host.Events().Subscribe(sub, TopicDidActivate)
	host.Events().Subscribe(sub, TopicWillActivate)

	startHost(t, host)
	require.NoError(t, host.ActivateByEvent(ctx, "onCommand:go", ActivationNormal))

	var stages []Stage
	var activated []extension.Identifier
	var willActivate int
	for message := range sub.Iterator() {
		switch event := message.Payload().(type) {
		case *LifecycleEvent:
			stages = append(stages, event.Stage)
		case *DidActivateEvent:
			activated = append(activated, event.ID)
			assert.Equal(t, "onCommand:go", event.Reason.ActivationEvent)
		case *WillActivateEvent:
			willActivate++
		}
	}

	assert.Equal(t, []Stage{StageAlmostReady, StageReadyToStart, StageReadyToRun, StageStartupFinished, StageEagerActivated}, stages)
	assert.Equal(t, []extension.Identifier{"acme.cmd"}, activated)
	assert.Equal(t, 1, willActivate)
}

type hostPortResolver struct{}

func (hostPortResolver) Resolve(context.Context, string, remote.ResolveContext) (*remote.ResolverResult, error) {
	return &remote.ResolverResult{Authority: &remote.HostPortAuthority{Host: "10.1.1.1", Port: 2222, ConnectionToken: "tok"}}, nil
}

func TestRemoteResolution(t *testing.T) {
	ctx := context.Background()
	ldr := loader.NewRegistry()

	var host *Host
	ldr.RegisterModule("resolver.go", &extension.LifecycleModule{
		Activate: func(_ context.Context, extCtx *extension.Context) (any, error) {
			return nil, extCtx.Subscriptions.Add(host.RegisterRemoteAuthorityResolver("ssh", hostPortResolver{}))
		},
	})
	host = newTestHost(t, workspace.NewStatic("ws"), WithLoader(ldr),
		withLocal(descriptor("acme.ssh", "resolver.go", remote.ResolverEventPrefix+"ssh")))

	sub := host.Events().AddSubscriber()
	host.Events().Subscribe(sub, TopicRemoteConnectionData)

	// resolvers only need the host to be almost ready
	require.NoError(t, host.Initialize(ctx))

	response, err := host.ResolveAuthority(ctx, "ssh+box", 1)
	require.NoError(t, err)
	require.Equal(t, remote.ResponseOK, response.Type)
	assert.True(t, host.engine.IsActivated("acme.ssh"))

	data := host.RemoteConnectionData()
	require.NotNil(t, data)
	assert.Equal(t, remote.WebSocketConnection{Host: "10.1.1.1", Port: 2222}, data.ConnectTo)
	assert.Equal(t, "tok", data.ConnectionToken)

	message, ok := sub.Poll(time.Second)
	require.True(t, ok)
	assert.Equal(t, data, message.Payload())

	execServer, err := host.GetRemoteExecServer(ctx, "ssh+box")
	require.NoError(t, err)
	assert.Nil(t, execServer)

	uri, err := url.Parse("file:///tmp")
	require.NoError(t, err)
	canonical, err := host.CanonicalURI(ctx, "ssh+box", uri)
	require.NoError(t, err)
	assert.Same(t, uri, canonical)

	response, err = host.ResolveAuthority(ctx, "docker+box", 2)
	require.NoError(t, err)
	require.Equal(t, remote.ResponseErr, response.Type)
	assert.Equal(t, string(gerrors.RemoteAuthorityNoResolverFound), response.Error.Code)
	assert.NotNil(t, host.ManagedSockets())
}

func TestConcurrentRemoteResolution(t *testing.T) {
	ctx := context.Background()
	ldr := loader.NewRegistry()

	var host *Host
	ldr.RegisterModule("resolver.go", &extension.LifecycleModule{
		Activate: func(_ context.Context, extCtx *extension.Context) (any, error) {
			// the resolver shows up well after the activation started
			time.Sleep(100 * time.Millisecond)
			return nil, extCtx.Subscriptions.Add(host.RegisterRemoteAuthorityResolver("ssh", hostPortResolver{}))
		},
	})
	host = newTestHost(t, workspace.NewStatic("ws"), WithLoader(ldr),
		withLocal(descriptor("acme.ssh", "resolver.go", remote.ResolverEventPrefix+"ssh")))
	require.NoError(t, host.Initialize(ctx))

	const callers = 4
	responses := make([]*remote.Response, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			response, err := host.ResolveAuthority(ctx, "ssh+box", i)
			assert.NoError(t, err)
			responses[i] = response
		}()
	}
	wg.Wait()

	for i, response := range responses {
		require.NotNil(t, response, "response %d", i)
		assert.Equal(t, remote.ResponseOK, response.Type, "response %d: %+v", i, response.Error)
	}
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	host := newTestHost(t, workspace.NewStatic("ws"), WithMeterProvider(provider),
		withLocal(descriptor("acme.star", "", extension.StarEvent)))
	startHost(t, host)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var names []string
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names = append(names, m.Name)
		}
	}
	assert.True(t, slices.Contains(names, "exthost.activations"))
	assert.True(t, slices.Contains(names, "exthost.eager.duration"))
}
