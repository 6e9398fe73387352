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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/loader"
	"github.com/tochemey/exthost/workspace"
)

func TestDeltaExtensions(t *testing.T) {
	t.Run("Removed extensions are unknown", func(t *testing.T) {
		ctx := context.Background()
		host := newTestHost(t, workspace.NewStatic("ws"),
			withLocal(descriptor("acme.a", ""), descriptor("acme.b", "")))
		startHost(t, host)

		sub := host.Events().AddSubscriber()
		host.Events().Subscribe(sub, TopicRegistryChanged)

		require.NoError(t, host.DeltaExtensions(ctx, extension.Delta{
			ToRemove:   []extension.Identifier{"acme.b"},
			MyToRemove: []extension.Identifier{"acme.b"},
		}))

		require.ErrorIs(t, host.ActivateByID(ctx, "acme.b", extension.ActivationReason{}), gerrors.ErrUnknownExtension)
		require.NoError(t, host.ActivateByID(ctx, "acme.a", extension.ActivationReason{}))

		registry, err := host.GetExtensionRegistry(ctx)
		require.NoError(t, err)
		assert.Equal(t, []extension.Identifier{"acme.a"}, registry.IDs())

		message, ok := sub.Poll(time.Second)
		require.True(t, ok)
		event, ok := message.Payload().(*RegistryChangedEvent)
		require.True(t, ok)
		assert.Empty(t, event.Added)
		assert.Equal(t, []extension.Identifier{"acme.b"}, event.Removed)
	})
	t.Run("Empty delta is a no-op", func(t *testing.T) {
		host := newTestHost(t, workspace.NewStatic("ws"), withLocal(descriptor("acme.a", "")))
		previous := host.registry.State()
		require.NoError(t, host.DeltaExtensions(context.Background(), extension.Delta{}))
		assert.Same(t, previous, host.registry.State())
	})
	t.Run("Events seen before an extension was added activate it again", func(t *testing.T) {
		ctx := context.Background()
		host := newTestHost(t, workspace.NewStatic("ws"))
		startHost(t, host)

		require.NoError(t, host.ActivateByEvent(ctx, "onCommand:late", ActivationNormal))

		late := descriptor("acme.late", "", "onCommand:late")
		require.NoError(t, host.DeltaExtensions(ctx, extension.Delta{
			ToAdd:   []*extension.Descriptor{late},
			MyToAdd: []extension.Identifier{late.ID},
		}))
		require.NoError(t, host.ActivateByEvent(ctx, "onCommand:late", ActivationNormal))
		assert.True(t, host.IsActivated("acme.late"))
	})
	t.Run("Path lookup follows the registry", func(t *testing.T) {
		ctx := context.Background()
		root := t.TempDir()
		first := descriptor("acme.first", "first.go")
		first.Location = filepath.Join(root, "first")
		host := newTestHost(t, workspace.NewStatic("ws"), withLocal(first))

		found, ok := host.FindByPath(filepath.Join(root, "first", "lib", "util.go"))
		require.True(t, ok)
		assert.Equal(t, first.ID, found.ID)

		second := descriptor("acme.second", "second.go")
		second.Location = filepath.Join(root, "second")
		require.NoError(t, host.DeltaExtensions(ctx, extension.Delta{
			ToAdd:      []*extension.Descriptor{second},
			MyToAdd:    []extension.Identifier{second.ID},
			ToRemove:   []extension.Identifier{first.ID},
			MyToRemove: []extension.Identifier{first.ID},
		}))

		found, ok = host.FindByPath(filepath.Join(root, "second", "main.go"))
		require.True(t, ok)
		assert.Equal(t, second.ID, found.ID)
		_, ok = host.FindByPath(filepath.Join(root, "first", "lib", "util.go"))
		assert.False(t, ok)
	})
	t.Run("After terminate", func(t *testing.T) {
		host := newTestHost(t, workspace.NewStatic("ws"))
		host.Terminate("done", 0)
		err := host.DeltaExtensions(context.Background(), extension.Delta{MyToRemove: []extension.Identifier{"acme.a"}})
		require.ErrorIs(t, err, gerrors.ErrTerminating)
	})
	t.Run("Start with delta", func(t *testing.T) {
		ctx := context.Background()
		host := newTestHost(t, workspace.NewStatic("ws"))
		require.NoError(t, host.Initialize(ctx))

		star := descriptor("acme.star", "", extension.StarEvent)
		require.NoError(t, host.StartExtensionHostWithDelta(ctx, extension.Delta{
			ToAdd:   []*extension.Descriptor{star},
			MyToAdd: []extension.Identifier{star.ID},
		}))
		assert.True(t, host.IsActivated("acme.star"))
	})
}

func TestDeactivateOnRemove(t *testing.T) {
	newHost := func(t *testing.T, deactivations *atomic.Int32, activations *atomic.Int32, opts ...Option) *Host {
		ldr := loader.NewRegistry()
		ldr.RegisterModule("main.go", &extension.LifecycleModule{
			Activate: func(context.Context, *extension.Context) (any, error) {
				activations.Inc()
				return nil, nil
			},
			Deactivate: func(context.Context) error {
				deactivations.Inc()
				return nil
			},
		})
		opts = append(opts, WithLoader(ldr), withLocal(descriptor("acme.a", "main.go")))
		host := newTestHost(t, workspace.NewStatic("ws"), opts...)
		startHost(t, host)
		require.NoError(t, host.ActivateByID(context.Background(), "acme.a", extension.ActivationReason{}))
		return host
	}
	remove := extension.Delta{ToRemove: []extension.Identifier{"acme.a"}, MyToRemove: []extension.Identifier{"acme.a"}}

	t.Run("With deactivation", func(t *testing.T) {
		ctx := context.Background()
		deactivations, activations := atomic.NewInt32(0), atomic.NewInt32(0)
		host := newHost(t, deactivations, activations, WithDeactivateOnRemove())

		require.NoError(t, host.DeltaExtensions(ctx, remove))
		assert.EqualValues(t, 1, deactivations.Load())
		_, ok := host.engine.GetActivated("acme.a")
		assert.False(t, ok)

		require.NoError(t, host.DeltaExtensions(ctx, extension.Delta{
			ToAdd:   []*extension.Descriptor{descriptor("acme.a", "main.go")},
			MyToAdd: []extension.Identifier{"acme.a"},
		}))
		require.NoError(t, host.ActivateByID(ctx, "acme.a", extension.ActivationReason{}))
		assert.EqualValues(t, 2, activations.Load())
	})
	t.Run("Replaced extension", func(t *testing.T) {
		ctx := context.Background()
		deactivations, activations := atomic.NewInt32(0), atomic.NewInt32(0)
		host := newHost(t, deactivations, activations, WithDeactivateOnRemove())

		sub := host.Events().AddSubscriber()
		host.Events().Subscribe(sub, TopicRegistryChanged)

		require.NoError(t, host.DeltaExtensions(ctx, extension.Delta{
			ToRemove:   []extension.Identifier{"acme.a"},
			MyToRemove: []extension.Identifier{"acme.a"},
			ToAdd:      []*extension.Descriptor{descriptor("acme.a", "main.go", "onCommand:a")},
			MyToAdd:    []extension.Identifier{"acme.a"},
		}))
		assert.EqualValues(t, 1, deactivations.Load())

		message, ok := sub.Poll(time.Second)
		require.True(t, ok)
		event := message.Payload().(*RegistryChangedEvent)
		assert.Equal(t, []extension.Identifier{"acme.a"}, event.Added)
		assert.Equal(t, []extension.Identifier{"acme.a"}, event.Removed)

		require.NoError(t, host.ActivateByEvent(ctx, "onCommand:a", ActivationNormal))
		assert.EqualValues(t, 2, activations.Load())
	})
	t.Run("Without deactivation", func(t *testing.T) {
		deactivations, activations := atomic.NewInt32(0), atomic.NewInt32(0)
		host := newHost(t, deactivations, activations)

		require.NoError(t, host.DeltaExtensions(context.Background(), remove))
		assert.Zero(t, deactivations.Load())
		_, ok := host.engine.GetActivated("acme.a")
		assert.True(t, ok)
	})
}
