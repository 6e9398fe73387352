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

package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain(t *testing.T) {
	t.Run("With AddRunners FailFast", func(t *testing.T) {
		var called []string
		fn1 := func() error { called = append(called, "fn1"); return errors.New("err1") }
		fn2 := func() error { called = append(called, "fn2"); return errors.New("err2") }

		err := New(WithFailFast()).AddRunners(fn1, fn2).Run()
		require.EqualError(t, err, "err1")
		assert.Equal(t, []string{"fn1"}, called)
	})
	t.Run("With AddRunner RunAll", func(t *testing.T) {
		var called []string
		err := New(WithRunAll()).
			AddRunner(func() error { called = append(called, "fn1"); return errors.New("err1") }).
			AddRunner(func() error { called = append(called, "fn2"); return errors.New("err2") }).
			AddRunner(func() error { called = append(called, "fn3"); return nil }).
			Run()

		require.EqualError(t, err, "err1; err2")
		assert.Equal(t, []string{"fn1", "fn2", "fn3"}, called)
	})
	t.Run("With no error", func(t *testing.T) {
		require.NoError(t, New(WithFailFast()).AddRunner(func() error { return nil }).Run())
		require.NoError(t, New().Run())
	})
	t.Run("With context runners", func(t *testing.T) {
		type key struct{}
		ctx := context.WithValue(context.Background(), key{}, "v")

		var seen any
		var skipped bool
		err := New(WithContext(ctx), WithFailFast()).
			AddContextRunner(func(ctx context.Context) error { seen = ctx.Value(key{}); return nil }).
			AddContextRunnerIf(false, func(context.Context) error { skipped = true; return nil }).
			AddNamedRunner("ready", func(context.Context) error { return errors.New("boom") }).
			Run()

		require.EqualError(t, err, "ready: boom")
		assert.Equal(t, "v", seen)
		assert.False(t, skipped)
	})
	t.Run("With canceled context in FailFast", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var called bool
		err := New(WithContext(ctx), WithFailFast()).
			AddContextRunner(func(context.Context) error { called = true; return nil }).
			Run()
		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}
