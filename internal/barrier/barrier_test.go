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

package barrier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestBarrier(t *testing.T) {
	t.Run("Open releases concurrent waiters", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		b := New("ReadyToRun")
		require.Equal(t, "ReadyToRun", b.Name())
		require.False(t, b.IsOpen())

		var wg sync.WaitGroup
		errs := make(chan error, 50)
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- b.Wait(context.Background())
			}()
		}

		b.Open()
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
	})
	t.Run("Stays open", func(t *testing.T) {
		b := New("AlmostReady")
		b.Open()
		b.Open()
		for range 10 {
			require.True(t, b.IsOpen())
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			// an opened barrier wins over a canceled context
			require.NoError(t, b.Wait(ctx))
		}
		select {
		case <-b.Done():
		default:
			t.Fatal("done channel must be closed")
		}
	})
	t.Run("Wait honors the context", func(t *testing.T) {
		b := New("EagerActivated")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := b.Wait(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, b.IsOpen())
	})
}
