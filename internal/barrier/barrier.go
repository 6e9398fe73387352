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
)

// Barrier is a one-way gate. It starts closed and, once opened, stays open
// for the lifetime of the process.
//
// Waiting on an opened barrier is a closed channel read.
type Barrier struct {
	name  string
	ready chan struct{}
	once  sync.Once
}

// New creates a closed Barrier.
func New(name string) *Barrier {
	return &Barrier{
		name:  name,
		ready: make(chan struct{}),
	}
}

// Name returns the barrier name
func (b *Barrier) Name() string {
	return b.name
}

// Open opens the barrier and releases every waiter. Calling Open more than once has no effect.
func (b *Barrier) Open() {
	b.once.Do(func() { close(b.ready) })
}

// IsOpen reports whether the barrier has been opened.
func (b *Barrier) IsOpen() bool {
	select {
	case <-b.ready:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the barrier opens.
func (b *Barrier) Done() <-chan struct{} {
	return b.ready
}

// Wait blocks until the barrier opens or the context is done.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	default:
	}

	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
