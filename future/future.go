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

// Package future provides a typed handle on the outcome of an asynchronous task
// together with the join primitives used to bound groups of tasks by a deadline.
package future

import (
	"context"
	"sync"
	"time"
)

// Future represents a value which may or may not currently be available,
// but will be available at some point in the future, or an error if that value
// could not be made available.
//
// Example usage:
//
//	f := future.New(func() (int, error) {
//	    return compute(), nil
//	})
//
//	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//	defer cancel()
//
//	value, err := f.Await(ctx)
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// New creates a Future completed with the outcome of task.
// The task is executed asynchronously in a separate goroutine.
func New[T any](task func() (T, error)) *Future[T] {
	f := Pending[T]()
	go func() {
		value, err := task()
		f.Complete(value, err)
	}()
	return f
}

// Pending returns a Future that is completed by a later call to Complete.
func Pending[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns an already completed Future.
func Completed[T any](value T, err error) *Future[T] {
	f := Pending[T]()
	f.Complete(value, err)
	return f
}

// Complete completes the Future with either a value or an error.
// Only the first call has an effect.
func (f *Future[T]) Complete(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed when the Future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future is completed or the context is done.
// A context error does not complete the Future; a later Await can still observe the outcome.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Waitable is anything exposing a completion channel.
type Waitable interface {
	Done() <-chan struct{}
}

// WaitAll waits until every waitable completes or the timeout elapses.
// It returns true when all completed in time. A non-positive timeout waits without deadline.
func WaitAll(ctx context.Context, timeout time.Duration, waitables ...Waitable) bool {
	all := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for _, w := range waitables {
			select {
			case <-w.Done():
			case <-stop:
				return
			}
		}
		close(all)
	}()

	return race(ctx, timeout, all)
}

// WaitAny waits until one waitable completes or the timeout elapses.
// It returns the index of the first completed waitable, or -1 on timeout.
func WaitAny(ctx context.Context, timeout time.Duration, waitables ...Waitable) int {
	if len(waitables) == 0 {
		return -1
	}

	first := make(chan int, len(waitables))
	stop := make(chan struct{})
	defer close(stop)

	for i, w := range waitables {
		go func(i int, w Waitable) {
			select {
			case <-w.Done():
				first <- i
			case <-stop:
			}
		}(i, w)
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case i := <-first:
		return i
	case <-deadline:
		return -1
	case <-ctx.Done():
		return -1
	}
}

// Signal adapts a plain channel into a Waitable.
type Signal <-chan struct{}

// Done implements Waitable.
func (s Signal) Done() <-chan struct{} {
	return s
}

// Go runs fn in a goroutine and returns a Waitable completed when fn returns.
func Go(fn func()) Waitable {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	return Signal(done)
}

func race(ctx context.Context, timeout time.Duration, done <-chan struct{}) bool {
	if timeout <= 0 {
		select {
		case <-done:
			return true
		case <-ctx.Done():
			return false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
