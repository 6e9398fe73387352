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
	"sync"

	"go.uber.org/multierr"
)

// Disposable releases a resource.
type Disposable interface {
	Dispose() error
}

// DisposableFunc adapts a function into a Disposable.
type DisposableFunc func() error

// Dispose implements Disposable.
func (f DisposableFunc) Dispose() error {
	if f == nil {
		return nil
	}
	return f()
}

// DisposableStore collects disposables and releases them together.
// Disposables added after the store was disposed are released immediately.
type DisposableStore struct {
	mu          sync.Mutex
	disposed    bool
	disposables []Disposable
}

// NewDisposableStore creates an empty store
func NewDisposableStore() *DisposableStore {
	return &DisposableStore{}
}

// Add registers a disposable with the store.
func (s *DisposableStore) Add(d Disposable) error {
	if d == nil {
		return nil
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return d.Dispose()
	}
	s.disposables = append(s.disposables, d)
	s.mu.Unlock()
	return nil
}

// Len returns the number of pending disposables.
func (s *DisposableStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.disposables)
}

// IsDisposed reports whether Dispose has been called.
func (s *DisposableStore) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose releases every registered disposable in reverse registration order.
// Errors are combined; a failing disposable does not stop the others.
func (s *DisposableStore) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	disposables := s.disposables
	s.disposables = nil
	s.mu.Unlock()

	var err error
	for i := len(disposables) - 1; i >= 0; i-- {
		err = multierr.Append(err, disposables[i].Dispose())
	}
	return err
}

// Memento is a key-value view over persisted extension state.
type Memento interface {
	// Get decodes the value stored under key into out and reports whether it exists.
	Get(ctx context.Context, key string, out any) (bool, error)
	// Update stores value under key. A nil value deletes the key.
	Update(ctx context.Context, key string, value any) error
	// Keys returns the stored keys.
	Keys(ctx context.Context) ([]string, error)
}
