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

package storage

import (
	"context"
	"slices"

	"go.uber.org/atomic"

	"github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/internal/xsync"
)

// MemoryStore keeps state in memory. It is the default store of the host.
type MemoryStore struct {
	scopes *xsync.Map[string, *xsync.Map[string, []byte]]
	closed *atomic.Bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scopes: xsync.NewMap[string, *xsync.Map[string, []byte]](),
		closed: atomic.NewBool(false),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, scope, key string) ([]byte, bool, error) {
	if err := s.check(ctx); err != nil {
		return nil, false, err
	}
	entries, ok := s.scopes.Get(scope)
	if !ok {
		return nil, false, nil
	}
	value, ok := entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(value), true, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, scope, key string, value []byte) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	entries, _ := s.scopes.GetOrSet(scope, xsync.NewMap[string, []byte]())
	entries.Set(key, slices.Clone(value))
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, scope, key string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if entries, ok := s.scopes.Get(scope); ok {
		entries.Delete(key)
	}
	return nil
}

// Keys implements Store.
func (s *MemoryStore) Keys(ctx context.Context, scope string) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	entries, ok := s.scopes.Get(scope)
	if !ok {
		return []string{}, nil
	}
	return sortedKeys(entries.Keys()), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.scopes.Reset()
	return nil
}

func (s *MemoryStore) check(ctx context.Context) error {
	if s.closed.Load() {
		return errors.ErrStoreClosed
	}
	return contextErr(ctx)
}
