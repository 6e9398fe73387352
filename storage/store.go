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

// Package storage persists extension state. A scope groups the keys of one
// extension, either globally or for one workspace.
package storage

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/tochemey/exthost/extension"
)

// Store is a scoped key-value store for extension state.
type Store interface {
	// Get returns the value stored under key in scope and reports whether it exists.
	Get(ctx context.Context, scope, key string) ([]byte, bool, error)
	// Put stores value under key in scope.
	Put(ctx context.Context, scope, key string, value []byte) error
	// Delete removes key from scope. Deleting a missing key is not an error.
	Delete(ctx context.Context, scope, key string) error
	// Keys returns the keys stored in scope, sorted.
	Keys(ctx context.Context, scope string) ([]string, error)
	// Close releases the store.
	Close() error
}

// GlobalScope returns the scope holding the global state of an extension.
func GlobalScope(id extension.Identifier) string {
	return "global/" + id.Key()
}

// WorkspaceScope returns the scope holding the state of an extension for a workspace.
func WorkspaceScope(id extension.Identifier, workspaceID string) string {
	return "workspace/" + workspaceID + "/" + id.Key()
}

type memento struct {
	store Store
	scope string
}

var _ extension.Memento = (*memento)(nil)

// NewMemento returns a Memento over scope. Values are JSON encoded.
func NewMemento(store Store, scope string) extension.Memento {
	return &memento{store: store, scope: scope}
}

// Get implements extension.Memento.
func (m *memento) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := m.store.Get(ctx, m.scope, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// Update implements extension.Memento.
func (m *memento) Update(ctx context.Context, key string, value any) error {
	if value == nil {
		return m.store.Delete(ctx, m.scope, key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.store.Put(ctx, m.scope, key, raw)
}

// Keys implements extension.Memento.
func (m *memento) Keys(ctx context.Context) ([]string, error) {
	return m.store.Keys(ctx, m.scope)
}

func sortedKeys(keys []string) []string {
	sort.Strings(keys)
	return keys
}

func contextErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
