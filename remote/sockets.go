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

package remote

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// ManagedSockets holds the connection factory of the current managed
// authority. Only one factory is live at a time: registering a new one
// replaces the previous.
type ManagedSockets struct {
	mu      sync.RWMutex
	id      int
	factory ConnectionFactory
}

// NewManagedSockets creates an empty ManagedSockets.
func NewManagedSockets() *ManagedSockets {
	return &ManagedSockets{id: -1}
}

// SetFactory registers the factory under the given id.
func (m *ManagedSockets) SetFactory(id int, factory ConnectionFactory) {
	m.mu.Lock()
	m.id = id
	m.factory = factory
	m.mu.Unlock()
}

// Factory returns the factory registered under id.
func (m *ManagedSockets) Factory(id int) (ConnectionFactory, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.factory == nil || m.id != id {
		return nil, false
	}
	return m.factory, true
}

// Connect opens a connection through the factory registered under id.
func (m *ManagedSockets) Connect(ctx context.Context, id int) (io.ReadWriteCloser, error) {
	factory, ok := m.Factory(id)
	if !ok {
		return nil, fmt.Errorf("no managed socket factory for id %d", id)
	}
	return factory(ctx)
}
