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
	"io"
	"sync"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/extension"
)

// TunnelService receives the tunnel factory of the resolver of the final hop.
type TunnelService interface {
	// SetTunnelFactory installs the resolver's tunnel factory, if it has one.
	// managed is non-nil when the resolved authority is a managed one.
	// The returned Disposable uninstalls it.
	SetTunnelFactory(ctx context.Context, resolver Resolver, managed *ManagedAuthority) (extension.Disposable, error)
}

// Tunnels is the default TunnelService. It keeps the current factory and
// opens tunnels through it.
type Tunnels struct {
	mu      sync.RWMutex
	factory TunnelFactory
	managed *ManagedAuthority
}

var _ TunnelService = (*Tunnels)(nil)

// NewTunnels creates a Tunnels with no factory.
func NewTunnels() *Tunnels {
	return &Tunnels{}
}

func (t *Tunnels) SetTunnelFactory(_ context.Context, resolver Resolver, managed *ManagedAuthority) (extension.Disposable, error) {
	provider, ok := resolver.(TunnelProvider)
	if !ok || provider.TunnelFactory() == nil {
		return extension.DisposableFunc(func() error { return nil }), nil
	}

	factory := provider.TunnelFactory()
	t.mu.Lock()
	t.factory = factory
	t.managed = managed
	t.mu.Unlock()

	return extension.DisposableFunc(func() error {
		t.mu.Lock()
		t.factory = nil
		t.managed = nil
		t.mu.Unlock()
		return nil
	}), nil
}

// HasFactory reports whether a tunnel factory is installed.
func (t *Tunnels) HasFactory() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.factory != nil
}

// Managed returns the managed authority the factory was installed with, if any.
func (t *Tunnels) Managed() *ManagedAuthority {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.managed
}

// Open opens a tunnel through the installed factory.
func (t *Tunnels) Open(ctx context.Context, remoteHost string, remotePort int) (io.Closer, error) {
	t.mu.RLock()
	factory := t.factory
	t.mu.RUnlock()
	if factory == nil {
		return nil, gerrors.ErrNoTunnelFactory
	}
	return factory(ctx, remoteHost, remotePort)
}
