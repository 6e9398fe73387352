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

// Package loader resolves the code of an extension from its entry point.
//
// The host does not load code from disk. Instead, modules are registered
// against the entry point declared by the extension descriptor.
package loader

import (
	"context"
	"errors"
	"strings"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/internal/xsync"
)

// errMissingActivate is returned when a lifecycle module has no activate hook.
var errMissingActivate = errors.New("lifecycle module without activate hook")

// Loader loads the module of an extension.
type Loader interface {
	// Load returns the module of the given extension.
	Load(ctx context.Context, desc *extension.Descriptor) (extension.Module, error)
}

// Factory creates the module of an extension.
type Factory func(ctx context.Context, desc *extension.Descriptor) (extension.Module, error)

// Registry is a Loader backed by factories registered per entry point.
type Registry struct {
	factories *xsync.Map[string, Factory]
}

var _ Loader = (*Registry)(nil)

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		factories: xsync.NewMap[string, Factory](),
	}
}

// Register registers a factory for the given entry point.
func (r *Registry) Register(entryPoint string, factory Factory) {
	r.factories.Set(lowTrim(entryPoint), factory)
}

// RegisterModule registers a module returned as is for the given entry point.
func (r *Registry) RegisterModule(entryPoint string, module extension.Module) {
	r.Register(entryPoint, func(context.Context, *extension.Descriptor) (extension.Module, error) {
		return module, nil
	})
}

// Deregister removes the factory of the given entry point
func (r *Registry) Deregister(entryPoint string) {
	r.factories.Delete(lowTrim(entryPoint))
}

// Exists returns true when a factory is registered for the given entry point
func (r *Registry) Exists(entryPoint string) bool {
	_, ok := r.factories.Get(lowTrim(entryPoint))
	return ok
}

// EntryPoints returns the registered entry points
func (r *Registry) EntryPoints() []string {
	return r.factories.Keys()
}

// Load implements Loader. The returned module is validated once here so that
// callers can rely on its variant.
func (r *Registry) Load(ctx context.Context, desc *extension.Descriptor) (extension.Module, error) {
	factory, ok := r.factories.Get(lowTrim(desc.Main))
	if !ok {
		return nil, gerrors.NewErrModuleNotRegistered(desc.Main)
	}

	module, err := factory(ctx, desc)
	if err != nil {
		return nil, err
	}

	switch m := module.(type) {
	case *extension.LifecycleModule:
		if m.Activate == nil {
			return nil, errMissingActivate
		}
	case *extension.ExportsModule:
	default:
		return nil, gerrors.NewErrModuleNotRegistered(desc.Main)
	}
	return module, nil
}

// lowTrim trim any space and lower the string value
func lowTrim(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
