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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned when the extension host is started more than once.
	ErrAlreadyStarted = errors.New("extension host is already started")

	// ErrUnknownExtension is returned when an extension is not part of the local registry.
	ErrUnknownExtension = errors.New("unknown extension")

	// ErrNotActivated is returned when the outcome of an extension is queried before its activation.
	ErrNotActivated = errors.New("extension is not activated")

	// ErrEngineDisposed is returned when an activation is requested after the engine was disposed.
	ErrEngineDisposed = errors.New("activation engine is disposed")

	// ErrTerminating is returned when an operation is requested while the host is terminating.
	ErrTerminating = errors.New("extension host is terminating")

	// ErrActivationFailed wraps the failure reported by an extension activate hook.
	ErrActivationFailed = errors.New("extension activation failed")

	// ErrDependencyNotFound is returned when a declared dependency is unknown to the global registry.
	ErrDependencyNotFound = errors.New("extension dependency not found")

	// ErrCyclicDependency is returned when extension dependencies form a cycle.
	ErrCyclicDependency = errors.New("cyclic extension dependency")

	// ErrDependencyFailed is returned when a dependency of an extension failed to activate.
	ErrDependencyFailed = errors.New("extension dependency failed to activate")

	// ErrModuleNotRegistered is returned when no module factory is registered for an entry point.
	ErrModuleNotRegistered = errors.New("extension module is not registered")

	// ErrInvalidManifest is returned when an extension manifest cannot be parsed or validated.
	ErrInvalidManifest = errors.New("invalid extension manifest")

	// ErrStoreClosed is returned when a state store is used after being closed.
	ErrStoreClosed = errors.New("state store is closed")

	// ErrInvalidConfig is returned when the extension host options are invalid.
	ErrInvalidConfig = errors.New("invalid extension host config")

	// ErrNoTunnelFactory is returned when opening a tunnel before a resolver installed a factory.
	ErrNoTunnelFactory = errors.New("no tunnel factory installed")
)

// NewErrUnknownExtension formats an ErrUnknownExtension with the given extension id.
func NewErrUnknownExtension(id string) error {
	return fmt.Errorf("extension=(%s) %w", id, ErrUnknownExtension)
}

// NewErrNotActivated formats an ErrNotActivated with the given extension id.
func NewErrNotActivated(id string) error {
	return fmt.Errorf("extension=(%s) %w", id, ErrNotActivated)
}

// NewErrActivationFailed wraps a base error with ErrActivationFailed.
func NewErrActivationFailed(err error) error {
	return errors.Join(ErrActivationFailed, err)
}

// NewErrDependencyNotFound formats an ErrDependencyNotFound for the dependant and the missing dependency.
func NewErrDependencyNotFound(id, dependency string) error {
	return fmt.Errorf("extension=(%s) dependency=(%s) %w", id, dependency, ErrDependencyNotFound)
}

// NewErrDependencyFailed formats an ErrDependencyFailed and keeps the dependency failure in the chain.
func NewErrDependencyFailed(id, dependency string, cause error) error {
	return errors.Join(fmt.Errorf("extension=(%s) dependency=(%s) %w", id, dependency, ErrDependencyFailed), cause)
}

// NewErrCyclicDependency formats an ErrCyclicDependency with the dependency path.
func NewErrCyclicDependency(path []string) error {
	return fmt.Errorf("path=(%v) %w", path, ErrCyclicDependency)
}

// NewErrModuleNotRegistered formats an ErrModuleNotRegistered with the given entry point.
func NewErrModuleNotRegistered(entryPoint string) error {
	return fmt.Errorf("entry point=(%s) %w", entryPoint, ErrModuleNotRegistered)
}

// NewErrInvalidManifest wraps a base error with ErrInvalidManifest and the manifest path.
func NewErrInvalidManifest(path string, err error) error {
	return errors.Join(fmt.Errorf("manifest=(%s) %w", path, ErrInvalidManifest), err)
}

// NewErrInvalidConfig wraps a base error with ErrInvalidConfig.
func NewErrInvalidConfig(err error) error {
	return errors.Join(ErrInvalidConfig, err)
}

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}

// Recovered converts a value obtained from recover into a PanicError.
func Recovered(r any) *PanicError {
	if err, ok := r.(error); ok {
		return NewPanicError(err)
	}
	return NewPanicError(fmt.Errorf("%v", r))
}
