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

package host

import "time"

const (
	// DefaultStartupActivationWait bounds how long starting the host waits for
	// the activations requested before it started.
	DefaultStartupActivationWait = time.Second
	// DefaultEagerActivationTimeout bounds the eager activation sweep.
	DefaultEagerActivationTimeout = 10 * time.Second
	// DefaultStartupFinishedSliceBudget is the time a deferred startup finished
	// slice may run before yielding.
	DefaultStartupFinishedSliceBudget = 50 * time.Millisecond
	// DefaultTerminationTimeout bounds the deactivation of all extensions on terminate.
	DefaultTerminationTimeout = 5 * time.Second
	// DefaultWorkspaceContainsTimeout bounds a single workspace contains search.
	DefaultWorkspaceContainsTimeout = 7 * time.Second

	// workspaceContainsConcurrency caps the extensions evaluated at once by
	// the workspace contains pass.
	workspaceContainsConcurrency = 16
)
