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
	"time"

	"github.com/tochemey/exthost/internal/perf"
	"github.com/tochemey/exthost/log"
)

// DefaultWaitingInterval is the interval at which a pending resolution logs progress.
const DefaultWaitingInterval = time.Second

// Option configures a Coordinator.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*Coordinator)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Coordinator)

// Apply applies the options to the Coordinator
func (f OptionFunc) Apply(c *Coordinator) {
	f(c)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *Coordinator) {
		c.logger = logger
	})
}

// WithGate sets the gate resolver activation waits on before activating anything.
func WithGate(gate Gate) Option {
	return OptionFunc(func(c *Coordinator) {
		c.gate = gate
	})
}

// WithManagedSockets sets the registry managed connection factories are handed to.
func WithManagedSockets(sockets *ManagedSockets) Option {
	return OptionFunc(func(c *Coordinator) {
		c.sockets = sockets
	})
}

// WithTunnelService sets the service receiving the final resolver's tunnel factory.
func WithTunnelService(service TunnelService) Option {
	return OptionFunc(func(c *Coordinator) {
		c.tunnels = service
	})
}

// WithMarks sets the collector resolution performance marks are recorded into.
func WithMarks(marks *perf.Marks) Option {
	return OptionFunc(func(c *Coordinator) {
		c.marks = marks
	})
}

// WithWaitingInterval sets how often a pending resolution logs that it is still waiting.
func WithWaitingInterval(interval time.Duration) Option {
	return OptionFunc(func(c *Coordinator) {
		c.waitingInterval = interval
	})
}
