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

package chain

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Chain runs a sequence of steps in insertion order and collects their errors.
// In fail-fast mode the first failing step stops the chain.
type Chain struct {
	returnFirst bool
	errs        []error
	ctx         context.Context
}

// Option configures a chain at creation time.
type Option func(*Chain)

// New creates a new chain.
func New(opts ...Option) *Chain {
	chain := &Chain{
		errs: make([]error, 0),
		ctx:  context.Background(),
	}

	for _, opt := range opts {
		opt(chain)
	}

	return chain
}

// AddRunner adds a step to the chain
func (c *Chain) AddRunner(fn func() error) *Chain {
	return c.run(func(context.Context) error { return fn() })
}

// AddRunners adds a slice of steps to the chain. The slice order does matter here
func (c *Chain) AddRunners(fn ...func() error) *Chain {
	for _, f := range fn {
		c = c.AddRunner(f)
	}
	return c
}

// AddContextRunner adds a context-aware step to the chain
func (c *Chain) AddContextRunner(fn func(ctx context.Context) error) *Chain {
	return c.run(fn)
}

// AddContextRunnerIf adds a context-aware step to the chain when the condition is true
func (c *Chain) AddContextRunnerIf(condition bool, fn func(ctx context.Context) error) *Chain {
	if !condition {
		return c
	}
	return c.run(fn)
}

// AddNamedRunner adds a context-aware step whose error is prefixed with the step name.
func (c *Chain) AddNamedRunner(name string, fn func(ctx context.Context) error) *Chain {
	return c.run(func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
}

// Run returns the collected error
func (c *Chain) Run() error {
	if c.returnFirst {
		if len(c.errs) == 0 {
			return nil
		}
		return c.errs[0]
	}
	return multierr.Combine(c.errs...)
}

func (c *Chain) run(fn func(ctx context.Context) error) *Chain {
	if c.returnFirst && len(c.errs) > 0 {
		return c
	}
	if err := c.ctx.Err(); err != nil && c.returnFirst {
		c.errs = append(c.errs, err)
		return c
	}
	if err := fn(c.ctx); err != nil {
		c.errs = append(c.errs, err)
	}
	return c
}

// WithFailFast sets whether a chain should stop on first error.
func WithFailFast() Option {
	return func(c *Chain) { c.returnFirst = true }
}

// WithRunAll sets whether a chain should return all errors.
func WithRunAll() Option {
	return func(c *Chain) { c.returnFirst = false }
}

// WithContext sets the chain context to use
func WithContext(ctx context.Context) Option {
	return func(c *Chain) { c.ctx = ctx }
}
