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

import (
	"context"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/future"
	"github.com/tochemey/exthost/remote"
	"github.com/tochemey/exthost/workspace"
)

// handleEagerExtensions runs the star, workspace contains and remote
// resolver passes concurrently and waits for them up to the eager activation
// timeout. Whatever happens first triggers the startup finished activations;
// passes still running carry on unobserved.
func (h *Host) handleEagerExtensions(ctx context.Context) {
	start := time.Now()

	star := future.Go(func() {
		if err := h.engine.ActivateByEvent(ctx, extension.StarEvent, true); err != nil {
			h.logger.Errorf("activating the %s extensions failed: %v", extension.StarEvent, err)
		}
	})

	listener := h.workspace.OnDidChangeWorkspace(func(event workspace.ChangeEvent) {
		if len(event.Added) > 0 && !h.terminating.Load() {
			go h.handleWorkspaceContainsEagerExtensions(context.WithoutCancel(ctx), event.Added)
		}
	})
	if err := h.subscriptions.Add(listener); err != nil {
		h.logger.Warnf("failed to track the workspace listener: %v", err)
	}

	folders := h.workspace.Folders()
	workspaceContains := future.Go(func() {
		h.handleWorkspaceContainsEagerExtensions(ctx, folders)
	})
	remoteResolver := future.Go(func() {
		h.handleRemoteResolverEagerExtensions(ctx)
	})

	completed := future.WaitAll(ctx, h.eagerActivationTimeout, star, workspaceContains, remoteResolver)
	elapsed := time.Since(start)
	h.metric.RecordEagerSweep(ctx, elapsed, completed)
	if !completed {
		h.logger.Warnf("eager extensions did not finish activating within %s", h.eagerActivationTimeout)
	}

	h.activateAllStartupFinished(ctx)
}

func (h *Host) handleWorkspaceContainsEagerExtensions(ctx context.Context, folders []string) {
	if len(folders) == 0 {
		return
	}

	group := new(errgroup.Group)
	group.SetLimit(workspaceContainsConcurrency)
	for _, desc := range h.registry.Local().Descriptors() {
		group.Go(func() error {
			h.handleWorkspaceContainsEagerExtension(ctx, folders, desc)
			return nil
		})
	}
	_ = group.Wait()
}

func (h *Host) handleWorkspaceContainsEagerExtension(ctx context.Context, folders []string, desc *extension.Descriptor) {
	if h.IsActivated(desc.ID) {
		return
	}

	events := h.registry.Local().ActivationEvents(desc.ID)
	result, err := h.checker.Check(ctx, folders, events)
	if err != nil {
		h.logger.Errorf("evaluating the workspace contains events of %s failed: %v", desc.ID, err)
		return
	}
	if !result.Matched {
		return
	}

	reason := extension.ActivationReason{Startup: true, ExtensionID: desc.ID, ActivationEvent: result.Event}
	if _, err := h.engine.ActivateByID(ctx, desc.ID, reason); err != nil {
		h.logger.Errorf("activating %s for %s failed: %v", desc.ID, result.Event, err)
	}
}

func (h *Host) handleRemoteResolverEagerExtensions(ctx context.Context) {
	if h.remoteAuthority == "" {
		return
	}
	event := remote.ResolverEventPrefix + h.remoteAuthority
	if err := h.engine.ActivateByEvent(ctx, event, false); err != nil {
		h.logger.Errorf("activating the resolver of %s failed: %v", h.remoteAuthority, err)
	}
}

// activateAllStartupFinished pushes the performance marks collected so far
// and activates the onStartupFinished extensions.
func (h *Host) activateAllStartupFinished(ctx context.Context) {
	h.proxy.SetPerformanceMarks(ctx, h.marks.Drain())

	local := h.registry.Local()
	var targets []*extension.Descriptor
	for _, desc := range local.Descriptors() {
		if slices.Contains(local.ActivationEvents(desc.ID), extension.StartupFinishedEvent) {
			targets = append(targets, desc)
		}
	}

	if !h.deferredStartupFinished {
		for _, desc := range targets {
			h.startupFinishedFn(ctx, desc)
		}
		h.slices.Inc()
		h.open(h.startupFinished)
		return
	}

	go h.activateAllStartupFinishedDeferred(ctx, targets)
}

// activateAllStartupFinishedDeferred processes the targets in slices that
// yield once they ran for longer than the slice budget.
func (h *Host) activateAllStartupFinishedDeferred(ctx context.Context, targets []*extension.Descriptor) {
	next := 0
	for next < len(targets) && !h.terminating.Load() {
		runtime.Gosched()
		next = h.startupFinishedSlice(ctx, targets, next)
		h.slices.Inc()
	}
	h.open(h.startupFinished)
}

func (h *Host) startupFinishedSlice(ctx context.Context, targets []*extension.Descriptor, from int) int {
	started := time.Now()
	for i := from; i < len(targets); i++ {
		if i > from && time.Since(started) > h.sliceBudget {
			return i
		}
		h.startupFinishedFn(ctx, targets[i])
	}
	return len(targets)
}

// activateOneStartupFinished queues the extension for activation. Queued
// extensions are activated one after the other in the order they were queued.
func (h *Host) activateOneStartupFinished(ctx context.Context, desc *extension.Descriptor) {
	h.startupFinishedOnce.Do(func() {
		go h.runStartupFinishedQueue(context.WithoutCancel(ctx))
	})
	if err := h.startupFinishedQueue.Put(desc); err != nil {
		h.logger.Debugf("activation of %s on startup finished dropped: %v", desc.ID, err)
	}
}

func (h *Host) runStartupFinishedQueue(ctx context.Context) {
	for {
		items, err := h.startupFinishedQueue.Get(1)
		if err != nil {
			return
		}
		desc := items[0].(*extension.Descriptor)
		reason := extension.ActivationReason{
			Startup:         false,
			ExtensionID:     desc.ID,
			ActivationEvent: extension.StartupFinishedEvent,
		}
		if _, err := h.engine.ActivateByID(ctx, desc.ID, reason); err != nil {
			h.logger.Errorf("activating %s on startup finished failed: %v", desc.ID, err)
		}
	}
}
