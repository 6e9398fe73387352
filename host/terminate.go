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
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/future"
)

// Terminate shuts the host down and calls the exit function with code.
// Only the first call does anything.
//
// New activations are refused, the host proxy is invalidated and every
// activated extension is deactivated concurrently. Deactivation is given the
// termination timeout; hooks still running by then are abandoned.
func (h *Host) Terminate(reason string, code int) {
	if !h.terminating.CompareAndSwap(false, true) {
		return
	}

	h.logger.Infof("Extension host terminating: %s", reason)
	h.stream.Publish(TopicLifecycle, &LifecycleEvent{Stage: StageTerminating, Reason: reason})

	h.engine.Dispose()
	h.startupFinishedQueue.Dispose()
	h.proxy.Invalidate()
	if err := h.subscriptions.Dispose(); err != nil {
		h.logger.Warnf("failed to dispose the host subscriptions: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.terminationTimeout)
	defer cancel()

	done, pending := h.deactivateAll(ctx)
	if !future.WaitAll(ctx, 0, done) {
		abandoned := pending.Load()
		h.logger.Warnf("abandoned %d extension deactivations after %s", abandoned, h.terminationTimeout)
		h.metric.RecordAbandonedDeactivations(context.Background(), int(abandoned))
	}

	if err := h.coordinator.Dispose(); err != nil {
		h.logger.Warnf("failed to dispose the remote resolvers: %v", err)
	}
	if err := h.store.Close(); err != nil {
		h.logger.Warnf("failed to close the extension state store: %v", err)
	}

	if h.pid != 0 {
		h.logger.Infof("Extension host with pid %d exiting with code %d", h.pid, code)
	} else {
		h.logger.Infof("Extension host exiting with code %d", code)
	}
	if err := h.logger.Flush(); err != nil {
		h.onUnexpectedError(err)
	}

	h.stream.Close()
	h.terminated.Open()
	h.exit(code)
}

// IsTerminating reports whether Terminate was called.
func (h *Host) IsTerminating() bool {
	return h.terminating.Load()
}

// deactivateAll deactivates every activated local extension concurrently.
// The returned counter holds the deactivations still running.
func (h *Host) deactivateAll(ctx context.Context) (future.Waitable, *atomic.Int64) {
	var records []*extension.Activated
	for _, id := range h.registry.Local().IDs() {
		if !h.IsActivated(id) {
			continue
		}
		if record, ok := h.engine.GetActivated(id); ok {
			records = append(records, record)
		}
	}

	pending := atomic.NewInt64(int64(len(records)))
	group := new(errgroup.Group)
	for _, record := range records {
		group.Go(func() error {
			defer pending.Dec()
			h.deactivate(ctx, record)
			return nil
		})
	}
	return future.Go(func() { _ = group.Wait() }), pending
}

// deactivate runs the deactivate hook of the extension and disposes its
// subscriptions without waiting for the hook. Errors are logged.
func (h *Host) deactivate(ctx context.Context, record *extension.Activated) {
	start := time.Now()
	var hook future.Waitable
	if deactivator := record.Deactivator(); deactivator != nil {
		hook = future.Go(func() {
			if err := callDeactivate(ctx, deactivator); err != nil {
				h.logger.Errorf("An error occurred when deactivating the extension '%s': %v", record.ID, err)
			}
		})
	}

	if record.Subscriptions != nil {
		if err := record.Subscriptions.Dispose(); err != nil {
			h.logger.Errorf("An error occurred when disposing the subscriptions for extension '%s': %v", record.ID, err)
		}
	}

	if hook != nil {
		<-hook.Done()
	}
	h.logger.Debugf("extension %s deactivated in %s", record.ID, time.Since(start))
}

func callDeactivate(ctx context.Context, deactivator extension.DeactivateFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = gerrors.Recovered(r)
		}
	}()
	return deactivator(ctx)
}
