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
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/future"
	"github.com/tochemey/exthost/internal/registry"
)

// DeltaExtensions applies a registry delta. Readers see either the registry
// before the delta or after it, never a mix of both.
//
// Activation events already processed are reset for the extensions the delta
// brings into this host so that they can still be activated by them.
func (h *Host) DeltaExtensions(ctx context.Context, delta extension.Delta) error {
	if h.terminating.Load() {
		return gerrors.ErrTerminating
	}
	if delta.IsEmpty() {
		return nil
	}

	previous, current := h.registry.ApplyDelta(delta)

	before := localKeys(previous.Local)
	after := localKeys(current.Local)
	addedKeys := after.Difference(before)
	removedKeys := before.Difference(after)

	// an extension removed and added back by the same delta is replaced
	for _, id := range delta.MyToAdd {
		key := id.Key()
		if before.Contains(key) && after.Contains(key) && slices.ContainsFunc(delta.MyToRemove, id.Equals) {
			addedKeys.Add(key)
			removedKeys.Add(key)
		}
	}

	added := resolveIDs(current.Local, addedKeys)
	removed := resolveIDs(previous.Local, removedKeys)

	events := mapset.NewSet[string]()
	for _, id := range added {
		events.Append(current.Local.ActivationEvents(id)...)
	}
	if events.Cardinality() > 0 {
		h.engine.ResetEvents(events.ToSlice()...)
	}

	if h.deactivateOnRemove && len(removed) > 0 {
		h.deactivateRemoved(ctx, removed)
	}

	h.logger.Infof("extensions delta applied: %d added, %d removed, %d local, %d global",
		len(added), len(removed), current.Local.Len(), current.Global.Len())
	h.stream.Publish(TopicRegistryChanged, &RegistryChangedEvent{Added: added, Removed: removed})
	return nil
}

func localKeys(snapshot *registry.Snapshot) mapset.Set[string] {
	keys := mapset.NewThreadUnsafeSetWithSize[string](snapshot.Len())
	for _, id := range snapshot.IDs() {
		keys.Add(id.Key())
	}
	return keys
}

// resolveIDs maps keys back to the identifiers spelled by the snapshot, sorted by key.
func resolveIDs(snapshot *registry.Snapshot, keys mapset.Set[string]) []extension.Identifier {
	sorted := keys.ToSlice()
	slices.Sort(sorted)
	ids := make([]extension.Identifier, 0, len(sorted))
	for _, key := range sorted {
		if desc, ok := snapshot.Get(extension.Identifier(key)); ok {
			ids = append(ids, desc.ID)
		}
	}
	return ids
}

// deactivateRemoved deactivates the removed extensions that were activated
// and forgets their records so that re-adding them activates them again.
func (h *Host) deactivateRemoved(ctx context.Context, removed []extension.Identifier) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.terminationTimeout)
	defer cancel()

	var waitables []future.Waitable
	for _, id := range removed {
		record, ok := h.engine.GetActivated(id)
		if !ok {
			continue
		}
		h.engine.Forget(id)
		if record.Failed() || record.Kind == extension.KindHost || !h.readyToRun.IsOpen() {
			continue
		}
		waitables = append(waitables, future.Go(func() { h.deactivate(ctx, record) }))
	}

	if !future.WaitAll(ctx, 0, waitables...) {
		h.logger.Warnf("removed extensions did not deactivate within %s", h.terminationTimeout)
	}
}
