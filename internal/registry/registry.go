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

// Package registry holds the global and local views of the known extensions
// and applies add/remove deltas to them atomically.
package registry

import (
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/internal/pathindex"
	"github.com/tochemey/exthost/log"
)

// State is what the registry publishes: the global snapshot, the local
// snapshot and the path index of the local extensions. A State is never
// modified once published.
type State struct {
	Global *Snapshot
	Local  *Snapshot
	Paths  *pathindex.Index
}

// Registry maintains the global and local extension views.
//
// Readers load the current State with a single atomic read and therefore
// always observe either the complete pre-delta or complete post-delta state.
// Writers are serialized.
type Registry struct {
	writeMu sync.Mutex
	state   atomic.Pointer[State]
	events  *Events
	paths   *pathindex.Builder
	logger  log.Logger
}

// New creates a Registry from the global descriptors and the identifiers of
// the extensions hosted locally.
func New(global []*extension.Descriptor, local []extension.Identifier, paths *pathindex.Builder, logger log.Logger) *Registry {
	if logger == nil {
		logger = log.DiscardLogger
	}
	if paths == nil {
		paths = pathindex.NewBuilder(pathindex.DefaultCacheSize, nil, logger)
	}

	events := NewEvents()
	events.Seed(global...)

	r := &Registry{
		events: events,
		paths:  paths,
		logger: logger,
	}

	globalSnapshot := newSnapshot(dedupe(global), events)
	localSnapshot := filter(globalSnapshot, toSet(local), events)
	r.state.Store(&State{
		Global: globalSnapshot,
		Local:  localSnapshot,
		Paths:  paths.Build(localSnapshot.descriptors),
	})
	return r
}

// State returns the current state
func (r *Registry) State() *State {
	return r.state.Load()
}

// Global returns the current global snapshot
func (r *Registry) Global() *Snapshot {
	return r.state.Load().Global
}

// Local returns the current local snapshot
func (r *Registry) Local() *Snapshot {
	return r.state.Load().Local
}

// Paths returns the current path index
func (r *Registry) Paths() *pathindex.Index {
	return r.state.Load().Paths
}

// Events returns the activation events reader
func (r *Registry) Events() *Events {
	return r.events
}

// ApplyDelta applies the delta and returns the previous and new states.
//
// Activation events are recorded first so that any event lookup performed
// while the delta is applied already sees them. The new snapshots and the path
// index are fully built before being published in a single swap.
func (r *Registry) ApplyDelta(delta extension.Delta) (previous, current *State) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	previous = r.state.Load()

	// 1. activation events first
	for _, desc := range delta.ToAdd {
		r.events.Replace(desc.ID, desc.ActivationEvents)
	}
	r.events.Add(delta.AddActivationEvents)

	// 2. global = old global + toAdd - toRemove
	removed := toSet(delta.ToRemove)
	added := mapset.NewThreadUnsafeSet[string]()
	descriptors := make([]*extension.Descriptor, 0, previous.Global.Len()+len(delta.ToAdd))
	for _, desc := range delta.ToAdd {
		added.Add(desc.ID.Key())
	}
	for _, desc := range previous.Global.descriptors {
		key := desc.ID.Key()
		if removed.Contains(key) || added.Contains(key) {
			continue
		}
		descriptors = append(descriptors, desc)
	}
	for _, desc := range delta.ToAdd {
		descriptors = append(descriptors, desc)
	}
	global := newSnapshot(dedupe(descriptors), r.events)

	// 3. local ids = old local ids - myToRemove + myToAdd
	localIDs := mapset.NewThreadUnsafeSet[string]()
	for _, desc := range previous.Local.descriptors {
		localIDs.Add(desc.ID.Key())
	}
	localIDs = localIDs.Difference(toSet(delta.MyToRemove)).Union(toSet(delta.MyToAdd))
	local := filter(global, localIDs, r.events)

	// 4. path index before publishing
	paths := r.paths.Build(local.descriptors)

	// 5. publish
	current = &State{Global: global, Local: local, Paths: paths}
	r.state.Store(current)

	var forget []extension.Identifier
	for _, id := range delta.ToRemove {
		if !global.Contains(id) {
			forget = append(forget, id)
		}
	}
	r.events.Remove(forget...)

	r.logger.Debugf("registry delta applied: global=%d local=%d", global.Len(), local.Len())
	return previous, current
}

func filter(global *Snapshot, ids mapset.Set[string], events *Events) *Snapshot {
	descriptors := make([]*extension.Descriptor, 0, ids.Cardinality())
	for _, desc := range global.descriptors {
		if ids.Contains(desc.ID.Key()) {
			descriptors = append(descriptors, desc)
		}
	}
	return newSnapshot(descriptors, events)
}

func toSet(ids []extension.Identifier) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSetWithSize[string](len(ids))
	for _, id := range ids {
		set.Add(id.Key())
	}
	return set
}

// dedupe keeps the first descriptor of every identifier.
func dedupe(descriptors []*extension.Descriptor) []*extension.Descriptor {
	seen := mapset.NewThreadUnsafeSetWithSize[string](len(descriptors))
	out := make([]*extension.Descriptor, 0, len(descriptors))
	for _, desc := range descriptors {
		if seen.Add(desc.ID.Key()) {
			out = append(out, desc)
		}
	}
	return out
}
