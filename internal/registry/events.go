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

package registry

import (
	"slices"
	"sync"

	"github.com/tochemey/exthost/extension"
)

// Events records the activation events of every known extension.
// Lookups through a Snapshot consult it, so events added by a delta are
// visible before the snapshots that carry the new descriptors are published.
type Events struct {
	mu         sync.RWMutex
	events     map[string][]string
	generation uint64
}

// NewEvents creates an empty Events
func NewEvents() *Events {
	return &Events{events: make(map[string][]string)}
}

// Seed records the declared events of the given descriptors unless already known.
func (e *Events) Seed(descriptors ...*extension.Descriptor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, desc := range descriptors {
		key := desc.ID.Key()
		if _, ok := e.events[key]; ok {
			continue
		}
		e.events[key] = slices.Clone(desc.ActivationEvents)
	}
	e.generation++
}

// Add merges the given events into the recorded ones.
func (e *Events) Add(events map[extension.Identifier][]string) {
	if len(events) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for id, evts := range events {
		key := id.Key()
		current := e.events[key]
		for _, evt := range evts {
			if !slices.Contains(current, evt) {
				current = append(current, evt)
			}
		}
		e.events[key] = current
	}
	e.generation++
}

// Replace sets the events of an extension, dropping the previous ones.
func (e *Events) Replace(id extension.Identifier, events []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events[id.Key()] = slices.Clone(events)
	e.generation++
}

// Remove forgets the events of the given extensions
func (e *Events) Remove(ids ...extension.Identifier) {
	if len(ids) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		delete(e.events, id.Key())
	}
	e.generation++
}

// Get returns the events recorded for the extension.
func (e *Events) Get(id extension.Identifier) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.events[id.Key()])
}

// Has reports whether the extension is activated by the given event.
func (e *Events) Has(id extension.Identifier, event string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Contains(e.events[id.Key()], event)
}

// Generation changes every time the recorded events change.
func (e *Events) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}
