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

// Snapshot is an immutable view of extension descriptors in registration order.
type Snapshot struct {
	descriptors []*extension.Descriptor
	byKey       map[string]*extension.Descriptor
	events      *Events

	// event index rebuilt lazily whenever the recorded events change
	mu         sync.Mutex
	generation uint64
	byEvent    map[string][]*extension.Descriptor
}

func newSnapshot(descriptors []*extension.Descriptor, events *Events) *Snapshot {
	byKey := make(map[string]*extension.Descriptor, len(descriptors))
	for _, desc := range descriptors {
		byKey[desc.ID.Key()] = desc
	}
	return &Snapshot{
		descriptors: descriptors,
		byKey:       byKey,
		events:      events,
	}
}

// Get returns the descriptor of the given extension
func (s *Snapshot) Get(id extension.Identifier) (*extension.Descriptor, bool) {
	desc, ok := s.byKey[id.Key()]
	return desc, ok
}

// Contains reports whether the extension is part of the snapshot
func (s *Snapshot) Contains(id extension.Identifier) bool {
	_, ok := s.byKey[id.Key()]
	return ok
}

// Len returns the number of descriptors
func (s *Snapshot) Len() int {
	return len(s.descriptors)
}

// Descriptors returns the descriptors in registration order.
// The returned slice is a copy; the descriptors are shared.
func (s *Snapshot) Descriptors() []*extension.Descriptor {
	return slices.Clone(s.descriptors)
}

// IDs returns the extension identifiers in registration order
func (s *Snapshot) IDs() []extension.Identifier {
	ids := make([]extension.Identifier, len(s.descriptors))
	for i, desc := range s.descriptors {
		ids[i] = desc.ID
	}
	return ids
}

// ForEvent returns the extensions activated by the given event, in registration order.
func (s *Snapshot) ForEvent(event string) []*extension.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()

	generation := s.events.Generation()
	if s.byEvent == nil || generation != s.generation {
		s.byEvent = make(map[string][]*extension.Descriptor)
		for _, desc := range s.descriptors {
			for _, evt := range s.events.Get(desc.ID) {
				s.byEvent[evt] = append(s.byEvent[evt], desc)
			}
		}
		s.generation = generation
	}
	return slices.Clone(s.byEvent[event])
}

// ActivationEvents returns the events recorded for the extension
func (s *Snapshot) ActivationEvents(id extension.Identifier) []string {
	return s.events.Get(id)
}
