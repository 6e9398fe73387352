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

// Package workspace provides the workspace collaborator consumed by the host:
// the initialize handshake, the open folders and folder change notifications.
package workspace

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/internal/barrier"
	"github.com/tochemey/exthost/internal/xsync"
)

// ChangeEvent describes folders added to or removed from the workspace.
type ChangeEvent struct {
	Added   []string
	Removed []string
}

// ChangeListener receives workspace change events.
type ChangeListener func(event ChangeEvent)

// Workspace is the workspace collaborator of the host.
type Workspace interface {
	// ID identifies the workspace. It scopes per-workspace extension state.
	ID() string
	// WaitForInitializeCall blocks until the workspace has been initialized.
	WaitForInitializeCall(ctx context.Context) error
	// Folders returns the currently open folders.
	Folders() []string
	// OnDidChangeWorkspace registers a listener for folder changes.
	OnDidChangeWorkspace(listener ChangeListener) extension.Disposable
}

// Static is an in-process Workspace over a fixed set of folders that can
// grow or shrink at runtime.
type Static struct {
	id          string
	initialized *barrier.Barrier

	mu      sync.RWMutex
	folders []string

	listeners *xsync.Map[uint64, ChangeListener]
	seq       uint64
}

var _ Workspace = (*Static)(nil)

// NewStatic creates a workspace that is initialized right away.
func NewStatic(id string, folders ...string) *Static {
	s := NewGated(id, folders...)
	s.Initialize()
	return s
}

// NewGated creates a workspace whose WaitForInitializeCall blocks until Initialize is called.
func NewGated(id string, folders ...string) *Static {
	return &Static{
		id:          id,
		initialized: barrier.New("workspace.initialized"),
		folders:     normalize(folders),
		listeners:   xsync.NewMap[uint64, ChangeListener](),
	}
}

// ID returns the workspace id.
func (s *Static) ID() string {
	return s.id
}

// Initialize completes the initialize handshake. Calling it more than once is harmless.
func (s *Static) Initialize() {
	s.initialized.Open()
}

func (s *Static) WaitForInitializeCall(ctx context.Context) error {
	return s.initialized.Wait(ctx)
}

func (s *Static) Folders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.folders))
	copy(out, s.folders)
	return out
}

func (s *Static) OnDidChangeWorkspace(listener ChangeListener) extension.Disposable {
	s.mu.Lock()
	s.seq++
	key := s.seq
	s.mu.Unlock()

	s.listeners.Set(key, listener)
	return extension.DisposableFunc(func() error {
		s.listeners.Delete(key)
		return nil
	})
}

// AddFolders opens the given folders and notifies the listeners of the ones
// that were not already open.
func (s *Static) AddFolders(folders ...string) {
	s.mu.Lock()
	var added []string
	for _, folder := range normalize(folders) {
		if !slices.Contains(s.folders, folder) {
			s.folders = append(s.folders, folder)
			added = append(added, folder)
		}
	}
	s.mu.Unlock()

	if len(added) > 0 {
		s.fire(ChangeEvent{Added: added})
	}
}

// RemoveFolders closes the given folders and notifies the listeners.
func (s *Static) RemoveFolders(folders ...string) {
	s.mu.Lock()
	var removed []string
	kept := s.folders[:0:0]
	targets := normalize(folders)
	for _, folder := range s.folders {
		if slices.Contains(targets, folder) {
			removed = append(removed, folder)
			continue
		}
		kept = append(kept, folder)
	}
	s.folders = kept
	s.mu.Unlock()

	if len(removed) > 0 {
		s.fire(ChangeEvent{Removed: removed})
	}
}

func (s *Static) fire(event ChangeEvent) {
	for _, listener := range s.listeners.Values() {
		listener(event)
	}
}

func normalize(folders []string) []string {
	out := make([]string, 0, len(folders))
	for _, folder := range folders {
		if folder == "" {
			continue
		}
		folder = filepath.Clean(folder)
		if !slices.Contains(out, folder) {
			out = append(out, folder)
		}
	}
	return out
}
