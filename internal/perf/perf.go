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

// Package perf collects named startup marks.
package perf

import (
	"sync"
	"time"

	"github.com/tochemey/exthost/extension"
)

// Marks collects performance marks in the order they are taken.
type Marks struct {
	mu    sync.Mutex
	marks []extension.PerformanceMark
	now   func() time.Time
}

// NewMarks creates an empty collector
func NewMarks() *Marks {
	return &Marks{now: time.Now}
}

// Mark records a mark with the given name.
func (m *Marks) Mark(name string) {
	m.mu.Lock()
	m.marks = append(m.marks, extension.PerformanceMark{Name: name, Time: m.now()})
	m.mu.Unlock()
}

// Has reports whether a mark with the given name was taken
func (m *Marks) Has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mark := range m.marks {
		if mark.Name == name {
			return true
		}
	}
	return false
}

// Drain returns the collected marks and resets the collector.
func (m *Marks) Drain() []extension.PerformanceMark {
	m.mu.Lock()
	defer m.mu.Unlock()
	marks := m.marks
	m.marks = nil
	return marks
}
