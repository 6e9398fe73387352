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

package manifest

import (
	"github.com/tochemey/exthost/extension"
)

// Diff returns the delta turning the registry described by previous into the
// one described by next. Every manifest is hosted locally, so each global
// change is mirrored in the local lists. A manifest whose fingerprint changed
// is removed and added back.
func Diff(previous, next *Set) extension.Delta {
	var delta extension.Delta

	for _, entry := range previous.Entries() {
		id := entry.Descriptor.ID
		if current, ok := next.Get(id); ok && current.Fingerprint == entry.Fingerprint {
			continue
		}
		delta.ToRemove = append(delta.ToRemove, id)
		delta.MyToRemove = append(delta.MyToRemove, id)
	}

	for _, entry := range next.Entries() {
		id := entry.Descriptor.ID
		if old, ok := previous.Get(id); ok && old.Fingerprint == entry.Fingerprint {
			continue
		}
		delta.ToAdd = append(delta.ToAdd, entry.Descriptor)
		delta.MyToAdd = append(delta.MyToAdd, id)
	}
	return delta
}
