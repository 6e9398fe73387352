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

// Package pathindex maps file paths to the extension whose code location
// contains them.
package pathindex

import (
	"os"
	"path/filepath"
	"strings"

	radix "github.com/armon/go-radix"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/log"
)

// DefaultCacheSize is the number of resolved real paths kept by a Builder.
const DefaultCacheSize = 1024

const separator = string(os.PathSeparator)

// Index is an immutable prefix tree keyed by extension code locations.
// Keys ignore path casing.
type Index struct {
	tree *radix.Tree
}

// Empty returns an index without entries
func Empty() *Index {
	return &Index{tree: radix.New()}
}

// Len returns the number of indexed extensions
func (x *Index) Len() int {
	return x.tree.Len()
}

// FindByPath returns the extension whose code location is the longest prefix of path.
func (x *Index) FindByPath(path string) (*extension.Descriptor, bool) {
	_, value, ok := x.tree.LongestPrefix(normalize(path))
	if !ok {
		return nil, false
	}
	return value.(*extension.Descriptor), true
}

// Descriptors returns the indexed descriptors in key order.
func (x *Index) Descriptors() []*extension.Descriptor {
	out := make([]*extension.Descriptor, 0, x.tree.Len())
	x.tree.Walk(func(_ string, value any) bool {
		out = append(out, value.(*extension.Descriptor))
		return false
	})
	return out
}

// RealpathFunc resolves symbolic links of a path.
type RealpathFunc func(path string) (string, error)

// Builder builds indexes. Resolved real paths are cached across builds.
type Builder struct {
	cache    *lru.Cache[string, string]
	realpath RealpathFunc
	logger   log.Logger
}

// NewBuilder creates a Builder. A nil realpath resolves with filepath.EvalSymlinks.
func NewBuilder(cacheSize int, realpath RealpathFunc, logger log.Logger) *Builder {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if realpath == nil {
		realpath = filepath.EvalSymlinks
	}
	if logger == nil {
		logger = log.DiscardLogger
	}
	// lru.New only fails on a non-positive size
	cache, _ := lru.New[string, string](cacheSize)
	return &Builder{cache: cache, realpath: realpath, logger: logger}
}

// Build indexes the given descriptors. Extensions without entry point are skipped.
func (b *Builder) Build(descriptors []*extension.Descriptor) *Index {
	tree := radix.New()
	for _, desc := range descriptors {
		if !desc.HasEntryPoint() || desc.Location == "" {
			continue
		}
		tree.Insert(normalize(b.resolve(desc.Location)), desc)
	}
	return &Index{tree: tree}
}

func (b *Builder) resolve(location string) string {
	if cached, ok := b.cache.Get(location); ok {
		return cached
	}

	resolved, err := b.realpath(location)
	if err != nil {
		b.logger.Debugf("unable to resolve real path of %s: %v", location, err)
		// missing locations are not cached so that a later build can resolve them
		return location
	}
	b.cache.Add(location, resolved)
	return resolved
}

func normalize(path string) string {
	key := strings.ToLower(filepath.Clean(path))
	if !strings.HasSuffix(key, separator) {
		key += separator
	}
	return key
}
