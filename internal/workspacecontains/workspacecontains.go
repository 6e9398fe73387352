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

// Package workspacecontains evaluates the file-presence activation events of
// an extension against workspace folders.
package workspacecontains

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tochemey/exthost/log"
)

const (
	// EventPrefix prefixes the file-presence activation events.
	EventPrefix = "workspaceContains:"
	// TimeoutEventPrefix prefixes the event used when a glob search times out.
	TimeoutEventPrefix = "workspaceContainsTimeout:"
)

var errFound = errors.New("found")

// Result is the outcome of a check.
type Result struct {
	// Matched is true when the extension must be activated.
	Matched bool
	// Event is the activation event to report.
	Event string
}

// Checker evaluates file-presence activation events.
type Checker struct {
	timeout time.Duration
	logger  log.Logger
}

// NewChecker creates a Checker. Glob searches exceeding timeout activate the
// extension with a TimeoutEventPrefix event.
func NewChecker(timeout time.Duration, logger log.Logger) *Checker {
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &Checker{timeout: timeout, logger: logger}
}

// Patterns extracts the file patterns declared by the given activation events.
func Patterns(events []string) []string {
	var patterns []string
	for _, event := range events {
		rest, ok := strings.CutPrefix(event, EventPrefix)
		if !ok {
			continue
		}
		for _, pattern := range strings.Split(rest, ",") {
			pattern = strings.TrimPrefix(strings.TrimSpace(pattern), "./")
			if pattern != "" {
				patterns = append(patterns, pattern)
			}
		}
	}
	return patterns
}

// Check reports whether any folder contains a file matching the patterns
// declared by events. Plain file names are checked for existence, glob
// patterns by walking the folders.
func (c *Checker) Check(ctx context.Context, folders []string, events []string) (Result, error) {
	patterns := Patterns(events)
	if len(patterns) == 0 || len(folders) == 0 {
		return Result{}, nil
	}

	var fileNames, globs []string
	for _, pattern := range patterns {
		if isGlob(pattern) {
			globs = append(globs, pattern)
			continue
		}
		fileNames = append(fileNames, pattern)
	}

	for _, fileName := range fileNames {
		for _, folder := range folders {
			if _, err := os.Stat(filepath.Join(folder, filepath.FromSlash(fileName))); err == nil {
				return Result{Matched: true, Event: EventPrefix + fileName}, nil
			}
		}
	}

	if len(globs) == 0 {
		return Result{}, nil
	}
	return c.searchGlobs(ctx, folders, globs)
}

func (c *Checker) searchGlobs(ctx context.Context, folders, globs []string) (Result, error) {
	searchCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	for _, folder := range folders {
		fsys := &contextFS{ctx: searchCtx, fsys: os.DirFS(folder)}
		for _, glob := range globs {
			err := doublestar.GlobWalk(fsys, glob, func(string, fs.DirEntry) error {
				return errFound
			}, doublestar.WithFailOnIOErrors())

			switch {
			case errors.Is(err, errFound):
				return Result{Matched: true, Event: EventPrefix + glob}, nil
			case searchCtx.Err() != nil:
				if ctx.Err() != nil {
					return Result{}, ctx.Err()
				}
				c.logger.Warnf("workspace search for %s timed out after %s", strings.Join(globs, ","), c.timeout)
				return Result{Matched: true, Event: TimeoutEventPrefix + strings.Join(globs, ",")}, nil
			case err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission):
				return Result{}, fmt.Errorf("searching %s in %s: %w", glob, folder, err)
			}
		}
	}
	return Result{}, nil
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// contextFS aborts filesystem access once its context is done.
type contextFS struct {
	ctx  context.Context
	fsys fs.FS
}

var (
	_ fs.FS        = (*contextFS)(nil)
	_ fs.ReadDirFS = (*contextFS)(nil)
	_ fs.StatFS    = (*contextFS)(nil)
)

func (c *contextFS) Open(name string) (fs.File, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}
	return c.fsys.Open(name)
}

func (c *contextFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadDir(c.fsys, name)
}

func (c *contextFS) Stat(name string) (fs.FileInfo, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}
	return fs.Stat(c.fsys, name)
}
