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
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/atomic"

	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/log"
)

const (
	// DefaultDebounce is how long the watcher waits for the directory to settle.
	DefaultDebounce = 200 * time.Millisecond
	// DefaultReadRetries is how many times a manifest caught mid-write is read again.
	DefaultReadRetries = 3
)

// DeltaFunc receives the registry delta computed after the directory changed.
type DeltaFunc func(ctx context.Context, delta extension.Delta) error

// Watcher watches an extensions directory and hands the registry deltas to a DeltaFunc.
type Watcher struct {
	dir      string
	onDelta  DeltaFunc
	logger   log.Logger
	debounce time.Duration
	retries  int

	mu      sync.RWMutex
	current *Set

	fsw     *fsnotify.Watcher
	started *atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption interface {
	Apply(w *Watcher)
}

// WatcherOptionFunc implements WatcherOption.
type WatcherOptionFunc func(w *Watcher)

// Apply applies the option.
func (f WatcherOptionFunc) Apply(w *Watcher) {
	f(w)
}

// WithLogger sets the watcher logger.
func WithLogger(logger log.Logger) WatcherOption {
	return WatcherOptionFunc(func(w *Watcher) {
		w.logger = logger
	})
}

// WithDebounce sets how long the watcher waits for the directory to settle.
func WithDebounce(debounce time.Duration) WatcherOption {
	return WatcherOptionFunc(func(w *Watcher) {
		if debounce > 0 {
			w.debounce = debounce
		}
	})
}

// WithReadRetries sets how many times an unreadable manifest is read again.
func WithReadRetries(retries int) WatcherOption {
	return WatcherOptionFunc(func(w *Watcher) {
		if retries > 0 {
			w.retries = retries
		}
	})
}

// NewWatcher creates a Watcher over dir. initial is the Set the host was
// started with; deltas are computed against it.
func NewWatcher(dir string, initial *Set, onDelta DeltaFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		dir:      dir,
		onDelta:  onDelta,
		logger:   log.DefaultLogger,
		debounce: DefaultDebounce,
		retries:  DefaultReadRetries,
		current:  initial,
		started:  atomic.NewBool(false),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if w.current == nil {
		w.current = NewSet()
	}
	for _, opt := range opts {
		opt.Apply(w)
	}
	return w
}

// Current returns the Set the last delta was computed from.
func (w *Watcher) Current() *Set {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching. It returns once the directory is being watched.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return nil
	}

	fsw, err := w.open()
	if err != nil {
		w.started.Store(false)
		return err
	}

	w.fsw = fsw
	go w.run(context.WithoutCancel(ctx))
	w.logger.Infof("watching extensions directory %s", w.dir)
	return nil
}

// Stop stops watching and waits for a delta in progress to be handed over.
func (w *Watcher) Stop() error {
	if !w.started.Load() {
		return nil
	}

	var err error
	w.once.Do(func() {
		close(w.stop)
		<-w.done
		err = w.fsw.Close()
	})
	return err
}

// Sync reloads the directory and hands the delta over, if any.
func (w *Watcher) Sync(ctx context.Context) error {
	next, err := load(w.dir, w.parseWithRetry)
	if next == nil {
		return err
	}
	if err != nil {
		w.logger.Warnf("some extension manifests were skipped: %v", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	delta := Diff(w.current, next)
	if delta.IsEmpty() {
		return nil
	}
	if err := w.onDelta(ctx, delta); err != nil {
		return err
	}
	w.current = next
	w.logger.Infof("extensions directory changed: %d added, %d removed", len(delta.MyToAdd), len(delta.MyToRemove))
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == filepath.Clean(w.dir) {
				w.watch(w.fsw, event.Name)
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("extensions directory watcher error: %v", err)
		case <-timer.C:
			if err := w.Sync(ctx); err != nil {
				w.logger.Errorf("failed to apply the extensions directory changes: %v", err)
			}
		}
	}
}

func (w *Watcher) open() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	dirEntries, err := os.ReadDir(w.dir)
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			w.watch(fsw, filepath.Join(w.dir, dirEntry.Name()))
		}
	}
	return fsw, nil
}

func (w *Watcher) watch(fsw *fsnotify.Watcher, dir string) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return
	}
	if err := fsw.Add(dir); err != nil {
		w.logger.Warnf("failed to watch extension directory %s: %v", dir, err)
	}
}

// parseWithRetry reads a manifest again when it is caught mid-write.
// A manifest deleted in the meantime is reported as missing.
func (w *Watcher) parseWithRetry(path string) (*Entry, error) {
	var entry *Entry
	retrier := retry.NewRetrier(w.retries, w.debounce/4+time.Millisecond, w.debounce)
	err := retrier.Run(func() error {
		parsed, err := ParseFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			entry = nil
			return nil
		}
		if err != nil {
			return err
		}
		entry = parsed
		return nil
	})
	return entry, err
}
