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

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"

	"github.com/tochemey/exthost/errors"
)

const (
	boltFileMode os.FileMode = 0o600
	boltFileName             = "state.db"
)

var boltTimeout = 5 * time.Second

// BoltStore implements Store using go.etcd.io/bbolt. Each scope is a bucket.
//
// bbolt provides single-writer/multi-reader semantics. We only guard the
// close state to prevent operations once the store is shut down.
type BoltStore struct {
	db     *bbolt.DB
	path   string
	closed *atomic.Bool
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the state database under dir.
// The file survives Close so that state is kept across restarts.
func NewBoltStore(dir string) (*BoltStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: unable to create state directory: %w", err)
	}

	path := filepath.Join(dir, boltFileName)
	db, err := bbolt.Open(path, boltFileMode, &bbolt.Options{Timeout: boltTimeout})
	if err != nil {
		return nil, fmt.Errorf("storage: opening boltdb: %w", err)
	}

	return &BoltStore{db: db, path: path, closed: atomic.NewBool(false)}, nil
}

// Path returns the database file path
func (s *BoltStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *BoltStore) Get(ctx context.Context, scope, key string) ([]byte, bool, error) {
	if err := s.check(ctx); err != nil {
		return nil, false, err
	}

	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scope))
		if bucket == nil {
			return nil
		}
		if raw := bucket.Get([]byte(key)); raw != nil {
			// bbolt memory is only valid for the transaction lifetime
			value = append([]byte{}, raw...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, value != nil, nil
}

// Put implements Store.
func (s *BoltStore) Put(ctx context.Context, scope, key string, value []byte) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(scope))
		if err != nil {
			return fmt.Errorf("storage: creating bucket %q: %w", scope, err)
		}
		if value == nil {
			value = []byte{}
		}
		return bucket.Put([]byte(key), value)
	})
}

// Delete implements Store.
func (s *BoltStore) Delete(ctx context.Context, scope, key string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scope))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// Keys implements Store.
func (s *BoltStore) Keys(ctx context.Context, scope string) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	keys := make([]string, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scope))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(keys), nil
}

// Close releases the underlying BoltDB handle.
func (s *BoltStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) check(ctx context.Context) error {
	if s.closed.Load() {
		return errors.ErrStoreClosed
	}
	return contextErr(ctx)
}
