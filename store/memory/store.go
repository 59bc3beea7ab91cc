// Package memory provides an in-memory Store for bucketsample.
//
// The memory store is useful for unit testing the sampling pipeline
// without network access. Objects are seeded with Put and listed in key
// order.
package memory

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grokify/bucketsample"
)

type object struct {
	data    []byte
	modTime time.Time
}

// Store implements bucketsample.Store over a map.
type Store struct {
	objects map[string]*object
	closed  bool
	mu      sync.RWMutex
}

// New creates an empty memory store.
func New() *Store {
	return &Store{objects: make(map[string]*object)}
}

// Put seeds an object. Existing data under the same key is replaced.
func (s *Store) Put(key string, data []byte, modTime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = &object{data: cp, modTime: modTime}
}

// Objects lists objects under prefix in key order.
func (s *Store) Objects(ctx context.Context, prefix string) bucketsample.ObjectIterator {
	if err := s.checkClosed(); err != nil {
		return &iterator{err: err}
	}
	if err := ctx.Err(); err != nil {
		return &iterator{err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var objs []bucketsample.Object
	for key, obj := range s.objects {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		objs = append(objs, bucketsample.Object{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.modTime,
		})
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].Key < objs[j].Key })

	return &iterator{objects: objs}
}

// Open returns a reader over the object's bytes.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	obj, exists := s.objects[key]
	s.mu.RUnlock()

	if !exists {
		return nil, bucketsample.ErrNotFound
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Download writes the object's bytes to localPath.
func (s *Store) Download(ctx context.Context, key, localPath string) error {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Close releases the store. After Close, all other methods fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.objects = nil
	return nil
}

func (s *Store) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return bucketsample.ErrStoreClosed
	}
	return nil
}

type iterator struct {
	objects []bucketsample.Object
	pos     int
	err     error
}

func (it *iterator) Next() (bucketsample.Object, error) {
	if it.err != nil {
		return bucketsample.Object{}, it.err
	}
	if it.pos >= len(it.objects) {
		return bucketsample.Object{}, io.EOF
	}
	obj := it.objects[it.pos]
	it.pos++
	return obj, nil
}

// Ensure Store implements bucketsample.Store
var _ bucketsample.Store = (*Store)(nil)
