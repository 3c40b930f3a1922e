// Package memory implements an in-memory storage.Engine backed by
// github.com/google/btree, replacing the teacher's now-unreachable
// camlistore.org/third_party leveldb-go memdb (an unvendored internal
// dependency of the original perkeep tree) with a pack dependency
// grounded on other_examples/...thirawat27-kvi's BTreeItem pattern:
// an ordered item type with a Less method, stored directly in a
// *btree.BTreeG.
package memory

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"github.com/embedb/embedb/pkg/storage"
)

type item struct {
	key, value []byte
}

func less(a, b item) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Engine is a process-local, non-persistent storage.Engine. It is used
// for tests and for the "storage": "memory" configuration, and the
// conformance suite in pkg/storage/storagetest runs against it.
type Engine struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[item]
}

// New constructs an empty in-memory engine.
func New() *Engine {
	return &Engine{tree: btree.NewG(32, less)}
}

func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	got, ok := e.tree.Get(item{key: key})
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), got.value...), true, nil
}

func (e *Engine) Set(key, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tree.ReplaceOrInsert(item{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
	return nil
}

func (e *Engine) Delete(key []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tree.Delete(item{key: key})
	return nil
}

func (e *Engine) Scan(start, end []byte) (storage.Iterator, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var entries []storage.Entry
	visit := func(it item) bool {
		if end != nil && bytes.Compare(it.key, end) >= 0 {
			return false
		}
		entries = append(entries, storage.Entry{
			Key:   append([]byte(nil), it.key...),
			Value: append([]byte(nil), it.value...),
		})
		return true
	}
	if start == nil {
		e.tree.Ascend(visit)
	} else {
		e.tree.AscendGreaterOrEqual(item{key: start}, visit)
	}
	return newSliceIterator(entries), nil
}

func (e *Engine) Close() error { return nil }
