// Package mvcc implements the versioned-transaction layer that wraps a
// storage.Engine (SPEC_FULL.md §4.3): begin/commit/rollback,
// version-tagged writes, and snapshot-prefix scans. The reference
// implementation's own MVCC module was not among the retrieved source
// files (only referenced by its call sites in sql/engine/kv.rs), so
// this package implements the documented contract using the
// well-known toyDB-style key scheme recorded as an explicit design
// decision in SPEC_FULL.md §D.3: snapshot isolation via a NextVersion
// counter, a TxnActive(version) marker set, TxnWrite(version,key)
// rollback records, and Version(key,version)-suffixed storage.
package mvcc

import (
	"sync"

	"github.com/embedb/embedb/pkg/sqlerr"
	"github.com/embedb/embedb/pkg/storage"
)

// Engine wraps a storage.Engine with versioned transaction semantics.
type Engine struct {
	mu    sync.Mutex
	store storage.Engine
}

// New wraps store with MVCC transaction support.
func New(store storage.Engine) *Engine {
	return &Engine{store: store}
}

// Close closes the underlying store.
func (e *Engine) Close() error { return e.store.Close() }

func (e *Engine) readNextVersion() (uint64, error) {
	v, ok, err := e.store.Get(nextVersionKey())
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	return decodeVersion(v)
}

func (e *Engine) activeVersions() (map[uint64]bool, error) {
	start, end := txnActivePrefix(), incrementPrefix(txnActivePrefix())
	it, err := e.store.Scan(start, end)
	if err != nil {
		return nil, err
	}
	entries, err := storage.Collect(it)
	if err != nil {
		return nil, err
	}
	active := make(map[uint64]bool, len(entries))
	for _, ent := range entries {
		v, err := decodeVersion(ent.Key[1:])
		if err != nil {
			return nil, err
		}
		active[v] = true
	}
	return active, nil
}

func incrementPrefix(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// Begin starts a new transaction with a fresh, monotonically
// increasing version, snapshotting the set of currently-active
// transaction versions so concurrent writers remain invisible to it
// even if they later commit (SPEC_FULL.md §D.3).
func (e *Engine) Begin() (*Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	version, err := e.readNextVersion()
	if err != nil {
		return nil, err
	}
	active, err := e.activeVersions()
	if err != nil {
		return nil, err
	}
	if err := e.store.Set(nextVersionKey(), encodeVersion(version+1)); err != nil {
		return nil, err
	}
	if err := e.store.Set(txnActiveKey(version), []byte{1}); err != nil {
		return nil, err
	}
	return &Transaction{engine: e, version: version, activeAtStart: active}, nil
}

// Transaction is a single MVCC-versioned unit of work.
type Transaction struct {
	engine        *Engine
	version       uint64
	activeAtStart map[uint64]bool
	done          bool
}

// Version returns the transaction's version number.
func (t *Transaction) Version() uint64 { return t.version }

func (t *Transaction) visible(version uint64) bool {
	if version == t.version {
		return true
	}
	if version > t.version {
		return false
	}
	return !t.activeAtStart[version]
}

const (
	markerTombstone byte = 0x00
	markerValue     byte = 0x01
)

// Get returns the most recent version of key visible to this
// transaction (its own uncommitted writes, or the latest committed
// write not concurrent with its snapshot).
func (t *Transaction) Get(key []byte) ([]byte, bool, error) {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	return t.getLocked(key)
}

func (t *Transaction) getLocked(key []byte) ([]byte, bool, error) {
	start, end := exactKeyRange(key)
	it, err := t.engine.store.Scan(start, end)
	if err != nil {
		return nil, false, err
	}
	defer it.Close()
	// Walk from the newest version down, since the visible write (if
	// any) is always the highest visible version.
	for {
		k, v, ok, err := it.Prev()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		_, version, err := splitVersionKey(k)
		if err != nil {
			return nil, false, err
		}
		if !t.visible(version) {
			continue
		}
		if len(v) == 0 || v[0] == markerTombstone {
			return nil, false, nil
		}
		return append([]byte(nil), v[1:]...), true, nil
	}
}

// conflictCheck scans for any version of key at or above t.version
// other than one this same transaction already wrote — the write-write
// conflict condition from SPEC_FULL.md §D.3.
func (t *Transaction) conflictCheck(key []byte) error {
	lowerStart := versionKey(key, t.version)
	_, rangeEnd := exactKeyRange(key)
	it, err := t.engine.store.Scan(lowerStart, rangeEnd)
	if err != nil {
		return err
	}
	defer it.Close()
	for {
		k, _, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		_, version, err := splitVersionKey(k)
		if err != nil {
			return err
		}
		if version == t.version {
			continue
		}
		return sqlerr.Internalf("write-write conflict on key")
	}
}

func (t *Transaction) write(key, marker []byte) error {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	if err := t.conflictCheck(key); err != nil {
		return err
	}
	if err := t.engine.store.Set(versionKey(key, t.version), marker); err != nil {
		return err
	}
	return t.engine.store.Set(txnWriteKey(t.version, key), []byte{1})
}

// Set writes key=value within this transaction.
func (t *Transaction) Set(key, value []byte) error {
	marker := make([]byte, 0, len(value)+1)
	marker = append(marker, markerValue)
	marker = append(marker, value...)
	return t.write(key, marker)
}

// Delete tombstones key within this transaction.
func (t *Transaction) Delete(key []byte) error {
	return t.write(key, []byte{markerTombstone})
}

// ScanPrefix returns every visible {key, value} pair whose logical key
// starts with prefix, in ascending key order, skipping tombstones and
// invisible versions.
func (t *Transaction) ScanPrefix(prefix []byte) ([]storage.Entry, error) {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()

	start, end := scanKeyPrefix(prefix)
	it, err := t.engine.store.Scan(start, end)
	if err != nil {
		return nil, err
	}
	entries, err := storage.Collect(it)
	if err != nil {
		return nil, err
	}

	// Group by logical key, keep the highest visible version per key.
	type best struct {
		version uint64
		value   []byte
		hasVal  bool
	}
	order := make([][]byte, 0)
	byKey := make(map[string]*best)
	for _, ent := range entries {
		logicalKey, version, err := splitVersionKey(ent.Key)
		if err != nil {
			return nil, err
		}
		if !t.visible(version) {
			continue
		}
		sk := string(logicalKey)
		b, ok := byKey[sk]
		if !ok {
			b = &best{}
			byKey[sk] = b
			order = append(order, logicalKey)
		}
		if !ok || version >= b.version {
			b.version = version
			if len(ent.Value) > 0 && ent.Value[0] == markerValue {
				b.value = append([]byte(nil), ent.Value[1:]...)
				b.hasVal = true
			} else {
				b.hasVal = false
			}
		}
	}

	var out []storage.Entry
	for _, k := range order {
		b := byKey[string(k)]
		if b.hasVal {
			out = append(out, storage.Entry{Key: k, Value: b.value})
		}
	}
	return out, nil
}

// Commit finalizes the transaction, making its writes visible to
// future transactions whose snapshots include this version.
func (t *Transaction) Commit() error {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	if t.done {
		return nil
	}
	if err := t.engine.cleanupWrites(t.version, false); err != nil {
		return err
	}
	if err := t.engine.store.Delete(txnActiveKey(t.version)); err != nil {
		return err
	}
	t.done = true
	return nil
}

// Rollback discards the transaction's writes.
func (t *Transaction) Rollback() error {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	if t.done {
		return nil
	}
	if err := t.engine.cleanupWrites(t.version, true); err != nil {
		return err
	}
	if err := t.engine.store.Delete(txnActiveKey(t.version)); err != nil {
		return err
	}
	t.done = true
	return nil
}

// cleanupWrites deletes the TxnWrite(version,*) bookkeeping records;
// when undo is true it also deletes the Version(key,version) entries
// themselves, reverting the writes.
func (e *Engine) cleanupWrites(version uint64, undo bool) error {
	prefix := txnWritePrefix(version)
	end := incrementPrefix(prefix)
	it, err := e.store.Scan(prefix, end)
	if err != nil {
		return err
	}
	entries, err := storage.Collect(it)
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if undo {
			key, _, err := readEscapedKey(ent.Key[len(prefix):])
			if err != nil {
				return err
			}
			if err := e.store.Delete(versionKey(key, version)); err != nil {
				return err
			}
		}
		if err := e.store.Delete(ent.Key); err != nil {
			return err
		}
	}
	return nil
}
