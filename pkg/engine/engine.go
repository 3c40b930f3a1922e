// Package engine ties the storage, MVCC, and SQL layers together into
// the single entry point embedding applications use (SPEC_FULL.md §A),
// grounded on original_source/src/sql/engine/mod.rs's Engine/Session
// split and adapted to the teacher's jsonconfig.Obj-driven
// construction idiom (camlistore/perkeep's blobserver storage
// constructors take the same shape of config object).
package engine

import (
	"github.com/embedb/embedb/pkg/jsonconfig"
	"github.com/embedb/embedb/pkg/mvcc"
	"github.com/embedb/embedb/pkg/sqlerr"
	"github.com/embedb/embedb/pkg/storage"
	"github.com/embedb/embedb/pkg/storage/bitcask"
	"github.com/embedb/embedb/pkg/storage/memory"
)

// Engine is the top-level handle on one database: a storage.Engine
// wrapped in MVCC transaction support.
type Engine struct {
	store storage.Engine
	mvcc  *mvcc.Engine
}

// Open builds an Engine from a jsonconfig.Obj. The required "storage"
// key selects the backend:
//
//	{"storage": "bitcask", "path": "/var/lib/embedb/data"}
//	{"storage": "memory"}
//
// mirroring the shape of a camlistore/perkeep storage config block.
func Open(cfg jsonconfig.Obj) (*Engine, error) {
	kind := cfg.RequiredString("storage")
	var path string
	if kind == "bitcask" {
		path = cfg.RequiredString("path")
	}
	if err := cfg.Validate(); err != nil {
		return nil, sqlerr.Wrap(sqlerr.Internal, err, "invalid engine configuration")
	}

	var store storage.Engine
	switch kind {
	case "bitcask":
		e, err := bitcask.Open(path)
		if err != nil {
			return nil, err
		}
		store = e
	case "memory":
		store = memory.New()
	default:
		return nil, sqlerr.Internalf("unknown storage kind %q", kind)
	}
	return &Engine{store: store, mvcc: mvcc.New(store)}, nil
}

// NewSession starts a fresh Session with no open transaction.
func (e *Engine) NewSession() *Session {
	return &Session{engine: e}
}

// Compact runs foreground compaction on the underlying storage engine,
// if it supports it (only bitcask.Engine does; memory.Engine is a
// no-op since it has no append-only log to reclaim).
func (e *Engine) Compact() error {
	if c, ok := e.store.(interface{ Compact() error }); ok {
		return c.Compact()
	}
	return nil
}

// Close releases the underlying storage engine (its file lock, open
// file descriptor, etc).
func (e *Engine) Close() error { return e.store.Close() }
