package memory

import "github.com/embedb/embedb/pkg/storage"

// sliceIterator implements storage.Iterator by walking a pre-materialized,
// ascending-ordered slice from both ends. Scan collects the whole range
// from the tree before returning it, the same approach the disk
// engine's iterator takes.
type sliceIterator struct {
	entries []storage.Entry
	lo, hi  int // [lo, hi) is the remaining range
}

func newSliceIterator(entries []storage.Entry) *sliceIterator {
	return &sliceIterator{entries: entries, lo: 0, hi: len(entries)}
}

func (s *sliceIterator) Next() ([]byte, []byte, bool, error) {
	if s.lo >= s.hi {
		return nil, nil, false, nil
	}
	e := s.entries[s.lo]
	s.lo++
	return e.Key, e.Value, true, nil
}

func (s *sliceIterator) Prev() ([]byte, []byte, bool, error) {
	if s.lo >= s.hi {
		return nil, nil, false, nil
	}
	s.hi--
	e := s.entries[s.hi]
	return e.Key, e.Value, true, nil
}

func (s *sliceIterator) Close() error { return nil }
