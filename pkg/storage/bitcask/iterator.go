package bitcask

import "github.com/embedb/embedb/pkg/storage"

// sliceIterator serves a pre-materialized, ascending-ordered scan
// result from both ends; the KeyDir scan already has the whole range
// in hand once values are read off disk; see
// pkg/storage/memory's analogous type for the in-memory engine.
type sliceIterator struct {
	entries []storage.Entry
	lo, hi  int
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
