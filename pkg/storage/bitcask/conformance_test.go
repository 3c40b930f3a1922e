package bitcask

import (
	"path/filepath"
	"testing"

	"github.com/embedb/embedb/pkg/storage"
	"github.com/embedb/embedb/pkg/storage/storagetest"
)

func TestBitcaskEngineConformance(t *testing.T) {
	n := 0
	storagetest.Run(t, func() storage.Engine {
		n++
		dir := t.TempDir()
		e, err := Open(filepath.Join(dir, "data.db"))
		if err != nil {
			t.Fatal(err)
		}
		return e
	})
}
