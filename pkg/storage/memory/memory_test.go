package memory

import (
	"testing"

	"github.com/embedb/embedb/pkg/storage"
	"github.com/embedb/embedb/pkg/storage/storagetest"
)

func TestMemoryEngineConformance(t *testing.T) {
	storagetest.Run(t, func() storage.Engine { return New() })
}
