package backend

import (
	"fmt"
	"os"

	"github.com/skyline93/rscache/internal/errors"
)

// IndexFiles gives access to the small per-index reference files of a split
// store. Missing files are reported with an error matching os.ErrNotExist.
type IndexFiles interface {
	ReadIndexFile(index uint8) ([]byte, error)
}

// MemIndexFiles keeps index files in memory, keyed by index id.
type MemIndexFiles map[uint8][]byte

func (m MemIndexFiles) ReadIndexFile(index uint8) ([]byte, error) {
	buf, ok := m[index]
	if !ok {
		err := &os.PathError{Op: "open", Path: fmt.Sprintf("idx%d", index), Err: os.ErrNotExist}
		return nil, errors.IO(err, "ReadIndexFile")
	}
	return buf, nil
}
