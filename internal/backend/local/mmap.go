package local

import (
	"sync"

	"golang.org/x/exp/mmap"

	"github.com/skyline93/rscache/internal/errors"
)

// mmapBackend serves sectors from a read-only mapping of the data file. The
// mapping does not depend on any open file handle. The file must not change
// while it is mapped.
type mmapBackend struct {
	r *mmap.ReaderAt

	closeOnce sync.Once
	closeErr  error
}

func openMmap(name string) (*mmapBackend, error) {
	r, err := mmap.Open(name)
	if err != nil {
		return nil, errors.IO(err, "Mmap")
	}
	return &mmapBackend{r: r}, nil
}

func (b *mmapBackend) ReadAt(p []byte, off int64) (int, error) {
	return b.r.ReadAt(p, off)
}

func (b *mmapBackend) Size() int64 {
	return int64(b.r.Len())
}

func (b *mmapBackend) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.r.Close()
	})
	return b.closeErr
}
