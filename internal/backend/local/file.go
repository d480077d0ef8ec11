package local

import (
	"os"
	"sync"

	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/fs"
)

// fileBackend serves sectors through pread on a read-only file handle.
type fileBackend struct {
	f    *os.File
	size int64

	closeOnce sync.Once
	closeErr  error
}

func openFile(name string) (*fileBackend, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, errors.IO(err, "Open")
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.IO(err, "Stat")
	}
	if !fs.IsRegular(fi) {
		_ = f.Close()
		return nil, errors.Errorf("%v is not a regular file", name)
	}

	adviseRandom(f)

	return &fileBackend{f: f, size: fi.Size()}, nil
}

func (b *fileBackend) ReadAt(p []byte, off int64) (int, error) {
	return b.f.ReadAt(p, off)
}

func (b *fileBackend) Size() int64 {
	return b.size
}

func (b *fileBackend) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.f.Close()
	})
	return b.closeErr
}
