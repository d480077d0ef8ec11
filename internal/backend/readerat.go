package backend

import (
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/skyline93/rscache/internal/errors"
)

// ReadAt fills p from the data file starting at offset. Anything short of
// len(p) bytes is reported as an i/o error: the store never changes while it
// is open, so a short read means the file is truncated.
func ReadAt(be Backend, offset int64, p []byte) (n int, err error) {
	log.Debugf("ReadAt at %v, len %v", offset, len(p))

	if offset < 0 || offset+int64(len(p)) > be.Size() {
		return 0, errors.IO(io.ErrUnexpectedEOF, "ReadAt")
	}

	n, err = be.ReadAt(p, offset)
	if n == len(p) {
		// io.ReaderAt may return io.EOF together with a complete read
		return n, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}

	return n, errors.IO(err, "ReadAt")
}
