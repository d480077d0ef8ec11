package sector

import (
	"math"

	"github.com/skyline93/rscache/internal/backend"
	"github.com/skyline93/rscache/internal/errors"

	log "github.com/sirupsen/logrus"
)

// Reader reads sectors and sector chains from a data file.
type Reader struct {
	be   backend.Backend
	mode Mode
}

// NewReader returns a Reader on be. mode decides the sector layout of every
// chain.
func NewReader(be backend.Backend, mode Mode) *Reader {
	return &Reader{be: be, mode: mode}
}

// Count returns the number of sectors in the data file. A trailing partial
// sector counts.
func (r *Reader) Count() uint32 {
	return uint32((r.be.Size() + Size - 1) / Size)
}

// ReadSector reads the header and the first n payload bytes of sector number.
// n is clamped to the payload size of the layout.
func (r *Reader) ReadSector(number uint32, l Layout, n int) (Header, []byte, error) {
	if n > l.DataSize() {
		n = l.DataSize()
	}

	buf := make([]byte, l.HeaderSize()+n)
	_, err := backend.ReadAt(r.be, int64(number)*Size, buf)
	if err != nil {
		return Header{}, nil, errors.Wrapf(err, "sector %d", number)
	}

	return ParseHeader(l, buf), buf[l.HeaderSize():], nil
}

// Assemble follows the chain starting at sector start and returns exactly
// length bytes of the archive's container.
func (r *Reader) Assemble(index uint8, archive uint32, start, length uint32) ([]byte, error) {
	l := r.mode.Layout(archive)
	count := r.Count()

	log.Debugf("assemble %d/%d from sector %d, %d bytes, %v layout", index, archive, start, length, l)

	// a chain visits every sector at most once and numbers its chunks in 16 bits
	need := (uint64(length) + uint64(l.DataSize()) - 1) / uint64(l.DataSize())
	if need > uint64(count) || need > math.MaxUint16+1 {
		return nil, errors.Wrapf(errors.ErrCorruptedSector, "archive %d/%d: %d bytes need %d sectors, the data file has %d",
			index, archive, length, need, count)
	}

	buf := make([]byte, 0, length)
	cur := start
	for chunk := uint16(0); uint32(len(buf)) < length; chunk++ {
		switch {
		case cur == 0 && chunk == 0:
			return nil, errors.Wrapf(errors.ErrCorruptedSector, "archive %d/%d starts at reserved sector 0", index, archive)
		case cur == 0:
			return nil, errors.Wrapf(errors.ErrTruncatedArchive, "archive %d/%d: chain ends after %d of %d bytes",
				index, archive, len(buf), length)
		case cur >= count:
			return nil, errors.Wrapf(errors.ErrCorruptedSector, "archive %d/%d: sector %d is past the end of the data file (%d sectors)",
				index, archive, cur, count)
		}

		h, data, err := r.ReadSector(cur, l, int(length)-len(buf))
		if err != nil {
			return nil, err
		}

		err = h.Validate(index, archive, chunk)
		if err != nil {
			return nil, errors.Wrapf(err, "sector %d", cur)
		}

		buf = append(buf, data...)
		cur = h.Next
	}

	return buf, nil
}
