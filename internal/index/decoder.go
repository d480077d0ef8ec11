package index

import (
	"encoding/binary"

	"github.com/skyline93/rscache/internal/errors"
)

// decoder reads big endian fields from a reference table. The first read past
// the end sets err, later reads return zero values.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.off < n {
		d.err = errors.Wrapf(errors.ErrMalformedReferenceTable, "need %d bytes at offset %d, have %d",
			n, d.off, len(d.buf)-d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (d *decoder) u32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// bigSmart reads a u16 when the high bit of the next byte is clear, and a u32
// with the high bit masked off otherwise.
func (d *decoder) bigSmart() uint32 {
	if d.err != nil {
		return 0
	}
	if d.off < len(d.buf) && d.buf[d.off]&0x80 == 0 {
		return uint32(d.u16())
	}
	return d.u32() & 0x7fffffff
}

func (d *decoder) digest() []byte {
	b := d.take(DigestSize)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

// done fails unless the whole buffer has been consumed.
func (d *decoder) done() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return errors.Wrapf(errors.ErrMalformedReferenceTable, "%d trailing bytes", len(d.buf)-d.off)
	}
	return nil
}
