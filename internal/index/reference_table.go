package index

import (
	"github.com/skyline93/rscache/internal/errors"
)

// ReferenceTableFormat is the only known version of the unified reference
// table.
const ReferenceTableFormat = 1

// Flags of the unified reference table.
const (
	TableCRC       = 0x01
	TableWhirlpool = 0x02
)

// ParseReferenceTable decodes the unified reference table into finalized
// indices. Every per-index block must be consumed exactly as declared, and so
// must the table as a whole.
func ParseReferenceTable(buf []byte) ([]*Index, error) {
	d := &decoder{buf: buf}

	format := d.u8()
	flags := d.u8()
	count := int(d.u8())
	if d.err != nil {
		return nil, d.err
	}
	if format != ReferenceTableFormat {
		return nil, errors.Wrapf(errors.ErrMalformedReferenceTable, "unknown format %d", format)
	}
	if flags&^(TableCRC|TableWhirlpool) != 0 {
		return nil, errors.Wrapf(errors.ErrMalformedReferenceTable, "unknown flags %#x", flags)
	}

	recordSize := 4 + RefSize
	if flags&TableCRC != 0 {
		recordSize += 4
	}
	if flags&TableWhirlpool != 0 {
		recordSize += DigestSize
	}

	indices := make([]*Index, 0, count)
	for i := 0; i < count; i++ {
		id := d.u8()
		blockLen := int(d.u32())
		block := d.take(blockLen)
		if d.err != nil {
			return nil, errors.Wrapf(d.err, "index block %d", i)
		}
		if id == 255 {
			return nil, errors.Wrap(errors.ErrMalformedReferenceTable, "index 255 listed in reference table")
		}
		if len(indices) > 0 && id <= indices[len(indices)-1].ID() {
			return nil, errors.Wrapf(errors.ErrMalformedReferenceTable, "index %d out of order", id)
		}

		idx, err := parseBlock(id, flags, recordSize, block)
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}

	if err := d.done(); err != nil {
		return nil, err
	}
	return indices, nil
}

func parseBlock(id uint8, flags uint8, recordSize int, block []byte) (*Index, error) {
	d := &decoder{buf: block}
	idx := New(id)

	records := int(d.u32())
	if flags&TableWhirlpool != 0 {
		idx.SetDigest(d.digest())
	}
	if d.err != nil {
		return nil, errors.Wrapf(d.err, "index %d", id)
	}
	if records*recordSize != d.remaining() {
		return nil, errors.Wrapf(errors.ErrMalformedReferenceTable, "index %d: %d records need %d bytes, block has %d",
			id, records, records*recordSize, d.remaining())
	}

	var last uint32
	for i := 0; i < records; i++ {
		archive := d.u32()
		if i > 0 && archive <= last {
			return nil, errors.Wrapf(errors.ErrMalformedReferenceTable, "index %d: archive %d out of order", id, archive)
		}
		last = archive

		e := Entry{Ref: ParseArchiveRef(d.take(RefSize))}
		if flags&TableCRC != 0 {
			e.CRC = d.u32()
			e.HasCRC = true
		}
		if flags&TableWhirlpool != 0 {
			e.Whirlpool = d.digest()
		}

		if err := idx.Add(archive, e); err != nil {
			return nil, err
		}
	}

	if err := d.done(); err != nil {
		return nil, errors.Wrapf(err, "index %d", id)
	}
	idx.Finalize()
	return idx, nil
}
