package cachetest

import (
	"encoding/binary"

	"github.com/skyline93/rscache/internal/index"
)

// EncodeMetadata serializes m in the index metadata format. Archives must be
// sorted by id.
func EncodeMetadata(m *index.Metadata) []byte {
	var buf []byte
	smart := func(v uint32) {
		switch {
		case m.Protocol < 7:
			buf = binary.BigEndian.AppendUint16(buf, uint16(v))
		case v < 0x8000:
			buf = binary.BigEndian.AppendUint16(buf, uint16(v))
		default:
			buf = binary.BigEndian.AppendUint32(buf, v|0x80000000)
		}
	}
	u32 := func(v uint32) {
		buf = binary.BigEndian.AppendUint32(buf, v)
	}

	buf = append(buf, m.Protocol)
	if m.Protocol >= 6 {
		u32(m.Revision)
	}
	buf = append(buf, m.Flags)

	smart(uint32(len(m.Archives)))
	var last uint32
	for _, a := range m.Archives {
		smart(a.ID - last)
		last = a.ID
	}
	if m.Flags&index.FlagNamed != 0 {
		for _, a := range m.Archives {
			u32(uint32(a.NameHash))
		}
	}
	for _, a := range m.Archives {
		u32(a.CRC)
	}
	if m.Flags&index.FlagHash != 0 {
		for _, a := range m.Archives {
			u32(a.Hash)
		}
	}
	if m.Flags&index.FlagWhirlpool != 0 {
		for _, a := range m.Archives {
			w := make([]byte, index.DigestSize)
			copy(w, a.Whirlpool)
			buf = append(buf, w...)
		}
	}
	if m.Flags&index.FlagSizes != 0 {
		for _, a := range m.Archives {
			u32(a.CompressedSize)
			u32(a.Size)
		}
	}
	for _, a := range m.Archives {
		u32(a.Version)
	}
	for _, a := range m.Archives {
		smart(uint32(len(a.Entries)))
	}
	for _, a := range m.Archives {
		var last uint32
		for _, e := range a.Entries {
			smart(e.ID - last)
			last = e.ID
		}
	}
	if m.Flags&index.FlagNamed != 0 {
		for _, a := range m.Archives {
			for _, e := range a.Entries {
				u32(uint32(e.NameHash))
			}
		}
	}
	return buf
}

// TableIndex is one index of a unified reference table.
type TableIndex struct {
	ID      uint8
	Digest  []byte
	Entries map[uint32]index.Entry
}

// EncodeReferenceTable serializes a unified reference table. Indices must be
// sorted by id.
func EncodeReferenceTable(flags uint8, indices []TableIndex) []byte {
	buf := []byte{index.ReferenceTableFormat, flags, byte(len(indices))}

	for _, ti := range indices {
		ids := sortedIDs(ti.Entries)

		block := binary.BigEndian.AppendUint32(nil, uint32(len(ids)))
		if flags&index.TableWhirlpool != 0 {
			d := make([]byte, index.DigestSize)
			copy(d, ti.Digest)
			block = append(block, d...)
		}
		for _, id := range ids {
			e := ti.Entries[id]
			block = binary.BigEndian.AppendUint32(block, id)
			ref := make([]byte, index.RefSize)
			index.PutArchiveRef(ref, e.Ref)
			block = append(block, ref...)
			if flags&index.TableCRC != 0 {
				block = binary.BigEndian.AppendUint32(block, e.CRC)
			}
			if flags&index.TableWhirlpool != 0 {
				d := make([]byte, index.DigestSize)
				copy(d, e.Whirlpool)
				block = append(block, d...)
			}
		}

		buf = append(buf, ti.ID)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(block)))
		buf = append(buf, block...)
	}
	return buf
}
