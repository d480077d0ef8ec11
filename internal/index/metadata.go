package index

import (
	"sort"

	"github.com/skyline93/rscache/internal/errors"
)

// DigestSize is the length of a whirlpool digest.
const DigestSize = 64

// Flags of an index metadata table.
const (
	FlagNamed     = 0x01
	FlagWhirlpool = 0x02
	FlagSizes     = 0x04
	FlagHash      = 0x08
)

// Metadata is the decoded reference table of one index, stored as archive
// (255, index) in split stores.
type Metadata struct {
	Protocol uint8
	Revision uint32
	Flags    uint8

	// Archives is sorted by id.
	Archives []ArchiveMetadata
}

// ArchiveMetadata describes one archive of an index.
type ArchiveMetadata struct {
	ID       uint32
	NameHash int32
	CRC      uint32
	Hash     uint32

	// Whirlpool is nil unless the table carries digests.
	Whirlpool []byte

	CompressedSize uint32
	Size           uint32

	Version uint32
	Entries []EntryMetadata
}

// EntryMetadata describes one file inside a grouped archive.
type EntryMetadata struct {
	ID       uint32
	NameHash int32
}

// Archive returns the metadata of archive id.
func (m *Metadata) Archive(id uint32) (*ArchiveMetadata, bool) {
	i := sort.Search(len(m.Archives), func(i int) bool { return m.Archives[i].ID >= id })
	if i < len(m.Archives) && m.Archives[i].ID == id {
		return &m.Archives[i], true
	}
	return nil, false
}

// ByName returns the first archive whose name hash is hash.
func (m *Metadata) ByName(hash int32) (*ArchiveMetadata, bool) {
	if m.Flags&FlagNamed == 0 {
		return nil, false
	}
	for i := range m.Archives {
		if m.Archives[i].NameHash == hash {
			return &m.Archives[i], true
		}
	}
	return nil, false
}

// NameHash returns the djb2 style hash the client uses for archive names.
func NameHash(name string) int32 {
	var h int32
	for i := 0; i < len(name); i++ {
		h = int32(name[i]) + ((h << 5) - h)
	}
	return h
}

// ParseMetadata decodes an index metadata table. The whole buffer must be
// consumed.
func ParseMetadata(buf []byte) (*Metadata, error) {
	d := &decoder{buf: buf}
	m := &Metadata{}

	m.Protocol = d.u8()
	if d.err == nil && (m.Protocol < 5 || m.Protocol > 7) {
		return nil, errors.Wrapf(errors.ErrMalformedReferenceTable, "unknown protocol %d", m.Protocol)
	}
	if m.Protocol >= 6 {
		m.Revision = d.u32()
	}
	m.Flags = d.u8()

	// smart reads a count or id in the width of the protocol
	smart := func() uint32 {
		if m.Protocol >= 7 {
			return d.bigSmart()
		}
		return uint32(d.u16())
	}

	count := int(smart())
	if d.err != nil {
		return nil, d.err
	}
	// every archive needs at least crc, version and entry count
	if count*10 > d.remaining() {
		return nil, errors.Wrapf(errors.ErrMalformedReferenceTable, "%d archives do not fit into %d bytes", count, d.remaining())
	}

	m.Archives = make([]ArchiveMetadata, count)
	var id uint32
	for i := range m.Archives {
		delta := smart()
		if i > 0 && delta == 0 {
			return nil, errors.Wrapf(errors.ErrMalformedReferenceTable, "duplicate archive id %d", id)
		}
		id += delta
		m.Archives[i].ID = id
	}
	if m.Flags&FlagNamed != 0 {
		for i := range m.Archives {
			m.Archives[i].NameHash = int32(d.u32())
		}
	}
	for i := range m.Archives {
		m.Archives[i].CRC = d.u32()
	}
	if m.Flags&FlagHash != 0 {
		for i := range m.Archives {
			m.Archives[i].Hash = d.u32()
		}
	}
	if m.Flags&FlagWhirlpool != 0 {
		for i := range m.Archives {
			m.Archives[i].Whirlpool = d.digest()
		}
	}
	if m.Flags&FlagSizes != 0 {
		for i := range m.Archives {
			m.Archives[i].CompressedSize = d.u32()
			m.Archives[i].Size = d.u32()
		}
	}
	for i := range m.Archives {
		m.Archives[i].Version = d.u32()
	}

	counts := make([]int, count)
	for i := range counts {
		counts[i] = int(smart())
	}
	for i := range m.Archives {
		if d.err != nil {
			return nil, d.err
		}
		if counts[i] > d.remaining() {
			return nil, errors.Wrapf(errors.ErrMalformedReferenceTable, "archive %d: %d entries do not fit into %d bytes",
				m.Archives[i].ID, counts[i], d.remaining())
		}

		entries := make([]EntryMetadata, counts[i])
		var eid uint32
		for j := range entries {
			eid += smart()
			entries[j].ID = eid
		}
		m.Archives[i].Entries = entries
	}
	if m.Flags&FlagNamed != 0 {
		for i := range m.Archives {
			for j := range m.Archives[i].Entries {
				m.Archives[i].Entries[j].NameHash = int32(d.u32())
			}
		}
	}

	if err := d.done(); err != nil {
		return nil, err
	}
	return m, nil
}
