package sector

import (
	"encoding/binary"
	"fmt"

	"github.com/skyline93/rscache/internal/errors"
)

// Size is the length of one physical sector in the data file.
const Size = 520

// Layout selects the header format of a sector.
type Layout uint8

const (
	// Normal headers carry a 16 bit archive id.
	Normal Layout = iota
	// Expanded headers carry a 32 bit archive id and are used for archives
	// with an id above 0xffff.
	Expanded
)

func (l Layout) String() string {
	switch l {
	case Normal:
		return "normal"
	case Expanded:
		return "expanded"
	}
	return fmt.Sprintf("<layout %d>", uint8(l))
}

// HeaderSize returns the number of header bytes at the start of a sector.
func (l Layout) HeaderSize() int {
	if l == Expanded {
		return 10
	}
	return 8
}

// DataSize returns the number of payload bytes a sector carries.
func (l Layout) DataSize() int {
	return Size - l.HeaderSize()
}

// LayoutFor returns the layout the writer used for the chain of archive.
func LayoutFor(archive uint32) Layout {
	if archive > 0xffff {
		return Expanded
	}
	return Normal
}

// Mode decides how the layout of a chain is chosen.
type Mode uint8

const (
	// Auto picks the layout from the archive id.
	Auto Mode = iota
	// ForceNormal and ForceExpanded use one layout for every chain.
	ForceNormal
	ForceExpanded
)

// ParseMode parses the name of a layout mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return Auto, nil
	case "normal":
		return ForceNormal, nil
	case "expanded":
		return ForceExpanded, nil
	}
	return Auto, errors.Errorf("unknown sector layout %q", s)
}

func (m Mode) String() string {
	switch m {
	case ForceNormal:
		return "normal"
	case ForceExpanded:
		return "expanded"
	}
	return "auto"
}

// Layout returns the layout used for the chain of archive.
func (m Mode) Layout(archive uint32) Layout {
	switch m {
	case ForceNormal:
		return Normal
	case ForceExpanded:
		return Expanded
	}
	return LayoutFor(archive)
}

// Header is the decoded header of a sector.
type Header struct {
	Archive uint32
	Chunk   uint16
	Next    uint32
	Index   uint8
}

func (h Header) String() string {
	return fmt.Sprintf("<sector %d/%d chunk %d next %d>", h.Index, h.Archive, h.Chunk, h.Next)
}

// ParseHeader decodes the header at the start of buf.
func ParseHeader(l Layout, buf []byte) Header {
	var h Header
	if l == Expanded {
		h.Archive = binary.BigEndian.Uint32(buf)
		buf = buf[4:]
	} else {
		h.Archive = uint32(binary.BigEndian.Uint16(buf))
		buf = buf[2:]
	}
	h.Chunk = binary.BigEndian.Uint16(buf)
	h.Next = uint32(buf[2])<<16 | uint32(buf[3])<<8 | uint32(buf[4])
	h.Index = buf[5]
	return h
}

// PutHeader encodes h into the start of buf.
func PutHeader(l Layout, buf []byte, h Header) {
	if l == Expanded {
		binary.BigEndian.PutUint32(buf, h.Archive)
		buf = buf[4:]
	} else {
		binary.BigEndian.PutUint16(buf, uint16(h.Archive))
		buf = buf[2:]
	}
	binary.BigEndian.PutUint16(buf, h.Chunk)
	buf[2] = byte(h.Next >> 16)
	buf[3] = byte(h.Next >> 8)
	buf[4] = byte(h.Next)
	buf[5] = h.Index
}

// Validate checks that the sector belongs to chunk of the given archive.
func (h Header) Validate(index uint8, archive uint32, chunk uint16) error {
	if h.Index != index || h.Archive != archive || h.Chunk != chunk {
		return errors.Wrapf(errors.ErrCorruptedSector, "%v does not belong to %d/%d chunk %d",
			h, index, archive, chunk)
	}
	return nil
}
