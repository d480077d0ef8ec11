package index

import "fmt"

// RefSize is the length of an encoded ArchiveRef.
const RefSize = 6

// ArchiveRef locates the container of an archive in the data file: the first
// sector of its chain and the container length in bytes.
type ArchiveRef struct {
	Sector uint32
	Length uint32
}

func (r ArchiveRef) String() string {
	return fmt.Sprintf("<ref sector %d len %d>", r.Sector, r.Length)
}

// IsNull returns true for the all-zero reference of an absent archive.
func (r ArchiveRef) IsNull() bool {
	return r.Sector == 0 && r.Length == 0
}

// ParseArchiveRef decodes a reference from the first RefSize bytes of buf,
// laid out as [length u24][sector u24].
func ParseArchiveRef(buf []byte) ArchiveRef {
	_ = buf[RefSize-1]
	return ArchiveRef{
		Length: uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2]),
		Sector: uint32(buf[3])<<16 | uint32(buf[4])<<8 | uint32(buf[5]),
	}
}

// PutArchiveRef encodes r into the first RefSize bytes of buf.
func PutArchiveRef(buf []byte, r ArchiveRef) {
	_ = buf[RefSize-1]
	buf[0] = byte(r.Length >> 16)
	buf[1] = byte(r.Length >> 8)
	buf[2] = byte(r.Length)
	buf[3] = byte(r.Sector >> 16)
	buf[4] = byte(r.Sector >> 8)
	buf[5] = byte(r.Sector)
}
