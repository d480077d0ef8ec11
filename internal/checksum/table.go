package checksum

import (
	"encoding/binary"
	"slices"

	"github.com/skyline93/rscache/internal/codec"
	"github.com/skyline93/rscache/internal/crypto"
	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/index"
)

// TableEntry describes the reference table of one index as announced to
// clients by the update protocol.
type TableEntry struct {
	CRC       uint32
	Revision  uint32
	Whirlpool []byte
}

// Table is the checksum table of a store, one entry per index starting at
// index 0. Indices without a reference table have a zero entry.
type Table struct {
	Entries []TableEntry
}

// NewTableEntry computes the entry for the raw container of a reference
// table archive (255, n).
func NewTableEntry(container []byte) (TableEntry, error) {
	ct, err := codec.Decode(container)
	if err != nil {
		return TableEntry{}, err
	}

	e := TableEntry{
		CRC:       Sum32(container),
		Whirlpool: Whirlpool(codec.TrimVersion(container)),
	}

	p := ct.Payload
	if len(p) < 1 {
		return TableEntry{}, errors.Wrap(errors.ErrMalformedReferenceTable, "empty reference table")
	}
	if p[0] >= 6 {
		if len(p) < 5 {
			return TableEntry{}, errors.Wrap(errors.ErrMalformedReferenceTable, "reference table too short for revision")
		}
		e.Revision = binary.BigEndian.Uint32(p[1:])
	}
	return e, nil
}

// Validate returns true if crcs lists exactly the CRCs of the table.
func (t *Table) Validate(crcs []uint32) bool {
	own := make([]uint32, len(t.Entries))
	for i, e := range t.Entries {
		own[i] = e.CRC
	}
	return slices.Equal(own, crcs)
}

// EncodeOSRS returns the table as sent by old school servers: an uncompressed
// container of crc and revision pairs.
func (t *Table) EncodeOSRS() ([]byte, error) {
	buf := make([]byte, 0, len(t.Entries)*8)
	for _, e := range t.Entries {
		buf = binary.BigEndian.AppendUint32(buf, e.CRC)
		buf = binary.BigEndian.AppendUint32(buf, e.Revision)
	}
	return codec.Encode(codec.None, buf, codec.Options{})
}

const rs3EntrySize = 4 + 4 + 4 + 4 + index.DigestSize

// EncodeRS3 returns the table as sent by newer servers: an entry count, per
// index crc, revision, two reserved words and the whirlpool digest, followed
// by the digest of all that, signed with key.
func (t *Table) EncodeRS3(key crypto.RSAKey) ([]byte, error) {
	if len(t.Entries) > 255 {
		return nil, errors.Errorf("%d entries do not fit into a checksum table", len(t.Entries))
	}

	buf := make([]byte, 1, 1+len(t.Entries)*rs3EntrySize)
	buf[0] = byte(len(t.Entries))
	for _, e := range t.Entries {
		buf = binary.BigEndian.AppendUint32(buf, e.CRC)
		buf = binary.BigEndian.AppendUint32(buf, e.Revision)
		buf = binary.BigEndian.AppendUint32(buf, 0)
		buf = binary.BigEndian.AppendUint32(buf, 0)

		digest := e.Whirlpool
		if digest == nil {
			digest = make([]byte, index.DigestSize)
		}
		buf = append(buf, digest...)
	}

	block := append([]byte{0}, Whirlpool(buf)...)
	sig, err := key.Apply(block)
	if err != nil {
		return nil, errors.Wrap(err, "sign")
	}

	return append(buf, sig...), nil
}
