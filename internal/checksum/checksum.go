package checksum

import (
	"bytes"
	"encoding/binary"
	"hash"
	"hash/crc32"

	"github.com/jzelinskie/whirlpool"
	log "github.com/sirupsen/logrus"

	"github.com/skyline93/rscache/internal/codec"
	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/index"
)

// Mode selects how much checking a read does.
type Mode uint8

const (
	// Off skips all checks.
	Off Mode = iota
	// CRC compares the recorded CRC-32 of each container.
	CRC
	// Digest additionally compares recorded whirlpool digests.
	Digest
)

// ParseMode returns the mode named s.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "off", "none":
		return Off, nil
	case "", "crc":
		return CRC, nil
	case "digest", "whirlpool":
		return Digest, nil
	}
	return Off, errors.Errorf("unknown verify mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case Off:
		return "off"
	case CRC:
		return "crc"
	case Digest:
		return "digest"
	}
	return "<unknown>"
}

// Sum32 returns the CRC-32 of a container without its version trailer.
func Sum32(container []byte) uint32 {
	return crc32.ChecksumIEEE(codec.TrimVersion(container))
}

// Whirlpool returns the whirlpool digest of buf.
func Whirlpool(buf []byte) []byte {
	h := whirlpool.New()
	_, _ = h.Write(buf)
	return h.Sum(nil)
}

// Verify checks the raw container of archive against the checksums recorded
// in e. Checksums the store does not record are not checked.
func Verify(mode Mode, idx uint8, archive uint32, e index.Entry, container []byte) error {
	if mode == Off {
		return nil
	}

	if e.HasCRC {
		actual := Sum32(container)
		if actual != e.CRC {
			log.Debugf("crc mismatch in %d/%d: %08x != %08x", idx, archive, actual, e.CRC)
			return errors.WithStack(&errors.ChecksumMismatchError{
				Index:    idx,
				Archive:  archive,
				Scheme:   "crc32",
				Expected: binary.BigEndian.AppendUint32(nil, e.CRC),
				Actual:   binary.BigEndian.AppendUint32(nil, actual),
			})
		}
	}

	if mode == Digest && e.Whirlpool != nil {
		actual := Whirlpool(codec.TrimVersion(container))
		if !bytes.Equal(actual, e.Whirlpool) {
			return errors.WithStack(&errors.ChecksumMismatchError{
				Index:    idx,
				Archive:  archive,
				Scheme:   "whirlpool",
				Expected: e.Whirlpool,
				Actual:   actual,
			})
		}
	}

	return nil
}

// IndexHasher computes the digest of a whole index from the containers of
// its archives, added in ascending archive order.
type IndexHasher struct {
	h hash.Hash
}

// NewIndexHasher returns an empty IndexHasher.
func NewIndexHasher() *IndexHasher {
	return &IndexHasher{h: whirlpool.New()}
}

// Add feeds the next container.
func (ih *IndexHasher) Add(container []byte) {
	_, _ = ih.h.Write(codec.TrimVersion(container))
}

// Sum returns the digest of all containers added so far.
func (ih *IndexHasher) Sum() []byte {
	return ih.h.Sum(nil)
}
