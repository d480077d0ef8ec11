package codec

import (
	"encoding/binary"

	"github.com/skyline93/rscache/internal/errors"
)

// SplitGroup splits the payload of a grouped archive into its entryCount
// files. The payload ends with a chunk count byte preceded by a table of
// delta coded sizes, one per chunk and entry; a file is the concatenation of
// its pieces in all chunks. An archive with a single entry is not grouped.
func SplitGroup(payload []byte, entryCount int) ([][]byte, error) {
	if entryCount <= 1 {
		return [][]byte{append([]byte(nil), payload...)}, nil
	}
	if len(payload) == 0 {
		return nil, errors.Wrap(errors.ErrLengthMismatch, "empty group")
	}

	chunks := int(payload[len(payload)-1])
	tableLen := chunks * entryCount * 4
	if tableLen+1 > len(payload) {
		return nil, errors.Wrapf(errors.ErrLengthMismatch, "size table of %d chunks does not fit into %d bytes",
			chunks, len(payload))
	}
	table := payload[len(payload)-1-tableLen : len(payload)-1]
	data := payload[:len(payload)-1-tableLen]

	sizes := make([]int, chunks*entryCount)
	total := make([]int, entryCount)
	for c := 0; c < chunks; c++ {
		var size int32
		for e := 0; e < entryCount; e++ {
			size += int32(binary.BigEndian.Uint32(table[(c*entryCount+e)*4:]))
			if size < 0 {
				return nil, errors.Wrapf(errors.ErrLengthMismatch, "negative size for entry %d in chunk %d", e, c)
			}
			sizes[c*entryCount+e] = int(size)
			total[e] += int(size)
		}
	}

	files := make([][]byte, entryCount)
	for e := range files {
		files[e] = make([]byte, 0, total[e])
	}

	off := 0
	for c := 0; c < chunks; c++ {
		for e := 0; e < entryCount; e++ {
			n := sizes[c*entryCount+e]
			if off+n > len(data) {
				return nil, errors.Wrapf(errors.ErrLengthMismatch, "entry %d in chunk %d exceeds the group", e, c)
			}
			files[e] = append(files[e], data[off:off+n]...)
			off += n
		}
	}
	if off != len(data) {
		return nil, errors.Wrapf(errors.ErrLengthMismatch, "%d unused bytes in group", len(data)-off)
	}

	return files, nil
}
