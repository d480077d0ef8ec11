package index

import (
	"github.com/skyline93/rscache/internal/errors"
)

// ParseIndexFile builds the index id from the contents of its idx file, a
// sequence of references where record i belongs to archive i. All-zero records
// mark absent archives. The returned index is not finalized.
func ParseIndexFile(id uint8, buf []byte) (*Index, error) {
	if len(buf)%RefSize != 0 {
		return nil, errors.Wrapf(errors.ErrMalformedReferenceTable, "idx%d: length %d is not a multiple of %d",
			id, len(buf), RefSize)
	}

	idx := New(id)
	for i := 0; i < len(buf)/RefSize; i++ {
		ref := ParseArchiveRef(buf[i*RefSize:])
		if ref.IsNull() {
			continue
		}
		if err := idx.Add(uint32(i), Entry{Ref: ref}); err != nil {
			return nil, err
		}
	}
	return idx, nil
}
