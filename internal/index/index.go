package index

import (
	"iter"
	"slices"
	"sync"

	"github.com/skyline93/rscache/internal/errors"
)

// Entry is everything an index records about one archive.
type Entry struct {
	Ref ArchiveRef

	// CRC is the CRC-32 of the container without its version trailer. It is
	// only meaningful when HasCRC is set.
	CRC    uint32
	HasCRC bool

	// Whirlpool is the digest of the container without its version trailer,
	// nil when the store does not record one.
	Whirlpool []byte
}

// Index maps archive ids of one index to their entries. It is filled while
// the store is opened and never changes after Finalize, so any number of
// goroutines may use a finalized index.
type Index struct {
	m       sync.Mutex
	id      uint8
	entries map[uint32]Entry
	ids     []uint32
	digest  []byte
	meta    *Metadata

	final bool
}

// New returns a new, empty index.
func New(id uint8) *Index {
	return &Index{
		id:      id,
		entries: make(map[uint32]Entry),
	}
}

// ID returns the index id.
func (idx *Index) ID() uint8 {
	return idx.id
}

// Add inserts an entry. Adding an archive twice or to a finalized index fails.
func (idx *Index) Add(archive uint32, e Entry) error {
	idx.m.Lock()
	defer idx.m.Unlock()

	if idx.final {
		panic("add to finalized index")
	}
	if _, ok := idx.entries[archive]; ok {
		return errors.Wrapf(errors.ErrMalformedReferenceTable, "index %d: duplicate archive %d", idx.id, archive)
	}
	idx.entries[archive] = e
	return nil
}

// SetDigest records the whirlpool digest of the whole index.
func (idx *Index) SetDigest(d []byte) {
	idx.m.Lock()
	defer idx.m.Unlock()

	if idx.final {
		panic("set digest of finalized index")
	}
	idx.digest = d
}

// SetMetadata attaches the decoded reference table of the index and copies
// the per-archive checksums it records into the entries.
func (idx *Index) SetMetadata(meta *Metadata) {
	idx.m.Lock()
	defer idx.m.Unlock()

	if idx.final {
		panic("set metadata of finalized index")
	}
	idx.meta = meta

	for i := range meta.Archives {
		am := &meta.Archives[i]
		e, ok := idx.entries[am.ID]
		if !ok {
			continue
		}
		e.CRC = am.CRC
		e.HasCRC = true
		if am.Whirlpool != nil {
			e.Whirlpool = am.Whirlpool
		}
		idx.entries[am.ID] = e
	}
}

// Finalize freezes the index.
func (idx *Index) Finalize() {
	idx.m.Lock()
	defer idx.m.Unlock()

	if idx.final {
		return
	}

	idx.ids = make([]uint32, 0, len(idx.entries))
	for id := range idx.entries {
		idx.ids = append(idx.ids, id)
	}
	slices.Sort(idx.ids)
	idx.final = true
}

// Final returns true once the index has been finalized.
func (idx *Index) Final() bool {
	idx.m.Lock()
	defer idx.m.Unlock()

	return idx.final
}

// Lookup returns the entry of archive.
func (idx *Index) Lookup(archive uint32) (Entry, error) {
	e, ok := idx.entries[archive]
	if !ok {
		return Entry{}, errors.Wrapf(errors.ErrArchiveNotFound, "archive %d/%d", idx.id, archive)
	}
	return e, nil
}

// Has returns true if the index contains archive.
func (idx *Index) Has(archive uint32) bool {
	_, ok := idx.entries[archive]
	return ok
}

// ArchiveIDs returns the ids of all archives in ascending order. The sequence
// can be iterated any number of times.
func (idx *Index) ArchiveIDs() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for _, id := range idx.ids {
			if !yield(id) {
				return
			}
		}
	}
}

// Len returns the number of archives.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Digest returns the recorded whirlpool digest of the whole index, or nil.
func (idx *Index) Digest() []byte {
	return idx.digest
}

// Metadata returns the decoded reference table of the index, or nil.
func (idx *Index) Metadata() *Metadata {
	return idx.meta
}
