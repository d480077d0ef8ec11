package repository

import (
	"bytes"

	"github.com/skyline93/rscache/internal/backend/layout"
	"github.com/skyline93/rscache/internal/checksum"
	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/huffman"
	"github.com/skyline93/rscache/internal/index"
)

const (
	// BinaryIndex holds miscellaneous named blobs, among them the huffman
	// code lengths.
	BinaryIndex = 10

	huffmanName = "huffman"
)

// IndexMetadata returns the reference table of index id. It fails with
// ErrArchiveNotFound if the store has none for the index.
func (r *Repository) IndexMetadata(id uint8) (*index.Metadata, error) {
	idx, err := r.idx.Lookup(id)
	if err != nil {
		return nil, err
	}
	meta := idx.Metadata()
	if meta == nil {
		return nil, errors.Wrapf(errors.ErrArchiveNotFound, "index %d has no reference table", id)
	}
	return meta, nil
}

// Metadata returns what the reference table of index id records about archive.
func (r *Repository) Metadata(id uint8, archive uint32) (*index.ArchiveMetadata, error) {
	meta, err := r.IndexMetadata(id)
	if err != nil {
		return nil, err
	}
	am, ok := meta.Archive(archive)
	if !ok {
		return nil, errors.Wrapf(errors.ErrArchiveNotFound, "no metadata for archive %d/%d", id, archive)
	}
	return am, nil
}

// ArchiveByName returns the id of the archive called name in index id.
func (r *Repository) ArchiveByName(id uint8, name string) (uint32, error) {
	meta, err := r.IndexMetadata(id)
	if err != nil {
		return 0, err
	}
	am, ok := meta.ByName(index.NameHash(name))
	if !ok {
		return 0, errors.Wrapf(errors.ErrArchiveNotFound, "no archive named %q in index %d", name, id)
	}
	return am.ID, nil
}

// ReadByName returns the decoded payload of the archive called name.
func (r *Repository) ReadByName(id uint8, name string) ([]byte, error) {
	archive, err := r.ArchiveByName(id, name)
	if err != nil {
		return nil, err
	}
	return r.Read(id, archive)
}

// HuffmanTable loads the chat compression table from the code lengths
// stored in the binary index.
func (r *Repository) HuffmanTable() (*huffman.Table, error) {
	buf, err := r.ReadByName(BinaryIndex, huffmanName)
	if err != nil {
		return nil, err
	}
	return huffman.FromLengths(buf)
}

// ChecksumTable describes the reference tables of all indices below the
// highest index id, as announced by the update protocol. Unified stores have
// no per-index tables; their entries only carry the recorded index digest.
func (r *Repository) ChecksumTable() (*checksum.Table, error) {
	tables, err := r.idx.Lookup(layout.ReferenceTable)
	if err != nil {
		return nil, err
	}

	var count int
	for _, id := range r.idx.IDs() {
		if id != layout.ReferenceTable {
			count = int(id) + 1
		}
	}

	t := &checksum.Table{Entries: make([]checksum.TableEntry, count)}
	for id := 0; id < count; id++ {
		if !tables.Has(uint32(id)) {
			if idx, err := r.idx.Lookup(uint8(id)); err == nil {
				t.Entries[id].Whirlpool = idx.Digest()
			}
			continue
		}

		raw, err := r.ReadRaw(layout.ReferenceTable, uint32(id))
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			continue
		}
		t.Entries[id], err = checksum.NewTableEntry(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "reference table of index %d", id)
		}
	}
	return t, nil
}

// VerifyIndex compares the digest recorded for a whole index with the digest
// of its containers. Indices without a recorded digest always pass.
func (r *Repository) VerifyIndex(id uint8) error {
	idx, err := r.idx.Lookup(id)
	if err != nil {
		return err
	}
	want := idx.Digest()
	if want == nil {
		return nil
	}

	h := checksum.NewIndexHasher()
	for archive := range idx.ArchiveIDs() {
		raw, err := r.ReadRaw(id, archive)
		if err != nil {
			return err
		}
		h.Add(raw)
	}

	if got := h.Sum(); !bytes.Equal(got, want) {
		return errors.WithStack(&errors.ChecksumMismatchError{
			Index:    id,
			Scheme:   "index whirlpool",
			Expected: want,
			Actual:   got,
		})
	}
	return nil
}
