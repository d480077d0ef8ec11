package repository

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/skyline93/rscache/internal/backend"
	"github.com/skyline93/rscache/internal/backend/layout"
	"github.com/skyline93/rscache/internal/codec"
	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/index"
)

// malformed reports a failure to load a reference table. Physical read errors
// keep their kind, everything else means the table cannot be trusted.
func malformed(err error, format string, args ...interface{}) error {
	if errors.Is(err, errors.ErrIO) || errors.Is(err, errors.ErrMalformedReferenceTable) {
		return errors.Wrapf(err, format, args...)
	}
	return errors.Wrapf(errors.ErrMalformedReferenceTable, format+": %v", append(args, err)...)
}

// readTable assembles and decodes a reference table archive.
func (r *Repository) readTable(id uint32, ref index.ArchiveRef) ([]byte, error) {
	raw, err := r.sectors.Assemble(layout.ReferenceTable, id, ref.Sector, ref.Length)
	if err != nil {
		return nil, err
	}
	ct, err := codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	return ct.Payload, nil
}

// loadSplit builds the indices of a store with idx files. idx255 lists the
// reference table of every index, the idxN files hold the archive references.
func (r *Repository) loadSplit(files backend.IndexFiles) error {
	buf, err := files.ReadIndexFile(layout.ReferenceTable)
	if err != nil {
		return malformed(err, "read reference table index")
	}
	tables, err := index.ParseIndexFile(layout.ReferenceTable, buf)
	if err != nil {
		return err
	}
	tables.Finalize()
	r.idx.Insert(tables)

	for id := 0; id < layout.ReferenceTable; id++ {
		buf, err := files.ReadIndexFile(uint8(id))
		switch {
		case errors.Is(err, os.ErrNotExist) && !tables.Has(uint32(id)):
			continue
		case errors.Is(err, os.ErrNotExist):
			buf = nil
		case err != nil:
			return malformed(err, "read index %d", id)
		}

		idx, err := index.ParseIndexFile(uint8(id), buf)
		if err != nil {
			return err
		}

		if e, err := tables.Lookup(uint32(id)); err == nil && e.Ref.Length > 0 {
			payload, err := r.readTable(uint32(id), e.Ref)
			if err != nil {
				return malformed(err, "reference table of index %d", id)
			}
			meta, err := index.ParseMetadata(payload)
			if err != nil {
				return errors.Wrapf(err, "reference table of index %d", id)
			}
			idx.SetMetadata(meta)
		}

		idx.Finalize()
		r.idx.Insert(idx)
		log.Debugf("index %d: %d archives", id, idx.Len())
	}

	return nil
}

// loadUnified builds the indices of a store without idx files. The first six
// bytes of sector 0 locate the reference table archive (255, 255), which
// lists the archives of every index.
func (r *Repository) loadUnified() error {
	buf := make([]byte, index.RefSize)
	if _, err := backend.ReadAt(r.be, 0, buf); err != nil {
		return errors.Wrap(err, "read bootstrap sector")
	}
	ref := index.ParseArchiveRef(buf)
	if ref.IsNull() {
		return errors.Wrap(errors.ErrMalformedReferenceTable, "bootstrap sector is empty")
	}

	payload, err := r.readTable(layout.ReferenceTable, ref)
	if err != nil {
		return malformed(err, "unified reference table")
	}
	indices, err := index.ParseReferenceTable(payload)
	if err != nil {
		return err
	}

	tables := index.New(layout.ReferenceTable)
	if err := tables.Add(layout.ReferenceTable, index.Entry{Ref: ref}); err != nil {
		return err
	}
	tables.Finalize()
	r.idx.Insert(tables)

	for _, idx := range indices {
		r.idx.Insert(idx)
		log.Debugf("index %d: %d archives", idx.ID(), idx.Len())
	}
	return nil
}
