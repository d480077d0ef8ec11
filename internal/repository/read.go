package repository

import (
	log "github.com/sirupsen/logrus"

	"github.com/skyline93/rscache/internal/cache"
	"github.com/skyline93/rscache/internal/checksum"
	"github.com/skyline93/rscache/internal/codec"
	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/index"
)

func (r *Repository) lookup(id uint8, archive uint32) (index.Entry, error) {
	idx, err := r.idx.Lookup(id)
	if err != nil {
		return index.Entry{}, err
	}
	return idx.Lookup(archive)
}

// ReadRaw returns the container of an archive exactly as stored.
func (r *Repository) ReadRaw(id uint8, archive uint32) ([]byte, error) {
	e, err := r.lookup(id, archive)
	if err != nil {
		return nil, err
	}
	return r.sectors.Assemble(id, archive, e.Ref.Sector, e.Ref.Length)
}

// ReadContainer reads, decodes and verifies an archive and returns the whole
// container, including its version trailer.
func (r *Repository) ReadContainer(id uint8, archive uint32, keys codec.Keys) (*codec.Container, error) {
	return r.read(id, archive, keys, r.opts.Verify)
}

func (r *Repository) read(id uint8, archive uint32, keys codec.Keys, mode checksum.Mode) (*codec.Container, error) {
	log.Debugf("read %d/%d", id, archive)

	e, err := r.lookup(id, archive)
	if err != nil {
		return nil, err
	}

	raw, err := r.sectors.Assemble(id, archive, e.Ref.Sector, e.Ref.Length)
	if err != nil {
		return nil, err
	}

	// checksums cover the stored bytes, so damage is reported as a mismatch
	// before a codec gets to see it
	if err := checksum.Verify(mode, id, archive, e, raw); err != nil {
		return nil, err
	}

	ct, err := codec.DecodeWithKeys(raw, keys)
	if err != nil {
		return nil, errors.Wrapf(err, "archive %d/%d", id, archive)
	}

	return ct, nil
}

// Read returns the decoded payload of an archive. Every call returns a new
// buffer owned by the caller.
func (r *Repository) Read(id uint8, archive uint32) ([]byte, error) {
	k := cache.Key{Index: id, Archive: archive}
	if buf, ok := r.cache.Get(k); ok {
		return buf, nil
	}

	ct, err := r.read(id, archive, codec.Keys{}, r.opts.Verify)
	if err != nil {
		return nil, err
	}

	r.cache.Add(k, ct.Payload)
	return ct.Payload, nil
}

// ReadWithKeys returns the decoded payload of an XTEA encrypted archive.
// Encrypted archives are not cached.
func (r *Repository) ReadWithKeys(id uint8, archive uint32, keys codec.Keys) ([]byte, error) {
	if keys.IsZero() {
		return r.Read(id, archive)
	}

	ct, err := r.read(id, archive, keys, r.opts.Verify)
	if err != nil {
		return nil, err
	}
	return ct.Payload, nil
}

// ReadGroup returns the files of a grouped archive, split according to the
// entry count in the reference table of the index.
func (r *Repository) ReadGroup(id uint8, archive uint32, keys codec.Keys) ([][]byte, error) {
	payload, err := r.ReadWithKeys(id, archive, keys)
	if err != nil {
		return nil, err
	}

	entries := 1
	if am, err := r.Metadata(id, archive); err == nil {
		entries = len(am.Entries)
	}
	files, err := codec.SplitGroup(payload, entries)
	if err != nil {
		return nil, errors.Wrapf(err, "archive %d/%d", id, archive)
	}
	return files, nil
}

// Verify reads an archive and runs the checks of mode on it, independent of
// the mode the repository was opened with. The cache is bypassed.
func (r *Repository) Verify(id uint8, archive uint32, mode checksum.Mode) error {
	_, err := r.read(id, archive, codec.Keys{}, mode)
	return err
}
