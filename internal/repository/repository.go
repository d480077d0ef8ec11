package repository

import (
	"iter"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/skyline93/rscache/internal/backend"
	"github.com/skyline93/rscache/internal/backend/local"
	"github.com/skyline93/rscache/internal/cache"
	"github.com/skyline93/rscache/internal/checksum"
	"github.com/skyline93/rscache/internal/index"
	"github.com/skyline93/rscache/internal/sector"
)

// Options configure how a store is read.
type Options struct {
	// Verify selects the checks every read runs.
	Verify checksum.Mode

	// SectorLayout overrides the sector header layout of all chains.
	SectorLayout sector.Mode

	// CacheSize is the number of decoded archives kept in memory, zero
	// disables the cache.
	CacheSize int
}

// Repository is an open store. It is built once by New and never changes
// afterwards, so any number of goroutines may read from it concurrently.
type Repository struct {
	be      backend.Backend
	sectors *sector.Reader
	idx     *index.MasterIndex
	cache   *cache.Cache

	opts Options

	closeOnce sync.Once
	closeErr  error
}

// New reads the reference tables of the store in be and returns a repository
// serving its archives. files holds the index files of a split store and is
// nil for a unified one. The repository owns be once New succeeds.
func New(be backend.Backend, files backend.IndexFiles, opts Options) (*Repository, error) {
	c, err := cache.New(opts.CacheSize)
	if err != nil {
		return nil, err
	}

	repo := &Repository{
		be:      be,
		sectors: sector.NewReader(be, opts.SectorLayout),
		idx:     index.NewMasterIndex(),
		cache:   c,
		opts:    opts,
	}

	if files != nil {
		err = repo.loadSplit(files)
	} else {
		err = repo.loadUnified()
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"indices": len(repo.idx.IDs()),
		"sectors": repo.sectors.Count(),
		"verify":  opts.Verify,
	}).Info("store loaded")

	return repo, nil
}

// Open opens the store on the local disk described by cfg.
func Open(cfg local.Config, opts Options) (*Repository, error) {
	l, err := local.Open(cfg)
	if err != nil {
		return nil, err
	}
	log.Infof("opened %v store at %v", l.Layout.Name(), cfg.Path)

	repo, err := New(l.Data(), l.IndexFiles(), opts)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	return repo, nil
}

// Close releases the data file and drops cached archives. Buffers returned by
// earlier reads stay valid.
func (r *Repository) Close() error {
	r.closeOnce.Do(func() {
		r.cache.Clear()
		r.closeErr = r.be.Close()
	})
	return r.closeErr
}

// Indices returns the ids of all indices, including the reference table
// index 255.
func (r *Repository) Indices() []uint8 {
	return r.idx.IDs()
}

// Index returns the index with the given id.
func (r *Repository) Index(id uint8) (*index.Index, error) {
	return r.idx.Lookup(id)
}

// ArchiveIDs returns the ids of all archives in index id in ascending order.
func (r *Repository) ArchiveIDs(id uint8) (iter.Seq[uint32], error) {
	idx, err := r.idx.Lookup(id)
	if err != nil {
		return nil, err
	}
	return idx.ArchiveIDs(), nil
}
