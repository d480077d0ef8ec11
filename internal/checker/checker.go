package checker

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/skyline93/rscache/internal/checksum"
)

// Store is the part of a repository the checker needs.
type Store interface {
	Verifier
	Indices() []uint8
	ArchiveIDs(index uint8) (iter.Seq[uint32], error)
	VerifyIndex(index uint8) error
}

// Failure is a single archive or index that did not pass.
type Failure struct {
	Index   uint8
	Archive uint32
	// WholeIndex is set when the digest of the whole index did not match.
	WholeIndex bool
	Err        error
}

func (f Failure) String() string {
	if f.WholeIndex {
		return fmt.Sprintf("index %d: %v", f.Index, f.Err)
	}
	return fmt.Sprintf("archive %d/%d: %v", f.Index, f.Archive, f.Err)
}

// Report summarizes a check.
type Report struct {
	Indices  int
	Archives int
	Failures []Failure
}

// OK returns true if nothing failed.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Checker reads every archive of a store and reports the ones that cannot be
// read, decoded or verified.
type Checker struct {
	store   Store
	mode    checksum.Mode
	workers uint
}

// New returns a checker running the checks of mode with workers goroutines.
func New(store Store, mode checksum.Mode, workers uint) *Checker {
	if workers == 0 {
		workers = 1
	}
	return &Checker{store: store, mode: mode, workers: workers}
}

// Check verifies all archives. Broken archives end up in the report; the
// returned error is only set if ctx was cancelled.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	report := &Report{}
	var m sync.Mutex

	fail := func(f Failure) {
		log.Warnf("check failed: %v", f)
		m.Lock()
		report.Failures = append(report.Failures, f)
		m.Unlock()
	}

	wg, wctx := errgroup.WithContext(ctx)
	v := NewArchiveVerifier(wctx, wg, c.store, c.mode, c.workers)

	wg.Go(func() error {
		defer v.TriggerShutdown()

		for _, id := range c.store.Indices() {
			ids, err := c.store.ArchiveIDs(id)
			if err != nil {
				return err
			}
			report.Indices++

			for archive := range ids {
				if wctx.Err() != nil {
					return nil
				}
				id, archive := id, archive
				m.Lock()
				report.Archives++
				m.Unlock()
				v.Verify(wctx, id, archive, func(err error) {
					if err != nil {
						fail(Failure{Index: id, Archive: archive, Err: err})
					}
				})
			}

			if c.mode == checksum.Digest {
				if err := c.store.VerifyIndex(id); err != nil {
					fail(Failure{Index: id, WholeIndex: true, Err: err})
				}
			}
		}
		return nil
	})

	if err := wg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(report.Failures, func(a, b Failure) int {
		if a.Index != b.Index {
			return int(a.Index) - int(b.Index)
		}
		switch {
		case a.WholeIndex != b.WholeIndex:
			if a.WholeIndex {
				return 1
			}
			return -1
		case a.Archive < b.Archive:
			return -1
		case a.Archive > b.Archive:
			return 1
		}
		return 0
	})

	log.Infof("checked %d archives in %d indices, %d failures", report.Archives, report.Indices, len(report.Failures))
	return report, nil
}
