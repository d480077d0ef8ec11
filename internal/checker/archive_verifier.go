package checker

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/skyline93/rscache/internal/checksum"
)

// Verifier checks single archives of a store.
type Verifier interface {
	Verify(index uint8, archive uint32, mode checksum.Mode) error
}

// ArchiveVerifier concurrently verifies incoming archives.
type ArchiveVerifier struct {
	repo Verifier
	mode checksum.Mode
	ch   chan<- verifyJob
}

type verifyJob struct {
	index   uint8
	archive uint32
	cb      func(err error)
}

// NewArchiveVerifier returns a new verifier. A worker pool is started, it is
// stopped when ctx is cancelled or TriggerShutdown is called.
func NewArchiveVerifier(ctx context.Context, wg *errgroup.Group, repo Verifier, mode checksum.Mode, workers uint) *ArchiveVerifier {
	ch := make(chan verifyJob)
	v := &ArchiveVerifier{
		repo: repo,
		mode: mode,
		ch:   ch,
	}

	for i := uint(0); i < workers; i++ {
		wg.Go(func() error {
			return v.worker(ctx, ch)
		})
	}

	return v
}

func (v *ArchiveVerifier) worker(ctx context.Context, jobs <-chan verifyJob) error {
	for {
		var job verifyJob
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case job, ok = <-jobs:
			if !ok {
				return nil
			}
		}

		job.cb(v.repo.Verify(job.index, job.archive, v.mode))
	}
}

// Verify queues an archive. cb is called from a worker with the result.
func (v *ArchiveVerifier) Verify(ctx context.Context, index uint8, archive uint32, cb func(err error)) {
	select {
	case v.ch <- verifyJob{index: index, archive: archive, cb: cb}:
	case <-ctx.Done():
		log.Debug("not sending job, context is cancelled")
	}
}

// TriggerShutdown stops the workers once all queued jobs are done.
func (v *ArchiveVerifier) TriggerShutdown() {
	close(v.ch)
}
