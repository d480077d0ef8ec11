package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/skyline93/rscache/internal/backend/local"
	"github.com/skyline93/rscache/internal/checksum"
	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/repository"
	"github.com/skyline93/rscache/internal/sector"
)

// GlobalOptions hold all global options for rscache.
type GlobalOptions struct {
	Cache        string
	Mmap         bool
	Layout       string
	SectorLayout string
	Verify       string
	CacheSize    int
	Verbose      bool
	Quiet        bool
}

var globalOptions GlobalOptions

func init() {
	f := cmdRoot.PersistentFlags()
	f.StringVarP(&globalOptions.Cache, "cache", "c", os.Getenv("RSCACHE_PATH"), "store `location`, a directory or local:/dir (default: $RSCACHE_PATH)")
	f.BoolVar(&globalOptions.Mmap, "mmap", false, "memory-map the data file")
	f.StringVar(&globalOptions.Layout, "layout", "auto", "store layout: auto, split or unified")
	f.StringVar(&globalOptions.SectorLayout, "sector-layout", "auto", "sector header layout: auto, normal or expanded")
	f.StringVar(&globalOptions.Verify, "verify", "crc", "checks on every read: off, crc or digest")
	f.IntVar(&globalOptions.CacheSize, "cache-size", 0, "keep `n` decoded archives in memory")
	f.BoolVarP(&globalOptions.Verbose, "verbose", "v", false, "print debug messages")
	f.BoolVarP(&globalOptions.Quiet, "quiet", "q", false, "only print errors")
}

func (opts *GlobalOptions) setupLogging() error {
	if opts.Verbose && opts.Quiet {
		return errors.Fatal("--verbose and --quiet are mutually exclusive")
	}

	switch {
	case opts.Verbose:
		log.SetLevel(log.DebugLevel)
	case opts.Quiet:
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
	return nil
}

// openRepository opens the store named by the global options.
func openRepository(opts GlobalOptions) (*repository.Repository, error) {
	if opts.Cache == "" {
		return nil, errors.Fatal("Please specify the store location (-c or $RSCACHE_PATH)")
	}

	cfg, err := local.ParseConfig(opts.Cache)
	if err != nil {
		return nil, errors.Fatalf("%v", err)
	}
	cfg.Layout = opts.Layout
	cfg.Mmap = opts.Mmap

	verify, err := checksum.ParseMode(opts.Verify)
	if err != nil {
		return nil, errors.Fatalf("%v", err)
	}
	mode, err := sector.ParseMode(opts.SectorLayout)
	if err != nil {
		return nil, errors.Fatalf("%v", err)
	}

	return repository.Open(*cfg, repository.Options{
		Verify:       verify,
		SectorLayout: mode,
		CacheSize:    opts.CacheSize,
	})
}
