package local

import (
	"github.com/skyline93/rscache/internal/backend"
	"github.com/skyline93/rscache/internal/backend/layout"
	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/fs"

	log "github.com/sirupsen/logrus"
)

// Local is a store in a directory on the local disk.
type Local struct {
	Config
	layout.Layout

	data backend.Backend
}

// make sure that *Local implements backend.IndexFiles
var _ backend.IndexFiles = &Local{}

// Open opens the store described by cfg. The layout is detected unless the
// config names one.
func Open(cfg Config) (*Local, error) {
	debug := log.WithField("path", cfg.Path)

	l, err := layout.ParseLayout(&layout.LocalFilesystem{}, cfg.Layout, cfg.Path)
	if err != nil {
		return nil, err
	}
	debug.WithField("layout", l.Name()).Debug("open store")

	name := l.Filename(backend.Handle{Type: backend.DataFile})

	var data backend.Backend
	if cfg.Mmap {
		data, err = openMmap(name)
	} else {
		data, err = openFile(name)
	}
	if err != nil {
		return nil, err
	}

	return &Local{Config: cfg, Layout: l, data: data}, nil
}

// Data returns the main data file.
func (l *Local) Data() backend.Backend {
	return l.data
}

// IndexFiles returns the index files of a split store, or nil for a unified one.
func (l *Local) IndexFiles() backend.IndexFiles {
	if _, ok := l.Layout.(*layout.SplitLayout); ok {
		return l
	}
	return nil
}

// ReadIndexFile returns the contents of the idx file for index.
func (l *Local) ReadIndexFile(index uint8) ([]byte, error) {
	if _, ok := l.Layout.(*layout.SplitLayout); !ok {
		return nil, errors.Errorf("%s layout has no index files", l.Layout.Name())
	}

	buf, err := fs.ReadFile(l.Filename(backend.Handle{Type: backend.IndexFile, Index: index}))
	if err != nil {
		return nil, errors.IO(err, "ReadIndexFile")
	}
	return buf, nil
}

// Close releases the data file.
func (l *Local) Close() error {
	return l.data.Close()
}
