package layout

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/skyline93/rscache/internal/backend"
	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/fs"
)

const (
	MainData    = "main_file_cache.dat2"
	IndexPrefix = "main_file_cache.idx"

	// ReferenceTable is the id of the index that describes all other indices.
	ReferenceTable = 255
)

// Layout computes paths for the files of a store and tells how archive
// references are resolved.
type Layout interface {
	Filename(backend.Handle) string
	Name() string
}

// SplitLayout is the classic layout: one data file plus one small idxN file per
// index holding fixed 6 byte archive references.
type SplitLayout struct {
	Path string
}

// UnifiedLayout keeps everything inside the data file. The references of all
// indices live in a single reference table archive found via sector 0.
type UnifiedLayout struct {
	Path string
}

func (l *SplitLayout) Name() string { return "split" }

func (l *SplitLayout) Filename(h backend.Handle) string {
	if h.Type == backend.IndexFile {
		return filepath.Join(l.Path, fmt.Sprintf("%s%d", IndexPrefix, h.Index))
	}
	return filepath.Join(l.Path, MainData)
}

func (l *UnifiedLayout) Name() string { return "unified" }

func (l *UnifiedLayout) Filename(h backend.Handle) string {
	if h.Type == backend.IndexFile {
		panic(fmt.Sprintf("unified layout has no file for %v", h))
	}
	return filepath.Join(l.Path, MainData)
}

// Filesystem is the small part of a file system the layout detection needs.
type Filesystem interface {
	Stat(name string) (os.FileInfo, error)
	IsNotExist(error) bool
}

// LocalFilesystem implements Filesystem on the local disk.
type LocalFilesystem struct {
}

func (l *LocalFilesystem) Stat(name string) (os.FileInfo, error) {
	return fs.Stat(name)
}

// IsNotExist returns true for errors that are caused by not existing files.
func (l *LocalFilesystem) IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// DetectLayout tries to find the layout of the store at dir. A store that ships
// the idx255 file is split, otherwise references are embedded in the data file.
func DetectLayout(fsys Filesystem, dir string) (Layout, error) {
	split := &SplitLayout{Path: dir}

	if _, err := fsys.Stat(split.Filename(backend.Handle{Type: backend.DataFile})); err != nil {
		return nil, errors.IO(err, "Stat")
	}

	_, err := fsys.Stat(split.Filename(backend.Handle{Type: backend.IndexFile, Index: ReferenceTable}))
	switch {
	case err == nil:
		return split, nil
	case fsys.IsNotExist(err):
		return &UnifiedLayout{Path: dir}, nil
	default:
		return nil, errors.IO(err, "Stat")
	}
}

// ParseLayout returns the layout named s; an empty name or "auto" detects it.
func ParseLayout(fsys Filesystem, s string, dir string) (Layout, error) {
	switch s {
	case "", "auto":
		return DetectLayout(fsys, dir)
	case "split":
		return &SplitLayout{Path: dir}, nil
	case "unified":
		return &UnifiedLayout{Path: dir}, nil
	}
	return nil, errors.Errorf("unknown backend layout %q", s)
}
