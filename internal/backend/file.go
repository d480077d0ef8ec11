package backend

import "fmt"

// FileType is the kind of a file that belongs to a store on disk.
type FileType uint8

const (
	DataFile FileType = 1 + iota
	IndexFile
)

func (t FileType) String() string {
	s := "invalid"
	switch t {
	case DataFile:
		s = "data"
	case IndexFile:
		s = "index"
	}
	return s
}

// Handle names a single file of a store. Index is only meaningful for
// IndexFile handles.
type Handle struct {
	Type  FileType
	Index uint8
}

func (h Handle) String() string {
	if h.Type == IndexFile {
		return fmt.Sprintf("<%s/%d>", h.Type, h.Index)
	}
	return fmt.Sprintf("<%s>", h.Type)
}
