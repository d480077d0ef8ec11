package fs

import (
	"io"
	"os"
)

// Stat returns a FileInfo structure describing the named file.
// If there is an error, it will be of type *PathError.
func Stat(name string) (os.FileInfo, error) {
	return os.Stat(fixpath(name))
}

// Open opens a file for reading.
func Open(name string) (*os.File, error) {
	return os.Open(fixpath(name))
}

// ReadFile reads the whole named file. Files of a store are opened read-only
// and never written.
func ReadFile(name string) ([]byte, error) {
	f, err := Open(name)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	buf := make([]byte, fi.Size())
	_, err = io.ReadFull(f, buf)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return buf, f.Close()
}

// IsRegular returns true for plain files.
func IsRegular(fi os.FileInfo) bool {
	return fi.Mode()&(os.ModeType|os.ModeCharDevice) == 0
}
