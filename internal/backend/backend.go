package backend

import "io"

// Backend gives random access to the main data file of a store. Implementations
// must allow concurrent ReadAt calls.
type Backend interface {
	io.ReaderAt

	// Size returns the length of the data file in bytes.
	Size() int64

	// Close releases the underlying file or mapping. It is safe to call more
	// than once; only the first call has an effect.
	Close() error
}
