package backend

import "bytes"

// MemBackend keeps a whole data file in memory.
type MemBackend struct {
	rd   *bytes.Reader
	size int64
}

// NewMemBackend returns a Backend reading from buf. buf must not be modified
// while the backend is in use.
func NewMemBackend(buf []byte) *MemBackend {
	return &MemBackend{rd: bytes.NewReader(buf), size: int64(len(buf))}
}

func (m *MemBackend) ReadAt(p []byte, off int64) (int, error) {
	return m.rd.ReadAt(p, off)
}

func (m *MemBackend) Size() int64 {
	return m.size
}

func (m *MemBackend) Close() error {
	return nil
}
