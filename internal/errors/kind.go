package errors

import (
	"encoding/hex"
	"fmt"
)

// Kinds of failures surfaced by the cache. Every error returned by a read or
// by construction matches exactly one of them with Is.
var (
	ErrIO                      = New("i/o error")
	ErrMalformedReferenceTable = New("malformed reference table")
	ErrIndexNotFound           = New("index not found")
	ErrArchiveNotFound         = New("archive not found")
	ErrCorruptedSector         = New("corrupted sector")
	ErrTruncatedArchive        = New("truncated archive")
	ErrUnsupportedCodec        = New("unsupported codec")
	ErrDecompression           = New("decompression failed")
	ErrLengthMismatch          = New("length mismatch")
	ErrChecksumMismatch        = New("checksum mismatch")
	ErrInvalidHuffmanTable     = New("invalid huffman table")
)

type ioError struct {
	op  string
	err error
}

func (e *ioError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *ioError) Unwrap() error { return e.err }

func (e *ioError) Is(target error) bool { return target == ErrIO }

// IO marks err as a physical read failure. The original error stays reachable
// through Unwrap so callers can still test for os.ErrNotExist and friends.
func IO(err error, op string) error {
	if err == nil {
		return nil
	}
	return WithStack(&ioError{op: op, err: err})
}

// ChecksumMismatchError is returned when a recomputed checksum differs from the
// value recorded in the reference table.
type ChecksumMismatchError struct {
	Index    uint8
	Archive  uint32
	Scheme   string
	Expected []byte
	Actual   []byte
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%v (%s) in archive %d/%d: %s expected %s", ErrChecksumMismatch, e.Scheme,
		e.Index, e.Archive, hex.EncodeToString(e.Actual), hex.EncodeToString(e.Expected))
}

func (e *ChecksumMismatchError) Is(target error) bool { return target == ErrChecksumMismatch }
