package codec

import (
	"bytes"
	"compress/bzip2"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz/lzma"

	"github.com/skyline93/rscache/internal/errors"
)

// Compression is the tag in the first byte of a container.
type Compression uint8

const (
	None Compression = iota
	Bzip2
	Gzip
	LZMA
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Bzip2:
		return "bzip2"
	case Gzip:
		return "gzip"
	case LZMA:
		return "lzma"
	}
	return "<unknown>"
}

// ParseCompression returns the compression named s.
func ParseCompression(s string) (Compression, error) {
	for c := None; c <= LZMA; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return None, errors.Errorf("unknown compression %q", s)
}

// bzip2 payloads are stored without the stream magic.
var bzip2Header = []byte("BZh1")

// lzma payloads carry the five property bytes but no size field.
const lzmaPropsLen = 5

// lzmaInitLen is the size of an lzma stream that decodes to nothing.
const lzmaInitLen = 5

// decompress inflates payload, which must yield exactly size bytes.
func decompress(c Compression, payload []byte, size uint32) ([]byte, error) {
	var rd io.Reader
	switch c {
	case Bzip2:
		rd = bzip2.NewReader(io.MultiReader(bytes.NewReader(bzip2Header), bytes.NewReader(payload)))
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, errors.Wrapf(errors.ErrDecompression, "gzip: %v", err)
		}
		defer r.Close()
		rd = r
	case LZMA:
		if len(payload) < lzmaPropsLen {
			return nil, errors.Wrapf(errors.ErrDecompression, "lzma: payload of %d bytes has no properties", len(payload))
		}
		// the reader rejects streams announcing zero bytes
		if size == 0 {
			return []byte{}, nil
		}
		hdr := make([]byte, lzmaPropsLen+8)
		copy(hdr, payload[:lzmaPropsLen])
		binary.LittleEndian.PutUint64(hdr[lzmaPropsLen:], uint64(size))

		r, err := lzma.NewReader(io.MultiReader(bytes.NewReader(hdr), bytes.NewReader(payload[lzmaPropsLen:])))
		if err != nil {
			return nil, errors.Wrapf(errors.ErrDecompression, "lzma: %v", err)
		}
		rd = r
	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedCodec, "compression tag %d", uint8(c))
	}

	// one extra byte detects streams that are longer than announced
	buf, err := io.ReadAll(io.LimitReader(rd, int64(size)+1))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDecompression, "%v: %v", c, err)
	}
	if uint32(len(buf)) != size {
		return nil, errors.Wrapf(errors.ErrLengthMismatch, "%v: decompressed %d bytes, expected %d", c, len(buf), size)
	}
	return buf, nil
}

// compress deflates data for c.
func compress(c Compression, data []byte) ([]byte, error) {
	var buf bytes.Buffer

	switch c {
	case Bzip2:
		return nil, errors.Wrap(errors.ErrUnsupportedCodec, "bzip2 encoding")
	case Gzip:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, errors.Wrap(err, "Write")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Wrap(err, "Close")
		}
		return buf.Bytes(), nil
	case LZMA:
		cfg := lzma.WriterConfig{
			SizeInHeader: true,
			Size:         int64(len(data)),
			EOSMarker:    false,
		}
		w, err := cfg.NewWriter(&buf)
		if err != nil {
			return nil, errors.Wrap(err, "lzma.NewWriter")
		}
		if _, err = w.Write(data); err != nil {
			return nil, errors.Wrap(err, "Write")
		}
		if err = w.Close(); err != nil {
			return nil, errors.Wrap(err, "Close")
		}
		out := buf.Bytes()
		if len(data) == 0 {
			// properties followed by the initial range coder bytes
			return append(out[:lzmaPropsLen:lzmaPropsLen], make([]byte, lzmaInitLen)...), nil
		}
		// drop the size field of the classic header
		return append(out[:lzmaPropsLen:lzmaPropsLen], out[lzmaPropsLen+8:]...), nil
	}
	return nil, errors.Wrapf(errors.ErrUnsupportedCodec, "compression tag %d", uint8(c))
}
