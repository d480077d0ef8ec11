package codec

import (
	"encoding/binary"

	log "github.com/sirupsen/logrus"

	"github.com/skyline93/rscache/internal/errors"
)

// Container is a decoded archive container.
type Container struct {
	Compression Compression

	// Payload is the decompressed content.
	Payload []byte

	// Version is the trailing revision, only valid if HasVersion is set.
	Version    uint16
	HasVersion bool
}

// headerLen returns the length of the container header for c.
func headerLen(c Compression) int {
	if c == None {
		return 5
	}
	return 9
}

// Decode parses the container buf and decompresses its payload. The returned
// payload never aliases buf.
func Decode(buf []byte) (*Container, error) {
	return DecodeWithKeys(buf, Keys{})
}

// DecodeWithKeys decodes a container whose payload is XTEA encrypted with
// keys.
func DecodeWithKeys(buf []byte, keys Keys) (*Container, error) {
	if len(buf) < 5 {
		return nil, errors.Wrapf(errors.ErrDecompression, "container of %d bytes is too short", len(buf))
	}

	c := Compression(buf[0])
	if c > LZMA {
		return nil, errors.Wrapf(errors.ErrUnsupportedCodec, "compression tag %d", buf[0])
	}

	buf, err := Decrypt(buf, keys)
	if err != nil {
		return nil, err
	}

	hlen := headerLen(c)
	clen := binary.BigEndian.Uint32(buf[1:])
	if len(buf) < hlen || uint64(len(buf)-hlen) < uint64(clen) {
		return nil, errors.Wrapf(errors.ErrDecompression, "compressed length %d exceeds container of %d bytes", clen, len(buf))
	}
	end := hlen + int(clen)
	payload := buf[hlen:end]

	ct := &Container{Compression: c}
	if len(buf)-end >= 2 {
		ct.Version = binary.BigEndian.Uint16(buf[end:])
		ct.HasVersion = true
	}

	if c == None {
		ct.Payload = append([]byte(nil), payload...)
		return ct, nil
	}

	size := binary.BigEndian.Uint32(buf[5:])
	log.Debugf("decompress %v container, %d -> %d bytes", c, clen, size)

	ct.Payload, err = decompress(c, payload, size)
	if err != nil {
		return nil, err
	}
	return ct, nil
}

// Options change how Encode builds a container.
type Options struct {
	// Version is appended as trailer if WithVersion is set.
	Version     uint16
	WithVersion bool

	// Keys encrypts the payload unless zero.
	Keys Keys
}

// Encode compresses data with c and wraps it into a container.
func Encode(c Compression, data []byte, opts Options) ([]byte, error) {
	payload := data
	if c != None {
		var err error
		payload, err = compress(c, data)
		if err != nil {
			return nil, err
		}
	}

	hlen := headerLen(c)
	buf := make([]byte, hlen, hlen+len(payload)+2)
	buf[0] = byte(c)
	binary.BigEndian.PutUint32(buf[1:], uint32(len(payload)))
	if c != None {
		binary.BigEndian.PutUint32(buf[5:], uint32(len(data)))
	}
	buf = append(buf, payload...)
	if opts.WithVersion {
		buf = binary.BigEndian.AppendUint16(buf, opts.Version)
	}

	if err := encrypt(buf, opts.Keys); err != nil {
		return nil, err
	}
	return buf, nil
}

// TrimVersion returns buf without its version trailer. Checksums recorded in
// reference tables cover exactly this part of a container.
func TrimVersion(buf []byte) []byte {
	if len(buf) < 5 {
		return buf
	}
	end := uint64(headerLen(Compression(buf[0]))) + uint64(binary.BigEndian.Uint32(buf[1:]))
	if end < uint64(len(buf)) {
		return buf[:end]
	}
	return buf
}
