package codec

import (
	"encoding/binary"

	"golang.org/x/crypto/xtea"

	"github.com/skyline93/rscache/internal/errors"
)

// Keys is an XTEA key as handed out for encrypted archives, such as map
// locations.
type Keys [4]uint32

// IsZero returns true for the all-zero key, which means "not encrypted".
func (k Keys) IsZero() bool {
	return k == Keys{}
}

func (k Keys) cipher() (*xtea.Cipher, error) {
	var key [16]byte
	for i, w := range k {
		binary.BigEndian.PutUint32(key[i*4:], w)
	}
	c, err := xtea.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "xtea.NewCipher")
	}
	return c, nil
}

// xteaRange returns the part of a container that is encrypted: everything
// after the compressed length up to the end of the payload.
func xteaRange(buf []byte) (int, int) {
	clen := int(binary.BigEndian.Uint32(buf[1:]))
	end := 5 + clen
	if Compression(buf[0]) != None {
		end += 4
	}
	if end > len(buf) || end < 5 {
		end = len(buf)
	}
	return 5, end
}

// crypt applies fn to each complete 8 byte block of buf in place. A trailing
// partial block stays as it is.
func crypt(buf []byte, fn func(dst, src []byte)) {
	for i := 0; i+xtea.BlockSize <= len(buf); i += xtea.BlockSize {
		fn(buf[i:i+xtea.BlockSize], buf[i:i+xtea.BlockSize])
	}
}

// Decrypt returns a copy of the container buf with its encrypted range
// deciphered. The zero key returns buf unchanged.
func Decrypt(buf []byte, keys Keys) ([]byte, error) {
	if keys.IsZero() || len(buf) < 5 {
		return buf, nil
	}
	c, err := keys.cipher()
	if err != nil {
		return nil, err
	}

	out := append([]byte(nil), buf...)
	start, end := xteaRange(out)
	crypt(out[start:end], c.Decrypt)
	return out, nil
}

// encrypt enciphers the encrypted range of the container buf in place.
func encrypt(buf []byte, keys Keys) error {
	if keys.IsZero() {
		return nil
	}
	c, err := keys.cipher()
	if err != nil {
		return err
	}

	start, end := xteaRange(buf)
	crypt(buf[start:end], c.Encrypt)
	return nil
}
