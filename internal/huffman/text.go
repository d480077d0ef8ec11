package huffman

import (
	"golang.org/x/text/encoding/charmap"

	"github.com/skyline93/rscache/internal/errors"
)

// EncodeText compresses a chat message. The client sends text in the
// Windows-1252 code page.
func (t *Table) EncodeText(s string) ([]byte, int, error) {
	raw, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil {
		return nil, 0, errors.Wrap(err, "encode text")
	}
	buf, err := t.Encode([]byte(raw))
	if err != nil {
		return nil, 0, err
	}
	return buf, len(raw), nil
}

// DecodeText decompresses a chat message of n characters.
func (t *Table) DecodeText(buf []byte, n int) (string, error) {
	raw, err := t.Decode(buf, n)
	if err != nil {
		return "", err
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", errors.Wrap(err, "decode text")
	}
	return string(s), nil
}
