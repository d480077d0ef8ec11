package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyline93/rscache/internal/errors"
)

func testPayloads() map[string][]byte {
	rnd := rand.New(rand.NewSource(23))
	large := make([]byte, 200*1024)
	for i := range large {
		// compressible, but not trivially
		large[i] = byte(rnd.Intn(16))
	}
	return map[string][]byte{
		"small": []byte("the quick brown fox jumps over the lazy dog"),
		"large": large,
	}
}

func TestContainerRoundTrip(t *testing.T) {
	for _, c := range []Compression{None, Gzip, LZMA} {
		for name, data := range testPayloads() {
			t.Run(c.String()+"/"+name, func(t *testing.T) {
				buf, err := Encode(c, data, Options{})
				require.NoError(t, err)
				assert.Equal(t, byte(c), buf[0])

				ct, err := Decode(buf)
				require.NoError(t, err)
				assert.Equal(t, c, ct.Compression)
				assert.Equal(t, data, ct.Payload)
				assert.False(t, ct.HasVersion)
			})
		}
	}
}

func TestContainerEmpty(t *testing.T) {
	for _, c := range []Compression{None, Gzip, LZMA} {
		buf, err := Encode(c, nil, Options{})
		require.NoError(t, err, "%v", c)

		ct, err := Decode(buf)
		require.NoError(t, err, "%v", c)
		assert.Empty(t, ct.Payload, "%v", c)
	}

	// properties plus the range coder start, no size field
	buf, err := Encode(LZMA, []byte{}, Options{})
	require.NoError(t, err)
	assert.Len(t, buf, 9+lzmaPropsLen+lzmaInitLen)
	assert.Equal(t, make([]byte, lzmaInitLen), buf[9+lzmaPropsLen:])
}

func TestContainerVersion(t *testing.T) {
	data := []byte("versioned")
	buf, err := Encode(Gzip, data, Options{Version: 0x1234, WithVersion: true})
	require.NoError(t, err)

	ct, err := Decode(buf)
	require.NoError(t, err)
	assert.True(t, ct.HasVersion)
	assert.Equal(t, uint16(0x1234), ct.Version)
	assert.Equal(t, data, ct.Payload)

	trimmed := TrimVersion(buf)
	assert.Equal(t, len(buf)-2, len(trimmed))
	assert.Equal(t, trimmed, TrimVersion(trimmed))

	// a single trailing byte is not a version
	ct, err = Decode(append(trimmed[:len(trimmed):len(trimmed)], 0x01))
	require.NoError(t, err)
	assert.False(t, ct.HasVersion)
}

func TestContainerDoesNotAlias(t *testing.T) {
	buf, err := Encode(None, []byte("abc"), Options{})
	require.NoError(t, err)

	ct, err := Decode(buf)
	require.NoError(t, err)
	buf[5] = 'X'
	assert.Equal(t, []byte("abc"), ct.Payload)
}

// bzip2Fixture is "sector chains and reference tables\n" four times,
// compressed at level 1 with the stream magic removed.
const bzip2Fixture = "3141592653595b1525be000041d180001040003f659c00200050a60009a05551934c4da69244973070d17304942c50d19322093d2c60d95284907082c20e15327e2ee48a70a120b62a4b7c"

func TestContainerBzip2(t *testing.T) {
	payload, err := hex.DecodeString(bzip2Fixture)
	require.NoError(t, err)
	want := bytes.Repeat([]byte("sector chains and reference tables\n"), 4)

	buf := []byte{byte(Bzip2)}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(want)))
	buf = append(buf, payload...)
	buf = binary.BigEndian.AppendUint16(buf, 7)

	ct, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, want, ct.Payload)
	assert.Equal(t, uint16(7), ct.Version)

	_, err = Encode(Bzip2, want, Options{})
	assert.True(t, errors.Is(err, errors.ErrUnsupportedCodec))
}

func TestContainerErrors(t *testing.T) {
	gz, err := Encode(Gzip, []byte("some payload"), Options{})
	require.NoError(t, err)

	wrongSize := append([]byte(nil), gz...)
	binary.BigEndian.PutUint32(wrongSize[5:], 13)

	garbage := append([]byte(nil), gz...)
	for i := 9; i < len(garbage); i++ {
		garbage[i] = 0xa5
	}

	tests := []struct {
		name string
		buf  []byte
		kind error
	}{
		{"short", []byte{0, 0, 0}, errors.ErrDecompression},
		{"unknown tag", []byte{4, 0, 0, 0, 0, 0, 0, 0, 0}, errors.ErrUnsupportedCodec},
		{"length exceeds buffer", []byte{0, 0, 0, 0, 10, 1, 2}, errors.ErrDecompression},
		{"compressed header cut", []byte{2, 0, 0, 0, 0}, errors.ErrDecompression},
		{"wrong size", wrongSize, errors.ErrLengthMismatch},
		{"garbage", garbage, errors.ErrDecompression},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Decode(test.buf)
			require.Error(t, err)
			assert.True(t, errors.Is(err, test.kind), "unexpected error %v", err)
		})
	}
}

func TestParseCompression(t *testing.T) {
	for c := None; c <= LZMA; c++ {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseCompression("zstd")
	assert.Error(t, err)
}
