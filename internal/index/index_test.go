package index_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/index"
)

func TestArchiveRef(t *testing.T) {
	ref := index.ArchiveRef{Sector: 0xabcdef, Length: 0x123456}
	buf := make([]byte, index.RefSize)
	index.PutArchiveRef(buf, ref)

	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0xab, 0xcd, 0xef}, buf)
	assert.Equal(t, ref, index.ParseArchiveRef(buf))
	assert.False(t, ref.IsNull())
	assert.True(t, index.ArchiveRef{}.IsNull())
	assert.False(t, index.ArchiveRef{Length: 1}.IsNull())
}

func TestParseIndexFile(t *testing.T) {
	buf := make([]byte, 4*index.RefSize)
	index.PutArchiveRef(buf[0:], index.ArchiveRef{Sector: 1, Length: 10})
	index.PutArchiveRef(buf[3*index.RefSize:], index.ArchiveRef{Sector: 7, Length: 2000})

	idx, err := index.ParseIndexFile(4, buf)
	require.NoError(t, err)
	idx.Finalize()

	assert.Equal(t, uint8(4), idx.ID())
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, []uint32{0, 3}, slices.Collect(idx.ArchiveIDs()))

	e, err := idx.Lookup(3)
	require.NoError(t, err)
	assert.Equal(t, index.ArchiveRef{Sector: 7, Length: 2000}, e.Ref)
	assert.False(t, e.HasCRC)

	_, err = idx.Lookup(1)
	assert.True(t, errors.Is(err, errors.ErrArchiveNotFound))
	assert.False(t, idx.Has(2))

	_, err = index.ParseIndexFile(4, buf[:10])
	assert.True(t, errors.Is(err, errors.ErrMalformedReferenceTable))

	empty, err := index.ParseIndexFile(5, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestIndex(t *testing.T) {
	idx := index.New(2)
	require.NoError(t, idx.Add(9, index.Entry{Ref: index.ArchiveRef{Sector: 1, Length: 1}}))
	require.NoError(t, idx.Add(3, index.Entry{Ref: index.ArchiveRef{Sector: 2, Length: 1}}))
	require.NoError(t, idx.Add(100000, index.Entry{Ref: index.ArchiveRef{Sector: 3, Length: 1}}))

	err := idx.Add(3, index.Entry{})
	assert.True(t, errors.Is(err, errors.ErrMalformedReferenceTable))

	digest := make([]byte, index.DigestSize)
	idx.SetMetadata(&index.Metadata{
		Protocol: 6,
		Archives: []index.ArchiveMetadata{
			{ID: 3, CRC: 0xdeadbeef, Whirlpool: digest},
			{ID: 4, CRC: 1},
		},
	})
	assert.False(t, idx.Final())
	idx.Finalize()
	assert.True(t, idx.Final())

	ids := idx.ArchiveIDs()
	assert.Equal(t, []uint32{3, 9, 100000}, slices.Collect(ids))
	// sequences can be consumed again
	assert.Equal(t, []uint32{3, 9, 100000}, slices.Collect(ids))

	e, err := idx.Lookup(3)
	require.NoError(t, err)
	assert.True(t, e.HasCRC)
	assert.Equal(t, uint32(0xdeadbeef), e.CRC)
	assert.Equal(t, digest, e.Whirlpool)
	assert.False(t, idx.Has(4), "metadata must not add archives")

	e, err = idx.Lookup(9)
	require.NoError(t, err)
	assert.False(t, e.HasCRC)
	assert.NotNil(t, idx.Metadata())
}

func TestMasterIndex(t *testing.T) {
	mi := index.NewMasterIndex()

	for _, id := range []uint8{7, 0, 255} {
		idx := index.New(id)
		idx.Finalize()
		mi.Insert(idx)
	}

	assert.Equal(t, []uint8{0, 7, 255}, mi.IDs())

	idx, err := mi.Lookup(7)
	require.NoError(t, err)
	assert.Equal(t, uint8(7), idx.ID())

	_, err = mi.Lookup(8)
	assert.True(t, errors.Is(err, errors.ErrIndexNotFound))

	assert.Panics(t, func() { mi.Insert(index.New(1)) })
}
