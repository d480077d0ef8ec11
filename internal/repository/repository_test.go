package repository_test

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/skyline93/rscache/internal/backend/layout"
	"github.com/skyline93/rscache/internal/backend/local"
	"github.com/skyline93/rscache/internal/cachetest"
	"github.com/skyline93/rscache/internal/checksum"
	"github.com/skyline93/rscache/internal/codec"
	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/repository"
	"github.com/skyline93/rscache/internal/sector"
)

var testKeys = codec.Keys{0x11111111, 0x22222222, 0x33333333, 0x44444444}

type fixture struct {
	store    *cachetest.Store
	payloads map[cachetest.Coord][]byte
	groups   map[cachetest.Coord][][]byte
}

func random(seed int64, n int) []byte {
	rnd := rand.New(rand.NewSource(seed))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(rnd.Intn(32))
	}
	return buf
}

func huffmanLengths() []byte {
	lengths := make([]byte, 256)
	lengths['a'] = 1
	lengths['b'] = 2
	lengths['c'] = 3
	lengths['d'] = 3
	return lengths
}

// newFixture fills b with a few archives of every kind and builds the store.
func newFixture(t testing.TB, b *cachetest.Builder) *fixture {
	f := &fixture{
		payloads: make(map[cachetest.Coord][]byte),
		groups:   make(map[cachetest.Coord][][]byte),
	}
	add := func(idx uint8, id uint32, c codec.Compression, payload []byte) {
		b.AddPayload(t, idx, id, c, payload)
		f.payloads[cachetest.Coord{Index: idx, Archive: id}] = payload
	}

	add(0, 0, codec.Gzip, []byte("client config"))
	add(0, 1, codec.None, random(1, 1500))
	add(0, 3, codec.LZMA, random(2, 5000))
	add(2, 0, codec.Gzip, random(3, 20000))
	add(2, 1, codec.None, []byte{0x42})
	add(5, 70000, codec.Gzip, random(4, 3000))
	add(10, 0, codec.None, huffmanLengths())
	add(10, 1, codec.Gzip, []byte("title screen"))
	b.Name(10, 0, "huffman").Name(10, 1, "title.jpg")

	files := [][]byte{random(5, 300), []byte("second"), random(6, 1000)}
	add(7, 0, codec.Gzip, cachetest.EncodeGroup(files, 2))
	b.Group(7, 0, len(files))
	f.groups[cachetest.Coord{Index: 7, Archive: 0}] = files

	encrypted, err := codec.Encode(codec.Gzip, random(7, 900), codec.Options{Version: 1, WithVersion: true, Keys: testKeys})
	require.NoError(t, err)
	b.Add(6, 50, encrypted)

	f.store = b.Build(t)
	return f
}

func (f *fixture) open(t testing.TB, opts repository.Options) *repository.Repository {
	repo, err := repository.New(f.store.Backend(), f.store.Files(), opts)
	require.NoError(t, err)
	return repo
}

// corrupt flips the byte at offset off of the container of c.
func (f *fixture) corrupt(c cachetest.Coord, off int) {
	l := sector.Auto.Layout(c.Archive)
	chain := f.store.Chains[c]
	n := chain[off/l.DataSize()]
	f.store.Data[f.store.SectorOffset(n)+l.HeaderSize()+off%l.DataSize()] ^= 0xff
}

func builders() map[string]func() *cachetest.Builder {
	return map[string]func() *cachetest.Builder{
		"split": cachetest.NewBuilder,
		"split/scattered": func() *cachetest.Builder {
			b := cachetest.NewBuilder()
			b.Scatter = true
			b.Seed = 42
			return b
		},
		"unified": func() *cachetest.Builder {
			b := cachetest.NewBuilder()
			b.Unified = true
			b.Whirlpool = true
			return b
		},
		"unified/scattered": func() *cachetest.Builder {
			b := cachetest.NewBuilder()
			b.Unified = true
			b.Scatter = true
			b.Seed = 7
			return b
		},
	}
}

func TestRead(t *testing.T) {
	for name, newBuilder := range builders() {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, newBuilder())
			repo := f.open(t, repository.Options{Verify: checksum.Digest})
			defer func() { _ = repo.Close() }()

			for c, want := range f.payloads {
				buf, err := repo.Read(c.Index, c.Archive)
				require.NoError(t, err, "archive %v", c)
				assert.Equal(t, want, buf, "archive %v", c)

				raw, err := repo.ReadRaw(c.Index, c.Archive)
				require.NoError(t, err)
				assert.Equal(t, f.store.Containers[c], raw)

				ct, err := repo.ReadContainer(c.Index, c.Archive, codec.Keys{})
				require.NoError(t, err)
				assert.True(t, ct.HasVersion)
				assert.Equal(t, uint16(c.Archive+1), ct.Version)
			}

			assert.Equal(t, []uint8{0, 2, 5, 6, 7, 10, layout.ReferenceTable}, repo.Indices())

			ids, err := repo.ArchiveIDs(0)
			require.NoError(t, err)
			assert.Equal(t, []uint32{0, 1, 3}, slices.Collect(ids))
		})
	}
}

func TestReadReturnsFreshBuffers(t *testing.T) {
	for _, size := range []int{0, 16} {
		f := newFixture(t, cachetest.NewBuilder())
		repo := f.open(t, repository.Options{Verify: checksum.CRC, CacheSize: size})

		c := cachetest.Coord{Index: 0, Archive: 1}
		first, err := repo.Read(c.Index, c.Archive)
		require.NoError(t, err)
		first[0] ^= 0xff

		second, err := repo.Read(c.Index, c.Archive)
		require.NoError(t, err)
		assert.Equal(t, f.payloads[c], second, "cache size %d", size)

		// closing drops the cache but not what callers hold
		require.NoError(t, repo.Close())
		assert.Equal(t, f.payloads[c], second, "cache size %d", size)
	}
}

func TestConcurrentReads(t *testing.T) {
	b := cachetest.NewBuilder()
	b.Scatter = true
	f := newFixture(t, b)
	repo := f.open(t, repository.Options{Verify: checksum.CRC, CacheSize: 3})

	var wg errgroup.Group
	for i := 0; i < 16; i++ {
		wg.Go(func() error {
			for round := 0; round < 20; round++ {
				for c, want := range f.payloads {
					buf, err := repo.Read(c.Index, c.Archive)
					if err != nil {
						return err
					}
					if !bytes.Equal(buf, want) {
						return fmt.Errorf("archive %v: wrong payload", c)
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, wg.Wait())
}

func TestExpandedArchive(t *testing.T) {
	f := newFixture(t, cachetest.NewBuilder())
	repo := f.open(t, repository.Options{})

	c := cachetest.Coord{Index: 5, Archive: 70000}
	buf, err := repo.Read(c.Index, c.Archive)
	require.NoError(t, err)
	assert.Equal(t, f.payloads[c], buf)

	// forcing the small header breaks the chain of the large id
	repo = f.open(t, repository.Options{SectorLayout: sector.ForceNormal})
	_, err = repo.Read(c.Index, c.Archive)
	assert.True(t, errors.Is(err, errors.ErrCorruptedSector), "unexpected error %v", err)
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, cachetest.NewBuilder())
	repo := f.open(t, repository.Options{})

	_, err := repo.Read(9, 0)
	assert.True(t, errors.Is(err, errors.ErrIndexNotFound))
	_, err = repo.ArchiveIDs(9)
	assert.True(t, errors.Is(err, errors.ErrIndexNotFound))

	_, err = repo.Read(0, 2)
	assert.True(t, errors.Is(err, errors.ErrArchiveNotFound))
	_, err = repo.ReadRaw(2, 99)
	assert.True(t, errors.Is(err, errors.ErrArchiveNotFound))
}

func TestChecksumMismatch(t *testing.T) {
	f := newFixture(t, cachetest.NewBuilder())
	c := cachetest.Coord{Index: 0, Archive: 1}
	f.corrupt(c, 700)

	repo := f.open(t, repository.Options{Verify: checksum.CRC})
	_, err := repo.Read(c.Index, c.Archive)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrChecksumMismatch))

	var mismatch *errors.ChecksumMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, uint8(0), mismatch.Index)
	assert.Equal(t, uint32(1), mismatch.Archive)

	// without checks the damaged payload comes through
	repo = f.open(t, repository.Options{Verify: checksum.Off})
	buf, err := repo.Read(c.Index, c.Archive)
	require.NoError(t, err)
	assert.NotEqual(t, f.payloads[c], buf)

	err = repo.Verify(c.Index, c.Archive, checksum.CRC)
	assert.True(t, errors.Is(err, errors.ErrChecksumMismatch))
}

func TestChecksumMismatchCompressed(t *testing.T) {
	for _, c := range []cachetest.Coord{{Index: 0, Archive: 0}, {Index: 0, Archive: 3}} {
		t.Run(fmt.Sprintf("%d/%d", c.Index, c.Archive), func(t *testing.T) {
			f := newFixture(t, cachetest.NewBuilder())
			// inside the compressed stream
			f.corrupt(c, 20)

			repo := f.open(t, repository.Options{Verify: checksum.CRC})
			_, err := repo.Read(c.Index, c.Archive)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrChecksumMismatch), "unexpected error %v", err)
			assert.False(t, errors.Is(err, errors.ErrDecompression))

			repo = f.open(t, repository.Options{Verify: checksum.Off})
			_, err = repo.Read(c.Index, c.Archive)
			assert.False(t, errors.Is(err, errors.ErrChecksumMismatch))
		})
	}
}

func TestWhirlpoolMismatch(t *testing.T) {
	b := cachetest.NewBuilder()
	b.Unified = true
	b.Whirlpool = true
	f := newFixture(t, b)

	c := cachetest.Coord{Index: 2, Archive: 1}
	repo := f.open(t, repository.Options{Verify: checksum.Digest})
	require.NoError(t, repo.Verify(c.Index, c.Archive, checksum.Digest))
	for _, id := range repo.Indices() {
		assert.NoError(t, repo.VerifyIndex(id), "index %d", id)
	}

	f.corrupt(c, 5)
	repo = f.open(t, repository.Options{Verify: checksum.Off})

	var mismatch *errors.ChecksumMismatchError
	err := repo.Verify(c.Index, c.Archive, checksum.Digest)
	require.True(t, errors.As(err, &mismatch))

	err = repo.VerifyIndex(c.Index)
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "index whirlpool", mismatch.Scheme)
	assert.NoError(t, repo.VerifyIndex(0))
}

func TestCorruptedChain(t *testing.T) {
	c := cachetest.Coord{Index: 0, Archive: 1}

	f := newFixture(t, cachetest.NewBuilder())
	second := f.store.Chains[c][1]
	f.store.Data[f.store.SectorOffset(second)] ^= 0xff
	_, err := f.open(t, repository.Options{}).Read(c.Index, c.Archive)
	assert.True(t, errors.Is(err, errors.ErrCorruptedSector), "unexpected error %v", err)

	f = newFixture(t, cachetest.NewBuilder())
	first := f.store.SectorOffset(f.store.Chains[c][0])
	// clear the next sector pointer
	copy(f.store.Data[first+4:first+7], []byte{0, 0, 0})
	_, err = f.open(t, repository.Options{}).Read(c.Index, c.Archive)
	assert.True(t, errors.Is(err, errors.ErrTruncatedArchive), "unexpected error %v", err)
}

func TestReadWithKeys(t *testing.T) {
	f := newFixture(t, cachetest.NewBuilder())
	repo := f.open(t, repository.Options{Verify: checksum.CRC, CacheSize: 8})

	want := random(7, 900)
	buf, err := repo.ReadWithKeys(6, 50, testKeys)
	require.NoError(t, err)
	assert.Equal(t, want, buf)

	_, err = repo.Read(6, 50)
	assert.Error(t, err)

	// the zero key reads unencrypted archives
	buf, err = repo.ReadWithKeys(0, 0, codec.Keys{})
	require.NoError(t, err)
	assert.Equal(t, []byte("client config"), buf)
}

func TestReadGroup(t *testing.T) {
	f := newFixture(t, cachetest.NewBuilder())
	repo := f.open(t, repository.Options{Verify: checksum.CRC})

	c := cachetest.Coord{Index: 7, Archive: 0}
	files, err := repo.ReadGroup(c.Index, c.Archive, codec.Keys{})
	require.NoError(t, err)
	assert.Equal(t, f.groups[c], files)

	files, err = repo.ReadGroup(0, 0, codec.Keys{})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("client config")}, files)
}

func TestNames(t *testing.T) {
	f := newFixture(t, cachetest.NewBuilder())
	repo := f.open(t, repository.Options{Verify: checksum.CRC})

	id, err := repo.ArchiveByName(repository.BinaryIndex, "title.jpg")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)

	buf, err := repo.ReadByName(repository.BinaryIndex, "title.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("title screen"), buf)

	_, err = repo.ArchiveByName(repository.BinaryIndex, "missing")
	assert.True(t, errors.Is(err, errors.ErrArchiveNotFound))

	tab, err := repo.HuffmanTable()
	require.NoError(t, err)
	enc, err := tab.Encode([]byte("abcd"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x5b, 0x80}, enc)
}

func TestMetadata(t *testing.T) {
	b := cachetest.NewBuilder()
	b.NoMetadata[2] = true
	f := newFixture(t, b)
	repo := f.open(t, repository.Options{Verify: checksum.CRC})

	meta, err := repo.IndexMetadata(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), meta.Protocol)
	assert.Equal(t, uint32(100), meta.Revision)
	assert.Len(t, meta.Archives, 3)

	am, err := repo.Metadata(0, 3)
	require.NoError(t, err)
	assert.Equal(t, checksum.Sum32(f.store.Containers[cachetest.Coord{Index: 0, Archive: 3}]), am.CRC)

	_, err = repo.Metadata(0, 2)
	assert.True(t, errors.Is(err, errors.ErrArchiveNotFound))

	_, err = repo.IndexMetadata(2)
	assert.True(t, errors.Is(err, errors.ErrArchiveNotFound))

	// archives of an index without reference table are read unchecked
	c := cachetest.Coord{Index: 2, Archive: 0}
	buf, err := repo.Read(c.Index, c.Archive)
	require.NoError(t, err)
	assert.Equal(t, f.payloads[c], buf)
}

func TestChecksumTableSplit(t *testing.T) {
	f := newFixture(t, cachetest.NewBuilder())
	repo := f.open(t, repository.Options{})

	tab, err := repo.ChecksumTable()
	require.NoError(t, err)
	require.Len(t, tab.Entries, 11)

	crcs := make([]uint32, len(tab.Entries))
	for id, e := range tab.Entries {
		container, ok := f.store.Containers[cachetest.Coord{Index: layout.ReferenceTable, Archive: uint32(id)}]
		if !ok {
			assert.Equal(t, checksum.TableEntry{}, e, "index %d", id)
			continue
		}
		assert.Equal(t, checksum.Sum32(container), e.CRC, "index %d", id)
		assert.Equal(t, uint32(id)+100, e.Revision, "index %d", id)
		crcs[id] = e.CRC
	}
	assert.True(t, tab.Validate(crcs))
}

func TestChecksumTableUnified(t *testing.T) {
	b := cachetest.NewBuilder()
	b.Unified = true
	b.Whirlpool = true
	f := newFixture(t, b)
	repo := f.open(t, repository.Options{})

	tab, err := repo.ChecksumTable()
	require.NoError(t, err)
	require.Len(t, tab.Entries, 11)

	idx, err := repo.Index(2)
	require.NoError(t, err)
	assert.Equal(t, idx.Digest(), tab.Entries[2].Whirlpool)
	assert.Nil(t, tab.Entries[1].Whirlpool)
}

func TestMalformedSplit(t *testing.T) {
	f := newFixture(t, cachetest.NewBuilder())
	f.store.IndexFiles[layout.ReferenceTable] = []byte{1, 2, 3, 4, 5, 6, 7}
	_, err := repository.New(f.store.Backend(), f.store.Files(), repository.Options{})
	assert.True(t, errors.Is(err, errors.ErrMalformedReferenceTable), "unexpected error %v", err)

	f = newFixture(t, cachetest.NewBuilder())
	delete(f.store.IndexFiles, layout.ReferenceTable)
	_, err = repository.New(f.store.Backend(), f.store.Files(), repository.Options{})
	assert.True(t, errors.Is(err, os.ErrNotExist), "unexpected error %v", err)
	assert.True(t, errors.Is(err, errors.ErrIO), "unexpected error %v", err)

	f = newFixture(t, cachetest.NewBuilder())
	f.corrupt(cachetest.Coord{Index: layout.ReferenceTable, Archive: 2}, 20)
	_, err = repository.New(f.store.Backend(), f.store.Files(), repository.Options{})
	assert.True(t, errors.Is(err, errors.ErrMalformedReferenceTable), "unexpected error %v", err)
}

func TestMalformedUnified(t *testing.T) {
	b := cachetest.NewBuilder()
	b.Unified = true
	f := newFixture(t, b)
	copy(f.store.Data[:6], make([]byte, 6))
	_, err := repository.New(f.store.Backend(), nil, repository.Options{})
	assert.True(t, errors.Is(err, errors.ErrMalformedReferenceTable), "unexpected error %v", err)

	_, err = repository.New(f.store.Backend(), nil, repository.Options{CacheSize: -1})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	for _, mmap := range []bool{false, true} {
		for name, newBuilder := range builders() {
			f := newFixture(t, newBuilder())
			dir := t.TempDir()
			f.store.WriteDir(t, dir)

			cfg := local.NewConfig()
			cfg.Path = dir
			cfg.Mmap = mmap

			repo, err := repository.Open(cfg, repository.Options{Verify: checksum.CRC})
			require.NoError(t, err, "%v mmap=%v", name, mmap)

			for c, want := range f.payloads {
				buf, err := repo.Read(c.Index, c.Archive)
				require.NoError(t, err)
				assert.Equal(t, want, buf)
			}

			require.NoError(t, repo.Close())
			require.NoError(t, repo.Close())
		}
	}
}
