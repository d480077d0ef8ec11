// Package cachetest lays out synthetic stores for tests.
package cachetest

import (
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skyline93/rscache/internal/backend"
	"github.com/skyline93/rscache/internal/backend/layout"
	"github.com/skyline93/rscache/internal/checksum"
	"github.com/skyline93/rscache/internal/codec"
	"github.com/skyline93/rscache/internal/index"
	"github.com/skyline93/rscache/internal/sector"
)

// Coord addresses an archive.
type Coord struct {
	Index   uint8
	Archive uint32
}

type archive struct {
	Coord
	container []byte
	name      string
	entries   int
}

// Builder collects archives and writes them into a store.
type Builder struct {
	// Unified writes the unified layout instead of idx files.
	Unified bool

	// Scatter shuffles the sectors of every chain with Seed.
	Scatter bool
	Seed    int64

	// Mode picks the sector layout of each chain.
	Mode sector.Mode

	// Whirlpool records digests next to CRCs.
	Whirlpool bool

	// NoMetadata lists indices of a split store without a reference table.
	NoMetadata map[uint8]bool

	archives []*archive
}

// NewBuilder returns an empty builder for a split store.
func NewBuilder() *Builder {
	return &Builder{NoMetadata: make(map[uint8]bool)}
}

// Add stores container as archive id of idx.
func (b *Builder) Add(idx uint8, id uint32, container []byte) *Builder {
	if idx == layout.ReferenceTable {
		panic("index 255 is written by the builder")
	}
	if len(container) == 0 {
		panic("empty container")
	}
	b.archives = append(b.archives, &archive{Coord: Coord{idx, id}, container: container})
	return b
}

// AddPayload wraps payload into a container compressed with c and adds it.
// The container carries a version trailer.
func (b *Builder) AddPayload(t testing.TB, idx uint8, id uint32, c codec.Compression, payload []byte) []byte {
	buf, err := codec.Encode(c, payload, codec.Options{Version: uint16(id + 1), WithVersion: true})
	require.NoError(t, err)
	b.Add(idx, id, buf)
	return buf
}

// Name sets the name of an archive that has been added before.
func (b *Builder) Name(idx uint8, id uint32, name string) *Builder {
	for _, a := range b.archives {
		if a.Coord == (Coord{idx, id}) {
			a.name = name
			return b
		}
	}
	panic("naming unknown archive")
}

// Group records that an archive added before holds n files.
func (b *Builder) Group(idx uint8, id uint32, n int) *Builder {
	for _, a := range b.archives {
		if a.Coord == (Coord{idx, id}) {
			a.entries = n
			return b
		}
	}
	panic("grouping unknown archive")
}

// Store is the result of a build.
type Store struct {
	Data       []byte
	IndexFiles backend.MemIndexFiles

	Refs       map[Coord]index.ArchiveRef
	Containers map[Coord][]byte
	Chains     map[Coord][]uint32
}

// Backend returns the data file as a backend.
func (s *Store) Backend() backend.Backend {
	return backend.NewMemBackend(s.Data)
}

// Files returns the index files, nil for a unified store.
func (s *Store) Files() backend.IndexFiles {
	if s.IndexFiles == nil {
		return nil
	}
	return s.IndexFiles
}

// SectorOffset returns the position of a sector in Data.
func (s *Store) SectorOffset(n uint32) int {
	return int(n) * sector.Size
}

// WriteDir writes the store into dir using the names of a real store.
func (s *Store) WriteDir(t testing.TB, dir string) {
	l := &layout.SplitLayout{Path: dir}
	require.NoError(t, os.WriteFile(l.Filename(backend.Handle{Type: backend.DataFile}), s.Data, 0644))
	for id, buf := range s.IndexFiles {
		name := l.Filename(backend.Handle{Type: backend.IndexFile, Index: id})
		require.NoError(t, os.WriteFile(name, buf, 0644))
	}
}

type writer struct {
	b       *Builder
	sectors [][]byte
	rnd     *rand.Rand
	store   *Store
}

// write allocates fresh sectors for all archives and fills them.
func (w *writer) write(archives []*archive) {
	var total int
	for _, a := range archives {
		total += w.chunks(a)
	}

	first := uint32(len(w.sectors))
	numbers := make([]uint32, total)
	for i := range numbers {
		numbers[i] = first + uint32(i)
	}
	if w.b.Scatter {
		w.rnd.Shuffle(len(numbers), func(i, j int) { numbers[i], numbers[j] = numbers[j], numbers[i] })
	}
	for i := 0; i < total; i++ {
		w.sectors = append(w.sectors, make([]byte, sector.Size))
	}

	for _, a := range archives {
		n := w.chunks(a)
		chain := numbers[:n]
		numbers = numbers[n:]

		l := w.b.Mode.Layout(a.Archive)
		rest := a.container
		for chunk, num := range chain {
			var next uint32
			if chunk+1 < len(chain) {
				next = chain[chunk+1]
			}
			buf := w.sectors[num]
			sector.PutHeader(l, buf, sector.Header{Archive: a.Archive, Chunk: uint16(chunk), Next: next, Index: a.Index})
			m := copy(buf[l.HeaderSize():], rest)
			rest = rest[m:]
		}

		w.store.Refs[a.Coord] = index.ArchiveRef{Sector: chain[0], Length: uint32(len(a.container))}
		w.store.Containers[a.Coord] = a.container
		w.store.Chains[a.Coord] = slices.Clone(chain)
	}
}

func (w *writer) chunks(a *archive) int {
	ds := w.b.Mode.Layout(a.Archive).DataSize()
	return (len(a.container) + ds - 1) / ds
}

// Build lays out the store. The data file ends right after the last payload
// byte, like files written by the game.
func (b *Builder) Build(t testing.TB) *Store {
	w := &writer{
		b:       b,
		sectors: [][]byte{make([]byte, sector.Size)},
		rnd:     rand.New(rand.NewSource(b.Seed)),
		store: &Store{
			Refs:       make(map[Coord]index.ArchiveRef),
			Containers: make(map[Coord][]byte),
			Chains:     make(map[Coord][]uint32),
		},
	}

	archives := slices.Clone(b.archives)
	slices.SortFunc(archives, func(x, y *archive) int {
		if x.Index != y.Index {
			return int(x.Index) - int(y.Index)
		}
		switch {
		case x.Archive < y.Archive:
			return -1
		case x.Archive > y.Archive:
			return 1
		}
		return 0
	})

	if b.Unified {
		b.buildUnified(t, w, archives)
	} else {
		b.buildSplit(t, w, archives)
	}

	w.store.Data = trim(w.sectors, w.store, b.Mode)
	return w.store
}

// trim joins the sectors and cuts the padding after the last payload byte.
func trim(sectors [][]byte, s *Store, mode sector.Mode) []byte {
	data := make([]byte, 0, len(sectors)*sector.Size)
	for _, buf := range sectors {
		data = append(data, buf...)
	}

	last := uint32(len(sectors) - 1)
	for c, chain := range s.Chains {
		if chain[len(chain)-1] != last {
			continue
		}
		l := mode.Layout(c.Archive)
		used := len(s.Containers[c]) - (len(chain)-1)*l.DataSize()
		return data[:int(last)*sector.Size+l.HeaderSize()+used]
	}
	return data
}

func groupByIndex(archives []*archive) map[uint8][]*archive {
	m := make(map[uint8][]*archive)
	for _, a := range archives {
		m[a.Index] = append(m[a.Index], a)
	}
	return m
}

func sortedKeys[V any](m map[uint8]V) []uint8 {
	keys := make([]uint8, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortedIDs[V any](m map[uint32]V) []uint32 {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (b *Builder) buildSplit(t testing.TB, w *writer, archives []*archive) {
	byIndex := groupByIndex(archives)

	var tables []*archive
	for _, id := range sortedKeys(byIndex) {
		if b.NoMetadata[id] {
			continue
		}
		m := b.metadata(id, byIndex[id])
		buf, err := codec.Encode(codec.Gzip, EncodeMetadata(m), codec.Options{})
		require.NoError(t, err)
		tables = append(tables, &archive{Coord: Coord{layout.ReferenceTable, uint32(id)}, container: buf})
	}

	w.write(archives)
	w.write(tables)

	files := make(backend.MemIndexFiles)
	for id, list := range byIndex {
		files[id] = idxFile(w.store, list)
	}
	files[layout.ReferenceTable] = idxFile(w.store, tables)
	w.store.IndexFiles = files
}

func idxFile(s *Store, list []*archive) []byte {
	var last uint32
	for _, a := range list {
		last = max(last, a.Archive)
	}
	buf := make([]byte, int(last+1)*index.RefSize)
	for _, a := range list {
		index.PutArchiveRef(buf[int(a.Archive)*index.RefSize:], s.Refs[a.Coord])
	}
	return buf
}

func (b *Builder) metadata(id uint8, list []*archive) *index.Metadata {
	m := &index.Metadata{Protocol: 6, Revision: uint32(id) + 100}
	if b.Whirlpool {
		m.Flags |= index.FlagWhirlpool
	}
	for _, a := range list {
		if a.name != "" {
			m.Flags |= index.FlagNamed
		}
	}

	for _, a := range list {
		am := index.ArchiveMetadata{
			ID:      a.Archive,
			CRC:     checksum.Sum32(a.container),
			Version: 1,
			Entries: []index.EntryMetadata{{ID: 0}},
		}
		if a.entries > 1 {
			am.Entries = make([]index.EntryMetadata, a.entries)
			for i := range am.Entries {
				am.Entries[i].ID = uint32(i)
			}
		}
		if a.name != "" {
			am.NameHash = index.NameHash(a.name)
		}
		if b.Whirlpool {
			am.Whirlpool = checksum.Whirlpool(codec.TrimVersion(a.container))
		}
		m.Archives = append(m.Archives, am)
	}
	return m
}

func (b *Builder) buildUnified(t testing.TB, w *writer, archives []*archive) {
	w.write(archives)

	flags := uint8(index.TableCRC)
	if b.Whirlpool {
		flags |= index.TableWhirlpool
	}

	byIndex := groupByIndex(archives)
	var indices []TableIndex
	for _, id := range sortedKeys(byIndex) {
		ti := TableIndex{ID: id, Entries: make(map[uint32]index.Entry)}
		h := checksum.NewIndexHasher()
		for _, a := range byIndex[id] {
			e := index.Entry{Ref: w.store.Refs[a.Coord], CRC: checksum.Sum32(a.container), HasCRC: true}
			if b.Whirlpool {
				e.Whirlpool = checksum.Whirlpool(codec.TrimVersion(a.container))
			}
			ti.Entries[a.Archive] = e
			h.Add(a.container)
		}
		if b.Whirlpool {
			ti.Digest = h.Sum()
		}
		indices = append(indices, ti)
	}

	buf, err := codec.Encode(codec.LZMA, EncodeReferenceTable(flags, indices), codec.Options{})
	require.NoError(t, err)
	table := &archive{Coord: Coord{layout.ReferenceTable, layout.ReferenceTable}, container: buf}
	w.write([]*archive{table})

	index.PutArchiveRef(w.sectors[0], w.store.Refs[table.Coord])
}

// Filename returns the path of the data file of a store written to dir.
func Filename(dir string) string {
	return filepath.Join(dir, layout.MainData)
}
