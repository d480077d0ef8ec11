// Package huffman implements the prefix code used to compress chat messages.
package huffman

import (
	"container/heap"

	"github.com/skyline93/rscache/internal/errors"
)

// Symbols is the size of the alphabet.
const Symbols = 256

// maxLen is the longest code a Table can hold.
const maxLen = 32

// Table maps each byte value to its code. A Table is immutable and safe for
// concurrent use.
type Table struct {
	codes   [Symbols]uint32
	lengths [Symbols]uint8

	// tree[0] is the root. A child is a node index when positive, a leaf
	// holding symbol s when -(s+1), and absent when zero.
	tree [][2]int32
}

type item struct {
	freq uint32
	seq  int
	node int32
}

// queue orders items by frequency, older items first on ties.
type queue []item

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].freq != q[j].freq {
		return q[i].freq < q[j].freq
	}
	return q[i].seq < q[j].seq
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(item)) }
func (q *queue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// New builds a table from one weight per symbol. Symbols with weight zero get
// no code. The two lightest subtrees are merged until one tree is left, the
// lighter one becoming the 0 branch. A table with a single symbol gives it the
// one bit code 0.
func New(frequencies []byte) (*Table, error) {
	if len(frequencies) > Symbols {
		return nil, errors.Wrapf(errors.ErrInvalidHuffmanTable, "%d frequencies for %d symbols", len(frequencies), Symbols)
	}

	t := &Table{}
	// the root is allocated last, reserve its slot
	t.tree = make([][2]int32, 1, 2*Symbols)

	q := make(queue, 0, Symbols)
	seq := 0
	for sym, f := range frequencies {
		if f == 0 {
			continue
		}
		q = append(q, item{freq: uint32(f), seq: seq, node: -int32(sym + 1)})
		seq++
	}

	switch len(q) {
	case 0:
		return nil, errors.Wrap(errors.ErrInvalidHuffmanTable, "no symbol has a frequency")
	case 1:
		t.tree[0] = [2]int32{q[0].node, 0}
		t.assign(0, 0, 0)
		return t, nil
	}

	heap.Init(&q)
	for q.Len() > 2 {
		a := heap.Pop(&q).(item)
		b := heap.Pop(&q).(item)
		t.tree = append(t.tree, [2]int32{a.node, b.node})
		heap.Push(&q, item{freq: a.freq + b.freq, seq: seq, node: int32(len(t.tree) - 1)})
		seq++
	}
	a := heap.Pop(&q).(item)
	b := heap.Pop(&q).(item)
	t.tree[0] = [2]int32{a.node, b.node}

	if err := t.assign(0, 0, 0); err != nil {
		return nil, err
	}
	return t, nil
}

// assign walks the tree below node and records the code of every leaf.
func (t *Table) assign(node int32, code uint32, depth int) error {
	if depth >= maxLen {
		return errors.Wrapf(errors.ErrInvalidHuffmanTable, "code longer than %d bits", maxLen)
	}
	for bit, child := range t.tree[node] {
		c := code<<1 | uint32(bit)
		switch {
		case child < 0:
			sym := -child - 1
			t.codes[sym] = c
			t.lengths[sym] = uint8(depth + 1)
		case child > 0:
			if err := t.assign(child, c, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// FromLengths builds a table from one code length per symbol, as stored in
// the cache. Codes are handed out in symbol order, the way the client does.
func FromLengths(lengths []byte) (*Table, error) {
	if len(lengths) > Symbols {
		return nil, errors.Wrapf(errors.ErrInvalidHuffmanTable, "%d lengths for %d symbols", len(lengths), Symbols)
	}

	t := &Table{tree: make([][2]int32, 1, 2*Symbols)}
	var next [maxLen + 1]uint32
	found := false

	for sym, n := range lengths {
		if n == 0 {
			continue
		}
		if n > maxLen {
			return nil, errors.Wrapf(errors.ErrInvalidHuffmanTable, "symbol %d: length %d", sym, n)
		}
		found = true

		bit := uint32(1) << (32 - uint(n))
		code := next[n]
		var nextCode uint32
		if code&bit != 0 {
			nextCode = next[n-1]
		} else {
			nextCode = code | bit
			for j := int(n) - 1; j >= 1; j-- {
				c := next[j]
				if c != code {
					break
				}
				jb := uint32(1) << (32 - uint(j))
				if c&jb != 0 {
					next[j] = next[j-1]
					break
				}
				next[j] = c | jb
			}
		}
		next[n] = nextCode
		for j := int(n) + 1; j <= maxLen; j++ {
			if next[j] == code {
				next[j] = nextCode
			}
		}

		c := code >> (32 - uint(n))
		if err := t.insert(byte(sym), c, int(n)); err != nil {
			return nil, err
		}
	}

	if !found {
		return nil, errors.Wrap(errors.ErrInvalidHuffmanTable, "no symbol has a code")
	}
	return t, nil
}

// insert adds the leaf for sym at the path given by code.
func (t *Table) insert(sym byte, code uint32, length int) error {
	node := int32(0)
	for i := length - 1; i >= 0; i-- {
		bit := (code >> uint(i)) & 1
		child := t.tree[node][bit]

		if i == 0 {
			if child != 0 {
				return errors.Wrapf(errors.ErrInvalidHuffmanTable, "code of symbol %d is not prefix free", sym)
			}
			t.tree[node][bit] = -int32(sym) - 1
			break
		}

		switch {
		case child < 0:
			return errors.Wrapf(errors.ErrInvalidHuffmanTable, "code of symbol %d is not prefix free", sym)
		case child == 0:
			t.tree = append(t.tree, [2]int32{})
			child = int32(len(t.tree) - 1)
			t.tree[node][bit] = child
		}
		node = child
	}

	t.codes[sym] = code
	t.lengths[sym] = uint8(length)
	return nil
}

// Code returns the code of sym, right aligned, and its length in bits. The
// length is zero for symbols without a code.
func (t *Table) Code(sym byte) (uint32, int) {
	return t.codes[sym], int(t.lengths[sym])
}

// Encode concatenates the codes of all bytes of data, most significant bit
// first. The last byte is padded with zero bits.
func (t *Table) Encode(data []byte) ([]byte, error) {
	var bits int
	for _, b := range data {
		if t.lengths[b] == 0 {
			return nil, errors.Wrapf(errors.ErrInvalidHuffmanTable, "symbol %d has no code", b)
		}
		bits += int(t.lengths[b])
	}

	out := make([]byte, (bits+7)/8)
	pos := 0
	for _, b := range data {
		code, n := t.codes[b], int(t.lengths[b])
		for i := n - 1; i >= 0; i-- {
			if code>>uint(i)&1 != 0 {
				out[pos>>3] |= 0x80 >> uint(pos&7)
			}
			pos++
		}
	}
	return out, nil
}

// Decode reads n symbols from buf.
func (t *Table) Decode(buf []byte, n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Wrapf(errors.ErrInvalidHuffmanTable, "negative symbol count %d", n)
	}

	// every symbol takes at least one bit
	out := make([]byte, 0, min(n, len(buf)*8))
	node := int32(0)
	pos := 0

	for len(out) < n {
		if pos >= len(buf)*8 {
			return nil, errors.Wrapf(errors.ErrInvalidHuffmanTable, "input exhausted after %d of %d symbols", len(out), n)
		}
		bit := buf[pos>>3] >> uint(7-pos&7) & 1
		pos++

		child := t.tree[node][bit]
		switch {
		case child == 0:
			return nil, errors.Wrapf(errors.ErrInvalidHuffmanTable, "no code at bit %d", pos-1)
		case child < 0:
			out = append(out, byte(-child-1))
			node = 0
		default:
			node = child
		}
	}
	return out, nil
}
