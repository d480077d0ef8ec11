package crypto

// Isaac is the ISAAC generator used to obfuscate packet opcodes. Each
// direction of a connection owns its own instance; values must be consumed
// in the order packets are sent. An Isaac is not safe for concurrent use.
type Isaac struct {
	mem   [256]uint32
	rsl   [256]uint32
	a     uint32
	b     uint32
	c     uint32
	count int
}

// NewIsaac returns a generator seeded with seed. At most 256 words are used,
// missing words are zero.
func NewIsaac(seed []uint32) *Isaac {
	r := &Isaac{}
	copy(r.rsl[:], seed)
	r.init()
	return r
}

// ServerKeys returns the seed of the outbound generator of a server for a
// client session seed: each word offset by 50.
func ServerKeys(seed []uint32) []uint32 {
	keys := make([]uint32, len(seed))
	for i, k := range seed {
		keys[i] = k + 50
	}
	return keys
}

// Next returns the next value. Values of a block are handed out from the end
// of the result array, and a new block is generated every 256 values.
func (r *Isaac) Next() uint32 {
	if r.count == 0 {
		r.isaac()
		r.count = len(r.rsl)
	}
	r.count--
	return r.rsl[r.count]
}

func (r *Isaac) isaac() {
	r.c++
	r.b += r.c

	for i := range r.mem {
		x := r.mem[i]
		switch i & 3 {
		case 0:
			r.a ^= r.a << 13
		case 1:
			r.a ^= r.a >> 6
		case 2:
			r.a ^= r.a << 2
		case 3:
			r.a ^= r.a >> 16
		}
		r.a += r.mem[(i+128)&255]
		y := r.mem[(x>>2)&255] + r.a + r.b
		r.mem[i] = y
		r.b = r.mem[(y>>10)&255] + x
		r.rsl[i] = r.b
	}
}

type mixer [8]uint32

func (m *mixer) mix() {
	m[0] ^= m[1] << 11
	m[3] += m[0]
	m[1] += m[2]
	m[1] ^= m[2] >> 2
	m[4] += m[1]
	m[2] += m[3]
	m[2] ^= m[3] << 8
	m[5] += m[2]
	m[3] += m[4]
	m[3] ^= m[4] >> 16
	m[6] += m[3]
	m[4] += m[5]
	m[4] ^= m[5] << 10
	m[7] += m[4]
	m[5] += m[6]
	m[5] ^= m[6] >> 4
	m[0] += m[5]
	m[6] += m[7]
	m[6] ^= m[7] << 8
	m[1] += m[6]
	m[7] += m[0]
	m[7] ^= m[0] >> 9
	m[2] += m[7]
	m[0] += m[1]
}

func (r *Isaac) init() {
	const golden = 0x9e3779b9

	var m mixer
	for i := range m {
		m[i] = golden
	}
	for i := 0; i < 4; i++ {
		m.mix()
	}

	for _, src := range []*[256]uint32{&r.rsl, &r.mem} {
		for i := 0; i < len(r.mem); i += 8 {
			for j := range m {
				m[j] += src[i+j]
			}
			m.mix()
			copy(r.mem[i:i+8], m[:])
		}
	}

	r.isaac()
	r.count = len(r.rsl)
}
