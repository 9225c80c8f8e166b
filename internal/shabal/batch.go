package shabal

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// A Kernel hashes Lanes independent messages of equal length in lockstep.
// Kernels own scratch state and are not safe for concurrent use; give each
// worker its own instance.
type Kernel interface {
	// Lanes returns the batch width.
	Lanes() int
	// Sum writes the 32-byte Shabal-256 digest of msgs[l] into out[l].
	// msgs and out must both have Lanes() entries, every message must have
	// the same length and every output slot at least Size bytes.
	Sum(msgs [][]byte, out [][]byte)
}

// NewKernel returns a kernel of the given lane width. Width 1 is the
// scalar core; 4, 8 and 16 are the lockstep widths matched to SSE2/AVX,
// AVX2 and AVX-512F register budgets.
func NewKernel(width int) (Kernel, error) {
	switch width {
	case 1:
		return &scalarKernel{}, nil
	case 4, 8, 16:
		return newBatchKernel(width), nil
	}
	return nil, fmt.Errorf("shabal: unsupported lane width %d", width)
}

// Preferred returns a fresh kernel of the width selected for this CPU and
// the name of the instruction set that motivated the choice.
func Preferred() (Kernel, string) {
	width, isa := PreferredWidth()
	k, _ := NewKernel(width)
	return k, isa
}

type scalarKernel struct{}

func (scalarKernel) Lanes() int { return 1 }

func (scalarKernel) Sum(msgs [][]byte, out [][]byte) {
	s := Sum256(msgs[0])
	copy(out[0], s[:])
}

// batchKernel keeps the A/B/C state lane-interleaved (word i of lane l at
// index i*lanes+l) so the per-step inner loops run over a contiguous lane
// vector, the same layout the wide-register implementations use.
type batchKernel struct {
	lanes   int
	a, b, c []uint32
	m       []uint32
	w       uint64
	pad     []byte
}

func newBatchKernel(lanes int) *batchKernel {
	return &batchKernel{
		lanes: lanes,
		a:     make([]uint32, 12*lanes),
		b:     make([]uint32, 16*lanes),
		c:     make([]uint32, 16*lanes),
		m:     make([]uint32, 16*lanes),
		pad:   make([]byte, BlockSize*lanes),
	}
}

func (k *batchKernel) Lanes() int { return k.lanes }

func (k *batchKernel) Sum(msgs [][]byte, out [][]byte) {
	L := k.lanes
	if len(msgs) != L || len(out) != L {
		panic("shabal: batch width mismatch")
	}
	length := len(msgs[0])
	for _, m := range msgs[1:] {
		if len(m) != length {
			panic("shabal: lanes must share one message length")
		}
	}

	k.reset()
	blocks := length / BlockSize
	for blk := 0; blk < blocks; blk++ {
		off := blk * BlockSize
		for l := 0; l < L; l++ {
			k.decodeLane(msgs[l][off:off+BlockSize], l)
		}
		k.compress()
	}

	// Padding block: whatever tail remains, then 0x80 and zeros.
	for l := 0; l < L; l++ {
		p := k.pad[l*BlockSize : (l+1)*BlockSize]
		n := copy(p, msgs[l][blocks*BlockSize:])
		p[n] = 0x80
		for i := n + 1; i < BlockSize; i++ {
			p[i] = 0
		}
		k.decodeLane(p, l)
	}
	k.closeRounds()

	for l := 0; l < L; l++ {
		for i := 0; i < 8; i++ {
			binary.LittleEndian.PutUint32(out[l][i*4:], k.b[(8+i)*L+l])
		}
	}
}

func (k *batchKernel) reset() {
	L := k.lanes
	for i, v := range ivA {
		for l := 0; l < L; l++ {
			k.a[i*L+l] = v
		}
	}
	for i, v := range ivB {
		for l := 0; l < L; l++ {
			k.b[i*L+l] = v
		}
	}
	for i, v := range ivC {
		for l := 0; l < L; l++ {
			k.c[i*L+l] = v
		}
	}
	k.w = 1
}

func (k *batchKernel) decodeLane(block []byte, l int) {
	L := k.lanes
	for i := 0; i < 16; i++ {
		k.m[i*L+l] = binary.LittleEndian.Uint32(block[i*4:])
	}
}

func (k *batchKernel) compress() {
	L := k.lanes
	b, c, m := k.b, k.c, k.m
	for i := 0; i < 16*L; i++ {
		b[i] += m[i]
	}
	k.xorCounter()
	k.applyP()
	for i := 0; i < 16*L; i++ {
		c[i] -= m[i]
	}
	k.b, k.c = c, b
	k.w++
}

func (k *batchKernel) closeRounds() {
	L := k.lanes
	b, m := k.b, k.m
	for i := 0; i < 16*L; i++ {
		b[i] += m[i]
	}
	k.xorCounter()
	k.applyP()
	for r := 0; r < 3; r++ {
		k.b, k.c = k.c, k.b
		k.xorCounter()
		k.applyP()
	}
}

func (k *batchKernel) xorCounter() {
	L := k.lanes
	lo, hi := uint32(k.w), uint32(k.w>>32)
	for l := 0; l < L; l++ {
		k.a[l] ^= lo
		k.a[L+l] ^= hi
	}
}

func (k *batchKernel) applyP() {
	L := k.lanes
	a, b, c, m := k.a, k.b, k.c, k.m
	for i := 0; i < 16*L; i++ {
		b[i] = bits.RotateLeft32(b[i], 17)
	}
	for j := 0; j < 48; j++ {
		i := j & 15
		ia := (j % 12) * L
		ip := ((j + 11) % 12) * L
		ib0 := i * L
		ib1 := ((i + 13) & 15) * L
		ib2 := ((i + 9) & 15) * L
		ib3 := ((i + 6) & 15) * L
		ic := ((8 - i) & 15) * L
		for l := 0; l < L; l++ {
			t := (a[ia+l] ^ (bits.RotateLeft32(a[ip+l], 15) * 5) ^ c[ic+l]) * 3
			t ^= b[ib1+l] ^ (b[ib2+l] &^ b[ib3+l]) ^ m[ib0+l]
			a[ia+l] = t
			b[ib0+l] = ^(bits.RotateLeft32(b[ib0+l], 1) ^ t)
		}
	}
	for n := 0; n < 36; n++ {
		ia := (11 - n%12) * L
		ic := ((6 - n) & 15) * L
		for l := 0; l < L; l++ {
			a[ia+l] += c[ic+l]
		}
	}
}
