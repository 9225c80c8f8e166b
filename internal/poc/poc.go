// Package poc derives Proof-of-Capacity nonces from Shabal-256 under the
// PoC2 layout: a cascade of hashes over a growing suffix, stored back to
// front, then the whole nonce XOR-folded with one digest over itself.
package poc

import (
	"encoding/binary"

	"plotter/internal/shabal"
)

const (
	// HashSize is the size of one Shabal-256 digest.
	HashSize = 32
	// ScoopSize is the mining read unit: two adjacent digests.
	ScoopSize = 2 * HashSize
	// NumScoops is the number of scoops per nonce.
	NumScoops = 4096
	// NonceSize is the size of one finished nonce: 256 KiB.
	NonceSize = NumScoops * ScoopSize
	// SeedSize is the account id plus nonce number, big-endian.
	SeedSize = 16

	hashRounds  = 2 * NumScoops
	hashCap     = 4096 // a cascade hash never reads further back than this
	scratchSize = NonceSize + SeedSize
)

// hashBounds returns the input range and digest destination of cascade
// round i within a scratch region.
func hashBounds(i int) (off, n, dst int) {
	n = i*HashSize + SeedSize
	if n > hashCap {
		n = hashCap
	}
	off = NonceSize + SeedSize - n
	dst = NonceSize - (i+1)*HashSize
	return off, n, dst
}

func putSeed(scratch []byte, accountID, nonce uint64) {
	binary.BigEndian.PutUint64(scratch[NonceSize:], accountID)
	binary.BigEndian.PutUint64(scratch[NonceSize+8:], nonce)
}

// PlotNonce writes the finished 256 KiB nonce for (accountID, nonce) into
// out. It is the scalar reference; the batched Generator matches it bit
// for bit at every lane width.
func PlotNonce(accountID, nonce uint64, out []byte) {
	scratch := make([]byte, scratchSize)
	putSeed(scratch, accountID, nonce)
	for i := 0; i < hashRounds; i++ {
		off, n, dst := hashBounds(i)
		sum := shabal.Sum256(scratch[off : off+n])
		copy(scratch[dst:], sum[:])
	}
	final := shabal.Sum256(scratch[:NonceSize])
	for i := 0; i < NonceSize; i++ {
		out[i] = scratch[i] ^ final[i&(HashSize-1)]
	}
}

// Generator fills batches of consecutive nonces through a lane-batched
// Shabal kernel. A Generator owns its scratch memory; one per worker.
type Generator struct {
	kernel shabal.Kernel
	lanes  int

	scratch [][]byte
	msgs    [][]byte
	sums    [][]byte
	finals  [][]byte
}

// NewGenerator returns a Generator driving the given kernel.
func NewGenerator(kernel shabal.Kernel) *Generator {
	lanes := kernel.Lanes()
	g := &Generator{
		kernel:  kernel,
		lanes:   lanes,
		scratch: make([][]byte, lanes),
		msgs:    make([][]byte, lanes),
		sums:    make([][]byte, lanes),
		finals:  make([][]byte, lanes),
	}
	for l := 0; l < lanes; l++ {
		g.scratch[l] = make([]byte, scratchSize)
		g.finals[l] = make([]byte, HashSize)
	}
	return g
}

// Lanes returns how many consecutive nonces one PlotNonces call produces.
func (g *Generator) Lanes() int { return g.lanes }

// PlotNonces hashes Lanes consecutive nonces starting at nonce and
// scatters them scoop-major into frame: scoop s of the frame's nonce
// index n lands at (s*frameNonces+n)*ScoopSize. frameIndex is the frame
// index of the first generated nonce; frameNonces is the frame's nonce
// capacity, which fixes the scatter stride even for a partially filled
// frame.
func (g *Generator) PlotNonces(accountID, nonce uint64, frame []byte, frameNonces, frameIndex int) {
	for l := 0; l < g.lanes; l++ {
		putSeed(g.scratch[l], accountID, nonce+uint64(l))
	}
	for i := 0; i < hashRounds; i++ {
		off, n, dst := hashBounds(i)
		for l := 0; l < g.lanes; l++ {
			g.msgs[l] = g.scratch[l][off : off+n]
			g.sums[l] = g.scratch[l][dst : dst+HashSize]
		}
		g.kernel.Sum(g.msgs, g.sums)
	}
	for l := 0; l < g.lanes; l++ {
		g.msgs[l] = g.scratch[l][:NonceSize]
		g.sums[l] = g.finals[l]
	}
	g.kernel.Sum(g.msgs, g.sums)

	for l := 0; l < g.lanes; l++ {
		src := g.scratch[l]
		final := g.finals[l]
		for s := 0; s < NumScoops; s++ {
			dst := frame[(s*frameNonces+frameIndex+l)*ScoopSize:]
			so := s * ScoopSize
			for i := 0; i < ScoopSize; i++ {
				dst[i] = src[so+i] ^ final[i&(HashSize-1)]
			}
		}
	}
}
