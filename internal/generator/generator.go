// Package generator implements the Fortuna keyed counter-mode byte producer:
// a 32-byte key and a 128-bit counter drive AES-256 in CTR mode, with the
// key rotated after every successful output call to provide forward
// secrecy. The package has no notion of entropy pools or reseed scheduling;
// that lives one layer up, in the accumulator.
package generator

import (
	"fortunad/internal/block"
)

// MaxOutputBytes is the hard cap on a single PseudoRandomData call, per the
// Fortuna design's bound on the number of blocks produced from one key
// (2^16 blocks, i.e. 2^20 bytes for a 16-byte block size).
const MaxOutputBytes = 1 << 20

// Generator is the Fortuna PRNG core: key plus counter. The zero value is a
// valid, unseeded Generator (counter.isZero() holds until the first Reseed).
// Generator is not safe for concurrent use; callers (the accumulator) must
// serialize access.
type Generator struct {
	key [block.KeySize]byte
	ctr counter
}

// Seeded reports whether the generator has been reseeded at least once and
// is therefore able to produce output.
func (g *Generator) Seeded() bool {
	return !g.ctr.isZero()
}

// Counter returns the current 128-bit counter value as (lo, hi) halves, for
// tests that assert on exact counter advancement.
func (g *Generator) Counter() (lo, hi uint64) {
	return g.ctr.lo, g.ctr.hi
}

// Reseed is the sole operation that can move a Generator from unseeded to
// seeded. It folds seed material s into the running key via
// key <- SHA256(key || s) and increments the counter by one.
func (g *Generator) Reseed(s []byte) {
	buf := make([]byte, 0, len(g.key)+len(s))
	buf = append(buf, g.key[:]...)
	buf = append(buf, s...)
	g.key = block.SHA256(buf)
	g.ctr.inc()
}

// generateBlocks produces k concatenated 16-byte blocks of output, advancing
// the counter by one per block. If the generator is unseeded it returns nil,
// per the spec's "unseeded read returns empty" rule.
func (g *Generator) generateBlocks(k int) []byte {
	if g.ctr.isZero() {
		return nil
	}

	out := make([]byte, 0, k*block.Size)
	for i := 0; i < k; i++ {
		ctrBytes := g.ctr.bytes()
		cipherBlock := block.Encrypt(ctrBytes[:], g.key[:])
		out = append(out, cipherBlock[:]...)
		g.ctr.inc()
	}
	return out
}

// PseudoRandomData produces exactly n pseudo-random bytes and then rotates
// the key by generating two more blocks and installing them as the new key,
// so a later compromise of the generator's state cannot reveal bytes
// already returned. n must be in [0, MaxOutputBytes]; any other value, or an
// unseeded generator, yields nil.
//
// Key rotation happens unconditionally whenever output is produced,
// including when n == 0 — the counter still advances by two blocks' worth.
func (g *Generator) PseudoRandomData(n int) []byte {
	if n < 0 || n > MaxOutputBytes {
		return nil
	}
	if g.ctr.isZero() {
		return nil
	}

	numBlocks := (n + block.Size - 1) / block.Size
	raw := g.generateBlocks(numBlocks)
	out := make([]byte, n)
	copy(out, raw[:n])

	newKey := g.generateBlocks(2)
	copy(g.key[:], newKey)

	return out
}
