package generator

import (
	"encoding/binary"
	"math/bits"
)

// counter is a 128-bit unsigned integer represented as two 64-bit halves,
// since Go has no native 128-bit integer type. lo wraps into hi on
// increment, matching the little-endian-halves technique used elsewhere in
// this ecosystem for wide nonces/counters.
type counter struct {
	lo, hi uint64
}

// isZero reports whether the counter has never been incremented, which is
// the generator's "unseeded" sentinel.
func (c counter) isZero() bool {
	return c.lo == 0 && c.hi == 0
}

// inc increments the counter by one with carry from lo into hi.
func (c *counter) inc() {
	var carry uint64
	c.lo, carry = bits.Add64(c.lo, 1, 0)
	c.hi, _ = bits.Add64(c.hi, 0, carry)
}

// bytes serializes the counter as 16 little-endian bytes: lo first, then hi.
func (c counter) bytes() [16]byte {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], c.lo)
	binary.LittleEndian.PutUint64(b[8:16], c.hi)
	return b
}
