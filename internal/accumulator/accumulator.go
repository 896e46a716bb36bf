// Package accumulator implements the Fortuna entropy accumulator: a bank of
// 32 pools fed by asynchronous sources, and the reseed scheduler that folds
// a subset of those pools into the generator on an exponential cadence.
//
// An Accumulator owns its Generator and is safe for concurrent use; every
// state-mutating operation (pool append, reseed, key rotation) is
// serialized behind a single mutex, matching the single critical-section
// discipline the spec's original single-threaded event loop relied on.
package accumulator

import (
	"sync"
	"time"

	"fortunad/internal/block"
	"fortunad/internal/generator"
)

const (
	// Pools is the number of entropy pools. P0 is consumed on every reseed,
	// P1 on every second, P2 on every fourth, and so on, so that a source
	// which only ever contributes to the fast pools cannot prevent
	// uncontaminated entropy in the slow pools from eventually mixing in.
	Pools = 32

	// MinPoolSize is the threshold on P0's length that, once reached,
	// triggers a reseed regardless of elapsed time.
	MinPoolSize = 64

	// ReseedThrottle is documented as an upper bound on reseed frequency in
	// earlier revisions, but the condition it is paired with ("or the
	// elapsed time has passed") makes it behave as a floor: a reseed occurs
	// on demand (pool full) or at least this often. It is kept under that
	// reading here, matching the canonical revision this package implements.
	ReseedThrottle = 100 * time.Millisecond
)

// Accumulator is the pool bank plus reseed scheduler described in §4.3.
type Accumulator struct {
	mu sync.Mutex

	pools       [Pools][]byte
	reseedCount uint64
	lastReseed  time.Time

	gen generator.Generator
}

// New returns an unseeded Accumulator with all pools empty.
func New() *Accumulator {
	return &Accumulator{}
}

// Deposit appends payload to pool index i, which must already have been
// selected by the caller's round-robin cursor (the accumulator has no
// opinion on which pool a source writes to next). sourceID is used only for
// the observability log line.
func (a *Accumulator) Deposit(i, sourceID int, payload []byte) {
	a.mu.Lock()
	a.pools[i] = append(a.pools[i], payload...)
	n := len(a.pools[i])
	a.mu.Unlock()

	log.Debugf("pool_filled: pool=%d source=%d deposit_bytes=%d pool_bytes=%d",
		i, sourceID, len(payload), n)
}

// RandomData is the public entry point: §4.3's random_data policy. It
// decides whether to reseed, reseeds if so, and then either returns empty
// (generator has never been seeded) or n pseudo-random bytes.
func (a *Accumulator) RandomData(n int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	// A reseed requires pool 0 to actually hold entropy: an empty pool 0
	// must never be hashed into the key, or an untouched Accumulator would
	// seed itself from nothing on its very first RandomData call. Once that
	// bar is met, a reseed is due immediately (never reseeded before) or
	// once the throttle interval has elapsed since the last one.
	if len(a.pools[0]) >= MinPoolSize && (a.lastReseed.IsZero() || now.Sub(a.lastReseed) > ReseedThrottle) {
		a.reseedLocked(now)
	}

	if a.reseedCount == 0 {
		return nil
	}
	return a.gen.PseudoRandomData(n)
}

// reseedLocked performs one reseed: it folds the hash of every pool whose
// index satisfies reseedCount mod 2^i == 0 into the generator's key, clears
// those pools, and records now as the time of the reseed. Must be called
// with mu held.
//
// The set of qualifying indices is always a contiguous run starting at 0
// (P0 always qualifies; once index i fails to qualify, every larger index
// fails too, since it requires a higher power of two to divide reseedCount),
// so the scan below can stop at the first non-qualifying pool rather than
// testing all 32 indices every time.
func (a *Accumulator) reseedLocked(now time.Time) {
	a.reseedCount++

	seed := make([]byte, 0, Pools*32)
	var mask uint64
	for i := 0; i < Pools && a.reseedCount&mask == 0; i++ {
		digest := block.SHA256(a.pools[i])
		seed = append(seed, digest[:]...)
		a.pools[i] = nil
		mask = mask<<1 | 1
	}

	a.gen.Reseed(seed)
	a.lastReseed = now

	log.Infof("reseeded: reseed_count=%d seed_material_bytes=%d", a.reseedCount, len(seed))
}

// Status is a point-in-time snapshot of the accumulator's observable state,
// used by the service's /status endpoint and by tests.
type Status struct {
	Seeded      bool       `json:"seeded"`
	ReseedCount uint64     `json:"reseed_count"`
	LastReseed  time.Time  `json:"last_reseed"`
	PoolSizes   [Pools]int `json:"pool_sizes"`
}

// Status returns a snapshot of the accumulator's current state.
func (a *Accumulator) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	var s Status
	s.Seeded = a.gen.Seeded()
	s.ReseedCount = a.reseedCount
	s.LastReseed = a.lastReseed
	for i := range a.pools {
		s.PoolSizes[i] = len(a.pools[i])
	}
	return s
}
