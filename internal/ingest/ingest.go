// Package ingest implements the Fortuna entropy ingestion supervisor: the
// file source, the TCP/TLS source with its connection supervisor and
// heartbeat writer, and the round-robin distribution of their bytes across
// the accumulator's pools.
//
// There is no central event loop here the way there is in the Qt original;
// each source runs its own goroutine(s), and all of them deposit entropy
// into the shared Sink through a single synchronized call, so the locking
// discipline collapses to whatever the Sink (the accumulator) already
// enforces.
package ingest

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"time"
)

// Source identifiers, rendered as decimal ASCII in the deposit tuple per
// §4.4's round-robin write rule.
const (
	SourceFile = 0
	SourceTCP  = 1
)

// Pools mirrors accumulator.Pools. It is duplicated here, rather than
// imported, so this package has no compile-time dependency on the
// accumulator's package layout — it only needs a Sink to deposit into.
const Pools = 32

// Sink is the subset of the accumulator's API the ingestion layer needs:
// a place to deposit raw bytes at a caller-chosen pool index.
type Sink interface {
	Deposit(poolIndex, sourceID int, payload []byte)
}

// cursor is a source's round-robin pointer into the pool bank. Each source
// owns exactly one cursor; it is advanced once per "activation" (one burst
// drained by drainBurst, which may span several reads), never shared
// across sources, which is what guarantees
// invariant I5 (a single source never writes to two pools back-to-back).
type cursor struct {
	mu   sync.Mutex
	next int
}

// advance moves the cursor to the next pool index and returns it.
func (c *cursor) advance() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = (c.next + 1) % Pools
	return c.next
}

// encodeDeposit renders the §4.4 tuple encode(source_id) || encode(|e|) || e
// as a single byte slice, with the source id and length written as decimal
// ASCII so that a pool's raw bytes are self-describing and contributions
// from different sources can't be confused for one another.
func encodeDeposit(sourceID int, e []byte) []byte {
	out := make([]byte, 0, len(e)+8)
	out = append(out, strconv.Itoa(sourceID)...)
	out = append(out, strconv.Itoa(len(e))...)
	out = append(out, e...)
	return out
}

// burstProbe is how long drainBurst waits, after a chunk lands, to see
// whether another one is already buffered. It stands in for the original's
// device->bytesAvailable() check, which a blocking Read has no equivalent
// for: a short read deadline either returns more data immediately or times
// out, and either way it tells us whether the source has gone quiet.
const burstProbe = 2 * time.Millisecond

// deadlineReader is the subset of *os.File and net.Conn that drainBurst
// needs: a blocking Read, plus the ability to bound a single call with
// SetReadDeadline.
type deadlineReader interface {
	Read(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
}

// drainBurst implements process_device's one-activation-per-burst rule: it
// blocks for the first chunk of a burst, picks exactly one pool index for
// it via cur.advance(), then keeps draining chunks into that SAME pool for
// as long as burstProbe finds more already buffered, matching the
// original's "while(device->bytesAvailable() > 0)" drain loop. It returns
// false when the caller should stop reading (the source errored or
// closed); true means "keep calling drainBurst for the next activation".
//
// If r doesn't support read deadlines (e.g. a plain on-disk file opened by
// path, as opposed to a pipe or socket), SetReadDeadline returns an error
// immediately and the burst ends after its first chunk — a documented
// fallback to one chunk per activation, not a silent behavior change, since
// such a reader has no other way to report "more is already there".
func drainBurst(r deadlineReader, cur *cursor, sink Sink, sourceID int) bool {
	buf := make([]byte, readChunk)

	n, err := r.Read(buf)
	if n <= 0 {
		return err == nil
	}

	idx := cur.advance()
	sink.Deposit(idx, sourceID, encodeDeposit(sourceID, buf[:n]))

	for err == nil {
		if dlErr := r.SetReadDeadline(time.Now().Add(burstProbe)); dlErr != nil {
			break
		}
		n, err = r.Read(buf)
		_ = r.SetReadDeadline(time.Time{})
		if n <= 0 {
			break
		}
		sink.Deposit(idx, sourceID, encodeDeposit(sourceID, buf[:n]))
	}

	return err == nil || isTimeout(err)
}

func isTimeout(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
