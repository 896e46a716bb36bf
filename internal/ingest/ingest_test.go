package ingest

import (
	"context"
	"net"
	"os"
	"sync"
	"testing"
	"time"
)

type deposit struct {
	pool, source int
	payload      []byte
}

type recordingSink struct {
	mu       sync.Mutex
	deposits []deposit
}

func (r *recordingSink) Deposit(poolIndex, sourceID int, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deposits = append(r.deposits, deposit{poolIndex, sourceID, payload})
}

func (r *recordingSink) snapshot() []deposit {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]deposit, len(r.deposits))
	copy(out, r.deposits)
	return out
}

func waitForDeposits(t *testing.T, sink *recordingSink, n int, timeout time.Duration) []deposit {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got := sink.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d deposits, got %d", n, len(sink.snapshot()))
	return nil
}

func TestFileSourceEmptyPathIsNoOp(t *testing.T) {
	sink := &recordingSink{}
	f := newFileSource(sink)
	f.Configure("   ")
	time.Sleep(20 * time.Millisecond)
	if len(sink.snapshot()) != 0 {
		t.Fatal("expected no deposits from an empty path")
	}
}

// TestFileSourceRoundRobinDeposit exercises drainBurst's documented
// fallback: a plain on-disk file, opened by path, does not support read
// deadlines, so SetReadDeadline fails immediately after the first chunk of
// every burst and each chunk ends up as its own one-chunk activation —
// landing in 3 distinct pools for 3 chunks, same as before this source
// understood multi-chunk bursts. TestDrainBurst* below covers the actual
// burst-aggregation behavior on a reader that does support deadlines.
func TestFileSourceRoundRobinDeposit(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "fortunad-entropy-*")
	if err != nil {
		t.Fatal(err)
	}
	content := append(append(bytesN(32, 0xAA), bytesN(32, 0xBB)...), bytesN(32, 0xCC)...)
	if _, err := f.Write(content); err != nil {
		t.Fatal(err)
	}
	f.Close()

	sink := &recordingSink{}
	src := newFileSource(sink)
	src.Configure(f.Name())

	deposits := waitForDeposits(t, sink, 3, 2*time.Second)
	if len(deposits) < 3 {
		t.Fatalf("expected at least 3 deposits, got %d", len(deposits))
	}
	pools := map[int]bool{}
	for _, d := range deposits[:3] {
		pools[d.pool] = true
	}
	if len(pools) != 3 {
		t.Fatalf("expected 3 distinct pools for 3 single-chunk activations on a deadline-less file, got %v", deposits[:3])
	}
}

// TestDrainBurstSameBurstSharesOnePool writes three chunks back-to-back on
// a pipe (which, unlike a plain file, supports read deadlines) before the
// reader ever looks at them, so drainBurst should see all three already
// buffered and deposit them into the same pool as a single activation —
// matching process_device's do-while-bytesAvailable loop in the original.
func TestDrainBurstSameBurstSharesOnePool(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	content := append(append(bytesN(32, 0xAA), bytesN(32, 0xBB)...), bytesN(32, 0xCC)...)
	if _, err := w.Write(content); err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	var cur cursor
	if ok := drainBurst(r, &cur, sink, SourceFile); !ok {
		t.Fatal("drainBurst reported stop on a healthy pipe")
	}

	deposits := sink.snapshot()
	if len(deposits) != 3 {
		t.Fatalf("expected 3 chunks drained by one burst, got %d", len(deposits))
	}
	for _, d := range deposits {
		if d.pool != deposits[0].pool {
			t.Fatalf("expected every chunk of one burst in the same pool, got %v", deposits)
		}
	}
}

// TestDrainBurstSeparateBurstsAdvanceCursor writes one chunk, lets
// drainBurst fully consume it (including the probe timing out), then
// writes a second chunk — two activations that must land in two distinct
// pools.
func TestDrainBurstSeparateBurstsAdvanceCursor(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	sink := &recordingSink{}
	var cur cursor

	if _, err := w.Write(bytesN(32, 0xAA)); err != nil {
		t.Fatal(err)
	}
	if ok := drainBurst(r, &cur, sink, SourceFile); !ok {
		t.Fatal("drainBurst reported stop on a healthy pipe")
	}

	if _, err := w.Write(bytesN(32, 0xBB)); err != nil {
		t.Fatal(err)
	}
	if ok := drainBurst(r, &cur, sink, SourceFile); !ok {
		t.Fatal("drainBurst reported stop on a healthy pipe")
	}

	deposits := sink.snapshot()
	if len(deposits) != 2 {
		t.Fatalf("expected 2 deposits from 2 separate bursts, got %d", len(deposits))
	}
	if deposits[0].pool == deposits[1].pool {
		t.Fatalf("expected 2 separate activations to land in distinct pools, got %v", deposits)
	}
}

func bytesN(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestTCPSourceReconnectLoop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{}
	ts := newTCPSource(ctx, sink)
	defer ts.Close()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	var port int
	for _, c := range portStr {
		port = port*10 + int(c-'0')
	}
	ts.Configure(host, false, uint16(port))

	conn, err := ln.Accept()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for ts.State() != Connected && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ts.State() != Connected {
		t.Fatalf("tcp source never reached Connected state")
	}

	conn.Write(bytesN(16, 0x01))
	waitForDeposits(t, sink, 1, time.Second)

	conn.Close()
	deadline = time.Now().Add(time.Second)
	for ts.State() == Connected && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ts.State() == Connected {
		t.Fatalf("tcp source did not notice disconnect")
	}
}

func TestTCPSourceHeartbeatSilentWhileUnconnected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{}
	ts := newTCPSource(ctx, sink)
	defer ts.Close()

	ts.SetSendByte(0x00, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	// Nothing to assert on directly without a connected peer beyond "it
	// didn't panic or block forever"; writeHeartbeat is a no-op when
	// state != Connected, exercised implicitly here.
}
