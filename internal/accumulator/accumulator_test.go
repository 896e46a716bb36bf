package accumulator

import (
	"bytes"
	"testing"
)

func TestUnseededReadReturnsEmpty(t *testing.T) {
	a := New()
	if out := a.RandomData(16); out != nil {
		t.Fatalf("expected nil from unseeded accumulator, got %v", out)
	}
	st := a.Status()
	if st.Seeded {
		t.Fatal("accumulator reports seeded before any deposit")
	}
}

func TestFirstSeedViaSinglePool(t *testing.T) {
	a := New()
	a.Deposit(0, 0, bytes.Repeat([]byte{0x01}, MinPoolSize))

	out := a.RandomData(16)
	if len(out) != 16 {
		t.Fatalf("expected 16 bytes of output, got %d", len(out))
	}

	st := a.Status()
	if st.ReseedCount != 1 {
		t.Fatalf("reseed_count = %d, want 1", st.ReseedCount)
	}
	if st.PoolSizes[0] != 0 {
		t.Fatalf("pool 0 size = %d after reseed, want 0", st.PoolSizes[0])
	}
	if !st.Seeded {
		t.Fatal("accumulator not seeded after first reseed")
	}
}

func TestExponentialSchedule(t *testing.T) {
	a := New()

	for reseedNum := uint64(1); reseedNum <= 8; reseedNum++ {
		a.Deposit(0, 0, bytes.Repeat([]byte{byte(reseedNum)}, MinPoolSize))
		a.RandomData(1)

		st := a.Status()
		if st.ReseedCount != reseedNum {
			t.Fatalf("after driving reseed #%d, reported count is %d", reseedNum, st.ReseedCount)
		}

		switch reseedNum {
		case 4:
			// Pool 2 (2^2 == 4) must have been consumed exactly once by now.
			if st.PoolSizes[2] != 0 {
				t.Fatalf("pool 2 not cleared by reseed #4")
			}
		}
	}

	st := a.Status()
	// Pool 3 requires 2^3 == 8 | c; after 8 reseeds it should just have been
	// cleared for the first time.
	if st.PoolSizes[3] != 0 {
		t.Fatalf("pool 3 not cleared by reseed #8")
	}
}

func TestOutputSizeBounds(t *testing.T) {
	a := New()
	a.Deposit(0, 0, bytes.Repeat([]byte{0x03}, MinPoolSize))
	a.RandomData(1) // seed it

	if out := a.RandomData(-1); out != nil {
		t.Fatalf("expected nil for negative n, got %v", out)
	}
	if out := a.RandomData(1_048_577); out != nil {
		t.Fatalf("expected nil for n past the 1MiB cap, got %v", out)
	}
	if out := a.RandomData(0); len(out) != 0 {
		t.Fatalf("expected zero-length (non-nil-or-nil, just len 0) output for n=0, got %d bytes", len(out))
	}
}

func TestRoundRobinIsCallerOwned(t *testing.T) {
	// The accumulator trusts the caller's choice of pool index; it has no
	// cursor of its own (that lives in the ingestion supervisor). Verify
	// deposits land exactly where asked.
	a := New()
	a.Deposit(5, 0, []byte("abc"))
	a.Deposit(5, 0, []byte("def"))

	st := a.Status()
	if st.PoolSizes[5] != 6 {
		t.Fatalf("pool 5 size = %d, want 6", st.PoolSizes[5])
	}
	for i, size := range st.PoolSizes {
		if i != 5 && size != 0 {
			t.Fatalf("unexpected deposit landed in pool %d", i)
		}
	}
}
