package lookahead

import (
	"context"
	"errors"
	"testing"
)

// script answers probes from a fixed table and counts calls per index.
type script struct {
	hits  map[int]string
	calls map[int]int
}

func newScript(hits map[int]string) *script {
	return &script{hits: hits, calls: make(map[int]int)}
}

func (s *script) probe(ctx context.Context, i int) (string, bool, error) {
	s.calls[i]++
	v, ok := s.hits[i]
	return v, ok, nil
}

func run(t *testing.T, b *Bridge[string], n int) ([]string, []Outcome) {
	t.Helper()
	vals := make([]string, n)
	outs := make([]Outcome, n)
	for i := 0; i < n; i++ {
		v, o, err := b.Next(context.Background(), i, n)
		if err != nil {
			t.Fatalf("item %d: %v", i, err)
		}
		vals[i], outs[i] = v, o
	}
	return vals, outs
}

func TestBridgeFillsGapWithLaterHit(t *testing.T) {
	s := newScript(map[int]string{0: "a", 4: "b", 5: "c"})
	b := New(5, s.probe)

	vals, outs := run(t, b, 6)

	want := []string{"a", "b", "b", "b", "b", "c"}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("item %d: expected %q, got %q", i, want[i], vals[i])
		}
	}
	wantOut := []Outcome{Observed, Bridged, Cached, Cached, Cached, Observed}
	for i := range wantOut {
		if outs[i] != wantOut[i] {
			t.Errorf("item %d: expected %v, got %v", i, wantOut[i], outs[i])
		}
	}
	// Items 2..4 were answered from the queue and never probed on their own.
	for i := 2; i <= 3; i++ {
		if s.calls[i] != 1 {
			t.Errorf("item %d probed %d times, expected once (during the scan)", i, s.calls[i])
		}
	}
	if s.calls[4] != 1 {
		t.Errorf("item 4 probed %d times, expected 1", s.calls[4])
	}
}

func TestBridgeGivesUpOutsideWindow(t *testing.T) {
	s := newScript(map[int]string{0: "a", 5: "b"})
	b := New(3, s.probe)

	vals, outs := run(t, b, 6)

	for i := 1; i <= 2; i++ {
		if outs[i] != Missed || vals[i] != "" {
			t.Errorf("item %d: expected miss, got %v %q", i, outs[i], vals[i])
		}
	}
	// Item 3 misses but can see item 5 within its window.
	if outs[3] != Bridged || vals[3] != "b" {
		t.Errorf("item 3: expected bridged b, got %v %q", outs[3], vals[3])
	}
	// The hit item itself is served from the queue too.
	if outs[4] != Cached || outs[5] != Cached || vals[5] != "b" {
		t.Errorf("unexpected tail outcomes %v %v %q", outs[4], outs[5], vals[5])
	}
}

func TestBridgeQueueIsBounded(t *testing.T) {
	s := newScript(map[int]string{9: "z"})
	b := New(10, s.probe)

	if _, o, _ := b.Next(context.Background(), 0, 10); o != Bridged {
		t.Fatalf("expected bridged, got %v", o)
	}
	if b.Pending() > b.Window()-1 {
		t.Fatalf("queue holds %d answers, window is %d", b.Pending(), b.Window())
	}
	if b.Pending() != 9 {
		t.Fatalf("expected 9 queued answers, got %d", b.Pending())
	}
}

func TestBridgeStopsAtEndOfStream(t *testing.T) {
	s := newScript(map[int]string{})
	b := New(10, s.probe)

	if _, o, err := b.Next(context.Background(), 0, 3); err != nil || o != Missed {
		t.Fatalf("expected miss, got %v %v", o, err)
	}
	if s.calls[3] != 0 || s.calls[4] != 0 {
		t.Fatal("probed past the end of the stream")
	}
}

func TestBridgeRejectsOutOfOrder(t *testing.T) {
	s := newScript(map[int]string{0: "a"})
	b := New(4, s.probe)

	if _, _, err := b.Next(context.Background(), 0, 5); err != nil {
		t.Fatal(err)
	}
	if _, _, err := b.Next(context.Background(), 2, 5); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder on a gap, got %v", err)
	}

	b.Reset()
	if _, _, err := b.Next(context.Background(), 0, 5); err != nil {
		t.Fatalf("reset bridge should accept a fresh start: %v", err)
	}
}

func TestBridgePropagatesProbeErrors(t *testing.T) {
	boom := errors.New("decoder failed")
	b := New(4, func(ctx context.Context, i int) (int, bool, error) {
		if i == 2 {
			return 0, false, boom
		}
		return 0, false, nil
	})
	if _, _, err := b.Next(context.Background(), 0, 5); !errors.Is(err, boom) {
		t.Fatalf("expected probe error during scan, got %v", err)
	}
}

func TestSmallWindowDisablesScan(t *testing.T) {
	s := newScript(map[int]string{1: "x"})
	b := New(1, s.probe)

	if _, o, _ := b.Next(context.Background(), 0, 2); o != Missed {
		t.Fatalf("expected miss without scanning, got %v", o)
	}
	if s.calls[1] != 0 {
		t.Fatal("window of 1 must not look ahead")
	}
}
