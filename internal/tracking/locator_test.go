package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/regionswap/internal/ai"
	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/internal/geom"
)

func hitsBetween(a, b int) map[int]geom.Rect {
	hits := map[int]geom.Rect{}
	for i := a; i <= b; i++ {
		hits[i] = rect(i)
	}
	return hits
}

func TestLocateAppliesMargin(t *testing.T) {
	seq := sequence(50, 10) // margin 2
	loc := NewLocator(zerolog.Nop(), scripted(hitsBetween(10, 30), nil), 0, -1)

	iv, err := loc.Locate(context.Background(), seq)
	if err != nil {
		t.Fatal(err)
	}
	if iv.Empty || iv.Start != 8 || iv.End != 32 {
		t.Fatalf("expected [8, 32], got %+v", iv)
	}
	if iv.Rect != rect(10) {
		t.Errorf("expected rectangle of the first detection, got %v", iv.Rect)
	}
	if !iv.Contains(8) || !iv.Contains(32) || iv.Contains(7) || iv.Contains(33) {
		t.Error("interval bounds must be closed")
	}
	if iv.Len() != 25 {
		t.Errorf("expected 25 frames, got %d", iv.Len())
	}
}

func TestLocateClampsToSequence(t *testing.T) {
	seq := sequence(20, 30) // margin 6
	loc := NewLocator(zerolog.Nop(), scripted(hitsBetween(2, 17), nil), 0, -1)

	iv, err := loc.Locate(context.Background(), seq)
	if err != nil {
		t.Fatal(err)
	}
	if iv.Start != 0 || iv.End != 19 {
		t.Fatalf("expected [0, 19], got %+v", iv)
	}
}

func TestLocateEmptyWhenNeverDetected(t *testing.T) {
	seq := sequence(15, 10)
	loc := NewLocator(zerolog.Nop(), scripted(map[int]geom.Rect{}, nil), 0, -1)

	iv, err := loc.Locate(context.Background(), seq)
	if err != nil {
		t.Fatal(err)
	}
	if !iv.Empty || iv.Contains(0) || iv.Len() != 0 {
		t.Fatalf("expected empty interval, got %+v", iv)
	}
}

func TestLocateSingleDetection(t *testing.T) {
	seq := sequence(15, 10)
	calls := map[int]int{}
	loc := NewLocator(zerolog.Nop(), scripted(hitsBetween(7, 7), calls), 0, 0)

	iv, err := loc.Locate(context.Background(), seq)
	if err != nil {
		t.Fatal(err)
	}
	if iv.Start != 7 || iv.End != 7 {
		t.Fatalf("expected [7, 7], got %+v", iv)
	}
	if calls[7] != 1 {
		t.Errorf("the forward hit should not be examined again by the reverse sweep, got %d", calls[7])
	}
	if loc.Detections() != 15 {
		t.Errorf("expected each frame examined once, got %d detections", loc.Detections())
	}
}

func TestLocateReverseSweepStopsAtLastDetection(t *testing.T) {
	seq := sequence(30, 10)
	calls := map[int]int{}
	loc := NewLocator(zerolog.Nop(), scripted(hitsBetween(5, 20), calls), 0, -1)

	if _, err := loc.Locate(context.Background(), seq); err != nil {
		t.Fatal(err)
	}
	for i := 6; i < 20; i++ {
		if calls[i] != 0 {
			t.Errorf("frame %d inside the interval was examined", i)
		}
	}
}

func TestLocatePropagatesDetectorErrors(t *testing.T) {
	boom := errors.New("recognizer crashed")
	det := ai.Func(func(ctx context.Context, f *frames.Frame) (geom.Rect, bool, error) {
		return geom.Rect{}, false, boom
	})
	loc := NewLocator(zerolog.Nop(), det, 0, -1)
	if _, err := loc.Locate(context.Background(), sequence(5, 10)); !errors.Is(err, boom) {
		t.Fatalf("expected detector error, got %v", err)
	}
}

func TestLatencyMargin(t *testing.T) {
	cases := map[float64]int{30: 6, 25: 5, 24: 4, 4: 0}
	for fps, want := range cases {
		if got := LatencyMargin(fps); got != want {
			t.Errorf("fps %v: expected %d, got %d", fps, want, got)
		}
	}
}
