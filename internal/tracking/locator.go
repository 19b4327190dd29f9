package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/regionswap/internal/ai"
	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/internal/geom"
)

// Interval is the closed frame range replaced in interval mode, together with
// the fixed rectangle used for every frame inside it.
type Interval struct {
	Start, End int
	Rect       geom.Rect
	Empty      bool
}

// Contains reports whether frame i is inside a non-empty interval.
func (iv Interval) Contains(i int) bool {
	return !iv.Empty && i >= iv.Start && i <= iv.End
}

// Len is the number of frames in the interval.
func (iv Interval) Len() int {
	if iv.Empty {
		return 0
	}
	return iv.End - iv.Start + 1
}

// LatencyMargin widens the interval by a fifth of a second of frames on each
// side to absorb detector lag at the edges.
func LatencyMargin(fps float64) int {
	if fps <= 0 {
		return 0
	}
	return int(fps / 5)
}

// Locator finds the first and last detectable frames of a sequence.
type Locator struct {
	logger   zerolog.Logger
	detector ai.Detector
	padding  int
	margin   int
	detects  int
}

// NewLocator creates a locator. A negative margin selects LatencyMargin of
// the sequence frame rate.
func NewLocator(logger zerolog.Logger, det ai.Detector, padding, margin int) *Locator {
	return &Locator{
		logger:   logger.With().Str("component", "locator").Logger(),
		detector: det,
		padding:  padding,
		margin:   margin,
	}
}

// Locate sweeps forward from the first frame and backward from the last.
func (l *Locator) Locate(ctx context.Context, seq frames.Sequence) (Interval, error) {
	margin := l.margin
	if margin < 0 {
		margin = LatencyMargin(seq.FPS())
	}

	rawStart, rect := -1, geom.Rect{}
	for i := 0; i < seq.Len(); i++ {
		r, ok, err := l.detect(ctx, seq, i)
		if err != nil {
			return Interval{}, err
		}
		if ok {
			rawStart, rect = i, r
			break
		}
	}
	if rawStart < 0 {
		l.logger.Info().Int("frames", seq.Len()).Msg("region never detected")
		return Interval{Empty: true}, nil
	}

	// The forward hit bounds the reverse sweep.
	rawEnd := rawStart
	for i := seq.Len() - 1; i > rawStart; i-- {
		_, ok, err := l.detect(ctx, seq, i)
		if err != nil {
			return Interval{}, err
		}
		if ok {
			rawEnd = i
			break
		}
	}

	// Len is read again: a decoder may shrink it while sweeping.
	iv := Interval{
		Start: max(0, rawStart-margin),
		End:   min(seq.Len()-1, rawEnd+margin),
		Rect:  rect,
	}

	l.logger.Info().
		Int("raw_start", rawStart).
		Int("raw_end", rawEnd).
		Int("start", iv.Start).
		Int("end", iv.End).
		Int("margin", margin).
		Str("rect", rect.String()).
		Msg("replacement interval located")

	return iv, nil
}

// Detections is how many times the detector has run.
func (l *Locator) Detections() int { return l.detects }

func (l *Locator) detect(ctx context.Context, seq frames.Sequence, i int) (geom.Rect, bool, error) {
	if err := ctx.Err(); err != nil {
		return geom.Rect{}, false, err
	}
	f, err := seq.Frame(ctx, i)
	if errors.Is(err, frames.ErrOutOfRange) {
		return geom.Rect{}, false, nil
	}
	if err != nil {
		return geom.Rect{}, false, fmt.Errorf("read frame %d: %w", i, err)
	}
	l.detects++
	r, ok, err := l.detector.Detect(ctx, f, l.padding)
	if err != nil {
		return geom.Rect{}, false, fmt.Errorf("detect frame %d: %w", i, err)
	}
	return r, ok, nil
}
