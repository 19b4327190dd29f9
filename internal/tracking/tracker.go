// Package tracking follows one region through a frame sequence on top of a
// single-frame detector that fails intermittently.
package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/regionswap/internal/ai"
	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/internal/geom"
	"github.com/kikiluvv/regionswap/internal/lookahead"
)

// State is the tracker's position in its search cycle.
type State int

const (
	// Searching: no queued predictions; the detector runs on the next frame.
	Searching State = iota
	// Cached: predictions from an earlier scan are being served.
	Cached
	// Lost: the last scan found nothing; the frame passed through.
	Lost
)

func (s State) String() string {
	switch s {
	case Searching:
		return "searching"
	case Cached:
		return "cached"
	case Lost:
		return "lost"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MaxMissCount is the lookahead window for a frame rate: half a second of frames.
func MaxMissCount(fps float64) int {
	if fps <= 0 {
		return 0
	}
	return int(fps / 2)
}

// Options configures a Tracker
type Options struct {
	Padding int
	// Sticky locks the first detected rectangle; later detections only
	// confirm presence and never move it.
	Sticky bool
	// MaxMiss overrides the window derived from the sequence frame rate.
	MaxMiss int
}

// Tracker answers one rectangle per frame in per-frame mode. It owns the
// run's tracking state and must be driven in increasing frame order.
type Tracker struct {
	logger   zerolog.Logger
	seq      frames.Sequence
	detector ai.Detector
	opts     Options

	bridge    *lookahead.Bridge[geom.Rect]
	state     State
	lastKnown *geom.Rect
	detects   int
}

// NewTracker creates a tracker for one pass over seq
func NewTracker(logger zerolog.Logger, seq frames.Sequence, det ai.Detector, opts Options) *Tracker {
	window := opts.MaxMiss
	if window <= 0 {
		window = MaxMissCount(seq.FPS())
	}
	t := &Tracker{
		logger:   logger.With().Str("component", "tracker").Logger(),
		seq:      seq,
		detector: det,
		opts:     opts,
		state:    Searching,
	}
	t.bridge = lookahead.New(window, t.probe)
	return t
}

// probe runs the detector on frame i. Frames past the end of a sequence that
// over-reported its length count as misses.
func (t *Tracker) probe(ctx context.Context, i int) (geom.Rect, bool, error) {
	f, err := t.seq.Frame(ctx, i)
	if errors.Is(err, frames.ErrOutOfRange) {
		return geom.Rect{}, false, nil
	}
	if err != nil {
		return geom.Rect{}, false, fmt.Errorf("read frame %d: %w", i, err)
	}
	t.detects++
	r, ok, err := t.detector.Detect(ctx, f, t.opts.Padding)
	if err != nil {
		return geom.Rect{}, false, fmt.Errorf("detect frame %d: %w", i, err)
	}
	if ok && t.opts.Sticky {
		if t.lastKnown == nil {
			locked := r
			t.lastKnown = &locked
		}
		r = *t.lastKnown
	}
	return r, ok, nil
}

// Next returns the rectangle for frame i, or ok=false when the frame should
// pass through unmodified.
func (t *Tracker) Next(ctx context.Context, i int) (geom.Rect, bool, error) {
	r, outcome, err := t.bridge.Next(ctx, i, t.seq.Len())
	if err != nil {
		return geom.Rect{}, false, err
	}

	prev := t.state
	switch {
	case outcome == lookahead.Missed:
		t.state = Lost
	case t.bridge.Pending() > 0:
		t.state = Cached
	default:
		t.state = Searching
	}
	if prev != t.state {
		t.logger.Debug().
			Int("frame", i).
			Str("from", prev.String()).
			Str("to", t.state.String()).
			Str("outcome", outcome.String()).
			Msg("tracker transition")
	}

	if outcome == lookahead.Missed {
		return geom.Rect{}, false, nil
	}
	return r, true, nil
}

// State returns the state after the last call to Next.
func (t *Tracker) State() State { return t.state }

// Window is the maximum number of consecutive misses the tracker bridges.
func (t *Tracker) Window() int { return t.bridge.Window() }

// Pending is the number of queued predictions.
func (t *Tracker) Pending() int { return t.bridge.Pending() }

// Detections is how many times the detector has run.
func (t *Tracker) Detections() int { return t.detects }

// LastKnown returns the locked rectangle in sticky mode.
func (t *Tracker) LastKnown() (geom.Rect, bool) {
	if t.lastKnown == nil {
		return geom.Rect{}, false
	}
	return *t.lastKnown, true
}
