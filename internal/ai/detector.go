package ai

import (
	"context"

	"go.uber.org/multierr"

	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/internal/geom"
)

// Detector finds the tracked region in a single frame. A miss is reported as
// ok=false; err is reserved for failures of the recognizer itself, which abort
// the run. Implementations grow the raw box by padding on every side and must
// report boxes with a negative or zero dimension as a miss.
type Detector interface {
	Detect(ctx context.Context, f *frames.Frame, padding int) (r geom.Rect, ok bool, err error)
	Close() error
}

// Func adapts a plain function to the Detector interface. The function
// returns the raw box; Func applies padding and normalization.
type Func func(ctx context.Context, f *frames.Frame) (geom.Rect, bool, error)

func (fn Func) Detect(ctx context.Context, f *frames.Frame, padding int) (geom.Rect, bool, error) {
	r, ok, err := fn(ctx, f)
	if err != nil || !ok {
		return geom.Rect{}, false, err
	}
	r, ok = geom.Normalize(r.Pad(padding))
	return r, ok, nil
}

func (fn Func) Close() error { return nil }

// FirstOf tries detectors in order and returns the first hit.
type FirstOf []Detector

func (d FirstOf) Detect(ctx context.Context, f *frames.Frame, padding int) (geom.Rect, bool, error) {
	for _, det := range d {
		r, ok, err := det.Detect(ctx, f, padding)
		if err != nil {
			return geom.Rect{}, false, err
		}
		if ok {
			return r, true, nil
		}
	}
	return geom.Rect{}, false, nil
}

// Close closes all underlying detectors, even after one of them fails.
func (d FirstOf) Close() error {
	var err error
	for _, det := range d {
		err = multierr.Append(err, det.Close())
	}
	return err
}
