// Package frames defines the frame buffer shared by every stage of a run and
// the source/sink contracts the orchestrator drives.
//
// A Frame is immutable once read: stages that change pixels clone it first,
// so one decoded frame can feed every output variant.
package frames

import (
	"context"
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// ErrOutOfRange is returned when a sequence is asked for an index it does not have.
var ErrOutOfRange = errors.New("frame index out of range")

// Frame is one decoded picture and its position in the sequence.
type Frame struct {
	Index int
	Image *image.NRGBA
}

// New wraps img as frame i, converting it to NRGBA when needed.
func New(i int, img image.Image) *Frame {
	if n, ok := img.(*image.NRGBA); ok {
		return &Frame{Index: i, Image: n}
	}
	return &Frame{Index: i, Image: imaging.Clone(img)}
}

func (f *Frame) Width() int  { return f.Image.Bounds().Dx() }
func (f *Frame) Height() int { return f.Image.Bounds().Dy() }

// Clone returns a deep copy that can be modified without affecting f.
func (f *Frame) Clone() *Frame {
	return &Frame{Index: f.Index, Image: imaging.Clone(f.Image)}
}

// Sequence is a finite, randomly indexable frame source.
type Sequence interface {
	// Len is the number of frames. It may shrink once the source discovers
	// that the container over-reported its length.
	Len() int
	FPS() float64
	// Frame returns frame i or ErrOutOfRange.
	Frame(ctx context.Context, i int) (*Frame, error)
}

// Sink receives the frames of one output stream in index order.
type Sink interface {
	Write(ctx context.Context, f *Frame) error
	Close() error
}
