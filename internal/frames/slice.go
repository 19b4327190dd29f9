package frames

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// Slice is an in-memory Sequence. It records how often each frame was
// requested, which makes lookahead cost observable.
type Slice struct {
	fps    float64
	images []image.Image

	mu    sync.Mutex
	reads map[int]int
}

// NewSlice builds a sequence from already decoded images.
func NewSlice(fps float64, images ...image.Image) *Slice {
	return &Slice{fps: fps, images: images, reads: make(map[int]int)}
}

func (s *Slice) Len() int     { return len(s.images) }
func (s *Slice) FPS() float64 { return s.fps }

func (s *Slice) Frame(ctx context.Context, i int) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(s.images) {
		return nil, fmt.Errorf("frame %d of %d: %w", i, len(s.images), ErrOutOfRange)
	}
	s.mu.Lock()
	s.reads[i]++
	s.mu.Unlock()
	return New(i, s.images[i]), nil
}

// Reads returns how many times frame i was fetched.
func (s *Slice) Reads(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[i]
}
