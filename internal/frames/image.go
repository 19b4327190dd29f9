package frames

import (
	"context"
	"fmt"
	"sync"

	"github.com/disintegration/imaging"

	// extra still-image formats accepted by img-replace
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// OpenImage decodes a still image as frame 0.
func OpenImage(path string) (*Frame, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return New(0, img), nil
}

// ImageSink writes a single frame to a still-image file. The format follows
// the file extension.
type ImageSink struct {
	path    string
	written bool
}

func NewImageSink(path string) *ImageSink {
	return &ImageSink{path: path}
}

func (s *ImageSink) Write(ctx context.Context, f *Frame) error {
	if s.written {
		return fmt.Errorf("image sink %s accepts a single frame", s.path)
	}
	if err := imaging.Save(f.Image, s.path); err != nil {
		return fmt.Errorf("save image %s: %w", s.path, err)
	}
	s.written = true
	return nil
}

func (s *ImageSink) Close() error { return nil }

// Recorder is a Sink that keeps every frame in memory.
type Recorder struct {
	mu     sync.Mutex
	frames []*Frame
	closed bool
}

func (r *Recorder) Write(ctx context.Context, f *Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("write frame %d: recorder closed", f.Index)
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Frames returns the recorded frames in write order.
func (r *Recorder) Frames() []*Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
