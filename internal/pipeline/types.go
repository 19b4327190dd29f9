package pipeline

import (
	"errors"

	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/internal/geom"
	"github.com/kikiluvv/regionswap/internal/tracking"
)

var (
	// ErrDetectionNotFound is returned by single-image runs when the region
	// is not in the image. Sequence runs pass such frames through instead.
	ErrDetectionNotFound = errors.New("region not detected")

	// ErrPatternToken is returned when several variants would share one
	// output path because the pattern lacks the placeholder.
	ErrPatternToken = errors.New("output pattern has no placeholder")
)

// DefaultToken is replaced by the variant name in output patterns.
const DefaultToken = "{name}"

// Mode selects how a sequence run obtains rectangles.
type Mode string

const (
	// ModeStream tracks the region frame by frame.
	ModeStream Mode = "stream"
	// ModeInterval locates the visible interval once and replaces it with
	// the first detected rectangle.
	ModeInterval Mode = "interval"
)

// SinkFactory opens the output of one variant.
type SinkFactory func(name, path string) (frames.Sink, error)

// Config holds pipeline-wide settings
type Config struct {
	// CacheSize bounds the number of variant sets kept per run.
	CacheSize int
	// ProgressEvery logs progress every N frames; 0 means once per second
	// of video.
	ProgressEvery int
}

// Options configures a single run
type Options struct {
	Mode    Mode
	Padding int
	Sticky  bool
	MaxMiss int // 0 derives the lookahead window from the frame rate
	Margin  int // negative derives the interval margin from the frame rate
	Pattern string
	Token   string
}

// Report summarizes a finished or aborted run.
type Report struct {
	RunID       string
	Mode        Mode
	Frames      int
	Replaced    int
	Passthrough int
	Generated   int // variant sets produced
	Detections  int // detector invocations
	Interval    *tracking.Interval
	Rect        *geom.Rect // single-image runs
	Outputs     []string
}
