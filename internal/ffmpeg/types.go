package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Frames     int // container frame count, estimated from duration when absent
	Bitrate    int64
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame      int
	FPS        float64
	Bitrate    string
	Time       string
	Speed      string
	Percentage float64
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	TotalFrames     int // when set, Progress.Percentage is filled in
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// Options configures binary discovery for an Executor.
type Options struct {
	FFmpegPath  string // name or path, looked up in PATH
	FFprobePath string
	Threads     int
}

// EncodeOptions configures the per-variant video encoder.
type EncodeOptions struct {
	VideoCodec  string
	Preset      string
	CRF         int
	PixelFormat string
}

// Default encoding settings
const (
	DefaultCRF         = 23
	DefaultPreset      = "medium"
	DefaultVideoCodec  = "libx264"
	DefaultAudioCodec  = "aac"
	DefaultPixelFormat = "yuv420p"
)

// DefaultEncodeOptions returns the libx264 defaults.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		VideoCodec:  DefaultVideoCodec,
		Preset:      DefaultPreset,
		CRF:         DefaultCRF,
		PixelFormat: DefaultPixelFormat,
	}
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
type ProgressFunc func(*Progress)
