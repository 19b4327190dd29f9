package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"
	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/kikiluvv/regionswap/internal/frames"
)

var errEncoderExited = errors.New("encoder exited")

// Encoder is a frames.Sink that pipes raw RGBA frames into an ffmpeg
// process writing one video file. The process starts on the first frame,
// whose size fixes the output size.
type Encoder struct {
	logger  zerolog.Logger
	bin     string
	path    string
	fps     float64
	opts    EncodeOptions
	threads int

	width, height int
	in            *io.PipeWriter
	done          chan error
	stderr        *tail
	written       int
	closed        bool
}

// NewEncoder returns a sink that writes path at the given frame rate.
func (e *Executor) NewEncoder(path string, fps float64, opts EncodeOptions) *Encoder {
	return &Encoder{
		logger:  e.logger.With().Str("output", path).Logger(),
		bin:     e.ffmpegPath,
		path:    path,
		fps:     fps,
		opts:    opts,
		threads: e.threads,
	}
}

// Path is the file the encoder writes.
func (enc *Encoder) Path() string { return enc.path }

// Written is the number of frames accepted so far.
func (enc *Encoder) Written() int { return enc.written }

func (enc *Encoder) Write(ctx context.Context, f *frames.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if enc.closed {
		return fmt.Errorf("write frame %d: encoder for %s closed", f.Index, enc.path)
	}
	if enc.in == nil {
		enc.start(f.Width(), f.Height())
	} else if f.Width() != enc.width || f.Height() != enc.height {
		return fmt.Errorf("frame %d is %dx%d, stream %s is %dx%d",
			f.Index, f.Width(), f.Height(), enc.path, enc.width, enc.height)
	}

	img := f.Image
	b := img.Bounds()
	row := 4 * enc.width
	if img.Stride == row {
		off := img.PixOffset(b.Min.X, b.Min.Y)
		if _, err := enc.in.Write(img.Pix[off : off+row*enc.height]); err != nil {
			return enc.fail(f.Index, err)
		}
	} else {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := img.PixOffset(b.Min.X, y)
			if _, err := enc.in.Write(img.Pix[off : off+row]); err != nil {
				return enc.fail(f.Index, err)
			}
		}
	}
	enc.written++
	return nil
}

// Close flushes the stream and waits for ffmpeg to finalize the file. An
// encoder that never received a frame creates no file.
func (enc *Encoder) Close() error {
	if enc.closed {
		return nil
	}
	enc.closed = true
	if enc.in == nil {
		return nil
	}
	enc.in.Close()
	if err := <-enc.done; err != nil {
		return fmt.Errorf("encode %s: %w: %s", enc.path, err, enc.stderr.String())
	}
	enc.logger.Debug().Int("frames", enc.written).Msg("encoder finished")
	return nil
}

func (enc *Encoder) fail(index int, err error) error {
	enc.closed = true
	enc.in.CloseWithError(err)
	runErr := <-enc.done
	if runErr != nil {
		err = runErr
	}
	return fmt.Errorf("encode %s frame %d: %w: %s", enc.path, index, err, enc.stderr.String())
}

func (enc *Encoder) start(w, h int) {
	enc.width, enc.height = w, h

	out := ffmpeggo.KwArgs{"c:v": enc.opts.VideoCodec}
	if enc.opts.Preset != "" {
		out["preset"] = enc.opts.Preset
	}
	if enc.opts.CRF > 0 {
		out["crf"] = enc.opts.CRF
	}
	if pf := enc.opts.PixelFormat; pf != "" {
		// 4:2:0 subsampling needs even dimensions
		if pf == "yuv420p" && (w%2 != 0 || h%2 != 0) {
			enc.logger.Warn().Int("width", w).Int("height", h).Msg("odd frame size, encoding yuv444p")
			pf = "yuv444p"
		}
		out["pix_fmt"] = pf
	}
	if enc.threads > 0 {
		out["threads"] = enc.threads
	}

	pr, pw := io.Pipe()
	enc.in = pw
	enc.done = make(chan error, 1)
	enc.stderr = &tail{}

	out["hide_banner"] = ""
	out["loglevel"] = "error"
	stream := ffmpeggo.Input("pipe:", ffmpeggo.KwArgs{
		"format":     "rawvideo",
		"pix_fmt":    "rgba",
		"video_size": fmt.Sprintf("%dx%d", w, h),
		"framerate":  strconv.FormatFloat(enc.fps, 'f', -1, 64),
	}).
		Output(enc.path, out).
		OverWriteOutput()
	cmd := compile(stream.WithInput(pr).WithErrorOutput(enc.stderr), enc.bin)

	enc.logger.Debug().
		Int("width", w).
		Int("height", h).
		Float64("fps", enc.fps).
		Str("codec", enc.opts.VideoCodec).
		Msg("encoder started")

	go func() {
		err := cmd.Run()
		// unblock a writer if ffmpeg stops reading early
		if err != nil {
			pr.CloseWithError(err)
		} else {
			pr.CloseWithError(errEncoderExited)
		}
		enc.done <- err
	}()
}
