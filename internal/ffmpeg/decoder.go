package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/kikiluvv/regionswap/internal/frames"
)

// errStopped closes the pipe of a decode process that is being replaced.
var errStopped = errors.New("decoder stopped")

// Decoder exposes a video file as a random-access frames.Sequence.
//
// Frames come from a single sequential ffmpeg process writing raw RGBA to a
// pipe. The last Window decoded frames are kept. A request ahead of the
// process but within one window decodes forward to it; any other miss
// restarts ffmpeg with a seek so the window ends on the requested frame.
// Walking backwards therefore costs one restart per window.
type Decoder struct {
	logger  zerolog.Logger
	bin     string
	path    string
	info    *VideoInfo
	window  int
	threads int

	mu     sync.Mutex
	length int
	cache  map[int]*frames.Frame
	proc   *decodeProc
}

type decodeProc struct {
	out    *io.PipeReader
	cancel context.CancelFunc
	done   chan error
	stderr *tail
	next   int // index of the next frame the pipe yields
}

// OpenDecoder probes path and returns a sequence over its frames. A window
// below 1 selects one second of video.
func (e *Executor) OpenDecoder(ctx context.Context, path string, window int) (*Decoder, error) {
	info, err := e.ProbeVideo(ctx, path)
	if err != nil {
		return nil, err
	}
	if info.FPS <= 0 {
		return nil, fmt.Errorf("%s: unknown frame rate", path)
	}
	if window < 1 {
		window = max(2, int(info.FPS))
	}

	e.logger.Debug().
		Str("input", path).
		Int("frames", info.Frames).
		Float64("fps", info.FPS).
		Int("window", window).
		Msg("decoder opened")

	return &Decoder{
		logger:  e.logger.With().Str("input", path).Logger(),
		bin:     e.ffmpegPath,
		path:    path,
		info:    info,
		window:  window,
		threads: e.threads,
		length:  info.Frames,
		cache:   make(map[int]*frames.Frame, window),
	}, nil
}

// Info returns the probed metadata.
func (d *Decoder) Info() *VideoInfo { return d.info }

func (d *Decoder) FPS() float64 { return d.info.FPS }

// Len is the probed frame count until decoding reaches the real end of the
// stream, after which it is the decoded count.
func (d *Decoder) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.length
}

func (d *Decoder) Frame(ctx context.Context, i int) (*frames.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i < 0 || i >= d.length {
		return nil, fmt.Errorf("frame %d of %d: %w", i, d.length, frames.ErrOutOfRange)
	}
	if f, ok := d.cache[i]; ok {
		return f, nil
	}

	if d.proc == nil || i < d.proc.next || i >= d.proc.next+d.window {
		d.restart(max(0, i-d.window+1))
	}

	for d.proc.next <= i {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := d.proc.read(d.info.Width, d.info.Height)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			d.truncate(d.proc.next)
			d.stop()
			return nil, fmt.Errorf("frame %d of %d: %w", i, d.length, frames.ErrOutOfRange)
		}
		if err != nil {
			msg := d.proc.stderr.String()
			d.stop()
			return nil, fmt.Errorf("decode %s frame %d: %w: %s", d.path, i, err, msg)
		}
		d.cache[f.Index] = f
		delete(d.cache, f.Index-d.window)
	}
	return d.cache[i], nil
}

// Close stops the decode process.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stop()
	clear(d.cache)
	return nil
}

func (d *Decoder) truncate(n int) {
	if n < d.length {
		d.logger.Debug().
			Int("reported", d.length).
			Int("decoded", n).
			Msg("stream shorter than reported, shrinking sequence")
		d.length = n
	}
}

// restart replaces the decode process with one whose first frame is start.
func (d *Decoder) restart(start int) {
	d.stop()
	clear(d.cache)

	in := ffmpeggo.KwArgs{"noautorotate": ""}
	if start > 0 {
		// half a frame early so rounding never skips frame start
		in["ss"] = strconv.FormatFloat((float64(start)-0.5)/d.info.FPS, 'f', 6, 64)
	}
	if d.threads > 0 {
		in["threads"] = d.threads
	}

	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	stderr := &tail{}

	stream := ffmpeggo.Input(d.path, in).
		Output("pipe:", ffmpeggo.KwArgs{
			"format":      "rawvideo",
			"pix_fmt":     "rgba",
			"vsync":       "passthrough",
			"hide_banner": "",
			"nostdin":     "",
			"loglevel":    "error",
		})
	// the pipes live in the stream context, so it is set first
	stream.Context = ctx
	cmd := compile(stream.WithOutput(pw).WithErrorOutput(stderr), d.bin)

	proc := &decodeProc{
		out:    pr,
		cancel: cancel,
		done:   make(chan error, 1),
		stderr: stderr,
		next:   start,
	}
	go func() {
		err := cmd.Run()
		pw.CloseWithError(err)
		proc.done <- err
	}()

	d.logger.Debug().Int("start", start).Msg("decoder seek")
	d.proc = proc
}

func (d *Decoder) stop() {
	if d.proc == nil {
		return
	}
	d.proc.cancel()
	d.proc.out.CloseWithError(errStopped)
	<-d.proc.done
	d.proc = nil
}

func (p *decodeProc) read(w, h int) (*frames.Frame, error) {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	if _, err := io.ReadFull(p.out, img.Pix); err != nil {
		return nil, err
	}
	f := &frames.Frame{Index: p.next, Image: img}
	p.next++
	return f, nil
}

// compile builds the command for stream, pointing it at the resolved binary.
func compile(stream *ffmpeggo.Stream, bin string) *exec.Cmd {
	cmd := stream.Compile()
	cmd.Path = bin
	cmd.Err = nil
	return cmd
}

// tail keeps the last few KiB of a process's stderr.
type tail struct {
	mu  sync.Mutex
	buf []byte
}

const tailSize = 4 << 10

func (t *tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - tailSize; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
