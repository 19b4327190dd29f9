package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/pkg/util"
)

// MuxAudio writes output with the video stream of video and the first audio
// stream of source, if it has one. The video stream is kept whole; a positive
// maxFrames caps it at that many frames.
func (e *Executor) MuxAudio(ctx context.Context, video, source, output string, maxFrames int) error {
	e.logger.Debug().
		Str("video", video).
		Str("audio", source).
		Str("output", output).
		Msg("muxing audio")

	args := []string{
		"-i", video,
		"-i", source,
		"-map", "0:v:0",
		"-map", "1:a:0?",
		"-c:v", "copy",
		"-c:a", DefaultAudioCodec,
	}
	if maxFrames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(maxFrames))
	}
	args = append(args, output)

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("audio mux")
		},
	}
	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("mux audio into %s: %w", output, err)
	}
	return nil
}

// AudioEncoder encodes video to a temporary file and, on Close, remuxes it
// with the audio track of the source into the final path.
type AudioEncoder struct {
	*Encoder
	exec   *Executor
	source string
	final  string
}

// NewAudioEncoder returns a sink like NewEncoder that also carries over the
// audio of source.
func (e *Executor) NewAudioEncoder(path, source string, fps float64, opts EncodeOptions) (*AudioEncoder, error) {
	tmp, err := util.TempFile(filepath.Dir(path), ".regionswap-", filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	return &AudioEncoder{
		Encoder: e.NewEncoder(tmpPath, fps, opts),
		exec:    e,
		source:  source,
		final:   path,
	}, nil
}

// Path is the final output file.
func (a *AudioEncoder) Path() string { return a.final }

func (a *AudioEncoder) Close() error {
	defer util.CleanupFiles(a.Encoder.Path())
	wasClosed := a.Encoder.closed
	if err := a.Encoder.Close(); err != nil {
		return err
	}
	if wasClosed || a.Encoder.Written() == 0 {
		return nil
	}
	return a.exec.MuxAudio(context.Background(), a.Encoder.Path(), a.source, a.final, a.Encoder.Written())
}

var (
	_ frames.Sink     = (*Encoder)(nil)
	_ frames.Sink     = (*AudioEncoder)(nil)
	_ frames.Sequence = (*Decoder)(nil)
)
