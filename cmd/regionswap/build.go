package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kikiluvv/regionswap/internal/ai"
	"github.com/kikiluvv/regionswap/internal/config"
	"github.com/kikiluvv/regionswap/internal/ffmpeg"
	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/internal/geom"
	"github.com/kikiluvv/regionswap/internal/pipeline"
	"github.com/kikiluvv/regionswap/internal/variants"
	"github.com/kikiluvv/regionswap/pkg/util"
)

func newExecutor(cfg *config.Config) (*ffmpeg.Executor, error) {
	return ffmpeg.New(log.Logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
	})
}

func newDetector(cfg *config.Config) (ai.Detector, error) {
	dc := cfg.Detector
	qr := ai.NewQRDetector(log.Logger, dc.TryHarder)

	switch dc.Kind {
	case "qr":
		return qr, nil
	case "template", "any":
		if dc.Template == "" {
			if dc.Kind == "any" {
				return qr, nil
			}
			return nil, fmt.Errorf("template detector needs a reference image (--template)")
		}
		ref, err := frames.OpenImage(dc.Template)
		if err != nil {
			return nil, err
		}
		tc := ai.DefaultTemplateConfig()
		tc.Threshold = dc.Threshold
		if dc.Stride > 0 {
			tc.Stride = dc.Stride
		}
		tmpl, err := ai.NewTemplateDetector(log.Logger, ref.Image, tc)
		if err != nil {
			return nil, err
		}
		if dc.Kind == "template" {
			return tmpl, nil
		}
		return ai.FirstOf{qr, tmpl}, nil
	default:
		return nil, fmt.Errorf("unknown detector %q", dc.Kind)
	}
}

func newGenerator(cfg *config.Config) (variants.Generator, error) {
	gc := cfg.Generator
	qc := variants.QRConfig{
		Recovery:   gc.Recovery,
		Foreground: gc.Foreground,
		Background: gc.Background,
		QuietZone:  gc.QuietZone,
	}
	switch gc.Kind {
	case "qr":
		return variants.NewQRGenerator(qc)
	case "text":
		return variants.NewTextGenerator(qc)
	default:
		return nil, fmt.Errorf("unknown generator %q", gc.Kind)
	}
}

func pipelineConfig(cfg *config.Config) *pipeline.Config {
	return &pipeline.Config{CacheSize: cfg.Generator.CacheSize}
}

// patternOr returns the --output pattern, or fallback when it is unset.
func patternOr(fallback string) string {
	if outputPattern != "" {
		return outputPattern
	}
	return fallback
}

// defaultPattern places outputs next to the input: clip.mp4 becomes
// clip-{name}.mp4.
func defaultPattern(input, token string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "-" + token + ext
}

// parseSize accepts "WxH" or a single side.
func parseSize(s string, side int) (geom.Size, error) {
	if s == "" {
		return geom.Square(side), nil
	}
	w, h, found := strings.Cut(strings.ToLower(s), "x")
	width, err := strconv.Atoi(w)
	if err != nil {
		return geom.Size{}, fmt.Errorf("invalid size %q", s)
	}
	height := width
	if found {
		if height, err = strconv.Atoi(h); err != nil {
			return geom.Size{}, fmt.Errorf("invalid size %q", s)
		}
	}
	if width <= 0 || height <= 0 {
		return geom.Size{}, fmt.Errorf("invalid size %q", s)
	}
	return geom.Size{Width: width, Height: height}, nil
}

func imageSinks(name, path string) (frames.Sink, error) {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return frames.NewImageSink(path), nil
}

// videoSinks encodes each variant at the source frame rate, carrying the
// source audio over when configured and present.
func videoSinks(exec *ffmpeg.Executor, cfg *config.Config, input string, seq *ffmpeg.Decoder) pipeline.SinkFactory {
	opts := ffmpeg.EncodeOptions{
		VideoCodec:  cfg.FFmpeg.VideoCodec,
		Preset:      cfg.FFmpeg.Preset,
		CRF:         cfg.FFmpeg.CRF,
		PixelFormat: cfg.FFmpeg.PixelFormat,
	}
	withAudio := cfg.FFmpeg.KeepAudio && seq.Info().HasAudio

	return func(name, path string) (frames.Sink, error) {
		if err := util.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
		if withAudio {
			return exec.NewAudioEncoder(path, input, seq.FPS(), opts)
		}
		return exec.NewEncoder(path, seq.FPS(), opts), nil
	}
}
