// Package pipeline drives region replacement runs: it pulls frames from a
// sequence, asks the tracker or locator for a rectangle, composites every
// variant and writes each result to that variant's sink in frame order.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/kikiluvv/regionswap/internal/ai"
	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/internal/geom"
	"github.com/kikiluvv/regionswap/internal/overlays"
	"github.com/kikiluvv/regionswap/internal/tracking"
	"github.com/kikiluvv/regionswap/internal/variants"
)

// Pipeline orchestrates replacement runs
type Pipeline struct {
	logger    zerolog.Logger
	config    *Config
	detector  ai.Detector
	generator variants.Generator
}

// New creates a pipeline around a detector and a generator
func New(logger zerolog.Logger, det ai.Detector, gen variants.Generator, cfg *Config) *Pipeline {
	if cfg == nil {
		cfg = &Config{CacheSize: 16}
	}
	return &Pipeline{
		logger:    logger.With().Str("component", "pipeline").Logger(),
		config:    cfg,
		detector:  det,
		generator: gen,
	}
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	if p.detector != nil {
		return p.detector.Close()
	}
	return nil
}

// rectFunc yields the rectangle for frame i, or ok=false for passthrough.
type rectFunc func(ctx context.Context, i int) (geom.Rect, bool, error)

// Run processes a frame sequence in the mode selected by opts.
func (p *Pipeline) Run(ctx context.Context, seq frames.Sequence, payloads []variants.Payload, opts Options, open SinkFactory) (*Report, error) {
	switch opts.Mode {
	case ModeStream, "":
		return p.Stream(ctx, seq, payloads, opts, open)
	case ModeInterval:
		return p.Interval(ctx, seq, payloads, opts, open)
	default:
		return nil, fmt.Errorf("unknown mode %q", opts.Mode)
	}
}

// Stream tracks the region frame by frame. Variant sets are generated per
// rectangle size and reused while the size is unchanged.
func (p *Pipeline) Stream(ctx context.Context, seq frames.Sequence, payloads []variants.Payload, opts Options, open SinkFactory) (*Report, error) {
	rep, log := p.newRun(ModeStream)

	cache, err := variants.NewCache(log, p.generator, payloads, p.config.CacheSize)
	if err != nil {
		return nil, err
	}
	tracker := tracking.NewTracker(log, seq, p.detector, tracking.Options{
		Padding: opts.Padding,
		Sticky:  opts.Sticky,
		MaxMiss: opts.MaxMiss,
	})

	log.Info().
		Int("frames", seq.Len()).
		Float64("fps", seq.FPS()).
		Int("window", tracker.Window()).
		Bool("sticky", opts.Sticky).
		Strs("variants", cache.Names()).
		Msg("streaming run started")

	err = p.pump(ctx, log, seq, cache, opts, open, rep, tracker.Next)
	rep.Generated = cache.Generated()
	rep.Detections = tracker.Detections()
	p.finish(log, rep, err)
	return rep, err
}

// Interval locates the frames where the region is visible and replaces all
// of them with the first detected rectangle.
func (p *Pipeline) Interval(ctx context.Context, seq frames.Sequence, payloads []variants.Payload, opts Options, open SinkFactory) (*Report, error) {
	rep, log := p.newRun(ModeInterval)

	cache, err := variants.NewCache(log, p.generator, payloads, 1)
	if err != nil {
		return nil, err
	}

	loc := tracking.NewLocator(log, p.detector, opts.Padding, opts.Margin)
	iv, err := loc.Locate(ctx, seq)
	if err != nil {
		return nil, fmt.Errorf("locate interval: %w", err)
	}
	rep.Interval = &iv
	rep.Detections = loc.Detections()

	rect := func(_ context.Context, i int) (geom.Rect, bool, error) {
		return iv.Rect, iv.Contains(i), nil
	}
	err = p.pump(ctx, log, seq, cache, opts, open, rep, rect)
	rep.Generated = cache.Generated()
	p.finish(log, rep, err)
	return rep, err
}

// pump is the frame loop shared by the sequence modes. All sinks are open
// before the first frame; every sink receives frame i before any receives
// frame i+1. The sinks are closed on every exit path so an aborted run
// leaves playable outputs.
func (p *Pipeline) pump(ctx context.Context, log zerolog.Logger, seq frames.Sequence, cache *variants.Cache,
	opts Options, open SinkFactory, rep *Report, rectFor rectFunc) (err error) {
	names := cache.Names()
	paths, err := ExpandPattern(opts.Pattern, opts.Token, names)
	if err != nil {
		return err
	}
	sinks, err := openSinks(open, names, paths)
	if err != nil {
		return err
	}
	rep.Outputs = paths
	defer func() {
		err = multierr.Append(err, closeSinks(sinks))
	}()

	passthrough := lo.Map(names, func(name string, _ int) variants.Variant {
		return variants.Variant{Name: name}
	})

	every := p.config.ProgressEvery
	if every <= 0 {
		every = max(1, int(seq.FPS()))
	}

	for i := 0; i < seq.Len(); i++ {
		if err := ctx.Err(); err != nil {
			log.Warn().Int("frame", i).Msg("run cancelled")
			return err
		}

		r, ok, err := rectFor(ctx, i)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		f, err := seq.Frame(ctx, i)
		if errors.Is(err, frames.ErrOutOfRange) {
			// the sequence turned out shorter than reported
			break
		}
		if err != nil {
			return fmt.Errorf("read frame %d: %w", i, err)
		}

		set := passthrough
		if ok {
			if set, err = cache.Get(ctx, r.Size()); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			rep.Replaced++
		} else {
			rep.Passthrough++
			log.Trace().Int("frame", i).Msg("passthrough")
		}

		outs, err := overlays.Replace(f, r, ok, set)
		if err != nil {
			return fmt.Errorf("composite frame %d: %w", i, err)
		}
		for k, out := range outs {
			if err := sinks[k].Write(ctx, out.Frame); err != nil {
				return fmt.Errorf("write frame %d to %s: %w", i, paths[k], err)
			}
		}
		rep.Frames++

		if rep.Frames%every == 0 {
			log.Debug().
				Int("frame", i).
				Int("total", seq.Len()).
				Int("replaced", rep.Replaced).
				Msg("progress")
		}
	}
	return nil
}

// Image replaces the region in a single still frame. It fails with
// ErrDetectionNotFound, before any output is opened, when the detector
// misses.
func (p *Pipeline) Image(ctx context.Context, f *frames.Frame, payloads []variants.Payload, opts Options, open SinkFactory) (*Report, error) {
	rep, log := p.newRun("image")

	r, ok, err := p.detector.Detect(ctx, f, opts.Padding)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	if !ok {
		log.Error().Msg("region not found in image")
		return nil, ErrDetectionNotFound
	}
	rep.Rect = &r

	set, err := p.generator.Generate(ctx, payloads, r.Size())
	if err != nil {
		return nil, fmt.Errorf("generate variants at %s: %w", r.Size(), err)
	}
	rep.Generated = 1

	outs, err := overlays.Replace(f, r, true, set)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	err = p.writeOnce(ctx, opts, open, rep, outs)
	if err == nil {
		rep.Frames, rep.Replaced = 1, 1
	}
	p.finish(log, rep, err)
	return rep, err
}

// Generate writes each variant rendered at size, without any source frame.
func (p *Pipeline) Generate(ctx context.Context, payloads []variants.Payload, size geom.Size, opts Options, open SinkFactory) (*Report, error) {
	rep, log := p.newRun("generate")

	set, err := p.generator.Generate(ctx, payloads, size)
	if err != nil {
		return nil, fmt.Errorf("generate variants at %s: %w", size, err)
	}
	rep.Generated = 1

	outs := lo.Map(set, func(v variants.Variant, _ int) overlays.Output {
		return overlays.Output{Name: v.Name, Frame: frames.New(0, v.Content)}
	})
	err = p.writeOnce(ctx, opts, open, rep, outs)
	if err == nil {
		rep.Frames = 1
	}
	p.finish(log, rep, err)
	return rep, err
}

func (p *Pipeline) writeOnce(ctx context.Context, opts Options, open SinkFactory, rep *Report, outs []overlays.Output) (err error) {
	names := lo.Map(outs, func(o overlays.Output, _ int) string { return o.Name })
	paths, err := ExpandPattern(opts.Pattern, opts.Token, names)
	if err != nil {
		return err
	}
	sinks, err := openSinks(open, names, paths)
	if err != nil {
		return err
	}
	rep.Outputs = paths
	defer func() {
		err = multierr.Append(err, closeSinks(sinks))
	}()

	for k, out := range outs {
		if err := sinks[k].Write(ctx, out.Frame); err != nil {
			return fmt.Errorf("write %s: %w", paths[k], err)
		}
	}
	return nil
}

func (p *Pipeline) newRun(mode Mode) (*Report, zerolog.Logger) {
	id := uuid.NewString()
	log := p.logger.With().Str("run_id", id).Str("mode", string(mode)).Logger()
	return &Report{RunID: id, Mode: mode}, log
}

func (p *Pipeline) finish(log zerolog.Logger, rep *Report, err error) {
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	if rep.Interval != nil {
		ev = ev.Bool("interval_empty", rep.Interval.Empty).
			Int("interval_start", rep.Interval.Start).
			Int("interval_end", rep.Interval.End)
	}
	ev.Int("frames", rep.Frames).
		Int("replaced", rep.Replaced).
		Int("passthrough", rep.Passthrough).
		Int("generated", rep.Generated).
		Int("detections", rep.Detections).
		Strs("outputs", rep.Outputs).
		Msg("run finished")
}
