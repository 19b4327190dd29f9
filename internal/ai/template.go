package ai

import (
	"context"
	"errors"
	"image"
	"math"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/internal/geom"
)

// TemplateConfig configures template matching
type TemplateConfig struct {
	Threshold float64 // minimum normalized cross-correlation for a hit
	Stride    int     // coarse scan step in pixels
	Refine    bool    // rescan around the coarse best at stride 1
}

func DefaultTemplateConfig() TemplateConfig {
	return TemplateConfig{
		Threshold: 0.8,
		Stride:    2,
		Refine:    true,
	}
}

// TemplateDetector finds a reference image inside frames by normalized cross
// correlation over grayscale pixels. Transparent template pixels are ignored.
type TemplateDetector struct {
	logger zerolog.Logger
	config TemplateConfig
	tmpl   *grayTemplate
}

// NewTemplateDetector precomputes the template statistics
func NewTemplateDetector(logger zerolog.Logger, tmpl image.Image, cfg TemplateConfig) (*TemplateDetector, error) {
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = DefaultTemplateConfig().Threshold
	}
	if cfg.Stride <= 0 {
		cfg.Stride = 1
	}
	gt, err := newGrayTemplate(tmpl)
	if err != nil {
		return nil, err
	}
	return &TemplateDetector{
		logger: logger.With().Str("detector", "template").Logger(),
		config: cfg,
		tmpl:   gt,
	}, nil
}

func (d *TemplateDetector) Detect(ctx context.Context, f *frames.Frame, padding int) (geom.Rect, bool, error) {
	if err := ctx.Err(); err != nil {
		return geom.Rect{}, false, err
	}

	m := match(newGrayFrame(f.Image), d.tmpl, d.config)

	d.logger.Debug().
		Int("frame", f.Index).
		Float64("score", m.score).
		Int("x", m.x).
		Int("y", m.y).
		Msg("template scan")

	if m.score < d.config.Threshold {
		return geom.Rect{}, false, nil
	}
	raw := geom.Rect{X: m.x, Y: m.y, Width: d.tmpl.w, Height: d.tmpl.h}
	r, ok := geom.Normalize(raw.Pad(padding))
	return r, ok, nil
}

func (d *TemplateDetector) Close() error {
	return nil
}

// grayTemplate caches grayscale values and statistics of the template.
type grayTemplate struct {
	gray  []float64
	mask  []bool
	w, h  int
	n     float64
	meanT float64
	stdT  float64
}

func newGrayTemplate(img image.Image) (*grayTemplate, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("template image is empty")
	}
	t := &grayTemplate{gray: make([]float64, w*h), mask: make([]bool, w*h), w: w, h: h}
	var sum, sum2 float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bb, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a == 0 {
				continue
			}
			v := luma(r>>8, g>>8, bb>>8)
			t.gray[y*w+x] = v
			t.mask[y*w+x] = true
			sum += v
			sum2 += v * v
			t.n++
		}
	}
	if t.n == 0 {
		return nil, errors.New("template image is fully transparent")
	}
	t.meanT = sum / t.n
	variance := sum2/t.n - t.meanT*t.meanT
	if variance <= 1e-9 {
		return nil, errors.New("template image has no contrast")
	}
	t.stdT = math.Sqrt(variance)
	return t, nil
}

// grayFrame holds grayscale pixels and summed-area tables of a frame. The
// tables have one extra leading row and column of zeros.
type grayFrame struct {
	gray       []float64
	integral   []float64
	integralSq []float64
	w, h       int
}

func newGrayFrame(img *image.NRGBA) *grayFrame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := &grayFrame{
		gray:       make([]float64, w*h),
		integral:   make([]float64, (w+1)*(h+1)),
		integralSq: make([]float64, (w+1)*(h+1)),
		w:          w,
		h:          h,
	}
	stride := w + 1
	for y := 0; y < h; y++ {
		var row, row2 float64
		px := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			v := luma(uint32(px[x*4]), uint32(px[x*4+1]), uint32(px[x*4+2]))
			g.gray[y*w+x] = v
			row += v
			row2 += v * v
			g.integral[(y+1)*stride+x+1] = g.integral[y*stride+x+1] + row
			g.integralSq[(y+1)*stride+x+1] = g.integralSq[y*stride+x+1] + row2
		}
	}
	return g
}

// windowSums returns the sum and squared sum of the w×h window at (x, y).
func (g *grayFrame) windowSums(x, y, w, h int) (float64, float64) {
	s := g.w + 1
	at := func(t []float64, xx, yy int) float64 { return t[yy*s+xx] }
	sum := at(g.integral, x+w, y+h) - at(g.integral, x, y+h) - at(g.integral, x+w, y) + at(g.integral, x, y)
	sq := at(g.integralSq, x+w, y+h) - at(g.integralSq, x, y+h) - at(g.integralSq, x+w, y) + at(g.integralSq, x, y)
	return sum, sq
}

type matchResult struct {
	x, y  int
	score float64
}

func match(f *grayFrame, t *grayTemplate, cfg TemplateConfig) matchResult {
	best := matchResult{score: -1}
	if f.w < t.w || f.h < t.h {
		return best
	}
	scan := func(x0, y0, x1, y1, step int) {
		for y := y0; y <= y1; y += step {
			for x := x0; x <= x1; x += step {
				if s := t.score(f, x, y); s > best.score {
					best = matchResult{x: x, y: y, score: s}
				}
			}
		}
	}
	scan(0, 0, f.w-t.w, f.h-t.h, cfg.Stride)
	if cfg.Refine && cfg.Stride > 1 && best.score > -1 {
		bx, by := best.x, best.y
		scan(max(0, bx-cfg.Stride), max(0, by-cfg.Stride),
			min(f.w-t.w, bx+cfg.Stride), min(f.h-t.h, by+cfg.Stride), 1)
	}
	return best
}

// score is the normalized cross correlation of the template placed at (x, y).
// Fully opaque templates use the summed-area tables for the window mean and
// variance; masked templates fall back to summing the opaque pixels only.
func (t *grayTemplate) score(f *grayFrame, x, y int) float64 {
	var sumF, sumF2, sumFT float64
	full := int(t.n) == t.w*t.h
	if full {
		sumF, sumF2 = f.windowSums(x, y, t.w, t.h)
	}
	for ty := 0; ty < t.h; ty++ {
		row := (y+ty)*f.w + x
		for tx := 0; tx < t.w; tx++ {
			i := ty*t.w + tx
			if !t.mask[i] {
				continue
			}
			v := f.gray[row+tx]
			sumFT += v * t.gray[i]
			if !full {
				sumF += v
				sumF2 += v * v
			}
		}
	}
	meanF := sumF / t.n
	varF := sumF2/t.n - meanF*meanF
	if varF <= 1e-9 {
		return -1
	}
	return (sumFT - t.n*meanF*t.meanT) / (t.n * math.Sqrt(varF) * t.stdT)
}

func luma(r, g, b uint32) float64 {
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}
