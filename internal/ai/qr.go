package ai

import (
	"context"
	"fmt"
	"math"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/internal/geom"
)

// QRDetector locates a QR code. The raw box spans the decoder's result points
// (the finder pattern centers), so it sits a few modules inside the printed
// code; callers cover the rest with padding.
type QRDetector struct {
	logger    zerolog.Logger
	reader    gozxing.Reader
	tryHarder bool
}

// NewQRDetector creates a QR region detector
func NewQRDetector(logger zerolog.Logger, tryHarder bool) *QRDetector {
	return &QRDetector{
		logger:    logger.With().Str("detector", "qr").Logger(),
		reader:    qrcode.NewQRCodeReader(),
		tryHarder: tryHarder,
	}
}

func (d *QRDetector) Detect(ctx context.Context, f *frames.Frame, padding int) (geom.Rect, bool, error) {
	if err := ctx.Err(); err != nil {
		return geom.Rect{}, false, err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(f.Image)
	if err != nil {
		return geom.Rect{}, false, fmt.Errorf("qr bitmap for frame %d: %w", f.Index, err)
	}

	var hints map[gozxing.DecodeHintType]interface{}
	if d.tryHarder {
		hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	}

	// Decode failures are the recognizer missing, not an error of the run.
	res, err := d.reader.Decode(bmp, hints)
	if err != nil {
		d.logger.Debug().Int("frame", f.Index).Err(err).Msg("no qr code")
		return geom.Rect{}, false, nil
	}

	raw, ok := boundsOf(res.GetResultPoints())
	if !ok {
		return geom.Rect{}, false, nil
	}

	d.logger.Debug().
		Int("frame", f.Index).
		Str("raw", raw.String()).
		Str("text", res.GetText()).
		Msg("qr code found")

	r, ok := geom.Normalize(raw.Pad(padding))
	return r, ok, nil
}

func (d *QRDetector) Close() error {
	return nil
}

// boundsOf returns the smallest integer box containing every point.
func boundsOf(points []gozxing.ResultPoint) (geom.Rect, bool) {
	if len(points) < 2 {
		return geom.Rect{}, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.GetX())
		minY = math.Min(minY, p.GetY())
		maxX = math.Max(maxX, p.GetX())
		maxY = math.Max(maxY, p.GetY())
	}
	x0, y0 := int(math.Floor(minX)), int(math.Floor(minY))
	x1, y1 := int(math.Ceil(maxX)), int(math.Ceil(maxY))
	return geom.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}
