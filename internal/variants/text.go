package variants

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/nfnt/resize"

	"github.com/kikiluvv/regionswap/internal/geom"
)

// TextGenerator draws each payload as a centered label and scales the label
// to fill the target size.
type TextGenerator struct {
	fg, bg color.Color
	margin float64
}

// NewTextGenerator shares the color settings of the QR generator
func NewTextGenerator(cfg QRConfig) (*TextGenerator, error) {
	fg, err := parseColor(cfg.Foreground, color.Black)
	if err != nil {
		return nil, err
	}
	bg, err := parseColor(cfg.Background, color.White)
	if err != nil {
		return nil, err
	}
	return &TextGenerator{fg: fg, bg: bg, margin: 4}, nil
}

func (g *TextGenerator) Generate(ctx context.Context, payloads []Payload, size geom.Size) ([]Variant, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	out := make([]Variant, 0, len(payloads))
	for _, p := range payloads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, Variant{Name: p.Name, Content: fit(g.label(p.Data), size, resize.Bilinear)})
	}
	return out, nil
}

// label renders text at the default face size with a small margin.
func (g *TextGenerator) label(text string) image.Image {
	probe := gg.NewContext(1, 1)
	tw, th := probe.MeasureString(text)
	w := int(math.Ceil(tw + 2*g.margin))
	h := int(math.Ceil(th + 2*g.margin))

	dc := gg.NewContext(max(w, 1), max(h, 1))
	dc.SetColor(g.bg)
	dc.Clear()
	dc.SetColor(g.fg)
	dc.DrawStringAnchored(text, float64(dc.Width())/2, float64(dc.Height())/2, 0.5, 0.5)
	return dc.Image()
}
