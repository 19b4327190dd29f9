package variants

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/kikiluvv/regionswap/internal/geom"
)

// QRConfig configures QR rendering
type QRConfig struct {
	Recovery   string // low, medium, high, highest
	Foreground string // hex color
	Background string // hex color
	QuietZone  bool   // keep the white border around the code
}

func DefaultQRConfig() QRConfig {
	return QRConfig{
		Recovery:   "medium",
		Foreground: "#000000",
		Background: "#ffffff",
		QuietZone:  false,
	}
}

// QRGenerator encodes each payload as a QR code.
type QRGenerator struct {
	level  qrcode.RecoveryLevel
	fg, bg color.Color
	border bool
}

// NewQRGenerator validates colors and the recovery level up front.
func NewQRGenerator(cfg QRConfig) (*QRGenerator, error) {
	level, err := parseRecovery(cfg.Recovery)
	if err != nil {
		return nil, err
	}
	fg, err := parseColor(cfg.Foreground, color.Black)
	if err != nil {
		return nil, fmt.Errorf("foreground: %w", err)
	}
	bg, err := parseColor(cfg.Background, color.White)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	return &QRGenerator{level: level, fg: fg, bg: bg, border: cfg.QuietZone}, nil
}

func (g *QRGenerator) Generate(ctx context.Context, payloads []Payload, size geom.Size) ([]Variant, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	out := make([]Variant, 0, len(payloads))
	for _, p := range payloads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, err := qrcode.New(p.Data, g.level)
		if err != nil {
			return nil, fmt.Errorf("encode qr for %s: %w", p.Name, err)
		}
		q.ForegroundColor = g.fg
		q.BackgroundColor = g.bg
		q.DisableBorder = !g.border

		// Render square at the larger side; nearest neighbour keeps modules crisp.
		img := q.Image(max(size.Width, size.Height))
		out = append(out, Variant{Name: p.Name, Content: fit(img, size, resize.NearestNeighbor)})
	}
	return out, nil
}

func parseRecovery(s string) (qrcode.RecoveryLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "l":
		return qrcode.Low, nil
	case "", "medium", "m":
		return qrcode.Medium, nil
	case "high", "q":
		return qrcode.High, nil
	case "highest", "h":
		return qrcode.Highest, nil
	default:
		return qrcode.Medium, fmt.Errorf("unknown qr recovery level %q", s)
	}
}

func parseColor(hex string, fallback color.Color) (color.Color, error) {
	if strings.TrimSpace(hex) == "" {
		return fallback, nil
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, err
	}
	return c, nil
}
