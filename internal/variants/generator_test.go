package variants

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/regionswap/internal/geom"
)

var twoPayloads = []Payload{
	{Name: "a", Data: "https://example.com/a"},
	{Name: "b", Data: "https://example.com/b"},
}

func TestQRGeneratorExactSize(t *testing.T) {
	gen, err := NewQRGenerator(DefaultQRConfig())
	if err != nil {
		t.Fatal(err)
	}
	for _, size := range []geom.Size{{Width: 120, Height: 120}, {Width: 90, Height: 140}, {Width: 7, Height: 5}} {
		set, err := gen.Generate(context.Background(), twoPayloads, size)
		if err != nil {
			t.Fatalf("%s: %v", size, err)
		}
		if len(set) != 2 || set[0].Name != "a" || set[1].Name != "b" {
			t.Fatalf("%s: unexpected variant names", size)
		}
		for _, v := range set {
			b := v.Content.Bounds()
			if b.Dx() != size.Width || b.Dy() != size.Height {
				t.Errorf("%s: variant %s is %dx%d", size, v.Name, b.Dx(), b.Dy())
			}
		}
	}
}

func TestQRGeneratorRejectsBadConfig(t *testing.T) {
	cfg := DefaultQRConfig()
	cfg.Recovery = "extreme"
	if _, err := NewQRGenerator(cfg); err == nil {
		t.Error("expected unknown recovery level to fail")
	}

	cfg = DefaultQRConfig()
	cfg.Foreground = "not-a-color"
	if _, err := NewQRGenerator(cfg); err == nil {
		t.Error("expected invalid color to fail")
	}
}

func TestQRGeneratorUsesConfiguredColors(t *testing.T) {
	cfg := DefaultQRConfig()
	cfg.Background = "#ff0000"
	cfg.QuietZone = true
	gen, err := NewQRGenerator(cfg)
	if err != nil {
		t.Fatal(err)
	}
	set, err := gen.Generate(context.Background(), twoPayloads[:1], geom.Square(200))
	if err != nil {
		t.Fatal(err)
	}
	// The quiet zone corner is background.
	px := set[0].Content.Pix[0:4]
	if px[0] != 255 || px[1] != 0 || px[2] != 0 {
		t.Errorf("expected red background corner, got %v", px)
	}
}

func TestGeneratorRejectsEmptySize(t *testing.T) {
	gen, _ := NewQRGenerator(DefaultQRConfig())
	if _, err := gen.Generate(context.Background(), twoPayloads, geom.Size{Width: 0, Height: 10}); err == nil {
		t.Fatal("expected error for zero width")
	}
}

func TestTextGeneratorExactSize(t *testing.T) {
	gen, err := NewTextGenerator(DefaultQRConfig())
	if err != nil {
		t.Fatal(err)
	}
	set, err := gen.Generate(context.Background(), twoPayloads, geom.Size{Width: 160, Height: 40})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range set {
		if v.Content.Bounds().Dx() != 160 || v.Content.Bounds().Dy() != 40 {
			t.Errorf("variant %s has size %v", v.Name, v.Content.Bounds())
		}
	}
}

// countingGenerator wraps a generator and counts calls.
type countingGenerator struct {
	Generator
	calls int
}

func (c *countingGenerator) Generate(ctx context.Context, payloads []Payload, size geom.Size) ([]Variant, error) {
	c.calls++
	return c.Generator.Generate(ctx, payloads, size)
}

func TestCacheGeneratesOncePerSize(t *testing.T) {
	qr, _ := NewQRGenerator(DefaultQRConfig())
	gen := &countingGenerator{Generator: qr}
	cache, err := NewCache(zerolog.Nop(), gen, twoPayloads, 4)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := cache.Get(ctx, geom.Square(50)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := cache.Get(ctx, geom.Square(60)); err != nil {
		t.Fatal(err)
	}
	if gen.calls != 2 || cache.Generated() != 2 {
		t.Fatalf("expected 2 generator calls, got %d", gen.calls)
	}
	if names := cache.Names(); len(names) != 2 || names[0] != "a" {
		t.Errorf("unexpected names %v", names)
	}
}
