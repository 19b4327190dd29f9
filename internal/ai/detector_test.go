package ai

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	qr "github.com/skip2/go-qrcode"

	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/internal/geom"
)

func noise(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		v := uint8(rng.Intn(256))
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v/2, 255-v, 255
	}
	return img
}

func blank(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func TestFuncAppliesPaddingAndNormalization(t *testing.T) {
	det := Func(func(ctx context.Context, f *frames.Frame) (geom.Rect, bool, error) {
		return geom.Rect{X: 10, Y: 10, Width: 4, Height: 4}, true, nil
	})
	f := frames.New(0, blank(32, 32))

	r, ok, err := det.Detect(context.Background(), f, 3)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if r != (geom.Rect{X: 7, Y: 7, Width: 10, Height: 10}) {
		t.Fatalf("unexpected padded rect %v", r)
	}

	// Shrinking below zero is a miss, not a clamped box.
	if _, ok, _ := det.Detect(context.Background(), f, -3); ok {
		t.Fatal("expected negative-size box to be reported as a miss")
	}
}

func TestFirstOfReturnsFirstHit(t *testing.T) {
	miss := Func(func(ctx context.Context, f *frames.Frame) (geom.Rect, bool, error) {
		return geom.Rect{}, false, nil
	})
	hit := Func(func(ctx context.Context, f *frames.Frame) (geom.Rect, bool, error) {
		return geom.Rect{X: 1, Y: 2, Width: 3, Height: 4}, true, nil
	})
	boom := errors.New("recognizer crashed")
	fail := Func(func(ctx context.Context, f *frames.Frame) (geom.Rect, bool, error) {
		return geom.Rect{}, false, boom
	})
	f := frames.New(0, blank(8, 8))

	r, ok, err := FirstOf{miss, hit, fail}.Detect(context.Background(), f, 0)
	if err != nil || !ok || r.X != 1 {
		t.Fatalf("expected second detector to win, got %v %v %v", r, ok, err)
	}
	if _, _, err := (FirstOf{miss, fail, hit}).Detect(context.Background(), f, 0); !errors.Is(err, boom) {
		t.Fatalf("expected recognizer error to propagate, got %v", err)
	}
}

// closeCounter is a detector that never hits and records Close calls.
type closeCounter struct {
	Func
	err    error
	closed *int
}

func (c closeCounter) Close() error {
	*c.closed++
	return c.err
}

func TestFirstOfClosesEveryDetector(t *testing.T) {
	boom := errors.New("release failed")
	closed := 0
	none := Func(func(ctx context.Context, f *frames.Frame) (geom.Rect, bool, error) {
		return geom.Rect{}, false, nil
	})
	det := FirstOf{
		closeCounter{Func: none, err: boom, closed: &closed},
		closeCounter{Func: none, closed: &closed},
	}

	err := det.Close()
	if !errors.Is(err, boom) {
		t.Errorf("expected the close error to be reported, got %v", err)
	}
	if closed != 2 {
		t.Errorf("expected both detectors to be closed, %d were", closed)
	}
}

func TestTemplateDetectorFindsEmbeddedPatch(t *testing.T) {
	// Placed on the coarse grid: shifted noise does not correlate, so an
	// off-grid patch would give the refinement pass nothing to climb.
	scene := noise(120, 90, 1)
	patch := noise(24, 18, 2)
	draw.Draw(scene, image.Rect(38, 22, 38+24, 22+18), patch, image.Point{}, draw.Src)

	det, err := NewTemplateDetector(zerolog.Nop(), patch, DefaultTemplateConfig())
	if err != nil {
		t.Fatalf("failed to build detector: %v", err)
	}

	r, ok, err := det.Detect(context.Background(), frames.New(0, scene), 2)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	want := geom.Rect{X: 36, Y: 20, Width: 28, Height: 22}
	if r != want {
		t.Fatalf("expected %v, got %v", want, r)
	}
}

func TestTemplateDetectorMissesOnUnrelatedFrame(t *testing.T) {
	det, err := NewTemplateDetector(zerolog.Nop(), noise(16, 16, 3), DefaultTemplateConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := det.Detect(context.Background(), frames.New(0, blank(64, 64)), 0); ok || err != nil {
		t.Fatalf("expected a miss on a flat frame, got ok=%v err=%v", ok, err)
	}
	if _, ok, _ := det.Detect(context.Background(), frames.New(0, blank(8, 8)), 0); ok {
		t.Fatal("frame smaller than the template cannot match")
	}
}

func TestTemplateRejectsFlatTemplate(t *testing.T) {
	if _, err := NewTemplateDetector(zerolog.Nop(), blank(10, 10), DefaultTemplateConfig()); err == nil {
		t.Fatal("expected an error for a template without contrast")
	}
}

func TestQRDetectorLocatesCode(t *testing.T) {
	code, err := qr.New("https://example.com/a", qr.Medium)
	if err != nil {
		t.Fatal(err)
	}
	scene := blank(400, 300)
	draw.Draw(scene, image.Rect(100, 50, 300, 250), code.Image(200), image.Point{}, draw.Src)

	det := NewQRDetector(zerolog.Nop(), true)
	r, ok, err := det.Detect(context.Background(), frames.New(0, scene), 0)
	if err != nil || !ok {
		t.Fatalf("expected qr hit, got ok=%v err=%v", ok, err)
	}
	if r.X < 100 || r.Y < 50 || r.X+r.Width > 300 || r.Y+r.Height > 250 {
		t.Fatalf("detected box %v lies outside the pasted code", r)
	}
	if r.Width < 50 || r.Height < 50 {
		t.Fatalf("detected box %v is implausibly small", r)
	}
}

func TestQRDetectorMissIsNotAnError(t *testing.T) {
	det := NewQRDetector(zerolog.Nop(), false)
	_, ok, err := det.Detect(context.Background(), frames.New(0, blank(100, 100)), 5)
	if ok || err != nil {
		t.Fatalf("expected silent miss, got ok=%v err=%v", ok, err)
	}
}
