package geom

import (
	"image"
	"testing"
)

func TestPadGrowsSymmetrically(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}.Pad(5)
	want := Rect{X: 5, Y: 15, Width: 40, Height: 50}
	if r != want {
		t.Fatalf("expected %v, got %v", want, r)
	}
}

func TestNormalizeRejectsNegativeSize(t *testing.T) {
	cases := []Rect{
		{X: 0, Y: 0, Width: -1, Height: 10},
		{X: 0, Y: 0, Width: 10, Height: -3},
		{X: 5, Y: 5, Width: 0, Height: 10},
	}
	for _, c := range cases {
		if _, ok := Normalize(c); ok {
			t.Errorf("expected %v to normalize to no detection", c)
		}
	}

	if r, ok := Normalize(Rect{X: 1, Y: 2, Width: 3, Height: 4}); !ok || r.Width != 3 {
		t.Errorf("valid rect was rejected: %v %v", r, ok)
	}
}

func TestPadCanInvalidate(t *testing.T) {
	r := Rect{Width: 4, Height: 4}.Pad(-3)
	if r.Valid() {
		t.Fatalf("expected shrunk rect %v to be invalid", r)
	}
}

func TestFromImageKeepsInvertedCorners(t *testing.T) {
	r := FromImage(image.Rectangle{Min: image.Pt(10, 10), Max: image.Pt(5, 20)})
	if r.Width != -5 || r.Height != 10 {
		t.Fatalf("unexpected conversion: %v", r)
	}
	if _, ok := Normalize(r); ok {
		t.Fatal("inverted rectangle should not be a detection")
	}
}

func TestImageRoundTrip(t *testing.T) {
	r := Rect{X: 3, Y: 4, Width: 7, Height: 9}
	if got := FromImage(r.Image()); got != r {
		t.Fatalf("expected %v, got %v", r, got)
	}
}
