// Package variants turns named payloads into replacement images sized for a
// target rectangle.
package variants

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/kikiluvv/regionswap/internal/geom"
)

// Variant is one named replacement image, already sized to its rectangle.
type Variant struct {
	Name    string
	Content *image.NRGBA
}

// Generator renders payloads at a given size. Implementations return one
// variant per payload, in payload order, each exactly size in dimensions.
type Generator interface {
	Generate(ctx context.Context, payloads []Payload, size geom.Size) ([]Variant, error)
}

// fit scales img to exactly size and normalizes it to NRGBA.
func fit(img image.Image, size geom.Size, interp resize.InterpolationFunction) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() != size.Width || b.Dy() != size.Height {
		img = resize.Resize(uint(size.Width), uint(size.Height), img, interp)
	}
	return imaging.Clone(img)
}

func checkSize(size geom.Size) error {
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("invalid variant size %s", size)
	}
	return nil
}
