// Package overlays composites replacement content into frames, producing one
// output frame per variant.
package overlays

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/internal/geom"
	"github.com/kikiluvv/regionswap/internal/variants"
)

// ErrContentSize is returned when variant content does not match the target
// rectangle. Content must be sized by the generator, never stretched here.
var ErrContentSize = errors.New("variant content does not match rectangle size")

// Output is one variant's version of a frame.
type Output struct {
	Name  string
	Frame *frames.Frame
}

// Replace returns one frame per variant, in variant order. Without a
// rectangle every output is an untouched clone, so each stream still gets a
// frame for this index. With a rectangle, each clone has r overwritten by the
// variant content; pixels outside r keep their input values. The input frame
// is never modified.
func Replace(f *frames.Frame, r geom.Rect, ok bool, set []variants.Variant) ([]Output, error) {
	out := make([]Output, 0, len(set))
	if !ok {
		for _, v := range set {
			out = append(out, Output{Name: v.Name, Frame: f.Clone()})
		}
		return out, nil
	}

	for _, v := range set {
		if v.Content == nil {
			return nil, fmt.Errorf("variant %s: %w (no content)", v.Name, ErrContentSize)
		}
		cb := v.Content.Bounds()
		if cb.Dx() != r.Width || cb.Dy() != r.Height {
			return nil, fmt.Errorf("variant %s is %dx%d, rectangle %s: %w",
				v.Name, cb.Dx(), cb.Dy(), r, ErrContentSize)
		}
		// Paste copies the background first; the part of r outside the frame is dropped.
		img := imaging.Paste(f.Image, v.Content, image.Pt(r.X, r.Y))
		out = append(out, Output{Name: v.Name, Frame: &frames.Frame{Index: f.Index, Image: img}})
	}
	return out, nil
}
