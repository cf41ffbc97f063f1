package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// InkBounds returns the smallest rectangle containing every pixel equal to ink.
// ok is false when the image holds no ink.
func InkBounds(bin *image.Gray, ink uint8) (r image.Rectangle, ok bool) {
	b := bin.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := 0; y < b.Dy(); y++ {
		row := bin.Pix[y*bin.Stride : y*bin.Stride+b.Dx()]
		for x, v := range row {
			if v != ink {
				continue
			}
			px, py := x+b.Min.X, y+b.Min.Y
			if px < minX {
				minX = px
			}
			if px > maxX {
				maxX = px
			}
			if py < minY {
				minY = py
			}
			if py > maxY {
				maxY = py
			}
		}
	}
	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// CropToInk crops a binarized image to the bounding box of its ink plus margin
// pixels on every side (limited to the image bounds).
//
// Parameters:
//   - bin: Binarized image (0 and 255 only).
//   - ink: The pixel value of strokes, 0 for normal polarity or 255 when inverted.
//   - margin: Extra pixels kept around the ink. Negative values are treated as 0.
//
// The result starts at the origin. An image with no ink is returned as an
// unmodified copy.
func CropToInk(bin *image.Gray, ink uint8, margin int) *image.Gray {
	r, ok := InkBounds(bin, ink)
	if !ok {
		return toGray(bin)
	}
	if margin < 0 {
		margin = 0
	}
	r = image.Rect(r.Min.X-margin, r.Min.Y-margin, r.Max.X+margin, r.Max.Y+margin).Intersect(bin.Bounds())
	return toGray(imaging.Crop(bin, r))
}

// toGray copies any image into a new *image.Gray anchored at the origin.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], g.Pix[y*g.Stride:y*g.Stride+b.Dx()])
		}
		return out
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, img.At(x+b.Min.X, y+b.Min.Y))
		}
	}
	return out
}
