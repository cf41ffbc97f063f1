package imaging

import (
	"image"
	"math"
)

// LaplacianSharpen darkens pixels in proportion to the local Laplacian magnitude:
// out = gray - amount·|∇²gray|, clamped to [0, 255].
//
// The 4-neighbour Laplacian is used with replicated borders. Strokes get crisper
// edges and flat paper is left untouched. The input is not modified.
func LaplacianSharpen(gray *image.Gray, amount float64) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)

	at := func(x, y int) float64 {
		x = clamp(x, 0, w-1)
		y = clamp(y, 0, h-1)
		return float64(gray.Pix[y*gray.Stride+x])
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := at(x, y)
			lap := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*c
			v := c - amount*math.Abs(lap)
			out.Pix[y*out.Stride+x] = uint8(math.Round(math.Max(0, math.Min(255, v))))
		}
	}
	return out
}
