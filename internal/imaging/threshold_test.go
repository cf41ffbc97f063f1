package imaging

import (
	"image"
	"image/color"
	"testing"
)

var blackInk = color.Gray{Y: 0}

// paperGray returns a white grayscale image.
func paperGray(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// gradientGray returns a horizontal ramp from dark to light.
func gradientGray(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = uint8(40 + 200*x/(w-1))
		}
	}
	return img
}

func TestAdaptiveThreshold_OutputIsBinary(t *testing.T) {
	src := gradientGray(64, 32)
	for x := 10; x < 50; x++ {
		src.SetGray(x, 16, color.Gray{Y: 10})
	}

	for _, method := range []string{ThresholdGaussian, ThresholdMean} {
		for _, invert := range []bool{false, true} {
			out := AdaptiveThreshold(src, 11, 2, method, invert)
			if !IsBinary(out) {
				t.Errorf("method=%s invert=%v: output is not binary", method, invert)
			}
			if out.Bounds() != src.Bounds() {
				t.Errorf("bounds changed: %v", out.Bounds())
			}
		}
	}
}

func TestAdaptiveThreshold_DarkStrokeOnLightPaper(t *testing.T) {
	src := paperGray(40, 40)
	for x := 5; x < 35; x++ {
		src.SetGray(x, 20, color.Gray{Y: 30})
	}

	out := AdaptiveThreshold(src, 11, 2, ThresholdGaussian, false)
	if got := out.GrayAt(20, 20).Y; got != 0 {
		t.Errorf("stroke pixel: got %d, want 0", got)
	}
	if got := out.GrayAt(20, 5).Y; got != 255 {
		t.Errorf("paper pixel: got %d, want 255", got)
	}

	inv := AdaptiveThreshold(src, 11, 2, ThresholdGaussian, true)
	if inv.GrayAt(20, 20).Y != 255 || inv.GrayAt(20, 5).Y != 0 {
		t.Error("invert should swap stroke and paper values")
	}
}

func TestAdaptiveThreshold_UniformIsPaper(t *testing.T) {
	// src > mean - C holds everywhere on a flat image when C > 0.
	src := paperGray(30, 30)
	for i := range src.Pix {
		src.Pix[i] = 100
	}
	out := AdaptiveThreshold(src, 11, 2, ThresholdMean, false)
	if countValue(out, 255) != 30*30 {
		t.Error("flat image should be entirely paper")
	}
}

func TestAdaptiveThreshold_DoesNotMutateInput(t *testing.T) {
	src := gradientGray(32, 16)
	before := append([]uint8(nil), src.Pix...)
	AdaptiveThreshold(src, 11, 2, ThresholdGaussian, false)
	for i := range before {
		if src.Pix[i] != before[i] {
			t.Fatal("input image was modified")
		}
	}
}

func TestGaussianKernel_Normalized(t *testing.T) {
	for _, size := range []int{3, 11, 31} {
		k := gaussianKernel(size)
		var sum float64
		for _, v := range k.Matrix {
			sum += v
		}
		if absDiff(sum, 1) > 1e-9 {
			t.Errorf("size %d: kernel sums to %v", size, sum)
		}
		center := k.Matrix[(size/2)*size+size/2]
		for _, v := range k.Matrix {
			if v > center {
				t.Errorf("size %d: center is not the peak", size)
				break
			}
		}
	}
}

func TestLaplacianSharpen(t *testing.T) {
	src := paperGray(20, 20)
	for y := 0; y < 20; y++ {
		src.SetGray(10, y, color.Gray{Y: 100})
	}
	before := append([]uint8(nil), src.Pix...)

	out := LaplacianSharpen(src, 0.5)

	if out.GrayAt(2, 2).Y != 255 {
		t.Errorf("flat paper changed: %d", out.GrayAt(2, 2).Y)
	}
	// Laplacian at the stroke is 2·155 = 310, so 100 - 155 clamps to 0.
	if out.GrayAt(10, 5).Y != 0 {
		t.Errorf("stroke pixel: got %d, want 0", out.GrayAt(10, 5).Y)
	}
	// Neighbour: lap = 100 - 255 = -155, 255 - 77.5 rounds to 178.
	if got := out.GrayAt(9, 5).Y; got != 178 {
		t.Errorf("stroke neighbour: got %d, want 178", got)
	}
	for i := range before {
		if src.Pix[i] != before[i] {
			t.Fatal("input image was modified")
		}
	}
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
