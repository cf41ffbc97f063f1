package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
)

// Adaptive threshold methods.
const (
	ThresholdGaussian = "gaussian"
	ThresholdMean     = "mean"
)

// AdaptiveThreshold binarizes gray against its own local neighbourhood mean.
//
// For every pixel the weighted mean of the surrounding blockSize×blockSize window
// is computed (Gaussian weights or a flat box, depending on method). The pixel
// becomes 255 when src > mean - c and 0 otherwise; invert swaps the two outputs.
// Dark ink on light paper therefore comes out black unless invert is set.
//
// blockSize must be odd and >= 3. Borders replicate the edge pixels. The local
// mean is rounded to 8 bits before comparison, as the input is 8-bit.
//
// The result always contains only 0 and 255 and shares bounds with gray.
func AdaptiveThreshold(gray *image.Gray, blockSize int, c float64, method string, invert bool) *image.Gray {
	var kernel *convolution.Kernel
	if method == ThresholdMean {
		kernel = boxKernel(blockSize)
	} else {
		kernel = gaussianKernel(blockSize)
	}
	mean := convolution.Convolve(gray, kernel, &convolution.Options{Bias: 0, Wrap: false, KeepAlpha: true})

	var on, off uint8 = 255, 0
	if invert {
		on, off = 0, 255
	}

	// Pix offsets are relative to each image's own origin.
	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			src := float64(gray.Pix[y*gray.Stride+x])
			m := float64(mean.Pix[y*mean.Stride+x*4])
			if src > m-c {
				out.Pix[y*out.Stride+x] = on
			} else {
				out.Pix[y*out.Stride+x] = off
			}
		}
	}
	return out
}

// gaussianKernel returns a normalized size×size Gaussian kernel with the sigma
// conventionally paired with a block size: 0.3·((size-1)·0.5 - 1) + 0.8.
func gaussianKernel(size int) *convolution.Kernel {
	sigma := 0.3*((float64(size)-1)*0.5-1) + 0.8
	half := size / 2

	weights := make([]float64, size)
	var sum float64
	for i := range weights {
		d := float64(i - half)
		weights[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}

	k := convolution.NewKernel(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			k.Matrix[y*size+x] = weights[y] * weights[x]
		}
	}
	return k
}

// boxKernel returns a normalized size×size flat kernel.
func boxKernel(size int) *convolution.Kernel {
	k := convolution.NewKernel(size, size)
	w := 1 / float64(size*size)
	for i := range k.Matrix {
		k.Matrix[i] = w
	}
	return k
}

// IsBinary reports whether every pixel of img is 0 or 255.
func IsBinary(img *image.Gray) bool {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()]
		for _, v := range row {
			if v != 0 && v != 255 {
				return false
			}
		}
	}
	return true
}
