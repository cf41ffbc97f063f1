package features

import (
	"errors"
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/blur"
	"gonum.org/v1/gonum/floats"
)

const (
	// DescriptorDim is the length of descriptors produced by the gradient extractor.
	DescriptorDim = cellsPerSide * cellsPerSide * orientationBins

	patchRadius      = 8
	cellsPerSide     = 4
	orientationBins  = 8
	histogramBins    = 36
	harrisK          = 0.04
	harrisWindow     = 2 // 5x5 structure tensor window
	descriptorClip   = 0.2
	smoothingRadius  = 1.0
	descriptorSigma  = patchRadius
	orientationSigma = patchRadius / 2
)

func init() {
	Register("gradient", func(opts Options) (Extractor, error) {
		return NewGradientExtractor(opts), nil
	})
}

// GradientExtractor is a pure Go keypoint detector and descriptor.
//
// Keypoints are Harris corners of the (lightly smoothed) binarized stroke image,
// filtered by a relative quality level and a minimum spacing. Each keypoint gets a
// dominant orientation from a 36-bin gradient histogram, and a 128-component
// descriptor built from a 16x16 patch rotated to that orientation: 4x4 cells with
// 8 orientation bins each, Gaussian weighted, L2 normalized, clipped at 0.2 and
// renormalized. Rotating the patch makes descriptors invariant to in-plane rotation.
type GradientExtractor struct {
	opts Options
}

// NewGradientExtractor returns a gradient extractor; zero options select defaults.
func NewGradientExtractor(opts Options) *GradientExtractor {
	return &GradientExtractor{opts: opts.withDefaults()}
}

// Name returns "gradient".
func (e *GradientExtractor) Name() string {
	return "gradient"
}

type corner struct {
	x, y     int
	response float64
}

// Extract detects keypoints and computes their descriptors.
//
// A blank image, or one too small to hold a 3x3 neighbourhood, yields an empty set.
func (e *GradientExtractor) Extract(img *image.Gray) (*DescriptorSet, error) {
	if img == nil {
		return nil, errors.New("extract: nil image")
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	set := &DescriptorSet{}
	if width < 3 || height < 3 {
		return set, nil
	}

	smoothed := blur.Gaussian(img, smoothingRadius)
	plane := make([][]float64, height)
	for y := 0; y < height; y++ {
		plane[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			// bild output is zero-based RGBA; all channels carry the same gray value
			plane[y][x] = float64(smoothed.Pix[y*smoothed.Stride+x*4]) / 255.0
		}
	}

	gradX, gradY := sobel(plane, width, height)
	response := harrisResponse(gradX, gradY, width, height)
	corners := selectCorners(response, width, height, e.opts)

	for _, c := range corners {
		angle := dominantOrientation(gradX, gradY, c.x, c.y, width, height)
		desc := describe(gradX, gradY, c.x, c.y, angle, width, height)
		if desc == nil {
			continue
		}
		degrees := angle * 180 / math.Pi
		if degrees < 0 {
			degrees += 360
		}
		set.Keypoints = append(set.Keypoints, Keypoint{
			X:        float64(c.x + bounds.Min.X),
			Y:        float64(c.y + bounds.Min.Y),
			Size:     2 * patchRadius,
			Angle:    degrees,
			Response: c.response,
		})
		set.Descriptors = append(set.Descriptors, desc)
	}
	return set, nil
}

// sobel computes horizontal and vertical gradients with replicated borders.
func sobel(plane [][]float64, width, height int) ([][]float64, [][]float64) {
	gradX := make([][]float64, height)
	gradY := make([][]float64, height)
	for y := 0; y < height; y++ {
		gradX[y] = make([]float64, width)
		gradY[y] = make([]float64, width)
		ym, yp := clamp(y-1, 0, height-1), clamp(y+1, 0, height-1)
		for x := 0; x < width; x++ {
			xm, xp := clamp(x-1, 0, width-1), clamp(x+1, 0, width-1)
			gradX[y][x] = (plane[ym][xp] + 2*plane[y][xp] + plane[yp][xp]) -
				(plane[ym][xm] + 2*plane[y][xm] + plane[yp][xm])
			gradY[y][x] = (plane[yp][xm] + 2*plane[yp][x] + plane[yp][xp]) -
				(plane[ym][xm] + 2*plane[ym][x] + plane[ym][xp])
		}
	}
	return gradX, gradY
}

// harrisResponse computes det(M) - k*trace(M)^2 over a 5x5 structure tensor window.
func harrisResponse(gradX, gradY [][]float64, width, height int) [][]float64 {
	response := make([][]float64, height)
	for y := 0; y < height; y++ {
		response[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var sxx, syy, sxy float64
			for dy := -harrisWindow; dy <= harrisWindow; dy++ {
				py := y + dy
				if py < 0 || py >= height {
					continue
				}
				for dx := -harrisWindow; dx <= harrisWindow; dx++ {
					px := x + dx
					if px < 0 || px >= width {
						continue
					}
					gx, gy := gradX[py][px], gradY[py][px]
					sxx += gx * gx
					syy += gy * gy
					sxy += gx * gy
				}
			}
			trace := sxx + syy
			response[y][x] = sxx*syy - sxy*sxy - harrisK*trace*trace
		}
	}
	return response
}

// selectCorners keeps 3x3 local maxima above QualityLevel*max, strongest first,
// at least MinDistance apart, capped at MaxKeypoints.
func selectCorners(response [][]float64, width, height int, opts Options) []corner {
	maxResponse := 0.0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if response[y][x] > maxResponse {
				maxResponse = response[y][x]
			}
		}
	}
	if maxResponse <= 0 {
		return nil
	}
	cutoff := opts.QualityLevel * maxResponse

	candidates := make([]corner, 0)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			r := response[y][x]
			if r <= cutoff {
				continue
			}
			isMax := true
			for dy := -1; dy <= 1 && isMax; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if (dx != 0 || dy != 0) && response[y+dy][x+dx] > r {
						isMax = false
						break
					}
				}
			}
			if isMax {
				candidates = append(candidates, corner{x: x, y: y, response: r})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].response > candidates[j].response
	})

	minDist2 := opts.MinDistance * opts.MinDistance
	kept := make([]corner, 0, min(len(candidates), opts.MaxKeypoints))
	for _, c := range candidates {
		tooClose := false
		for _, k := range kept {
			dx, dy := c.x-k.x, c.y-k.y
			if dx*dx+dy*dy < minDist2 {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		kept = append(kept, c)
		if len(kept) == opts.MaxKeypoints {
			break
		}
	}
	return kept
}

// dominantOrientation returns the peak of a 36-bin magnitude-weighted orientation
// histogram around (cx, cy), in radians.
func dominantOrientation(gradX, gradY [][]float64, cx, cy, width, height int) float64 {
	var hist [histogramBins]float64
	binWidth := 2 * math.Pi / histogramBins
	for dy := -patchRadius; dy <= patchRadius; dy++ {
		for dx := -patchRadius; dx <= patchRadius; dx++ {
			if dx*dx+dy*dy > patchRadius*patchRadius {
				continue
			}
			x, y := cx+dx, cy+dy
			if x < 0 || x >= width || y < 0 || y >= height {
				continue
			}
			gx, gy := gradX[y][x], gradY[y][x]
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}
			weight := math.Exp(-float64(dx*dx+dy*dy) / (2 * orientationSigma * orientationSigma))
			bin := int(normalizeAngle(math.Atan2(gy, gx))/binWidth) % histogramBins
			hist[bin] += weight * mag
		}
	}
	peak := floats.MaxIdx(hist[:])
	if hist[peak] == 0 {
		return 0
	}
	return (float64(peak) + 0.5) * binWidth
}

// describe builds the 4x4x8 descriptor of the patch around (cx, cy) rotated by angle.
// It returns nil when the patch carries no gradient energy.
func describe(gradX, gradY [][]float64, cx, cy int, angle float64, width, height int) Descriptor {
	desc := make(Descriptor, DescriptorDim)
	cosA, sinA := math.Cos(angle), math.Sin(angle)
	binWidth := 2 * math.Pi / orientationBins
	cellSize := float64(2*patchRadius) / cellsPerSide

	for v := -patchRadius; v < patchRadius; v++ {
		for u := -patchRadius; u < patchRadius; u++ {
			fu, fv := float64(u)+0.5, float64(v)+0.5
			x := int(math.Round(float64(cx) + cosA*fu - sinA*fv))
			y := int(math.Round(float64(cy) + sinA*fu + cosA*fv))
			if x < 0 || x >= width || y < 0 || y >= height {
				continue
			}
			gx, gy := gradX[y][x], gradY[y][x]
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}
			weight := math.Exp(-(fu*fu + fv*fv) / (2 * descriptorSigma * descriptorSigma))
			rel := normalizeAngle(math.Atan2(gy, gx) - angle)
			bin := int(rel/binWidth) % orientationBins
			cellX := int((fu + patchRadius) / cellSize)
			cellY := int((fv + patchRadius) / cellSize)
			desc[(cellY*cellsPerSide+cellX)*orientationBins+bin] += weight * mag
		}
	}

	norm := floats.Norm(desc, 2)
	if norm == 0 {
		return nil
	}
	floats.Scale(1/norm, desc)
	for i, v := range desc {
		if v > descriptorClip {
			desc[i] = descriptorClip
		}
	}
	floats.Scale(1/floats.Norm(desc, 2), desc)
	return desc
}

// normalizeAngle maps an angle in radians to [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
