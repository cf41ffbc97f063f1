package imaging

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Pen classes reported by InkColors.
const (
	PenBlack = "black"
	PenBlue  = "blue"
	PenRed   = "red"
	PenOther = "other"
)

// paperLightness is the HSL lightness above which a masked pixel is treated as
// paper showing through the mask rather than ink.
const paperLightness = 0.9

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// HSLColor represents a color in HSL space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 100=white)
}

// ColorFrequency represents a quantized ink color and its share of the ink.
type ColorFrequency struct {
	Hex        string   `json:"hex"`        // Hex color "#RRGGBB" (quantized)
	Percentage float64  `json:"percentage"` // Percentage of ink pixels with this color (0-100)
	RGB        RGBColor `json:"rgb"`
	HSL        HSLColor `json:"hsl"`
}

// InkColorResult describes the colors found under the ink mask of a scan.
type InkColorResult struct {
	// Pen classifies the dominant color: black, blue, red or other.
	// Empty when no ink was found.
	Pen string `json:"pen,omitempty"`

	// Colors holds the most common ink colors, most common first.
	Colors []ColorFrequency `json:"colors"`

	// InkPixels is the number of pixels counted as ink.
	InkPixels int `json:"ink_pixels"`
}

// InkColors reports the dominant colors of img under the pixels of mask equal
// to ink. mask is normally the binarized stage of the same image; when the
// sizes differ img is resampled to the mask first. Near-white pixels are
// skipped as paper.
//
// # Color Quantization
//
// Similar colors are grouped by quantizing each 8-bit component down to a
// multiple of 16, so #F0F0F0 and #FAFAFA both count as #F0F0F0.
func InkColors(img image.Image, mask *image.Gray, ink uint8, count int) *InkColorResult {
	mb := mask.Bounds()
	src := img
	if b := img.Bounds(); b.Dx() != mb.Dx() || b.Dy() != mb.Dy() {
		src = imaging.Resize(img, mb.Dx(), mb.Dy(), imaging.Box)
	}
	sb := src.Bounds()

	counts := make(map[RGBColor]int)
	total := 0
	for y := 0; y < mb.Dy(); y++ {
		for x := 0; x < mb.Dx(); x++ {
			if mask.GrayAt(mb.Min.X+x, mb.Min.Y+y).Y != ink {
				continue
			}
			c, ok := colorful.MakeColor(src.At(sb.Min.X+x, sb.Min.Y+y))
			if !ok {
				continue
			}
			if _, _, l := c.Hsl(); l > paperLightness {
				continue
			}
			r, g, b := c.RGB255()
			counts[RGBColor{R: r / 16 * 16, G: g / 16 * 16, B: b / 16 * 16}]++
			total++
		}
	}

	result := &InkColorResult{Colors: []ColorFrequency{}, InkPixels: total}
	if total == 0 {
		return result
	}

	for rgb, n := range counts {
		h, s, l := colorful.Color{
			R: float64(rgb.R) / 255,
			G: float64(rgb.G) / 255,
			B: float64(rgb.B) / 255,
		}.Hsl()
		result.Colors = append(result.Colors, ColorFrequency{
			Hex:        fmt.Sprintf("#%02X%02X%02X", rgb.R, rgb.G, rgb.B),
			Percentage: float64(n) / float64(total) * 100,
			RGB:        rgb,
			HSL:        HSLColor{H: int(math.Round(h)) % 360, S: int(math.Round(s * 100)), L: int(math.Round(l * 100))},
		})
	}

	sort.Slice(result.Colors, func(i, j int) bool {
		if result.Colors[i].Percentage != result.Colors[j].Percentage {
			return result.Colors[i].Percentage > result.Colors[j].Percentage
		}
		return result.Colors[i].Hex < result.Colors[j].Hex
	})
	if count > 0 && len(result.Colors) > count {
		result.Colors = result.Colors[:count]
	}

	result.Pen = classifyPen(result.Colors[0].HSL)
	return result
}

// classifyPen maps a dominant ink color to a pen class.
func classifyPen(c HSLColor) string {
	switch {
	case c.L < 20 || c.S < 25:
		return PenBlack
	case c.H >= 190 && c.H <= 260:
		return PenBlue
	case c.H < 20 || c.H >= 340:
		return PenRed
	default:
		return PenOther
	}
}
