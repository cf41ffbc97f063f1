package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
)

// DefaultMarkerColor is the overlay color used when none is given.
const DefaultMarkerColor = "#FF0000"

// Marker is one annotated point, in the pixel coordinates of the image it is
// drawn on.
type Marker struct {
	X      float64
	Y      float64
	Radius float64
}

// DrawMarkers returns an RGBA copy of img with a circle and a center dot for
// each marker. With numbered set, markers are labelled 1..n next to their
// circle. An invalid colorHex falls back to DefaultMarkerColor.
func DrawMarkers(img image.Image, markers []Marker, colorHex string, numbered bool) *image.RGBA {
	bounds := img.Bounds()

	markColor, err := parseHexColor(colorHex)
	if err != nil {
		markColor, _ = parseHexColor(DefaultMarkerColor)
	}

	result := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)

	for _, m := range markers {
		drawCircle(result, m.X, m.Y, math.Max(m.Radius, 2), markColor)
		setClipped(result, int(math.Round(m.X)), int(math.Round(m.Y)), markColor)
	}

	if numbered {
		labelColor := color.RGBA{255, 255, 255, 255}
		bgColor := color.RGBA{0, 0, 0, 180}
		for i, m := range markers {
			r := math.Max(m.Radius, 2)
			drawLabel(result, int(m.X+r)+1, int(m.Y+r)+1, strconv.Itoa(i+1), labelColor, bgColor)
		}
	}

	return result
}

// drawCircle plots the outline of a circle with enough samples to leave no
// gaps at radius r.
func drawCircle(img *image.RGBA, cx, cy, r float64, c color.RGBA) {
	steps := int(math.Ceil(2*math.Pi*r)) + 8
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		setClipped(img, int(math.Round(cx+r*math.Cos(a))), int(math.Round(cy+r*math.Sin(a))), c)
	}
}

func setClipped(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel draws a number with a 3x5 pixel font on a dark background.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setClipped(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setClipped(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
