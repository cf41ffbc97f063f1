package imaging

import (
	"image"
	"image/color"
	"testing"
)

// penScan returns a white 120x60 RGBA image with two 4px strokes in c, and a
// mask marking exactly the stroke pixels as ink (0).
func penScan(c color.Color) (*image.RGBA, *image.Gray) {
	img := image.NewRGBA(image.Rect(0, 0, 120, 60))
	mask := image.NewGray(img.Bounds())
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}
	for _, x0 := range []int{30, 80} {
		for y := 10; y < 50; y++ {
			for x := x0; x < x0+4; x++ {
				img.Set(x, y, c)
				mask.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return img, mask
}

func TestInkColors_Pen(t *testing.T) {
	tests := []struct {
		name    string
		ink     color.Color
		wantPen string
		wantHex string
	}{
		{"black", color.RGBA{10, 10, 10, 255}, PenBlack, "#000000"},
		{"blue", color.RGBA{20, 40, 200, 255}, PenBlue, "#1020C0"},
		{"red", color.RGBA{200, 20, 20, 255}, PenRed, "#C01010"},
		{"green", color.RGBA{20, 160, 40, 255}, PenOther, "#10A020"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, mask := penScan(tt.ink)
			res := InkColors(img, mask, 0, 3)
			if res.Pen != tt.wantPen {
				t.Errorf("Pen: got %q, want %q (colors %+v)", res.Pen, tt.wantPen, res.Colors)
			}
			if len(res.Colors) != 1 || res.Colors[0].Hex != tt.wantHex {
				t.Errorf("Colors: got %+v, want one %s", res.Colors, tt.wantHex)
			}
			if res.InkPixels != 2*40*4 {
				t.Errorf("InkPixels: got %d, want %d", res.InkPixels, 2*40*4)
			}
			if res.Colors[0].Percentage != 100 {
				t.Errorf("Percentage: got %v", res.Colors[0].Percentage)
			}
		})
	}
}

func TestInkColors_SkipsPaper(t *testing.T) {
	img, mask := penScan(color.RGBA{20, 40, 200, 255})
	// Mark a band of white paper as ink too.
	for x := 0; x < 120; x++ {
		mask.SetGray(x, 55, color.Gray{Y: 0})
	}
	res := InkColors(img, mask, 0, 0)
	if res.InkPixels != 2*40*4 {
		t.Errorf("paper counted as ink: %d pixels", res.InkPixels)
	}
}

func TestInkColors_NoInk(t *testing.T) {
	img, _ := penScan(color.Black)
	empty := image.NewGray(img.Bounds())
	for i := range empty.Pix {
		empty.Pix[i] = 255
	}
	res := InkColors(img, empty, 0, 3)
	if res.Pen != "" || res.InkPixels != 0 || len(res.Colors) != 0 {
		t.Errorf("expected an empty result, got %+v", res)
	}
}

func TestInkColors_ResizedMask(t *testing.T) {
	img, _ := penScan(color.RGBA{20, 40, 200, 255})
	// A half-size mask covering the left stroke.
	mask := image.NewGray(image.Rect(0, 0, 60, 30))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}
	for y := 6; y < 24; y++ {
		mask.SetGray(16, y, color.Gray{Y: 0})
	}
	res := InkColors(img, mask, 0, 1)
	if res.Pen != PenBlue {
		t.Errorf("Pen: got %q (colors %+v)", res.Pen, res.Colors)
	}
}

func TestClassifyPen(t *testing.T) {
	tests := []struct {
		c    HSLColor
		want string
	}{
		{HSLColor{H: 0, S: 0, L: 5}, PenBlack},
		{HSLColor{H: 230, S: 70, L: 10}, PenBlack},
		{HSLColor{H: 225, S: 80, L: 45}, PenBlue},
		{HSLColor{H: 350, S: 80, L: 45}, PenRed},
		{HSLColor{H: 5, S: 80, L: 45}, PenRed},
		{HSLColor{H: 120, S: 80, L: 45}, PenOther},
	}
	for _, tt := range tests {
		if got := classifyPen(tt.c); got != tt.want {
			t.Errorf("classifyPen(%+v) = %q, want %q", tt.c, got, tt.want)
		}
	}
}
