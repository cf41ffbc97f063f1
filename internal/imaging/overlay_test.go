package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input   string
		want    color.RGBA
		wantErr bool
	}{
		{"#FF0000", color.RGBA{255, 0, 0, 255}, false},
		{"00FF00", color.RGBA{0, 255, 0, 255}, false},
		{"#0000FF80", color.RGBA{0, 0, 255, 128}, false},
		{"", color.RGBA{}, true},
		{"#FFF", color.RGBA{}, true},
		{"#GGGGGG", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseHexColor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHexColor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseHexColor(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDrawMarkers(t *testing.T) {
	src := image.NewGray(image.Rect(10, 10, 110, 60))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	out := DrawMarkers(src, []Marker{{X: 30, Y: 25, Radius: 6}, {X: 99, Y: 49, Radius: 0}}, "#00FF00", true)

	if out.Bounds() != image.Rect(0, 0, 100, 50) {
		t.Fatalf("bounds: got %v, want origin-anchored 100x50", out.Bounds())
	}
	green := color.RGBA{0, 255, 0, 255}
	if got := out.RGBAAt(30, 25); got != green {
		t.Errorf("center: got %v, want %v", got, green)
	}
	if got := out.RGBAAt(36, 25); got != green {
		t.Errorf("circle edge: got %v, want %v", got, green)
	}
	if got := out.RGBAAt(5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("untouched pixel changed: %v", got)
	}
	// The label of the first marker sits below-right of its circle.
	if got := out.RGBAAt(37, 31); got == (color.RGBA{255, 255, 255, 255}) {
		t.Error("expected a label background next to the first marker")
	}
	// The source is not modified.
	if src.GrayAt(40, 35).Y != 255 {
		t.Error("DrawMarkers modified its input")
	}
}

func TestDrawMarkers_BadColorFallsBack(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 20, 20))
	out := DrawMarkers(src, []Marker{{X: 10, Y: 10, Radius: 3}}, "nope", false)
	if got := out.RGBAAt(10, 10); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("fallback color: got %v", got)
	}
}
