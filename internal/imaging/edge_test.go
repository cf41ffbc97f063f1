package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestDetectEdges_Dimensions(t *testing.T) {
	img := createEdgeTestImage(100, 80)
	edges := DetectEdges(img, 50, 150)

	if edges.Bounds().Dx() != 100 || edges.Bounds().Dy() != 80 {
		t.Errorf("dimensions: got %v, want 100x80", edges.Bounds())
	}
	if !IsBinary(edges) {
		t.Error("edge image should contain only 0 and 255")
	}
}

func TestDetectEdges_DifferentThresholds(t *testing.T) {
	img := createEdgeTestImage(50, 50)

	tests := []struct {
		name      string
		low, high int
	}{
		{"low thresholds", 10, 50},
		{"medium thresholds", 50, 150},
		{"high thresholds", 100, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edges := DetectEdges(img, tt.low, tt.high)
			if countValue(edges, 255) == 0 {
				t.Error("expected some edge pixels around the rectangle")
			}
		})
	}
}

func TestDetectEdges_UniformImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for i := range img.Pix {
		img.Pix[i] = 128
		if i%4 == 3 {
			img.Pix[i] = 255
		}
	}

	edges := DetectEdges(img, 50, 150)
	if n := countValue(edges, 255); n != 0 {
		t.Errorf("uniform image should have no edges, got %d edge pixels", n)
	}
}

func TestDetectEdges_StrongEdge(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x < 50 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}

	edges := DetectEdges(img, 50, 150)

	edgeFound := false
	for x := 47; x <= 52; x++ {
		if edges.GrayAt(x, 50).Y > 0 {
			edgeFound = true
			break
		}
	}
	if !edgeFound {
		t.Error("strong vertical edge was not detected")
	}
	if edges.GrayAt(10, 50).Y != 0 || edges.GrayAt(90, 50).Y != 0 {
		t.Error("flat regions away from the boundary should not be edges")
	}
}

func TestDetectEdges_SmallImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 5, 5))
	edges := DetectEdges(img, 50, 150)
	if edges.Bounds().Dx() != 5 || edges.Bounds().Dy() != 5 {
		t.Errorf("dimensions: got %v, want 5x5", edges.Bounds())
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, min, max, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}

	for _, tt := range tests {
		got := clamp(tt.val, tt.min, tt.max)
		if got != tt.want {
			t.Errorf("clamp(%d, %d, %d): got %d, want %d",
				tt.val, tt.min, tt.max, got, tt.want)
		}
	}
}

// createEdgeTestImage creates a black rectangle on a white background.
func createEdgeTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	for y := height / 4; y < 3*height/4; y++ {
		for x := width / 4; x < 3*width/4; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

// countValue counts pixels equal to v.
func countValue(img *image.Gray, v uint8) int {
	n := 0
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if img.Pix[y*img.Stride+x] == v {
				n++
			}
		}
	}
	return n
}
