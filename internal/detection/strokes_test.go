package detection

import (
	"image"
	"math"
	"testing"
)

// paper returns a white binarized image.
func paper(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// fillInk sets the rectangle [x1,x2)×[y1,y2) to ink (0).
func fillInk(img *image.Gray, x1, y1, x2, y2 int) {
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			img.Pix[y*img.Stride+x] = 0
		}
	}
}

func TestAnalyzeStrokes_Rectangle(t *testing.T) {
	img := paper(40, 30)
	fillInk(img, 10, 10, 20, 15)

	res := AnalyzeStrokes(img, StrokeOptions{Ink: 0})
	if res.Count != 1 {
		t.Fatalf("Count: got %d, want 1", res.Count)
	}
	s := res.Strokes[0]
	if s.Area != 50 {
		t.Errorf("Area: got %d, want 50", s.Area)
	}
	if want := (Bounds{X1: 10, Y1: 10, X2: 20, Y2: 15}); s.Bounds != want {
		t.Errorf("Bounds: got %+v, want %+v", s.Bounds, want)
	}
	// Boundary pixel centres: 2·(10-1) + 2·(5-1).
	if math.Abs(s.Perimeter-26) > 1e-9 {
		t.Errorf("Perimeter: got %v, want 26", s.Perimeter)
	}
	if s.Vertices != 4 {
		t.Errorf("Vertices: got %d, want 4", s.Vertices)
	}
	if math.Abs(res.Density-1) > 1e-9 {
		t.Errorf("Density: got %v, want 1", res.Density)
	}
}

func TestAnalyzeStrokes_ThinLine(t *testing.T) {
	img := paper(20, 5)
	fillInk(img, 0, 2, 10, 3)

	res := AnalyzeStrokes(img, StrokeOptions{Ink: 0})
	if res.Count != 1 {
		t.Fatalf("Count: got %d, want 1", res.Count)
	}
	s := res.Strokes[0]
	// A one-pixel line is walked out and back.
	if math.Abs(s.Perimeter-18) > 1e-9 {
		t.Errorf("Perimeter: got %v, want 18", s.Perimeter)
	}
	if s.Vertices != 2 {
		t.Errorf("Vertices: got %d, want 2", s.Vertices)
	}
}

func TestAnalyzeStrokes_DiagonalIsOneStroke(t *testing.T) {
	img := paper(20, 20)
	for i := 0; i < 10; i++ {
		img.Pix[(5+i)*img.Stride+5+i] = 0
	}
	res := AnalyzeStrokes(img, StrokeOptions{Ink: 0})
	if res.Count != 1 {
		t.Fatalf("8-connected diagonal: got %d strokes, want 1", res.Count)
	}
	if want := 2 * 9 * math.Sqrt2; math.Abs(res.Strokes[0].Perimeter-want) > 1e-9 {
		t.Errorf("Perimeter: got %v, want %v", res.Strokes[0].Perimeter, want)
	}
}

func TestAnalyzeStrokes_SortedAndFiltered(t *testing.T) {
	img := paper(60, 40)
	fillInk(img, 2, 2, 6, 4)     // 8 px
	fillInk(img, 20, 10, 40, 20) // 200 px
	fillInk(img, 50, 30, 51, 31) // 1 px speck

	res := AnalyzeStrokes(img, StrokeOptions{Ink: 0})
	if res.Count != 2 {
		t.Fatalf("Count: got %d, want 2 (speck filtered)", res.Count)
	}
	if res.Strokes[0].Area != 200 || res.Strokes[1].Area != 8 {
		t.Errorf("areas: got %d, %d; want 200, 8", res.Strokes[0].Area, res.Strokes[1].Area)
	}
	if res.InkPixels != 208 {
		t.Errorf("InkPixels: got %d, want 208", res.InkPixels)
	}
	if want := (Bounds{X1: 2, Y1: 2, X2: 40, Y2: 20}); res.InkBounds != want {
		t.Errorf("InkBounds: got %+v, want %+v", res.InkBounds, want)
	}

	res = AnalyzeStrokes(img, StrokeOptions{Ink: 0, MinArea: 1})
	if res.Count != 3 {
		t.Errorf("MinArea 1: got %d strokes, want 3", res.Count)
	}
	speck := res.Strokes[2]
	if speck.Perimeter != 0 || speck.Vertices != 1 {
		t.Errorf("single pixel: perimeter %v vertices %d, want 0 and 1", speck.Perimeter, speck.Vertices)
	}
}

func TestAnalyzeStrokes_InvertedPolarity(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 30, 30))
	for y := 5; y < 10; y++ {
		for x := 5; x < 10; x++ {
			img.Pix[y*img.Stride+x] = 255
		}
	}
	res := AnalyzeStrokes(img, StrokeOptions{Ink: 255})
	if res.Count != 1 || res.Strokes[0].Area != 25 {
		t.Fatalf("got %+v, want one 25px stroke", res)
	}
}

func TestAnalyzeStrokes_SubImageOffsets(t *testing.T) {
	img := paper(50, 50)
	fillInk(img, 20, 20, 25, 25)
	sub := img.SubImage(image.Rect(10, 10, 40, 40)).(*image.Gray)

	res := AnalyzeStrokes(sub, StrokeOptions{Ink: 0})
	if res.Count != 1 {
		t.Fatalf("Count: got %d, want 1", res.Count)
	}
	if want := (Bounds{X1: 20, Y1: 20, X2: 25, Y2: 25}); res.Strokes[0].Bounds != want {
		t.Errorf("Bounds: got %+v, want %+v", res.Strokes[0].Bounds, want)
	}
}

func TestAnalyzeStrokes_Blank(t *testing.T) {
	res := AnalyzeStrokes(paper(20, 20), StrokeOptions{Ink: 0})
	if res.Count != 0 || res.Strokes == nil {
		t.Errorf("blank image: got %+v, want empty non-nil strokes", res)
	}
	if res.Density != 0 {
		t.Errorf("Density: got %v, want 0", res.Density)
	}
}

func TestDouglasPeucker(t *testing.T) {
	straight := []Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
	if got := douglasPeucker(straight, 0.5); got != 2 {
		t.Errorf("straight line: got %d points, want 2", got)
	}
	corner := []Point{{0, 0}, {5, 0}, {5, 5}}
	if got := douglasPeucker(corner, 0.5); got != 3 {
		t.Errorf("corner: got %d points, want 3", got)
	}
}

func TestSegmentDistance(t *testing.T) {
	tests := []struct {
		p, a, b Point
		want    float64
	}{
		{Point{5, 3}, Point{0, 0}, Point{10, 0}, 3},
		{Point{-4, 3}, Point{0, 0}, Point{10, 0}, 5},
		{Point{2, 2}, Point{1, 1}, Point{1, 1}, math.Sqrt2},
	}
	for _, tt := range tests {
		if got := segmentDistance(tt.p, tt.a, tt.b); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("segmentDistance(%v, %v, %v) = %v, want %v", tt.p, tt.a, tt.b, got, tt.want)
		}
	}
}
