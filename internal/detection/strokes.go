package detection

import (
	"image"
	"math"
	"sort"
)

// DefaultEpsilonFactor scales a stroke's perimeter into the polygon
// approximation tolerance.
const DefaultEpsilonFactor = 0.02

// StrokeOptions controls AnalyzeStrokes.
type StrokeOptions struct {
	// Ink is the pixel value of strokes in the binarized image (0 or 255).
	Ink uint8

	// MinArea drops components with fewer pixels than this. Default: 4.
	MinArea int

	// EpsilonFactor is the fraction of the perimeter used as the
	// Douglas-Peucker tolerance. Default: 0.02.
	EpsilonFactor float64
}

// Stroke is one connected ink component of a signature.
type Stroke struct {
	// Bounds is the bounding box of the component's pixels.
	Bounds Bounds `json:"bounds"`

	// Area is the number of ink pixels in the component.
	Area int `json:"area"`

	// Perimeter is the length of the traced outer contour in pixels
	// (axis steps count 1, diagonal steps √2).
	Perimeter float64 `json:"perimeter"`

	// Vertices is the number of corners in a polygon approximation of the
	// contour at tolerance EpsilonFactor·Perimeter. Smooth loops have few,
	// jagged strokes many.
	Vertices int `json:"vertices"`
}

// StrokesResult summarizes the ink of a binarized signature.
type StrokesResult struct {
	// Strokes are the components sorted by area (largest first).
	Strokes []Stroke `json:"strokes"`

	// Count is len(Strokes).
	Count int `json:"count"`

	// InkPixels is the total area of all reported strokes.
	InkPixels int `json:"ink_pixels"`

	// TotalPerimeter and TotalVertices sum the per-stroke values.
	TotalPerimeter float64 `json:"total_perimeter"`
	TotalVertices  int     `json:"total_vertices"`

	// InkBounds encloses every reported stroke. Zero when Count is 0.
	InkBounds Bounds `json:"ink_bounds"`

	// Density is InkPixels divided by the area of InkBounds.
	Density float64 `json:"density"`
}

// AnalyzeStrokes finds connected ink components (8-connectivity) in a binarized
// image and measures each one.
//
// Parameters:
//   - bin: Binarized image. Pixels equal to opts.Ink are strokes.
//   - opts: Ink polarity and filtering. Zero MinArea and EpsilonFactor use defaults.
//
// Returns:
//   - *StrokesResult: Per-stroke metrics and totals. Never nil.
//
// # Algorithm
//
//  1. Labeling: flood-fill groups 8-connected ink pixels
//  2. Tracing: Moore-neighbour tracing walks each component's outer boundary
//  3. Perimeter: sum of step lengths around the closed boundary
//  4. Approximation: Douglas-Peucker on the closed boundary; the kept point
//     count is reported as Vertices
func AnalyzeStrokes(bin *image.Gray, opts StrokeOptions) *StrokesResult {
	if opts.MinArea <= 0 {
		opts.MinArea = 4
	}
	if opts.EpsilonFactor <= 0 {
		opts.EpsilonFactor = DefaultEpsilonFactor
	}

	b := bin.Bounds()
	width, height := b.Dx(), b.Dy()

	ink := make([][]bool, height)
	for y := 0; y < height; y++ {
		ink[y] = make([]bool, width)
		row := bin.Pix[y*bin.Stride : y*bin.Stride+width]
		for x, v := range row {
			ink[y][x] = v == opts.Ink
		}
	}

	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	result := &StrokesResult{Strokes: make([]Stroke, 0)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !ink[y][x] || visited[y][x] {
				continue
			}
			component := make([]Point, 0)
			floodFill(ink, visited, x, y, width, height, &component)
			if len(component) < opts.MinArea {
				continue
			}

			// (x, y) is the first component pixel in raster order.
			contour := traceBoundary(ink, Point{X: x, Y: y}, width, height, len(component))
			perimeter := closedLength(contour)
			vertices := approxVertexCount(contour, opts.EpsilonFactor*perimeter)

			bounds := pointBounds(component)
			bounds.X1 += b.Min.X
			bounds.X2 += b.Min.X
			bounds.Y1 += b.Min.Y
			bounds.Y2 += b.Min.Y

			result.Strokes = append(result.Strokes, Stroke{
				Bounds:    bounds,
				Area:      len(component),
				Perimeter: perimeter,
				Vertices:  vertices,
			})
		}
	}

	sort.SliceStable(result.Strokes, func(i, j int) bool {
		return result.Strokes[i].Area > result.Strokes[j].Area
	})

	result.Count = len(result.Strokes)
	for i, s := range result.Strokes {
		result.InkPixels += s.Area
		result.TotalPerimeter += s.Perimeter
		result.TotalVertices += s.Vertices
		if i == 0 {
			result.InkBounds = s.Bounds
			continue
		}
		result.InkBounds = unionBounds(result.InkBounds, s.Bounds)
	}
	if result.Count > 0 {
		ib := result.InkBounds
		result.Density = float64(result.InkPixels) / float64((ib.X2-ib.X1)*(ib.Y2-ib.Y1))
	}
	return result
}

// Moore neighbourhood in clockwise order, starting west.
var mooreDirs = [8]Point{
	{X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1},
}

func mooreIndex(dx, dy int) int {
	for i, d := range mooreDirs {
		if d.X == dx && d.Y == dy {
			return i
		}
	}
	return 0
}

// traceBoundary walks the outer boundary of the component containing start,
// which must be its first pixel in raster order. The returned contour is
// closed implicitly (last point connects back to the first). Thin strokes are
// walked down one side and back up the other, so pixels may repeat.
func traceBoundary(ink [][]bool, start Point, width, height, area int) []Point {
	inside := func(p Point) bool {
		return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height && ink[p.Y][p.X]
	}

	contour := []Point{start}
	cur := start
	back := 0 // came from the west: nothing precedes start in raster order
	firstDir := -1
	maxSteps := 8*area + 8

	for step := 0; step < maxSteps; step++ {
		dir := -1
		for i := 1; i <= 8; i++ {
			d := (back + i) % 8
			n := Point{X: cur.X + mooreDirs[d].X, Y: cur.Y + mooreDirs[d].Y}
			if inside(n) {
				dir = d
				break
			}
		}
		if dir < 0 {
			break // isolated pixel
		}
		if cur == start && dir == firstDir {
			break
		}
		if firstDir < 0 {
			firstDir = dir
		}

		next := Point{X: cur.X + mooreDirs[dir].X, Y: cur.Y + mooreDirs[dir].Y}
		prev := Point{X: cur.X + mooreDirs[(dir+7)%8].X, Y: cur.Y + mooreDirs[(dir+7)%8].Y}
		back = mooreIndex(prev.X-next.X, prev.Y-next.Y)
		cur = next
		contour = append(contour, cur)
	}

	if len(contour) > 1 && contour[len(contour)-1] == start {
		contour = contour[:len(contour)-1]
	}
	return contour
}

// closedLength returns the length of the closed polyline through pts.
func closedLength(pts []Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	var total float64
	for i := range pts {
		total += dist(pts[i], pts[(i+1)%len(pts)])
	}
	return total
}

// approxVertexCount returns how many points a Douglas-Peucker simplification of
// the closed contour keeps at tolerance epsilon.
//
// The contour is split at the point farthest from the first point and each half
// is simplified as an open polyline.
func approxVertexCount(pts []Point, epsilon float64) int {
	if len(pts) < 3 {
		return len(pts)
	}
	far, farDist := 0, -1.0
	for i, p := range pts {
		if d := dist(pts[0], p); d > farDist {
			far, farDist = i, d
		}
	}
	if far == 0 {
		return 1
	}

	first := append([]Point(nil), pts[:far+1]...)
	second := append(append([]Point(nil), pts[far:]...), pts[0])

	keep1 := douglasPeucker(first, epsilon)
	keep2 := douglasPeucker(second, epsilon)
	// Both halves keep their endpoints, which are shared.
	return keep1 + keep2 - 2
}

// douglasPeucker returns how many points of the open polyline survive simplification.
func douglasPeucker(pts []Point, epsilon float64) int {
	if len(pts) < 3 {
		return len(pts)
	}
	a, z := pts[0], pts[len(pts)-1]
	idx, maxDist := 0, -1.0
	for i := 1; i < len(pts)-1; i++ {
		if d := segmentDistance(pts[i], a, z); d > maxDist {
			idx, maxDist = i, d
		}
	}
	if maxDist <= epsilon {
		return 2
	}
	return douglasPeucker(pts[:idx+1], epsilon) + douglasPeucker(pts[idx:], epsilon) - 1
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(p, a, b Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	if dx == 0 && dy == 0 {
		return dist(p, a)
	}
	t := (float64(p.X-a.X)*dx + float64(p.Y-a.Y)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	px := float64(a.X) + t*dx
	py := float64(a.Y) + t*dy
	return math.Hypot(float64(p.X)-px, float64(p.Y)-py)
}

func dist(a, b Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

// pointBounds returns the bounding box of pts with an exclusive max corner.
func pointBounds(pts []Point) Bounds {
	bb := Bounds{X1: pts[0].X, Y1: pts[0].Y, X2: pts[0].X, Y2: pts[0].Y}
	for _, p := range pts[1:] {
		if p.X < bb.X1 {
			bb.X1 = p.X
		}
		if p.X > bb.X2 {
			bb.X2 = p.X
		}
		if p.Y < bb.Y1 {
			bb.Y1 = p.Y
		}
		if p.Y > bb.Y2 {
			bb.Y2 = p.Y
		}
	}
	bb.X2++
	bb.Y2++
	return bb
}

func unionBounds(a, b Bounds) Bounds {
	if b.X1 < a.X1 {
		a.X1 = b.X1
	}
	if b.Y1 < a.Y1 {
		a.Y1 = b.Y1
	}
	if b.X2 > a.X2 {
		a.X2 = b.X2
	}
	if b.Y2 > a.Y2 {
		a.Y2 = b.Y2
	}
	return a
}
