package hexgrid

import (
	"image"
	"math"
)

// scanConvex walks the rows of the convex polygon pts,
// calling fn with the inclusive column range covered on each row.
// Pixels on the polygon boundary count as covered.
// Rows and columns are clipped to clip; fn is never called with an empty range.
func scanConvex(pts []image.Point, clip image.Rectangle, fn func(y, x0, x1 int)) {
	if len(pts) == 0 || clip.Empty() {
		return
	}
	top, bottom := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		top = min(top, p.Y)
		bottom = max(bottom, p.Y)
	}
	top = max(top, clip.Min.Y)
	bottom = min(bottom, clip.Max.Y-1)

	for y := top; y <= bottom; y++ {
		left, right := math.Inf(1), math.Inf(-1)
		for i := range pts {
			a, b := pts[i], pts[(i+1)%len(pts)]
			if a.Y > b.Y {
				a, b = b, a
			}
			if y < a.Y || y > b.Y {
				continue
			}
			if a.Y == b.Y {
				left = min(left, float64(a.X), float64(b.X))
				right = max(right, float64(a.X), float64(b.X))
				continue
			}
			x := float64(a.X) + float64(y-a.Y)*float64(b.X-a.X)/float64(b.Y-a.Y)
			left = min(left, x)
			right = max(right, x)
		}
		if left > right {
			continue
		}
		x0 := max(int(math.Ceil(left)), clip.Min.X)
		x1 := min(int(math.Floor(right)), clip.Max.X-1)
		if x0 > x1 {
			continue
		}
		fn(y, x0, x1)
	}
}
