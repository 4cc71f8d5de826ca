package wmath

// A few helper routines for image.Rectangle bounding boxes

import(
	"image"
	"math"
)

func RectCenter(b image.Rectangle) image.Point {
	return image.Point{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2}
}

func GrowRectangle(r image.Rectangle, p image.Point) image.Rectangle {
	if p.X < r.Min.X {
		r.Min.X = p.X
	} else if p.X > r.Max.X {
		r.Max.X = p.X
	}

	if p.Y < r.Min.Y {
		r.Min.Y = p.Y
	} else if p.Y > r.Max.Y {
		r.Max.Y = p.Y
	}

	return r
}

// PadRectangle grows a box outward by n pixels on every side, e.g. to
// cover a resampling kernel's support.
func PadRectangle(r image.Rectangle, n int) image.Rectangle {
	return image.Rect(r.Min.X-n, r.Min.Y-n, r.Max.X+n, r.Max.Y+n)
}

// BoundingRectangle returns the smallest integer box covering a set
// of float positions. Min rounds down, Max rounds up and is
// exclusive, matching image.Rectangle conventions.
func BoundingRectangle(xs, ys []float64) image.Rectangle {
	if len(xs) == 0 {
		return image.Rectangle{}
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i:=1; i<len(xs); i++ {
		if xs[i] < minX { minX = xs[i] }
		if xs[i] > maxX { maxX = xs[i] }
		if ys[i] < minY { minY = ys[i] }
		if ys[i] > maxY { maxY = ys[i] }
	}

	return image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1)
}
