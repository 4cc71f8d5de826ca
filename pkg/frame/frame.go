package frame

// A Frame is one image plane triple - values, mask bits, variance -
// addressed by positions in some parent pixel plane (a detector, or a
// tract). The bounding box records where the frame sits in that
// plane; grids are indexed relative to BBox.Min. This is the one
// pixel container everything here passes around: source exposures,
// warped intermediates, and the canvases being accumulated.

import(
	"fmt"
	"image"
	"math"

	"skywarp/pkg/wmath"
)

type Frame struct {
	BBox     image.Rectangle
	Values   wmath.FloatGrid
	Mask     wmath.MaskGrid
	Variance wmath.FloatGrid
}

// New allocates a frame of zero values, clear masks, zero variance.
func New(bbox image.Rectangle) Frame {
	return Frame{
		BBox:     bbox,
		Values:   wmath.NewFloatGrid(bbox.Dx(), bbox.Dy()),
		Mask:     wmath.NewMaskGrid(bbox.Dx(), bbox.Dy()),
		Variance: wmath.NewFloatGrid(bbox.Dx(), bbox.Dy()),
	}
}

// NewEmpty allocates a frame in the nothing-here-yet state: NaN
// values, NO_DATA masks, infinite variance. This is the birth state
// of a warp canvas.
func NewEmpty(bbox image.Rectangle) Frame {
	return Frame{
		BBox:     bbox,
		Values:   wmath.NewFloatGridFilled(bbox.Dx(), bbox.Dy(), math.NaN()),
		Mask:     wmath.NewMaskGridFilled(bbox.Dx(), bbox.Dy(), MaskNoData),
		Variance: wmath.NewFloatGridFilled(bbox.Dx(), bbox.Dy(), math.Inf(1)),
	}
}

func (f *Frame)Contains(x, y int) bool {
	return image.Point{x, y}.In(f.BBox)
}

func (f *Frame)ValueAt(x, y int) float64    { return f.Values.Get(x-f.BBox.Min.X, y-f.BBox.Min.Y) }
func (f *Frame)MaskAt(x, y int) uint16      { return f.Mask.Get(x-f.BBox.Min.X, y-f.BBox.Min.Y) }
func (f *Frame)VarianceAt(x, y int) float64 { return f.Variance.Get(x-f.BBox.Min.X, y-f.BBox.Min.Y) }

func (f *Frame)SetPixel(x, y int, v float64, m uint16, varr float64) {
	gx, gy := x-f.BBox.Min.X, y-f.BBox.Min.Y
	f.Values.Set(gx, gy, v)
	f.Mask.Set(gx, gy, m)
	f.Variance.Set(gx, gy, varr)
}

// Scale multiplies values by r in place. Variance goes as r squared,
// since it's the square of the pixel uncertainty.
func (f *Frame)Scale(r float64) {
	f.Values.MulScalar(r)
	f.Variance.MulScalar(r * r)
}

// AddScalar shifts every value, e.g. restoring a subtracted sky
// background estimate before warping.
func (f *Frame)AddScalar(s float64) {
	f.Values.AddScalar(s)
}

// GoodPixels counts pixels that carry real data: finite value and no
// NO_DATA bit.
func (f *Frame)GoodPixels() int {
	n := 0
	for y:=f.BBox.Min.Y; y<f.BBox.Max.Y; y++ {
		for x:=f.BBox.Min.X; x<f.BBox.Max.X; x++ {
			if f.MaskAt(x, y) & MaskNoData != 0 { continue }
			if math.IsNaN(f.ValueAt(x, y)) { continue }
			n++
		}
	}
	return n
}

func (f *Frame)String() string {
	return fmt.Sprintf("frame[%v, %s]", f.BBox, f.Values.Stats())
}

// CopyGoodPixels merges src into dst under the first-good-pixel-wins
// rule: a destination pixel is written only when the incoming value
// is finite, the incoming mask has none of the badMask bits, and the
// destination still carries NO_DATA. The write copies value and
// variance, adopts the incoming mask bits minus NO_DATA, and returns
// how many pixels were copied. Pixels already claimed by an earlier
// merge are never touched, so merge order defines precedence.
func CopyGoodPixels(dst, src *Frame, badMask uint16) int {
	overlap := dst.BBox.Intersect(src.BBox)
	if overlap.Empty() {
		return 0
	}

	numGood := 0
	for y:=overlap.Min.Y; y<overlap.Max.Y; y++ {
		for x:=overlap.Min.X; x<overlap.Max.X; x++ {
			if dst.MaskAt(x, y) & MaskNoData == 0 { continue }

			v := src.ValueAt(x, y)
			if math.IsNaN(v) { continue }

			m := src.MaskAt(x, y)
			if m & badMask != 0 { continue }

			dst.SetPixel(x, y, v, m &^ MaskNoData, src.VarianceAt(x, y))
			numGood++
		}
	}

	return numGood
}
