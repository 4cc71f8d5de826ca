package resample

// Inverse-mapped resampling: walk every destination pixel, map its
// position back into the source frame, and interpolate. Destination
// pixels whose kernel support leaves the source data, or touches a
// NaN, come out as NO_DATA|EDGE - the unusable border grows by the
// kernel support, which is the honest thing to do.

import(
	"image"
	"math"

	"skywarp/pkg/frame"
	"skywarp/pkg/skymap"
	"skywarp/pkg/wmath"
)

// Warp resamples src onto the destination pixel plane, bounded to
// dstBBox. Pixel values are scaled by the pixel area ratio of the two
// planes so total flux is conserved across a change of pixel scale.
func Warp(src *frame.Frame, srcWcs, dstWcs skymap.Wcs, dstBBox image.Rectangle, k Kernel) frame.Frame {
	dst := frame.NewEmpty(dstBBox)
	if dstBBox.Empty() || src.BBox.Empty() {
		return dst
	}

	dstToSrc := dstWcs.TransformTo(srcWcs)
	fluxScale := math.Abs(dstToSrc.Det())

	for y:=dstBBox.Min.Y; y<dstBBox.Max.Y; y++ {
		for x:=dstBBox.Min.X; x<dstBBox.Max.X; x++ {
			sx, sy := dstToSrc.Apply(float64(x), float64(y))
			v, m, varr, ok := interpolate(src, sx, sy, k)
			if !ok {
				continue // stays NaN / NO_DATA
			}
			dst.SetPixel(x, y, v*fluxScale, m, varr*fluxScale*fluxScale)
		}
	}

	return dst
}

// interpolate evaluates the separable kernel at (sx, sy) in source
// pixel coordinates. Returns ok=false when any tap is outside the
// source or NaN.
func interpolate(src *frame.Frame, sx, sy float64, k Kernel) (float64, uint16, float64, bool) {
	x0 := int(math.Floor(sx))
	y0 := int(math.Floor(sy))

	var (
		sumW, sumWV, sumW2Var float64
		bits                  uint16
	)

	for ty:=y0-k.Support+1; ty<=y0+k.Support; ty++ {
		wy := k.weight(sy - float64(ty))
		if math.Abs(wy) < minWeight { continue }

		for tx:=x0-k.Support+1; tx<=x0+k.Support; tx++ {
			wx := k.weight(sx - float64(tx))
			if math.Abs(wx) < minWeight { continue }

			if !src.Contains(tx, ty) {
				return 0, 0, 0, false
			}
			v := src.ValueAt(tx, ty)
			if math.IsNaN(v) {
				return 0, 0, 0, false
			}

			w := wx * wy
			sumW += w
			sumWV += w * v
			sumW2Var += w * w * src.VarianceAt(tx, ty)
			bits |= src.MaskAt(tx, ty)
		}
	}

	if sumW <= 0 {
		return 0, 0, 0, false
	}

	// Normalize by the actual weight sum; lanczos ripples a little
	// around 1.0 depending on the phase.
	return sumWV / sumW, bits, sumW2Var / (sumW * sumW), true
}

// CoverageBBox is the patch-plane footprint of a source frame: its
// corners pushed through the WCS pair, padded by the kernel support,
// clipped to the patch. This is the minimal destination box worth
// warping into for that source.
func CoverageBBox(srcBBox image.Rectangle, srcWcs, dstWcs skymap.Wcs, patchBBox image.Rectangle, k Kernel) image.Rectangle {
	if srcBBox.Empty() {
		return image.Rectangle{}
	}

	xf := srcWcs.TransformTo(dstWcs)

	xs := make([]float64, 0, 4)
	ys := make([]float64, 0, 4)
	for _, c := range []image.Point{
		{srcBBox.Min.X, srcBBox.Min.Y},
		{srcBBox.Max.X - 1, srcBBox.Min.Y},
		{srcBBox.Min.X, srcBBox.Max.Y - 1},
		{srcBBox.Max.X - 1, srcBBox.Max.Y - 1},
	} {
		x, y := xf.Apply(float64(c.X), float64(c.Y))
		xs = append(xs, x)
		ys = append(ys, y)
	}

	return wmath.PadRectangle(wmath.BoundingRectangle(xs, ys), k.Support).Intersect(patchBBox)
}
