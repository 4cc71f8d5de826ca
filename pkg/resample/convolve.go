package resample

import(
	"math"

	"skywarp/pkg/frame"
	"skywarp/pkg/wmath"
)

// Convolve applies a normalized kernel raster to a frame, for PSF
// homogenization. Output pixels whose kernel support runs off the
// frame, or crosses a NaN, are NO_DATA|EDGE. Variance propagates as
// the sum of squared kernel weights times input variance.
func Convolve(src *frame.Frame, kernel wmath.FloatGrid) frame.Frame {
	dst := frame.NewEmpty(src.BBox)
	c := kernel.Dx() / 2

	for y:=src.BBox.Min.Y; y<src.BBox.Max.Y; y++ {
	pixels:
		for x:=src.BBox.Min.X; x<src.BBox.Max.X; x++ {
			var (
				sumV, sumVar float64
				bits         uint16
			)

			for j:=0; j<kernel.Dy(); j++ {
				for i:=0; i<kernel.Dx(); i++ {
					k := kernel.Get(i, j)
					if math.Abs(k) < minWeight { continue }

					tx, ty := x+i-c, y+j-c
					if !src.Contains(tx, ty) {
						continue pixels
					}
					v := src.ValueAt(tx, ty)
					if math.IsNaN(v) {
						continue pixels
					}

					sumV += k * v
					sumVar += k * k * src.VarianceAt(tx, ty)
					bits |= src.MaskAt(tx, ty)
				}
			}

			dst.SetPixel(x, y, sumV, bits, sumVar)
		}
	}

	return dst
}
