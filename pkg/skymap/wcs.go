package skymap

// A Wcs maps between detector/patch pixel positions and a tangent
// plane on the sky. All exposures and patches for one tract share the
// tract's tangent point, so a pixel->pixel transform between any two
// of them composes exactly as an affine, no reprojection residuals.
// Tangent plane coordinates (xi, eta) are in degrees.

import(
	"fmt"
	"math"

	"skywarp/pkg/wmath"
)

type Wcs struct {
	TangentRA  float64 // degrees; the tract's tangent point
	TangentDec float64

	pixToTan wmath.Aff3
	tanToPix wmath.Aff3
}

// NewWcs builds the mapping for a pixel plane whose reference pixel
// (crpixX, crpixY) sits at tangent offset (xiRef, etaRef), with the
// given plate scale in degrees/pixel and grid rotation in degrees.
func NewWcs(tanRA, tanDec, crpixX, crpixY, xiRef, etaRef, scaleDeg, rotDeg float64) (Wcs, error) {
	if scaleDeg <= 0 {
		return Wcs{}, fmt.Errorf("wcs pixel scale must be positive, got %f", scaleDeg)
	}

	// Rightmost first: recenter on crpix, scale to degrees, rotate,
	// then offset to where this plane's reference sits on the tangent
	// plane.
	fwd := wmath.Identity().
		Translate(xiRef, etaRef).
		Rotate(rotDeg).
		Scale(scaleDeg, scaleDeg).
		Translate(-crpixX, -crpixY)

	rev, err := fwd.Invert()
	if err != nil {
		return Wcs{}, fmt.Errorf("wcs not invertible: %v", err)
	}

	return Wcs{
		TangentRA:  tanRA,
		TangentDec: tanDec,
		pixToTan:   fwd,
		tanToPix:   rev,
	}, nil
}

func (w Wcs)PixelToTan(x, y float64) (float64, float64) { return w.pixToTan.Apply(x, y) }
func (w Wcs)TanToPixel(xi, eta float64) (float64, float64) { return w.tanToPix.Apply(xi, eta) }

// PixelScaleDeg is the linear size of a pixel on the tangent plane.
func (w Wcs)PixelScaleDeg() float64 {
	return math.Sqrt(math.Abs(w.pixToTan.Det()))
}

// TransformTo returns the affine taking pixel positions in this
// frame to pixel positions in dst's frame.
func (w Wcs)TransformTo(dst Wcs) wmath.Aff3 {
	return dst.tanToPix.Mult(w.pixToTan)
}

func (w Wcs)String() string {
	return fmt.Sprintf("wcs[tan(%.4f,%.4f) scale %.2f asec/px]",
		w.TangentRA, w.TangentDec, w.PixelScaleDeg()*3600.0)
}
