package psf

// Analytic point-spread-function models. An exposure arrives with a
// fitted model of its seeing; the psf-matched warp variant convolves
// everything to a common target model; the direct variant's composite
// PSF is synthesized downstream from the per-exposure models.

import(
	"fmt"
	"math"

	"skywarp/pkg/wmath"
)

// FwhmPerSigma converts a Gaussian sigma to full width at half max.
const FwhmPerSigma = 2.354820045

type Model interface {
	// EvalAt is the profile value at an offset from the center, in
	// pixels. Profiles are normalized to unit volume.
	EvalAt(dx, dy float64) float64
	Fwhm() float64 // pixels
	String() string
}

// A Gaussian is the workhorse seeing model.
type Gaussian struct {
	SigmaPix float64 `yaml:"sigma_pix"`
}

func (g Gaussian)EvalAt(dx, dy float64) float64 {
	s2 := g.SigmaPix * g.SigmaPix
	return math.Exp(-(dx*dx+dy*dy)/(2*s2)) / (2 * math.Pi * s2)
}

func (g Gaussian)Fwhm() float64   { return g.SigmaPix * FwhmPerSigma }
func (g Gaussian)String() string  { return fmt.Sprintf("gaussian[sigma %.2fpx]", g.SigmaPix) }

// A Moffat has the broader wings real atmospheric seeing shows.
type Moffat struct {
	AlphaPix float64 `yaml:"alpha_pix"`
	Beta     float64 `yaml:"beta"`
}

func (m Moffat)EvalAt(dx, dy float64) float64 {
	r2 := dx*dx + dy*dy
	a2 := m.AlphaPix * m.AlphaPix
	return (m.Beta - 1) / (math.Pi * a2) * math.Pow(1+r2/a2, -m.Beta)
}

func (m Moffat)Fwhm() float64 {
	return 2 * m.AlphaPix * math.Sqrt(math.Pow(2, 1/m.Beta)-1)
}

func (m Moffat)String() string {
	return fmt.Sprintf("moffat[alpha %.2fpx beta %.1f]", m.AlphaPix, m.Beta)
}

// GaussianSigmaOf is the Gaussian-equivalent sigma of any model, via
// its FWHM. Good enough for kernel sizing and quadrature matching.
func GaussianSigmaOf(m Model) float64 {
	return m.Fwhm() / FwhmPerSigma
}

// Rasterize samples a model onto a size x size grid centered on the
// middle pixel, renormalized so the raster sums to exactly 1. Size
// must be odd so the kernel has a center.
func Rasterize(m Model, size int) (wmath.FloatGrid, error) {
	if size < 1 || size % 2 == 0 {
		return wmath.FloatGrid{}, fmt.Errorf("kernel size %d must be odd and positive", size)
	}

	g := wmath.NewFloatGrid(size, size)
	c := size / 2
	sum := 0.0
	for y:=0; y<size; y++ {
		for x:=0; x<size; x++ {
			v := m.EvalAt(float64(x-c), float64(y-c))
			g.Set(x, y, v)
			sum += v
		}
	}

	if sum <= 0 {
		return wmath.FloatGrid{}, fmt.Errorf("%s rasterized to nothing at size %d", m, size)
	}
	g.MulScalar(1.0 / sum)

	return g, nil
}

// MatchingKernel builds the convolution kernel that degrades an image
// with PSF src to look like PSF dst, under the Gaussian quadrature
// rule: the difference kernel is a Gaussian of sigma^2 = dst^2-src^2.
// Fails when the source seeing is already at or beyond the target;
// the caller treats that as a per-exposure matching failure.
func MatchingKernel(src, dst Model, size int) (wmath.FloatGrid, error) {
	sSrc := GaussianSigmaOf(src)
	sDst := GaussianSigmaOf(dst)

	if sSrc >= sDst {
		return wmath.FloatGrid{}, fmt.Errorf("source seeing %.2fpx already wider than target %.2fpx",
			sSrc, sDst)
	}

	diff := Gaussian{SigmaPix: math.Sqrt(sDst*sDst - sSrc*sSrc)}
	return Rasterize(diff, size)
}
