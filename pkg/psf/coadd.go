package psf

import(
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// A Component is one contributor to a composite PSF: the exposure's
// own model weighted by how many canvas pixels it supplied.
type Component struct {
	Model  Model
	Weight float64
}

// CoaddPolicy controls composite construction. MaxComponents caps how
// many contributors are kept (largest weights win); zero means keep
// them all.
type CoaddPolicy struct {
	MaxComponents int `yaml:"max_components"`
}

// A Coadd is the effective PSF of a merged warp: the weighted mixture
// of its contributors' models. Because each canvas pixel was filled
// by exactly one exposure, the weights are the pixel counts.
type Coadd struct {
	components []Component
	sumWeight  float64
}

func NewCoadd(components []Component, policy CoaddPolicy) (*Coadd, error) {
	kept := []Component{}
	for _, c := range components {
		if c.Weight > 0 && c.Model != nil {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("no weighted components to build a composite psf from")
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Weight > kept[j].Weight })
	if policy.MaxComponents > 0 && len(kept) > policy.MaxComponents {
		kept = kept[:policy.MaxComponents]
	}

	sum := 0.0
	for _, c := range kept {
		sum += c.Weight
	}

	return &Coadd{components: kept, sumWeight: sum}, nil
}

func (cp *Coadd)NumComponents() int { return len(cp.components) }

// Components exposes the kept mixture, heaviest first, for
// serialization and inspection.
func (cp *Coadd)Components() []Component { return cp.components }

func (cp *Coadd)EvalAt(dx, dy float64) float64 {
	v := 0.0
	for _, c := range cp.components {
		v += c.Weight * c.Model.EvalAt(dx, dy)
	}
	return v / cp.sumWeight
}

// Fwhm moment-matches the mixture: the effective variance is the
// weighted mean of the component variances.
func (cp *Coadd)Fwhm() float64 {
	vars := make([]float64, len(cp.components))
	weights := make([]float64, len(cp.components))
	for i, c := range cp.components {
		s := GaussianSigmaOf(c.Model)
		vars[i] = s * s
		weights[i] = c.Weight
	}
	return math.Sqrt(stat.Mean(vars, weights)) * FwhmPerSigma
}

func (cp *Coadd)String() string {
	return fmt.Sprintf("coadd-psf[%d components, fwhm %.2fpx]", len(cp.components), cp.Fwhm())
}
