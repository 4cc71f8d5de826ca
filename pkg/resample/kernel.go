package resample

import(
	"fmt"
	"math"
	"strings"
)

// A Kernel is a separable 1-D resampling profile, applied in x then
// y. Support is the tap radius: bilinear touches 2x2 source pixels,
// lanczos3 touches 6x6.
type Kernel struct {
	Name    string
	Support int
	weight  func(t float64) float64
}

// minWeight is the threshold below which a tap counts as absent. The
// lanczos profile never reaches exactly zero at integer phases (Sin(Pi)
// is ~1e-16 in floats), and a tap that tiny must not veto a pixel via
// the out-of-bounds check or smear mask bits in.
const minWeight = 1e-10

// KernelByName maps the config string to an implementation.
func KernelByName(name string) (Kernel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bilinear":
		return Kernel{Name: "bilinear", Support: 1, weight: bilinearWeight}, nil
	case "lanczos3":
		return Kernel{Name: "lanczos3", Support: 3, weight: lanczos3Weight}, nil
	default:
		return Kernel{}, fmt.Errorf("no such resampling kernel '%s'", name)
	}
}

func (k Kernel)String() string { return k.Name }

func bilinearWeight(t float64) float64 {
	t = math.Abs(t)
	if t >= 1 {
		return 0
	}
	return 1 - t
}

func lanczos3Weight(t float64) float64 {
	t = math.Abs(t)
	if t >= 3 {
		return 0
	}
	if t < 1e-12 {
		return 1
	}
	pt := math.Pi * t
	return 3 * math.Sin(pt) * math.Sin(pt/3) / (pt * pt)
}
