package frame

import(
	"fmt"
	"math"
)

// PhotoCalib is the photometric zero-point of an image: FluxMag0 is
// the raw pixel flux that corresponds to magnitude zero. Two images
// with different FluxMag0 are in different flux units; dividing out
// the ratio puts them on a common scale.
type PhotoCalib struct {
	FluxMag0    float64 `yaml:"flux_mag0"`
	FluxMag0Err float64 `yaml:"flux_mag0_err"`
}

func (pc PhotoCalib)IsSet() bool { return pc.FluxMag0 > 0 }

// ScaleTo returns the factor that converts pixel values calibrated
// under pc into the units of the adopted calibration: adopted zero
// point over ours.
func (pc PhotoCalib)ScaleTo(adopted PhotoCalib) float64 {
	return adopted.FluxMag0 / pc.FluxMag0
}

// Magnitude converts a raw flux to a magnitude under this zero-point.
func (pc PhotoCalib)Magnitude(flux float64) float64 {
	return -2.5 * math.Log10(flux/pc.FluxMag0)
}

func (pc PhotoCalib)String() string {
	return fmt.Sprintf("calib[fluxmag0 %.1f +/- %.1f]", pc.FluxMag0, pc.FluxMag0Err)
}

// VisitInfo carries the observation circumstances an exposure was
// taken under; the canvas adopts the first contributor's copy.
type VisitInfo struct {
	ObsTimeMJD float64 `yaml:"obs_time_mjd"`
	ExposureSec float64 `yaml:"exposure_sec"`
	Airmass    float64 `yaml:"airmass"`
}
