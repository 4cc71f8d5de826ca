package exposure

// Each exposure on disk is a pixel file (16-bit TIFF) plus a YAML
// sidecar carrying everything the pipeline needs to know about it:
// identity, WCS placement on the tract tangent plane, photometric
// calibration, the fitted seeing model, and observing circumstances.

import(
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"skywarp/pkg/frame"
	"skywarp/pkg/psf"
	"skywarp/pkg/skymap"
)

type Sidecar struct {
	Visit    int    `yaml:"visit"`
	Detector int    `yaml:"detector"`
	Filter   string `yaml:"filter"`
	Pixels   string `yaml:"pixels"` // pixel file, relative to the sidecar's dir
	Width    int    `yaml:"width"`  // detector dimensions, so selection can
	Height   int    `yaml:"height"` // project footprints without reading pixels

	Wcs struct {
		CrpixX    float64 `yaml:"crpix_x"`
		CrpixY    float64 `yaml:"crpix_y"`
		XiRefDeg  float64 `yaml:"xi_ref_deg"`
		EtaRefDeg float64 `yaml:"eta_ref_deg"`
		ScaleAsec float64 `yaml:"scale_asec"`
		RotDeg    float64 `yaml:"rot_deg"`
	} `yaml:"wcs"`

	Calib frame.PhotoCalib `yaml:"calib"`

	Psf struct {
		Kind     string  `yaml:"kind"` // gaussian | moffat
		SigmaPix float64 `yaml:"sigma_pix"`
		AlphaPix float64 `yaml:"alpha_pix"`
		Beta     float64 `yaml:"beta"`
	} `yaml:"psf"`

	Background  float64 `yaml:"background"` // subtracted sky estimate, counts
	Saturation  float64 `yaml:"saturation"` // counts at full well; 0 disables
	Gain        float64 `yaml:"gain"`       // e-/count, for the variance model
	ReadNoise   float64 `yaml:"read_noise"` // counts RMS

	ObsTimeMJD  float64 `yaml:"obs_time_mjd"`
	ExposureSec float64 `yaml:"exposure_sec"`
	Airmass     float64 `yaml:"airmass"`
}

func loadSidecar(filename string) (Sidecar, error) {
	sc := Sidecar{}

	if contents, err := os.ReadFile(filename); err != nil {
		return sc, fmt.Errorf("sidecar read '%s': %v", filename, err)
	} else if err := yaml.Unmarshal(contents, &sc); err != nil {
		return sc, fmt.Errorf("sidecar parse '%s': %v", filename, err)
	}

	if sc.Pixels == "" {
		return sc, fmt.Errorf("sidecar '%s' names no pixel file", filename)
	}
	if sc.Wcs.ScaleAsec <= 0 {
		return sc, fmt.Errorf("sidecar '%s' has no usable wcs scale", filename)
	}

	return sc, nil
}

func (sc Sidecar)Ref() Ref {
	return Ref{Visit: sc.Visit, Detector: sc.Detector, Filter: sc.Filter}
}

// SkyWcs builds the exposure's pixel->tangent-plane mapping. The
// tangent point itself comes from the tract the exposure was matched
// to, so it's passed in.
func (sc Sidecar)SkyWcs(tanRA, tanDec float64) (skymap.Wcs, error) {
	return skymap.NewWcs(tanRA, tanDec,
		sc.Wcs.CrpixX, sc.Wcs.CrpixY,
		sc.Wcs.XiRefDeg, sc.Wcs.EtaRefDeg,
		sc.Wcs.ScaleAsec/3600.0, sc.Wcs.RotDeg)
}

// PsfModel interprets the seeing block. A sidecar with no PSF block
// returns nil, which only matters if psf-matching was requested.
func (sc Sidecar)PsfModel() (psf.Model, error) {
	switch sc.Psf.Kind {
	case "":
		return nil, nil
	case "gaussian":
		if sc.Psf.SigmaPix <= 0 {
			return nil, fmt.Errorf("gaussian psf needs sigma_pix > 0")
		}
		return psf.Gaussian{SigmaPix: sc.Psf.SigmaPix}, nil
	case "moffat":
		if sc.Psf.AlphaPix <= 0 || sc.Psf.Beta <= 1 {
			return nil, fmt.Errorf("moffat psf needs alpha_pix > 0 and beta > 1")
		}
		return psf.Moffat{AlphaPix: sc.Psf.AlphaPix, Beta: sc.Psf.Beta}, nil
	default:
		return nil, fmt.Errorf("unknown psf kind '%s'", sc.Psf.Kind)
	}
}
