package warp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"skywarp/pkg/frame"
	"skywarp/pkg/psf"
	"skywarp/pkg/resample"
)

/* Example config file ...

make_direct: true
make_psf_matched: true
do_write: true
do_overwrite: false
bg_subtracted: true
warp_kernel: lanczos3
bad_mask_planes: [BAD, SAT, EDGE, NO_DATA]
model_psf:
  sigma_pix: 3.0
  size_pix: 21
coadd_psf:
  max_components: 8
visit_parallelism: 4

*/

// ModelPsf describes the Gaussian target that psf-matched warps are
// convolved towards, and the pixel size of the matching kernel.
type ModelPsf struct {
	SigmaPix float64 `yaml:"sigma_pix"`
	SizePix  int     `yaml:"size_pix"`
}

type Config struct {
	MakeDirect     bool `yaml:"make_direct"`
	MakePsfMatched bool `yaml:"make_psf_matched"`

	// Deprecated: DoPsfMatch is the old single-variant switch. When set
	// it overrides the two flags above and selects psf-matched only.
	DoPsfMatch bool `yaml:"do_psf_match"`

	DoWrite      bool `yaml:"do_write"`
	DoOverwrite  bool `yaml:"do_overwrite"`
	BgSubtracted bool `yaml:"bg_subtracted"`

	WarpKernel    string   `yaml:"warp_kernel"`
	BadMaskPlanes []string `yaml:"bad_mask_planes"`

	ModelPsf ModelPsf        `yaml:"model_psf"`
	CoaddPsf psf.CoaddPolicy `yaml:"coadd_psf"`

	VisitParallelism int `yaml:"visit_parallelism"`

	// Values we resolve in Validate, for access by the rest of the pipeline
	types   []Type
	kernel  resample.Kernel
	badMask uint16
}

func NewConfig() Config {
	return Config{
		MakeDirect:       true,
		MakePsfMatched:   false,
		DoWrite:          true,
		DoOverwrite:      true,
		BgSubtracted:     true,
		WarpKernel:       "lanczos3",
		BadMaskPlanes:    []string{"BAD", "SAT", "EDGE", "NO_DATA"},
		ModelPsf:         ModelPsf{SigmaPix: 3.0, SizePix: 21},
		VisitParallelism: 1,
	}
}

// LoadConfig overlays a yaml file onto the defaults. The result still
// needs Validate() before use.
func LoadConfig(filename string) (Config, error) {
	c := NewConfig()

	if contents, err := os.ReadFile(filename); err != nil {
		return c, fmt.Errorf("read '%s': %v", filename, err)
	} else if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("parse '%s': %v", filename, err)
	}

	return c, nil
}

// Kernel returns the resampling kernel resolved by Validate.
func (c Config)Kernel() resample.Kernel { return c.kernel }

// BadMask returns the mask bits resolved by Validate; pixels carrying
// any of them never land on a canvas.
func (c Config)BadMask() uint16 { return c.badMask }

// TargetPsf is the model PSF that psf-matched warps are degraded to,
// or nil when that variant is off.
func (c Config)TargetPsf() psf.Model {
	if !c.MakePsfMatched {
		return nil
	}
	return psf.Gaussian{SigmaPix: c.ModelPsf.SigmaPix}
}

func (c Config)String() string {
	return fmt.Sprintf("warp.Config{types:%v, kernel:%s, badmask:%s, write:%v, overwrite:%v, par:%d}",
		c.types, c.WarpKernel, frame.PlaneNames(c.badMask), c.DoWrite, c.DoOverwrite, c.VisitParallelism)
}
