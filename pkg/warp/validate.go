package warp

import (
	"log/slog"

	"skywarp/pkg/frame"
	"skywarp/pkg/resample"
)

// Types returns the warp variants selected by Validate, in the fixed
// order direct, psfMatched.
func (c Config)Types() []Type { return c.types }

// Validate resolves the variant selection and the strategy fields
// (kernel, bad mask, model PSF), returning ErrInvalidConfig when the
// configuration asks for nothing or names unknown strategies. It must
// run once before the config is handed to an Accumulator or
// Orchestrator; both constructors call it.
func (c *Config)Validate(log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	// The old one-variant switch. Translate it, warn, and clear it so a
	// second Validate doesn't warn again.
	if c.DoPsfMatch {
		log.Warn("do_psf_match is deprecated; use make_direct / make_psf_matched",
			"selected", PsfMatched)
		c.MakeDirect = false
		c.MakePsfMatched = true
		c.DoPsfMatch = false
	}

	c.types = c.types[:0]
	if c.MakeDirect {
		c.types = append(c.types, Direct)
	}
	if c.MakePsfMatched {
		c.types = append(c.types, PsfMatched)
	}
	if len(c.types) == 0 {
		return invalidConfigf("make_direct and make_psf_matched are both disabled")
	}

	k, err := resample.KernelByName(c.WarpKernel)
	if err != nil {
		return invalidConfigf("warp_kernel: %v", err)
	}
	c.kernel = k

	bits, err := frame.PlaneBitMask(c.BadMaskPlanes)
	if err != nil {
		return invalidConfigf("bad_mask_planes: %v", err)
	}
	c.badMask = bits

	if c.MakePsfMatched {
		if c.ModelPsf.SigmaPix <= 0 {
			return invalidConfigf("model_psf.sigma_pix must be > 0 when psf-matching")
		}
		if c.ModelPsf.SizePix < 3 || c.ModelPsf.SizePix%2 == 0 {
			return invalidConfigf("model_psf.size_pix must be odd and >= 3, not %d", c.ModelPsf.SizePix)
		}
	}

	if c.VisitParallelism < 0 {
		return invalidConfigf("visit_parallelism must be >= 0, not %d", c.VisitParallelism)
	}
	if c.VisitParallelism == 0 {
		c.VisitParallelism = 1
	}

	return nil
}
