package warp

import (
	"log/slog"

	"skywarp/pkg/frame"
	"skywarp/pkg/psf"
	"skywarp/pkg/resample"
	"skywarp/pkg/skymap"
)

// Accumulator turns one visit's exposures into per-variant canvases.
// Exposures are processed strictly in group order; the first good
// pixel to reach a canvas location wins, so that order is part of the
// output's definition. Per-exposure troubles are logged and skipped,
// never raised: losing one detector must not cost the visit.
type Accumulator struct {
	cfg    Config
	src    Source
	warper Warper
	log    *slog.Logger
}

// NewAccumulator validates cfg and wires the collaborators. A nil
// warper gets the production resample engine.
func NewAccumulator(cfg Config, src Source, warper Warper, log *slog.Logger) (*Accumulator, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := cfg.Validate(log); err != nil {
		return nil, err
	}
	if warper == nil {
		warper = EngineWarper{}
	}
	return &Accumulator{cfg: cfg, src: src, warper: warper, log: log}, nil
}

// AccumulateVisit builds every selected variant of one visit's warp
// onto the given patch. ordinal is the group's position in the run,
// used as the visit id when the group doesn't carry one. The returned
// map has an entry per selected variant; a nil canvas means that
// variant collected no good pixels and should be reported absent, not
// written.
func (a *Accumulator)AccumulateVisit(patch skymap.PatchGeometry, g VisitGroup, ordinal int) (map[Type]*Canvas, error) {
	visitID := g.VisitID(ordinal)
	log := a.log.With("tract", patch.Tract, "patch", patch.Patch(), "visit", visitID)

	canvases := map[Type]*Canvas{}
	recorders := map[Type]*Recorder{}
	for _, t := range a.cfg.Types() {
		canvases[t] = NewEmptyCanvas(patch, t)
		recorders[t] = NewRecorder(visitID, t)
	}

	hasContributor := false

	for i, ref := range g.Refs {
		detector := ref.Detector
		if detector < 0 {
			detector = i // unknown detector: fall back to position in group
		}

		exp, err := a.src.Load(ref, a.cfg.BgSubtracted)
		if err != nil {
			log.Warn("cannot load exposure, skipping", "ref", ref.String(), "err", err)
			continue
		}

		// The first contributor gets the whole patch box; once the
		// canvas has real pixels, later exposures only warp into their
		// own projected footprint.
		dstBBox := patch.BBox
		if hasContributor {
			dstBBox = resample.CoverageBBox(exp.Frame.BBox, exp.Wcs, patch.Wcs, patch.BBox, a.cfg.Kernel())
			if dstBBox.Empty() {
				log.Debug("warped footprint misses patch, skipping", "ref", ref.String())
				continue
			}
		}

		req := resample.Request{
			SrcWcs:          exp.Wcs,
			DstWcs:          patch.Wcs,
			DstBBox:         dstBBox,
			Kernel:          a.cfg.Kernel(),
			MakeDirect:      a.cfg.MakeDirect,
			MakePsfMatched:  a.cfg.MakePsfMatched,
			SrcPsf:          exp.Psf,
			TargetPsf:       a.cfg.TargetPsf(),
			MatchKernelSize: a.cfg.ModelPsf.SizePix,
		}
		res, err := a.warper.WarpAndMatch(&exp.Frame, req)
		if err != nil {
			log.Warn("warp failed, skipping exposure", "ref", ref.String(), "err", err)
			continue
		}
		if res.PsfMatchErr != nil {
			log.Warn("psf match failed, exposure skipped for psf-matched variant",
				"ref", ref.String(), "err", res.PsfMatchErr)
		}

		for _, t := range a.cfg.Types() {
			warped := res.Direct
			if t == PsfMatched {
				warped = res.PsfMatched
			}
			if warped == nil {
				continue // this variant didn't come out for this exposure
			}
			cv := canvases[t]

			if cv.Adopted() {
				warped.Scale(exp.Calib.ScaleTo(cv.Calib))
			}
			n := frame.CopyGoodPixels(&cv.Frame, warped, a.cfg.BadMask())
			if n > 0 {
				if !cv.Adopted() {
					cv.AdoptFrom(exp)
				}
				hasContributor = true
			}
			cv.GoodPix += n

			rec := CoverageRecord{
				Ref:      ref,
				Detector: detector,
				GoodPix:  n,
				Calib:    exp.Calib,
				Psf:      exp.Psf,
				BBox:     warped.BBox,
			}
			if err := recorders[t].Add(rec); err != nil {
				return nil, warpFailuref("coverage for %s: %v", ref, err)
			}
			log.Debug("merged", "ref", ref.String(), "type", t, "goodpix", n)
		}
	}

	// Per-variant wrap-up: freeze coverage, synthesize the composite
	// PSF for the direct canvas, drop variants that collected nothing.
	area := patch.BBox.Dx() * patch.BBox.Dy()
	for _, t := range a.cfg.Types() {
		cv := canvases[t]
		if cv.GoodPix == 0 {
			log.Warn("warp could not be created", "type", t)
			canvases[t] = nil
			continue
		}

		cv.Inputs = recorders[t].Finish(cv.GoodPix)
		log.Info("warp accumulated", "type", t,
			"inputs", cv.Inputs.NumInputs(), "contributing", cv.Inputs.NumContributing(),
			"goodpix", cv.GoodPix, "fill", float64(cv.GoodPix)/float64(area))

		switch t {
		case Direct:
			// The direct canvas's PSF is whatever mixture of seeing
			// actually landed on it.
			if coadd, err := psf.NewCoadd(cv.Inputs.PsfComponents(), a.cfg.CoaddPsf); err != nil {
				log.Warn("no composite psf for canvas, keeping adopted psf", "err", err)
			} else {
				cv.Psf = coadd
			}
		case PsfMatched:
			// Matching degraded every contributor to the model, so the
			// model is the canvas PSF.
			cv.Psf = a.cfg.TargetPsf()
		}
	}

	return canvases, nil
}
