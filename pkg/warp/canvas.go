package warp

import (
	"fmt"

	"skywarp/pkg/exposure"
	"skywarp/pkg/frame"
	"skywarp/pkg/psf"
	"skywarp/pkg/skymap"
)

// Canvas is one visit's accumulation target for one warp variant: a
// patch-shaped frame that starts fully invalid and fills in as
// exposures land on it. Metadata (calibration, filter, observation
// info, PSF) is adopted wholesale from the first exposure that
// contributes a good pixel; every later contributor is rescaled to
// that calibration before merging, so the finished canvas is
// photometrically uniform.
type Canvas struct {
	Type  Type
	Patch skymap.PatchGeometry
	Frame frame.Frame

	Calib   frame.PhotoCalib
	Filter  string
	ObsInfo frame.VisitInfo
	Psf     psf.Model

	// Inputs is attached when accumulation finishes.
	Inputs *CoverageTable

	GoodPix int

	adopted bool
}

// NewEmptyCanvas births a canvas over the patch's full bounding box.
// Every pixel starts NaN / NO_DATA / +Inf variance: unmistakably
// invalid, and never confusable with a measured zero.
func NewEmptyCanvas(patch skymap.PatchGeometry, t Type) *Canvas {
	return &Canvas{
		Type:  t,
		Patch: patch,
		Frame: frame.NewEmpty(patch.BBox),
	}
}

// Adopted reports whether the canvas has taken on its reference
// metadata yet, i.e. whether any exposure has contributed a good pixel.
func (cv *Canvas)Adopted() bool { return cv.adopted }

// AdoptFrom takes the first contributor's metadata as the canvas's
// own. The adopted calibration becomes the photometric reference that
// all later contributors are scaled to.
func (cv *Canvas)AdoptFrom(exp *exposure.Exposure) {
	cv.Calib = exp.Calib
	cv.Filter = exp.Filter
	cv.ObsInfo = exp.Visit
	cv.Psf = exp.Psf
	cv.adopted = true
}

func (cv *Canvas)String() string {
	return fmt.Sprintf("Canvas{%s %s, %d good pixels}", cv.Patch, cv.Type, cv.GoodPix)
}
