package warp

import (
	"fmt"

	"skywarp/pkg/exposure"
	"skywarp/pkg/frame"
	"skywarp/pkg/resample"
	"skywarp/pkg/skymap"
)

// Type names one output variant of the per-visit warp.
type Type string

const (
	// Direct is the plain resampled warp, PSF left as observed.
	Direct Type = "direct"
	// PsfMatched is convolved to the model target PSF before resampling.
	PsfMatched Type = "psfMatched"
)

func (t Type)String() string { return string(t) }

// OutputID is the identity of one persisted warp: a visit's canvas of
// one variant on one patch. Two runs that produce the same OutputID
// are producing the same thing, which is what makes skip-if-present
// safe.
type OutputID struct {
	Tract int
	Patch string
	Visit int
	Type  Type
}

func (id OutputID)String() string {
	return fmt.Sprintf("tract %d patch %s visit %d %s", id.Tract, id.Patch, id.Visit, id.Type)
}

// Source hands out exposures by reference. *exposure.Catalog satisfies
// this; tests substitute stubs that fail on demand.
type Source interface {
	Exists(ref exposure.Ref) bool
	Load(ref exposure.Ref, bgSubtracted bool) (*exposure.Exposure, error)
}

// Selector picks the candidate exposures whose footprints touch a
// patch. *exposure.Catalog satisfies this too.
type Selector interface {
	Select(patch skymap.PatchGeometry) ([]exposure.Ref, error)
}

// Warper performs the per-exposure resample (and optional PSF match).
// The production implementation delegates to pkg/resample; tests use
// it to inject warp failures without building pathological WCSs.
type Warper interface {
	WarpAndMatch(src *frame.Frame, req resample.Request) (resample.Result, error)
}

// Sink persists finished canvases and answers existence queries for
// skip-if-present. pkg/store provides the disk+registry implementation.
type Sink interface {
	Exists(id OutputID) (bool, error)
	Store(cv *Canvas, id OutputID) error
}

// EngineWarper is the production Warper, a thin veneer over resample.
type EngineWarper struct{}

func (EngineWarper)WarpAndMatch(src *frame.Frame, req resample.Request) (resample.Result, error) {
	return resample.WarpAndMatch(src, req)
}
