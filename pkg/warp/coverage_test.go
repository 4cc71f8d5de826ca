package warp

import (
	"image"
	"testing"

	"skywarp/pkg/exposure"
	"skywarp/pkg/frame"
	"skywarp/pkg/psf"
)

func TestRecorderAppendOnly(t *testing.T) {
	r := NewRecorder(42, Direct)

	ref1 := exposure.Ref{Visit: 42, Detector: 1, Filter: "r"}
	ref2 := exposure.Ref{Visit: 42, Detector: 2, Filter: "r"}

	if err := r.Add(CoverageRecord{Ref: ref1, Detector: 1, GoodPix: 100, BBox: image.Rect(0, 0, 10, 10)}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	// Zero-contribution rows are kept: they say the exposure was tried.
	if err := r.Add(CoverageRecord{Ref: ref2, Detector: 2, GoodPix: 0}); err != nil {
		t.Fatalf("zero add: %v", err)
	}
	if err := r.Add(CoverageRecord{Ref: ref1, Detector: 1, GoodPix: 5}); err == nil {
		t.Fatalf("duplicate ref should be rejected")
	}

	ct := r.Finish(100)
	if ct.Visit != 42 || ct.Type != Direct || ct.TotalGoodPix != 100 {
		t.Fatalf("summary wrong: %s", ct)
	}
	if ct.NumInputs() != 2 || ct.NumContributing() != 1 {
		t.Fatalf("counts wrong: %d inputs %d contributing", ct.NumInputs(), ct.NumContributing())
	}

	if err := r.Add(CoverageRecord{Ref: exposure.Ref{Visit: 42, Detector: 3}}); err == nil {
		t.Fatalf("add after finish should be rejected")
	}
}

func TestCoverageTablePsfComponents(t *testing.T) {
	r := NewRecorder(7, Direct)
	r.Add(CoverageRecord{Ref: exposure.Ref{Visit: 7, Detector: 1}, GoodPix: 100,
		Psf: psf.Gaussian{SigmaPix: 1.0}, Calib: frame.PhotoCalib{FluxMag0: 1000}})
	r.Add(CoverageRecord{Ref: exposure.Ref{Visit: 7, Detector: 2}, GoodPix: 0, Psf: psf.Gaussian{SigmaPix: 2.0}})
	r.Add(CoverageRecord{Ref: exposure.Ref{Visit: 7, Detector: 3}, GoodPix: 50, Psf: nil})
	r.Add(CoverageRecord{Ref: exposure.Ref{Visit: 7, Detector: 4}, GoodPix: 25, Psf: psf.Gaussian{SigmaPix: 1.5}})
	ct := r.Finish(175)

	comps := ct.PsfComponents()
	if len(comps) != 2 {
		t.Fatalf("got %d components want 2 (zero-count and nil-psf rows drop)", len(comps))
	}
	if comps[0].Weight != 100 || comps[1].Weight != 25 {
		t.Fatalf("weights should be good pixel counts: %+v", comps)
	}

	// The components feed straight into composite PSF synthesis.
	if _, err := psf.NewCoadd(comps, psf.CoaddPolicy{}); err != nil {
		t.Fatalf("components should make a valid coadd psf: %v", err)
	}

	// Calibration snapshots ride along untouched.
	if got := ct.Records[0].Calib.FluxMag0; got != 1000 {
		t.Fatalf("calib snapshot lost: got %g", got)
	}
}
