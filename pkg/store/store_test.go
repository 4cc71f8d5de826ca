package store

import (
	"image"
	"math"
	"path/filepath"
	"testing"
	"time"

	"skywarp/pkg/exposure"
	"skywarp/pkg/frame"
	"skywarp/pkg/psf"
	"skywarp/pkg/skymap"
	"skywarp/pkg/warp"
)

func relClose(got, want, tol float64) bool {
	if want == 0 {
		return math.Abs(got) < tol
	}
	return math.Abs(got-want)/math.Abs(want) < tol
}

func TestRegistryRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "warps.db")

	reg, err := OpenRegistry(filename)
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}

	id := warp.OutputID{Tract: 3, Patch: "1,1", Visit: 7, Type: warp.Direct}
	if have, err := reg.Exists(id); err != nil || have {
		t.Fatalf("fresh registry should not have %s: %v %v", id, have, err)
	}

	when := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := reg.Record(id, "tract-0003/patch-1,1/visit-000007-direct.hdr", 1234, when); err != nil {
		t.Fatalf("Record: %v", err)
	}
	id2 := warp.OutputID{Tract: 3, Patch: "1,1", Visit: 9, Type: warp.PsfMatched}
	if err := reg.Record(id2, "tract-0003/patch-1,1/visit-000009-psfMatched.hdr", 99, when); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if have, err := reg.Exists(id); err != nil || !have {
		t.Fatalf("recorded id should exist: %v %v", have, err)
	}

	entries, err := reg.List(3, "1,1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].ID.Visit != 7 || entries[1].ID.Visit != 9 {
		t.Fatalf("list wrong: %+v", entries)
	}
	if entries[0].GoodPix != 1234 || !entries[0].CreatedAt.Equal(when) {
		t.Fatalf("entry fields wrong: %+v", entries[0])
	}

	// Re-recording replaces, not duplicates.
	if err := reg.Record(id, "other.hdr", 5678, when); err != nil {
		t.Fatalf("re-record: %v", err)
	}
	entries, _ = reg.List(3, "1,1")
	if len(entries) != 2 || entries[0].GoodPix != 5678 {
		t.Fatalf("upsert failed: %+v", entries)
	}

	// Rows survive a close and reopen.
	if err := reg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reg, err = OpenRegistry(filename)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reg.Close()
	if have, err := reg.Exists(id); err != nil || !have {
		t.Fatalf("id should survive reopen: %v %v", have, err)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	// Nonzero-origin bbox: the files store offsets via the sidecar, the
	// pixels must land back on the right patch coordinates.
	bbox := image.Rect(10, 20, 18, 26)
	fr := frame.NewEmpty(bbox)
	fr.SetPixel(12, 22, 100.5, 0, 4.0)
	fr.SetPixel(13, 23, 2500.0, frame.MaskSat|frame.MaskInterp, 16.0)
	fr.SetPixel(14, 24, 0.0, 0, 1.0)

	dir := t.TempDir()
	hdrFile := filepath.Join(dir, "f.hdr")
	maskFile := filepath.Join(dir, "f-mask.png")
	if err := WriteFrameHDR(&fr, hdrFile); err != nil {
		t.Fatalf("WriteFrameHDR: %v", err)
	}
	if err := WriteMaskPNG(&fr, maskFile); err != nil {
		t.Fatalf("WriteMaskPNG: %v", err)
	}

	got, err := ReadFrame(hdrFile, maskFile, bbox)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	// RGBE carries an 8-bit mantissa; 1% is plenty of slack.
	if !relClose(got.ValueAt(12, 22), 100.5, 0.01) {
		t.Fatalf("value: got %g want ~100.5", got.ValueAt(12, 22))
	}
	if !relClose(got.VarianceAt(12, 22), 4.0, 0.01) {
		t.Fatalf("variance: got %g want ~4", got.VarianceAt(12, 22))
	}
	if !relClose(got.ValueAt(13, 23), 2500.0, 0.01) {
		t.Fatalf("bright value: got %g", got.ValueAt(13, 23))
	}

	// Mask bits are exact.
	if got.MaskAt(13, 23) != frame.MaskSat|frame.MaskInterp {
		t.Fatalf("mask: got %s", frame.PlaneNames(got.MaskAt(13, 23)))
	}
	if got.MaskAt(14, 24) != 0 {
		t.Fatalf("clean pixel mask: got %s", frame.PlaneNames(got.MaskAt(14, 24)))
	}

	// Untouched pixels come back in birth state.
	if !math.IsNaN(got.ValueAt(11, 21)) || got.MaskAt(11, 21)&frame.MaskNoData == 0 {
		t.Fatalf("birth state lost: v=%g mask=%s", got.ValueAt(11, 21), frame.PlaneNames(got.MaskAt(11, 21)))
	}
	if !math.IsInf(got.VarianceAt(11, 21), 1) {
		t.Fatalf("birth variance lost: %g", got.VarianceAt(11, 21))
	}
}

func testCanvas(t *testing.T) *warp.Canvas {
	t.Helper()
	cv := warp.NewEmptyCanvas(testPatchGeom(t), warp.Direct)
	cv.Frame.SetPixel(2, 2, 100, 0, 4.0)
	cv.Frame.SetPixel(3, 3, 25, 0, 2.0)
	cv.Calib = frame.PhotoCalib{FluxMag0: 1000}
	cv.Filter = "r"
	cv.ObsInfo = frame.VisitInfo{ObsTimeMJD: 60000, ExposureSec: 30, Airmass: 1.2}
	cv.GoodPix = 2

	coadd, err := psf.NewCoadd([]psf.Component{
		{Model: psf.Gaussian{SigmaPix: 1.0}, Weight: 1},
		{Model: psf.Gaussian{SigmaPix: 2.0}, Weight: 1},
	}, psf.CoaddPolicy{})
	if err != nil {
		t.Fatalf("NewCoadd: %v", err)
	}
	cv.Psf = coadd

	rec := warp.NewRecorder(7, warp.Direct)
	rec.Add(warp.CoverageRecord{
		Ref:      exposure.Ref{Visit: 7, Detector: 1, Filter: "r"},
		Detector: 1, GoodPix: 1,
		Calib: frame.PhotoCalib{FluxMag0: 1000},
		Psf:   psf.Gaussian{SigmaPix: 1.0},
		BBox:  image.Rect(0, 0, 8, 8),
	})
	rec.Add(warp.CoverageRecord{
		Ref:      exposure.Ref{Visit: 7, Detector: 2, Filter: "r"},
		Detector: 2, GoodPix: 1,
		Calib: frame.PhotoCalib{FluxMag0: 2000},
		Psf:   psf.Gaussian{SigmaPix: 2.0},
		BBox:  image.Rect(1, 1, 8, 8),
	})
	cv.Inputs = rec.Finish(2)
	return cv
}

func testPatchGeom(t *testing.T) skymap.PatchGeometry {
	t.Helper()
	return skymap.PatchGeometry{Tract: 3, PatchX: 1, PatchY: 1, BBox: image.Rect(0, 0, 8, 8)}
}

func TestDepotStoreAndLoad(t *testing.T) {
	depot, err := OpenDepot(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("OpenDepot: %v", err)
	}
	defer depot.Close()

	cv := testCanvas(t)
	id := warp.OutputID{Tract: 3, Patch: "1,1", Visit: 7, Type: warp.Direct}

	if have, _ := depot.Exists(id); have {
		t.Fatalf("fresh depot should be empty")
	}
	if err := depot.Store(cv, id); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if have, err := depot.Exists(id); err != nil || !have {
		t.Fatalf("stored id should exist: %v %v", have, err)
	}

	got, err := depot.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Type != warp.Direct || got.GoodPix != 2 || got.Filter != "r" {
		t.Fatalf("canvas identity wrong: %v", got)
	}
	if got.Calib.FluxMag0 != 1000 || got.ObsInfo.Airmass != 1.2 {
		t.Fatalf("metadata wrong: %+v %+v", got.Calib, got.ObsInfo)
	}
	if !relClose(got.Frame.ValueAt(2, 2), 100, 0.01) {
		t.Fatalf("pixel value wrong: %g", got.Frame.ValueAt(2, 2))
	}
	if got.Patch.Tract != 3 || got.Patch.PatchX != 1 || got.Patch.PatchY != 1 {
		t.Fatalf("patch identity wrong: %+v", got.Patch)
	}

	// The composite PSF survives serialization.
	coadd, ok := got.Psf.(*psf.Coadd)
	if !ok || coadd.NumComponents() != 2 {
		t.Fatalf("psf round trip: %v", got.Psf)
	}

	// So does the coverage table, rebuilt from the sidecar rows.
	if got.Inputs == nil || got.Inputs.NumInputs() != 2 || got.Inputs.TotalGoodPix != 2 {
		t.Fatalf("coverage table round trip: %v", got.Inputs)
	}
	r2 := got.Inputs.Records[1]
	if r2.Ref.Detector != 2 || r2.Calib.FluxMag0 != 2000 || r2.BBox != image.Rect(1, 1, 8, 8) {
		t.Fatalf("coverage record round trip: %+v", r2)
	}

	meta, err := depot.Meta(id)
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if len(meta.Inputs) != 2 || meta.Inputs[1].FluxMag0 != 2000 {
		t.Fatalf("coverage rows wrong: %+v", meta.Inputs)
	}

	entries, err := depot.List(3, "1,1")
	if err != nil || len(entries) != 1 || entries[0].GoodPix != 2 {
		t.Fatalf("depot list wrong: %v %+v", err, entries)
	}
}
