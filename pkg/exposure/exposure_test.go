package exposure

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v2"

	"skywarp/pkg/frame"
	"skywarp/pkg/psf"
	"skywarp/pkg/skymap"
)

// writeTestExposure drops a sidecar + tiny gray16 TIFF into dir. The
// pixel grid is vals[y][x].
func writeTestExposure(t *testing.T, dir, stem string, sc Sidecar, vals [][]uint16) {
	t.Helper()

	h := len(vals)
	w := len(vals[0])
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: vals[y][x]})
		}
	}

	pixFile := stem + ".tif"
	f, err := os.Create(filepath.Join(dir, pixFile))
	if err != nil {
		t.Fatalf("create tiff: %v", err)
	}
	if err := tiff.Encode(f, img, nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}
	f.Close()

	sc.Pixels = pixFile
	sc.Width = w
	sc.Height = h

	doc, err := yaml.Marshal(sc)
	if err != nil {
		t.Fatalf("marshal sidecar: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, stem+".yaml"), doc, 0644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
}

func baseSidecar(visit, det int) Sidecar {
	sc := Sidecar{Visit: visit, Detector: det, Filter: "r"}
	sc.Wcs.CrpixX = 0
	sc.Wcs.CrpixY = 0
	sc.Wcs.ScaleAsec = 0.2
	sc.Calib = frame.PhotoCalib{FluxMag0: 1e6}
	sc.Psf.Kind = "gaussian"
	sc.Psf.SigmaPix = 1.5
	return sc
}

func TestCatalogScanAndOrder(t *testing.T) {
	dir := t.TempDir()
	writeTestExposure(t, dir, "b", baseSidecar(12, 1), [][]uint16{{1}})
	writeTestExposure(t, dir, "a", baseSidecar(12, 0), [][]uint16{{1}})
	writeTestExposure(t, dir, "c", baseSidecar(7, 5), [][]uint16{{1}})

	c, err := OpenCatalog(dir, 30, -10)
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}
	if c.NumExposures() != 3 {
		t.Fatalf("exposures: got %d want 3", c.NumExposures())
	}

	refs := c.Refs()
	want := []Ref{{7, 5, "r"}, {12, 0, "r"}, {12, 1, "r"}}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("ref order: got %v want %v", refs, want)
		}
	}
}

func TestCatalogSelectByFootprint(t *testing.T) {
	dir := t.TempDir()

	near := baseSidecar(1, 0) // sits at the tangent point
	far := baseSidecar(2, 0)
	far.Wcs.XiRefDeg = 5.0 // way off the patch

	writeTestExposure(t, dir, "near", near, [][]uint16{{1, 1}, {1, 1}})
	writeTestExposure(t, dir, "far", far, [][]uint16{{1, 1}, {1, 1}})

	c, err := OpenCatalog(dir, 30, -10)
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}

	ti := skymap.TractInfo{
		ID: 0, TangentRADeg: 30, TangentDecDeg: -10,
		PixelScaleAsec: 0.2, PatchDim: 100, PatchOverlap: 10,
		NumPatchesX: 2, NumPatchesY: 2,
	}
	// Patch (0,0) covers tract pixels around the tangent point
	// (tangent sits at tract center, pixel 100,100).
	pg, err := ti.PatchGeometry(0, 0)
	if err != nil {
		t.Fatalf("PatchGeometry: %v", err)
	}

	got, err := c.Select(pg)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 || got[0].Visit != 1 {
		t.Fatalf("selection: got %v want just visit 1", got)
	}
}

func TestCatalogExists(t *testing.T) {
	dir := t.TempDir()
	writeTestExposure(t, dir, "ok", baseSidecar(1, 0), [][]uint16{{1}})

	// A sidecar whose pixel file is missing.
	orphan := baseSidecar(2, 0)
	orphan.Pixels = "gone.tif"
	orphan.Width, orphan.Height = 1, 1
	doc, _ := yaml.Marshal(orphan)
	os.WriteFile(filepath.Join(dir, "orphan.yaml"), doc, 0644)

	c, err := OpenCatalog(dir, 30, -10)
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}

	if !c.Exists(Ref{1, 0, "r"}) {
		t.Fatalf("exposure with pixels should exist")
	}
	if c.Exists(Ref{2, 0, "r"}) {
		t.Fatalf("orphaned sidecar should not count as existing")
	}
	if c.Exists(Ref{99, 0, "r"}) {
		t.Fatalf("uncataloged ref should not exist")
	}
}

func TestLoadPixelsAndVariance(t *testing.T) {
	dir := t.TempDir()

	sc := baseSidecar(1, 0)
	sc.Gain = 2.0
	sc.ReadNoise = 3.0
	sc.Saturation = 60000
	sc.Background = 100

	writeTestExposure(t, dir, "e", sc, [][]uint16{{1000, 65535}, {0, 500}})

	c, err := OpenCatalog(dir, 30, -10)
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}

	exp, err := c.Load(Ref{1, 0, "r"}, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if v := exp.Frame.ValueAt(0, 0); v != 1000 {
		t.Fatalf("pixel value: got %g want 1000", v)
	}
	if v := exp.Frame.VarianceAt(0, 0); math.Abs(v-(1000/2.0+9)) > 1e-12 {
		t.Fatalf("variance: got %g want %g", v, 1000/2.0+9)
	}
	if exp.Frame.MaskAt(1, 0)&frame.MaskSat == 0 {
		t.Fatalf("full-well pixel should be SAT")
	}
	if exp.Frame.MaskAt(0, 0)&frame.MaskSat != 0 {
		t.Fatalf("normal pixel should not be SAT")
	}
	if exp.Calib.FluxMag0 != 1e6 {
		t.Fatalf("calib: got %v", exp.Calib)
	}
	if _, ok := exp.Psf.(psf.Gaussian); !ok {
		t.Fatalf("psf: got %T want gaussian", exp.Psf)
	}

	// Background restored when asked for unsubtracted pixels.
	exp2, err := c.Load(Ref{1, 0, "r"}, false)
	if err != nil {
		t.Fatalf("Load unsubtracted: %v", err)
	}
	if v := exp2.Frame.ValueAt(0, 0); v != 1100 {
		t.Fatalf("bg-restored value: got %g want 1100", v)
	}
}

func TestLoadMissing(t *testing.T) {
	c, err := OpenCatalog(t.TempDir(), 30, -10)
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}
	if _, err := c.Load(Ref{1, 0, "r"}, true); err == nil {
		t.Fatalf("expected error loading uncataloged ref")
	}
}

func TestEv100(t *testing.T) {
	// f/5.6 at 1/4000s, ISO 100: a bright-day exposure, EV ~17.
	if ev := ev100(100, 5.6, 1.0/4000.0); math.Abs(ev-16.94) > 0.01 {
		t.Fatalf("ev100: got %g want ~16.94", ev)
	}
	// Quadrupling ISO buys two stops.
	lo := ev100(100, 5.6, 1.0/4000.0)
	hi := ev100(400, 5.6, 1.0/4000.0)
	if math.Abs((lo-hi)-2.0) > 1e-12 {
		t.Fatalf("ISO 400 should sit 2 stops below ISO 100: %g vs %g", lo, hi)
	}
}

func TestSidecarPsfModels(t *testing.T) {
	sc := Sidecar{}
	if m, err := sc.PsfModel(); err != nil || m != nil {
		t.Fatalf("empty psf block: got (%v,%v) want (nil,nil)", m, err)
	}

	sc.Psf.Kind = "moffat"
	sc.Psf.AlphaPix = 2.0
	sc.Psf.Beta = 2.5
	if m, err := sc.PsfModel(); err != nil {
		t.Fatalf("moffat: %v", err)
	} else if _, ok := m.(psf.Moffat); !ok {
		t.Fatalf("moffat: got %T", m)
	}

	sc.Psf.Kind = "airy"
	if _, err := sc.PsfModel(); err == nil {
		t.Fatalf("expected error for unknown psf kind")
	}
}
