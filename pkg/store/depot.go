package store

// A Depot is the on-disk home of finished warps: pixel files laid out
// by tract/patch, a yaml sidecar per output, and a sqlite registry at
// the root indexing everything. It is the production warp.Sink.
//
//   <root>/warps.db
//   <root>/tract-0003/patch-1,1/visit-000007-direct.hdr
//   <root>/tract-0003/patch-1,1/visit-000007-direct-mask.png
//   <root>/tract-0003/patch-1,1/visit-000007-direct.yaml

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"skywarp/pkg/skymap"
	"skywarp/pkg/warp"
)

type Depot struct {
	Root string
	reg  *Registry
	log  *slog.Logger
}

func OpenDepot(root string, log *slog.Logger) (*Depot, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create depot root '%s': %v", root, err)
	}
	reg, err := OpenRegistry(filepath.Join(root, "warps.db"))
	if err != nil {
		return nil, err
	}
	return &Depot{Root: root, reg: reg, log: log}, nil
}

func (d *Depot)Close() error { return d.reg.Close() }

// relDir is the patch directory, relative to the depot root.
func relDir(id warp.OutputID) string {
	return filepath.Join(fmt.Sprintf("tract-%04d", id.Tract), "patch-"+id.Patch)
}

func baseName(id warp.OutputID) string {
	return fmt.Sprintf("visit-%06d-%s", id.Visit, id.Type)
}

// Exists answers from the registry alone; no pixel files are touched.
func (d *Depot)Exists(id warp.OutputID) (bool, error) {
	return d.reg.Exists(id)
}

// Store persists one canvas: HDR pixels, mask PNG, yaml sidecar, then
// the registry row. The row goes in last so a torn write never leaves
// the registry pointing at missing files.
func (d *Depot)Store(cv *warp.Canvas, id warp.OutputID) error {
	dir := filepath.Join(d.Root, relDir(id))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create '%s': %v", dir, err)
	}

	base := filepath.Join(dir, baseName(id))
	if err := WriteFrameHDR(&cv.Frame, base+".hdr"); err != nil {
		return err
	}
	if err := WriteMaskPNG(&cv.Frame, base+"-mask.png"); err != nil {
		return err
	}
	if err := writeMeta(metaOf(cv, id, time.Now()), base+".yaml"); err != nil {
		return err
	}

	rel := filepath.Join(relDir(id), baseName(id)+".hdr")
	if err := d.reg.Record(id, rel, cv.GoodPix, time.Now()); err != nil {
		return err
	}

	d.log.Info("stored warp", "id", id.String(), "goodpix", cv.GoodPix, "path", rel)
	return nil
}

// Load rebuilds a stored canvas from its files. The patch geometry
// comes back with identity and bounds only — the sky WCS lives with
// the sky map, not the depot.
func (d *Depot)Load(id warp.OutputID) (*warp.Canvas, error) {
	base := filepath.Join(d.Root, relDir(id), baseName(id))

	meta, err := readMeta(base + ".yaml")
	if err != nil {
		return nil, err
	}
	bbox := sliceBBox(meta.BBox)

	fr, err := ReadFrame(base+".hdr", base+"-mask.png", bbox)
	if err != nil {
		return nil, err
	}

	px, py, err := skymap.ParsePatchIndex(meta.Patch)
	if err != nil {
		return nil, fmt.Errorf("meta patch '%s': %v", meta.Patch, err)
	}

	cv := &warp.Canvas{
		Type:    warp.Type(meta.Type),
		Patch:   skymap.PatchGeometry{Tract: meta.Tract, PatchX: px, PatchY: py, BBox: bbox},
		Frame:   fr,
		Calib:   meta.Calib,
		Filter:  meta.Filter,
		ObsInfo: meta.ObsInfo,
		Psf:     meta.Psf.model(),
		Inputs:  meta.coverageTable(),
		GoodPix: meta.GoodPix,
	}
	return cv, nil
}

// Meta reads just the yaml sidecar — enough for coverage reporting
// without decoding pixels.
func (d *Depot)Meta(id warp.OutputID) (Meta, error) {
	return readMeta(filepath.Join(d.Root, relDir(id), baseName(id)+".yaml"))
}

// List returns the registry's view of a patch.
func (d *Depot)List(tract int, patch string) ([]Entry, error) {
	return d.reg.List(tract, patch)
}

var _ warp.Sink = (*Depot)(nil)
