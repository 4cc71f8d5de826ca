package exposure

// The catalog is a directory of sidecar YAMLs plus their pixel
// files. It answers the selector questions the warp pipeline asks:
// which exposures might cover this patch, does this one's data
// actually exist, load this one.

import(
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"skywarp/pkg/skymap"
	"skywarp/pkg/wmath"
)

type Catalog struct {
	Dir string

	// tangent point the sidecar WCS offsets are relative to
	TanRA  float64
	TanDec float64

	sidecars map[Ref]Sidecar
}

// OpenCatalog scans dir for *.yaml sidecars. Files that don't parse
// are reported, not silently dropped; a catalog with a broken
// sidecar is worth a complaint.
func OpenCatalog(dir string, tanRA, tanDec float64) (*Catalog, error) {
	c := &Catalog{Dir: dir, TanRA: tanRA, TanDec: tanDec, sidecars: map[Ref]Sidecar{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog readdir '%s': %v", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".yaml") {
			continue
		}

		sc, err := loadSidecar(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("catalog '%s': %v", dir, err)
		}

		ref := sc.Ref()
		if _, dup := c.sidecars[ref]; dup {
			return nil, fmt.Errorf("catalog '%s': %v appears twice", dir, ref)
		}
		c.sidecars[ref] = sc
	}

	return c, nil
}

func (c *Catalog)NumExposures() int { return len(c.sidecars) }

// Refs returns every cataloged exposure in deterministic order:
// visit, then detector. Selection and grouping downstream depend on
// this ordering being stable run to run.
func (c *Catalog)Refs() []Ref {
	refs := make([]Ref, 0, len(c.sidecars))
	for ref := range c.sidecars {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Visit != refs[j].Visit { return refs[i].Visit < refs[j].Visit }
		if refs[i].Detector != refs[j].Detector { return refs[i].Detector < refs[j].Detector }
		return refs[i].Filter < refs[j].Filter
	})
	return refs
}

// Select returns the refs whose sky footprint overlaps the patch, in
// the catalog's deterministic order. Footprints come from the
// sidecar's declared dimensions, so no pixel data is read here.
func (c *Catalog)Select(patch skymap.PatchGeometry) ([]Ref, error) {
	selected := []Ref{}

	for _, ref := range c.Refs() {
		sc := c.sidecars[ref]
		if sc.Width <= 0 || sc.Height <= 0 {
			return nil, fmt.Errorf("sidecar for %v declares no dimensions", ref)
		}

		wcs, err := sc.SkyWcs(c.TanRA, c.TanDec)
		if err != nil {
			return nil, fmt.Errorf("sidecar for %v: %v", ref, err)
		}

		if footprint(sc, wcs, patch).Overlaps(patch.BBox) {
			selected = append(selected, ref)
		}
	}

	return selected, nil
}

func footprint(sc Sidecar, wcs skymap.Wcs, patch skymap.PatchGeometry) image.Rectangle {
	xf := wcs.TransformTo(patch.Wcs)
	xs := make([]float64, 0, 4)
	ys := make([]float64, 0, 4)
	for _, c := range [][2]int{{0, 0}, {sc.Width - 1, 0}, {0, sc.Height - 1}, {sc.Width - 1, sc.Height - 1}} {
		x, y := xf.Apply(float64(c[0]), float64(c[1]))
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return wmath.BoundingRectangle(xs, ys)
}

// Exists reports whether the exposure's pixel data is actually on
// disk, not just cataloged. The orchestrator filters on this before
// grouping.
func (c *Catalog)Exists(ref Ref) bool {
	sc, ok := c.sidecars[ref]
	if !ok {
		return false
	}
	_, err := os.Stat(filepath.Join(c.Dir, sc.Pixels))
	return err == nil
}
