package skymap

// The sky map carves the sky into tracts, and each tract's pixel
// plane into a grid of patches. A patch is the unit a warp is built
// for: its geometry is a window (bounding box) onto the tract plane,
// sharing the tract's WCS. Patches overlap by a configured border so
// downstream coadds can blend across seams.

import(
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

type SkyMap struct {
	Name   string      `yaml:"name"`
	Tracts []TractInfo `yaml:"tracts"`
}

type TractInfo struct {
	ID             int     `yaml:"id"`
	TangentRADeg   float64 `yaml:"tangent_ra_deg"`
	TangentDecDeg  float64 `yaml:"tangent_dec_deg"`
	PixelScaleAsec float64 `yaml:"pixel_scale_asec"` // arcsec per pixel
	PatchDim       int     `yaml:"patch_dim"`        // inner patch size, pixels
	PatchOverlap   int     `yaml:"patch_overlap"`    // border added to each side
	NumPatchesX    int     `yaml:"num_patches_x"`
	NumPatchesY    int     `yaml:"num_patches_y"`
}

// PatchGeometry is the immutable description of one warp target: a
// bounding box on the tract pixel plane plus the shared WCS. Handed
// around by value; nothing downstream mutates it.
type PatchGeometry struct {
	Tract  int
	PatchX int
	PatchY int
	BBox   image.Rectangle
	Wcs    Wcs
}

func (pg PatchGeometry)Patch() string { return fmt.Sprintf("%d,%d", pg.PatchX, pg.PatchY) }
func (pg PatchGeometry)Dims() (int, int) { return pg.BBox.Dx(), pg.BBox.Dy() }
func (pg PatchGeometry)String() string {
	return fmt.Sprintf("tract %d patch %s %v", pg.Tract, pg.Patch(), pg.BBox)
}

func LoadSkyMap(filename string) (SkyMap, error) {
	sm := SkyMap{}

	if contents, err := os.ReadFile(filename); err != nil {
		return sm, fmt.Errorf("skymap read '%s': %v", filename, err)
	} else if err := yaml.Unmarshal(contents, &sm); err != nil {
		return sm, fmt.Errorf("skymap parse '%s': %v", filename, err)
	} else if err := sm.Validate(); err != nil {
		return sm, fmt.Errorf("skymap '%s': %v", filename, err)
	}

	return sm, nil
}

func (sm *SkyMap)Validate() error {
	if len(sm.Tracts) == 0 {
		return fmt.Errorf("no tracts defined")
	}

	seen := map[int]bool{}
	for _, ti := range sm.Tracts {
		if seen[ti.ID] {
			return fmt.Errorf("tract %d defined twice", ti.ID)
		}
		seen[ti.ID] = true

		if ti.PixelScaleAsec <= 0 {
			return fmt.Errorf("tract %d: pixel scale must be positive", ti.ID)
		}
		if ti.PatchDim <= 0 || ti.NumPatchesX < 1 || ti.NumPatchesY < 1 {
			return fmt.Errorf("tract %d: bad patch grid %dx%d of dim %d",
				ti.ID, ti.NumPatchesX, ti.NumPatchesY, ti.PatchDim)
		}
		if ti.PatchOverlap < 0 || ti.PatchOverlap >= ti.PatchDim {
			return fmt.Errorf("tract %d: overlap %d out of range", ti.ID, ti.PatchOverlap)
		}
	}

	return nil
}

func (sm *SkyMap)Tract(id int) (TractInfo, error) {
	for _, ti := range sm.Tracts {
		if ti.ID == id {
			return ti, nil
		}
	}
	return TractInfo{}, fmt.Errorf("tract %d not in sky map '%s'", id, sm.Name)
}

// Wcs places the tract's tangent point at the center of its pixel
// plane, north up.
func (ti TractInfo)Wcs() (Wcs, error) {
	crpixX := float64(ti.NumPatchesX*ti.PatchDim) / 2.0
	crpixY := float64(ti.NumPatchesY*ti.PatchDim) / 2.0
	return NewWcs(ti.TangentRADeg, ti.TangentDecDeg,
		crpixX, crpixY, 0, 0, ti.PixelScaleAsec/3600.0, 0)
}

// PatchGeometry returns the outer bounding box of patch (px,py): the
// inner cell grown by the overlap border, clipped at the tract edge.
func (ti TractInfo)PatchGeometry(px, py int) (PatchGeometry, error) {
	if px < 0 || px >= ti.NumPatchesX || py < 0 || py >= ti.NumPatchesY {
		return PatchGeometry{}, fmt.Errorf("patch %d,%d outside tract %d grid %dx%d",
			px, py, ti.ID, ti.NumPatchesX, ti.NumPatchesY)
	}

	wcs, err := ti.Wcs()
	if err != nil {
		return PatchGeometry{}, err
	}

	inner := image.Rect(px*ti.PatchDim, py*ti.PatchDim, (px+1)*ti.PatchDim, (py+1)*ti.PatchDim)
	tract := image.Rect(0, 0, ti.NumPatchesX*ti.PatchDim, ti.NumPatchesY*ti.PatchDim)
	outer := image.Rect(inner.Min.X-ti.PatchOverlap, inner.Min.Y-ti.PatchOverlap,
		inner.Max.X+ti.PatchOverlap, inner.Max.Y+ti.PatchOverlap).Intersect(tract)

	return PatchGeometry{
		Tract:  ti.ID,
		PatchX: px,
		PatchY: py,
		BBox:   outer,
		Wcs:    wcs,
	}, nil
}

// ParsePatchIndex parses the usual "x,y" patch naming.
func ParsePatchIndex(s string) (int, int, error) {
	bits := strings.Split(s, ",")
	if len(bits) != 2 {
		return 0, 0, fmt.Errorf("patch index '%s' not of form x,y", s)
	}
	px, err := strconv.Atoi(strings.TrimSpace(bits[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("patch index '%s': %v", s, err)
	}
	py, err := strconv.Atoi(strings.TrimSpace(bits[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("patch index '%s': %v", s, err)
	}
	return px, py, nil
}
