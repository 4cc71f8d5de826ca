package store

import (
	"fmt"
	"image"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"skywarp/pkg/exposure"
	"skywarp/pkg/frame"
	"skywarp/pkg/psf"
	"skywarp/pkg/warp"
)

// PsfInfo is the serializable shape of a psf.Model. Composite PSFs
// carry their mixture one level deep, which is as deep as they get.
type PsfInfo struct {
	Kind       string    `yaml:"kind"`
	SigmaPix   float64   `yaml:"sigma_pix,omitempty"`
	AlphaPix   float64   `yaml:"alpha_pix,omitempty"`
	Beta       float64   `yaml:"beta,omitempty"`
	FwhmPix    float64   `yaml:"fwhm_pix"`
	Weight     float64   `yaml:"weight,omitempty"`
	Components []PsfInfo `yaml:"components,omitempty"`
}

func psfInfoOf(m psf.Model) *PsfInfo {
	switch p := m.(type) {
	case nil:
		return nil
	case psf.Gaussian:
		return &PsfInfo{Kind: "gaussian", SigmaPix: p.SigmaPix, FwhmPix: p.Fwhm()}
	case psf.Moffat:
		return &PsfInfo{Kind: "moffat", AlphaPix: p.AlphaPix, Beta: p.Beta, FwhmPix: p.Fwhm()}
	case *psf.Coadd:
		info := &PsfInfo{Kind: "coadd", FwhmPix: p.Fwhm()}
		for _, c := range p.Components() {
			ci := psfInfoOf(c.Model)
			if ci == nil {
				continue
			}
			ci.Weight = c.Weight
			info.Components = append(info.Components, *ci)
		}
		return info
	default:
		return &PsfInfo{Kind: "unknown", FwhmPix: m.Fwhm()}
	}
}

// model turns the descriptor back into something evaluable. Composites
// rebuild from their components; anything unrecognized comes back nil.
func (pi *PsfInfo)model() psf.Model {
	if pi == nil {
		return nil
	}
	switch pi.Kind {
	case "gaussian":
		return psf.Gaussian{SigmaPix: pi.SigmaPix}
	case "moffat":
		return psf.Moffat{AlphaPix: pi.AlphaPix, Beta: pi.Beta}
	case "coadd":
		comps := []psf.Component{}
		for i := range pi.Components {
			if m := pi.Components[i].model(); m != nil {
				comps = append(comps, psf.Component{Model: m, Weight: pi.Components[i].Weight})
			}
		}
		if coadd, err := psf.NewCoadd(comps, psf.CoaddPolicy{}); err == nil {
			return coadd
		}
		return nil
	default:
		return nil
	}
}

// InputRecord is one coverage row in the metadata sidecar.
type InputRecord struct {
	Visit    int      `yaml:"visit"`
	Detector int      `yaml:"detector"`
	Filter   string   `yaml:"filter"`
	GoodPix  int      `yaml:"good_pix"`
	FluxMag0 float64  `yaml:"flux_mag0"`
	Psf      *PsfInfo `yaml:"psf,omitempty"`
	BBox     []int    `yaml:"bbox,flow"`
}

// Meta is the yaml sidecar stored next to each canvas's pixel files.
type Meta struct {
	Tract     int              `yaml:"tract"`
	Patch     string           `yaml:"patch"`
	Visit     int              `yaml:"visit"`
	Type      string           `yaml:"type"`
	BBox      []int            `yaml:"bbox,flow"`
	Filter    string           `yaml:"filter"`
	Calib     frame.PhotoCalib `yaml:"calib"`
	ObsInfo   frame.VisitInfo  `yaml:"obs_info"`
	Psf       *PsfInfo         `yaml:"psf,omitempty"`
	GoodPix   int              `yaml:"good_pix"`
	Inputs    []InputRecord    `yaml:"inputs"`
	CreatedAt string           `yaml:"created_at"`
}

// coverageTable rebuilds the canvas's input table from the sidecar
// rows, so a loaded canvas can answer coverage questions the same way
// a freshly accumulated one does.
func (m Meta)coverageTable() *warp.CoverageTable {
	ct := &warp.CoverageTable{
		Visit:        m.Visit,
		Type:         warp.Type(m.Type),
		TotalGoodPix: m.GoodPix,
		Records:      []warp.CoverageRecord{},
	}
	for _, ir := range m.Inputs {
		ct.Records = append(ct.Records, warp.CoverageRecord{
			Ref:      exposure.Ref{Visit: ir.Visit, Detector: ir.Detector, Filter: ir.Filter},
			Detector: ir.Detector,
			GoodPix:  ir.GoodPix,
			Calib:    frame.PhotoCalib{FluxMag0: ir.FluxMag0},
			Psf:      ir.Psf.model(),
			BBox:     sliceBBox(ir.BBox),
		})
	}
	return ct
}

func bboxSlice(r image.Rectangle) []int {
	return []int{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y}
}

func sliceBBox(s []int) image.Rectangle {
	if len(s) != 4 {
		return image.Rectangle{}
	}
	return image.Rect(s[0], s[1], s[2], s[3])
}

func metaOf(cv *warp.Canvas, id warp.OutputID, now time.Time) Meta {
	m := Meta{
		Tract:     id.Tract,
		Patch:     id.Patch,
		Visit:     id.Visit,
		Type:      string(id.Type),
		BBox:      bboxSlice(cv.Frame.BBox),
		Filter:    cv.Filter,
		Calib:     cv.Calib,
		ObsInfo:   cv.ObsInfo,
		Psf:       psfInfoOf(cv.Psf),
		GoodPix:   cv.GoodPix,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
	if cv.Inputs != nil {
		for _, rec := range cv.Inputs.Records {
			m.Inputs = append(m.Inputs, InputRecord{
				Visit:    rec.Ref.Visit,
				Detector: rec.Detector,
				Filter:   rec.Ref.Filter,
				GoodPix:  rec.GoodPix,
				FluxMag0: rec.Calib.FluxMag0,
				Psf:      psfInfoOf(rec.Psf),
				BBox:     bboxSlice(rec.BBox),
			})
		}
	}
	return m
}

func writeMeta(m Meta, filename string) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal meta: %v", err)
	}
	return os.WriteFile(filename, b, 0644)
}

func readMeta(filename string) (Meta, error) {
	m := Meta{}

	if contents, err := os.ReadFile(filename); err != nil {
		return m, fmt.Errorf("read '%s': %v", filename, err)
	} else if err := yaml.Unmarshal(contents, &m); err != nil {
		return m, fmt.Errorf("parse '%s': %v", filename, err)
	}

	return m, nil
}
