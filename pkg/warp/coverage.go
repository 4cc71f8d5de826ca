package warp

import (
	"fmt"
	"image"

	"skywarp/pkg/exposure"
	"skywarp/pkg/frame"
	"skywarp/pkg/psf"
)

// CoverageRecord is one exposure's entry in a canvas's input table:
// which detector landed where, with how many good pixels, under what
// calibration and PSF. Zero-contribution records are kept — knowing an
// exposure was warped and delivered nothing is itself coverage
// information.
type CoverageRecord struct {
	Ref      exposure.Ref
	Detector int
	GoodPix  int
	Calib    frame.PhotoCalib
	Psf      psf.Model
	BBox     image.Rectangle
}

// CoverageTable is the finished, frozen input table of one canvas.
type CoverageTable struct {
	Visit        int
	Type         Type
	TotalGoodPix int
	Records      []CoverageRecord
}

// NumInputs counts all recorded exposures, contributing or not.
func (ct *CoverageTable)NumInputs() int { return len(ct.Records) }

// NumContributing counts the exposures that delivered at least one
// good pixel.
func (ct *CoverageTable)NumContributing() int {
	n := 0
	for _, r := range ct.Records {
		if r.GoodPix > 0 {
			n++
		}
	}
	return n
}

// PsfComponents turns the table into weighted PSF mixture components,
// one per contributing exposure, weighted by good pixel count. Entries
// with no PSF model or no contribution drop out here.
func (ct *CoverageTable)PsfComponents() []psf.Component {
	comps := []psf.Component{}
	for _, r := range ct.Records {
		if r.Psf == nil || r.GoodPix <= 0 {
			continue
		}
		comps = append(comps, psf.Component{Model: r.Psf, Weight: float64(r.GoodPix)})
	}
	return comps
}

func (ct *CoverageTable)String() string {
	return fmt.Sprintf("CoverageTable{visit %d %s: %d/%d inputs contributing, %d good pixels}",
		ct.Visit, ct.Type, ct.NumContributing(), ct.NumInputs(), ct.TotalGoodPix)
}

// Recorder builds a CoverageTable during accumulation. It is
// append-only — each exposure gets at most one record per recorder —
// and refuses writes once finished.
type Recorder struct {
	table     CoverageTable
	seen      map[exposure.Ref]bool
	finished  bool
}

func NewRecorder(visit int, t Type) *Recorder {
	return &Recorder{
		table: CoverageTable{Visit: visit, Type: t, Records: []CoverageRecord{}},
		seen:  map[exposure.Ref]bool{},
	}
}

// Add appends one exposure's record. Re-recording a ref or writing
// after Finish is a pipeline bug, not a data condition, so it errors.
func (r *Recorder)Add(rec CoverageRecord) error {
	if r.finished {
		return fmt.Errorf("coverage table for visit %d already finished", r.table.Visit)
	}
	if r.seen[rec.Ref] {
		return fmt.Errorf("duplicate coverage record for %s", rec.Ref)
	}
	r.seen[rec.Ref] = true
	r.table.Records = append(r.table.Records, rec)
	return nil
}

// Finish freezes the recorder and returns the completed table with its
// visit-level summary stamped in.
func (r *Recorder)Finish(totalGoodPix int) *CoverageTable {
	r.finished = true
	r.table.TotalGoodPix = totalGoodPix
	return &r.table
}
