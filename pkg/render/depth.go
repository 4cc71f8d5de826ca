package render

// Coverage QA for finished warps: how many exposures landed on each
// canvas pixel. Depth is rebuilt from the coverage table's
// contributing bounding boxes - the accumulator keeps only the
// winning pixel, so exact per-pixel contributor counts are not
// recoverable from the canvas itself, and the box count is the upper
// bound we report.

import(
	"fmt"
	"image"

	"github.com/skypies/util/histogram"
	"gonum.org/v1/gonum/stat"

	"skywarp/pkg/warp"
	"skywarp/pkg/wmath"
)

// DepthMap counts, for each pixel of bbox, how many contributing
// records' bounding boxes cover it. Records that delivered no good
// pixels don't count towards depth.
func DepthMap(ct *warp.CoverageTable, bbox image.Rectangle) wmath.FloatGrid {
	g := wmath.NewFloatGrid(bbox.Dx(), bbox.Dy())

	for _, rec := range ct.Records {
		if rec.GoodPix <= 0 { continue }

		overlap := rec.BBox.Intersect(bbox)
		for y:=overlap.Min.Y; y<overlap.Max.Y; y++ {
			for x:=overlap.Min.X; x<overlap.Max.X; x++ {
				gx, gy := x-bbox.Min.X, y-bbox.Min.Y
				g.Set(gx, gy, g.Get(gx, gy)+1)
			}
		}
	}

	return g
}

// CanvasDepthMap is DepthMap over a canvas's own coverage table and
// bounding box. The canvas must be finished, i.e. carry its table.
func CanvasDepthMap(cv *warp.Canvas) (wmath.FloatGrid, error) {
	if cv == nil || cv.Inputs == nil {
		return wmath.FloatGrid{}, fmt.Errorf("canvas has no coverage table")
	}
	return DepthMap(cv.Inputs, cv.Frame.BBox), nil
}

// DepthStats summarizes a depth map: how much of the patch is covered
// at all, and how deeply.
type DepthStats struct {
	Covered   int // pixels under at least one contributor
	Total     int
	MaxDepth  int
	MeanDepth float64 // over covered pixels only
	Hist      histogram.Histogram
}

func NewDepthStats(depth *wmath.FloatGrid) DepthStats {
	ds := DepthStats{
		Total: depth.Dx() * depth.Dy(),
		Hist:  histogram.Histogram{NumBuckets:256, ValMin:0, ValMax:256},
	}

	depths := []float64{}
	for y:=0; y<depth.Dy(); y++ {
		for x:=0; x<depth.Dx(); x++ {
			d := int(depth.Get(x, y))
			if d > ds.MaxDepth { ds.MaxDepth = d }
			if d <= 0 { continue }

			ds.Covered++
			depths = append(depths, float64(d))
			if d > 255 { d = 255 }
			ds.Hist.Add(histogram.ScalarVal(d))
		}
	}

	if len(depths) > 0 {
		ds.MeanDepth = stat.Mean(depths, nil)
	}

	return ds
}

func (ds *DepthStats)String() string {
	pct := 0.0
	if ds.Total > 0 {
		pct = 100.0 * float64(ds.Covered) / float64(ds.Total)
	}
	return fmt.Sprintf("depth: %d/%d pixels covered (%.1f%%), max %d, mean %.2f\nhist: %v",
		ds.Covered, ds.Total, pct, ds.MaxDepth, ds.MeanDepth, ds.Hist)
}
