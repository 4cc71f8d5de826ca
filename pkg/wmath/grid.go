package wmath

import(
	"fmt"
	"math"
	"sort"
)

// A FloatGrid is a 2D grid of float64 values, held in a flat arena
// with a stride. Warp canvases and exposure planes are big (a patch
// is typically 4k x 4k), so we want one allocation per plane and no
// per-pixel boxing.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFilled allocates a grid with every value set to v. The
// usual fill is NaN, the "nothing has landed here yet" state for a
// canvas value plane, or +Inf for a variance plane.
func NewFloatGridFilled(w, h int, v float64) FloatGrid {
	g := NewFloatGrid(w, h)
	for i:=0; i<len(g.values); i++ {
		g.values[i] = v
	}
	return g
}

func (g *FloatGrid)NewFromThis() FloatGrid  { return NewFloatGrid(g.Dx(), g.Dy()) }
func (g *FloatGrid)Set(x, y int, v float64) { g.values[g.stride*y + x] = v }
func (g *FloatGrid)Get(x, y int) float64    { return g.values[g.stride*y + x] }
func (g *FloatGrid)Dx() int                 { return g.stride }
func (g *FloatGrid)Dy() int                 { return len(g.values) / g.stride }
func (g *FloatGrid)IsEmpty() bool           { return len(g.values) == 0 }

func (g1 *FloatGrid)Copy() FloatGrid {
	g2 := FloatGrid{stride: g1.stride, values: make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return g2
}

// MulScalar scales every finite value in place. NaNs stay NaN, Infs
// stay Inf, so "no data" and "no variance yet" survive rescaling.
func (g *FloatGrid)MulScalar(s float64) {
	for i:=0; i<len(g.values); i++ {
		g.values[i] *= s
	}
}

func (g *FloatGrid)AddScalar(s float64) {
	for i:=0; i<len(g.values); i++ {
		g.values[i] += s
	}
}

// MinMax ignores NaNs and Infs, else one unset pixel would wreck the
// range. Returns (0,0) when nothing finite is present.
func (g *FloatGrid)MinMax() (float64, float64) {
	min, max := math.MaxFloat64, -math.MaxFloat64
	seen := false
	for i:=0; i<len(g.values); i++ {
		v := g.values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) { continue }
		if v < min { min = v }
		if v > max { max = v }
		seen = true
	}
	if !seen { return 0, 0 }
	return min, max
}

// CountFinite is how many values are actual measurements.
func (g *FloatGrid)CountFinite() int {
	n := 0
	for i:=0; i<len(g.values); i++ {
		if !math.IsNaN(g.values[i]) && !math.IsInf(g.values[i], 0) { n++ }
	}
	return n
}

// PercentileRange returns the values at the given percentiles of the
// finite population, for windowing a display range without letting a
// few hot pixels blow out the scale.
func (g *FloatGrid)PercentileRange(loPrct, hiPrct float64) (float64, float64) {
	vals := []float64{}
	for i:=0; i<len(g.values); i++ {
		if v := g.values[i]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 { return 0, 0 }

	sort.Float64s(vals)

	iLo := int(loPrct * float64(len(vals)))
	iHi := int(hiPrct * float64(len(vals)))
	if iLo < 0          { iLo = 0 }
	if iHi >= len(vals) { iHi = len(vals)-1 }

	return vals[iLo], vals[iHi]
}

func (g *FloatGrid)Stats() string {
	min, max := g.MinMax()
	return fmt.Sprintf("grid[%dx%d, finite %d/%d, vals{%g,%g}]",
		g.Dx(), g.Dy(), g.CountFinite(), len(g.values), min, max)
}

// A MaskGrid is the per-pixel bitplane companion to a FloatGrid. Bits
// are defined by the frame package's mask dictionary; this type just
// stores and combines them.
type MaskGrid struct {
	stride int
	bits   []uint16
}

func NewMaskGrid(w, h int) MaskGrid {
	return MaskGrid{
		stride: w,
		bits:   make([]uint16, w*h),
	}
}

// NewMaskGridFilled allocates a mask with every pixel carrying the
// given bits (e.g. the NO_DATA plane for an empty canvas).
func NewMaskGridFilled(w, h int, b uint16) MaskGrid {
	m := NewMaskGrid(w, h)
	for i:=0; i<len(m.bits); i++ {
		m.bits[i] = b
	}
	return m
}

func (m *MaskGrid)Set(x, y int, b uint16)   { m.bits[m.stride*y + x] = b }
func (m *MaskGrid)Get(x, y int) uint16      { return m.bits[m.stride*y + x] }
func (m *MaskGrid)Or(x, y int, b uint16)    { m.bits[m.stride*y + x] |= b }
func (m *MaskGrid)Clear(x, y int, b uint16) { m.bits[m.stride*y + x] &^= b }
func (m *MaskGrid)Has(x, y int, b uint16) bool { return m.bits[m.stride*y + x] & b != 0 }
func (m *MaskGrid)Dx() int                  { return m.stride }
func (m *MaskGrid)Dy() int                  { return len(m.bits) / m.stride }
func (m *MaskGrid)IsEmpty() bool            { return len(m.bits) == 0 }

func (m1 *MaskGrid)Copy() MaskGrid {
	m2 := MaskGrid{stride: m1.stride, bits: make([]uint16, len(m1.bits))}
	copy(m2.bits, m1.bits)
	return m2
}

// CountWith reports how many pixels carry any of the given bits.
func (m *MaskGrid)CountWith(b uint16) int {
	n := 0
	for i:=0; i<len(m.bits); i++ {
		if m.bits[i] & b != 0 { n++ }
	}
	return n
}
