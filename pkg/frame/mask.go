package frame

import(
	"fmt"
	"strings"
)

// Mask planes. Each pixel's mask word carries zero or more of these
// bits. NO_DATA is the one the accumulator lives by: an empty canvas
// starts with it set everywhere, and the first good pixel to land
// clears it.
const (
	MaskBad    uint16 = 1 << iota // detector defect
	MaskSat                       // saturated
	MaskInterp                    // value was interpolated over a defect
	MaskCR                        // cosmic ray hit
	MaskEdge                      // too close to the detector edge to trust
	MaskNoData                    // nothing has ever landed on this pixel
)

var maskPlaneNames = map[string]uint16{
	"BAD":     MaskBad,
	"SAT":     MaskSat,
	"INTRP":   MaskInterp,
	"CR":      MaskCR,
	"EDGE":    MaskEdge,
	"NO_DATA": MaskNoData,
}

// PlaneBitMask turns a list of plane names into a combined bit mask,
// for configs that say which planes make a pixel unusable.
func PlaneBitMask(names []string) (uint16, error) {
	var bits uint16
	for _, name := range names {
		b, ok := maskPlaneNames[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown mask plane '%s'", name)
		}
		bits |= b
	}
	return bits, nil
}

// PlaneNames renders a mask word back into names, mostly for logs.
func PlaneNames(bits uint16) string {
	names := []string{}
	for _, name := range []string{"BAD", "SAT", "INTRP", "CR", "EDGE", "NO_DATA"} {
		if bits & maskPlaneNames[name] != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, "|")
}
