package exposure

import "fmt"

// A Ref identifies one source exposure: a single detector read out
// during a single visit, in one filter. It's a lookup handle; the
// pixels stay on disk until Load.
type Ref struct {
	Visit    int
	Detector int
	Filter   string
}

func (r Ref)String() string {
	return fmt.Sprintf("visit %d det %d (%s)", r.Visit, r.Detector, r.Filter)
}

// GroupKey is the subset of identity that determines which warp an
// exposure belongs to: all detectors of one visit land in one warp,
// so the detector is excluded.
type GroupKey struct {
	Visit  int
	Filter string
}

func (r Ref)GroupKey() GroupKey { return GroupKey{Visit: r.Visit, Filter: r.Filter} }

func (k GroupKey)String() string {
	return fmt.Sprintf("visit %d (%s)", k.Visit, k.Filter)
}
