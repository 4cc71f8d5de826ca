package warp

import (
	"fmt"

	"skywarp/pkg/exposure"
)

// VisitGroup is one visit's worth of exposure references — everything
// that shares a (visit, filter) key. Refs keep their arrival order.
type VisitGroup struct {
	Key  exposure.GroupKey
	Refs []exposure.Ref
}

func (g VisitGroup)String() string {
	return fmt.Sprintf("visit %d (%s): %d exposures", g.Key.Visit, g.Key.Filter, len(g.Refs))
}

// VisitID is the group's numeric visit id, falling back to the group's
// ordinal position when the exposures never carried one. The fallback
// is order-sensitive, which is why grouping order is deterministic.
func (g VisitGroup)VisitID(ordinal int) int {
	if g.Key.Visit > 0 {
		return g.Key.Visit
	}
	return ordinal
}

// GroupExposures partitions refs by grouping key. Every ref lands in
// exactly one group, groups appear in the order their key was first
// seen, and refs within a group keep their relative order, so the same
// input always yields the same partition. An empty input is
// ErrEmptyInput: it means selection and existence filtering left
// nothing to warp.
func GroupExposures(refs []exposure.Ref) ([]VisitGroup, error) {
	if len(refs) == 0 {
		return nil, emptyInputf("nothing to group")
	}

	byKey := map[exposure.GroupKey]int{}
	groups := []VisitGroup{}

	for _, ref := range refs {
		key := ref.GroupKey()
		if i, seen := byKey[key]; seen {
			groups[i].Refs = append(groups[i].Refs, ref)
		} else {
			byKey[key] = len(groups)
			groups = append(groups, VisitGroup{Key: key, Refs: []exposure.Ref{ref}})
		}
	}

	return groups, nil
}
