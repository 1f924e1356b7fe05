package scan

import (
	"context"
	"fmt"

	"github.com/auraxdata/assetscan/pkg/archive"
)

// MissingIDs returns the IDs absent from the archive below its current
// frontier, ascending, starting at first (floored to 1). IDs in skip
// are left out; gapfill passes the tombstone set here so known holes
// are not re-probed.
//
// An empty archive has no frontier, so there is nothing to fill.
func MissingIDs(ctx context.Context, a archive.Archive, first int64, skip map[int64]struct{}) ([]int64, error) {
	ids, err := a.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list archive ids: %w", err)
	}
	max := archive.MaxID(ids)
	if max == 0 {
		return nil, nil
	}

	present := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		present[id] = struct{}{}
	}

	if first < 1 {
		first = 1
	}
	var missing []int64
	for id := first; id < max; id++ {
		if _, ok := present[id]; ok {
			continue
		}
		if _, ok := skip[id]; ok {
			continue
		}
		missing = append(missing, id)
	}
	return missing, nil
}
