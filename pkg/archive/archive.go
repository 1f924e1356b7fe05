// Package archive stores fetched assets keyed by their numeric ID.
//
// An archive is append-only: once an asset is stored under an ID it is
// never rewritten or removed by this package. The absence of an ID
// means the ID was either never probed or probed and found absent; the
// optional tombstone ledger (pkg/ledger) is the only place that
// distinction is recorded.
package archive

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Archive is the durable store of fetched assets. Implementations must
// derive asset IDs from storage keys alone, so listing never reads
// file contents.
type Archive interface {
	// Write persists an asset under its ID. Writing an ID that is
	// already present is a no-op: the first fetch wins.
	Write(ctx context.Context, id int64, data []byte, ext string) error

	// Has reports whether an asset with the given ID is present.
	Has(ctx context.Context, id int64) (bool, error)

	// ListIDs returns the IDs of all stored assets, in no particular
	// order.
	ListIDs(ctx context.Context) ([]int64, error)
}

// MaxID returns the highest ID in the listing, or 0 when it is empty.
func MaxID(ids []int64) int64 {
	var max int64
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max
}

// Frontier lists the archive and returns the highest stored ID, or 0
// for an empty archive. It is recomputed from the listing on every
// call; nothing is cached between runs, so assets added by other
// processes are always picked up.
func Frontier(ctx context.Context, a Archive) (int64, error) {
	ids, err := a.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list archive ids: %w", err)
	}
	return MaxID(ids), nil
}

// fileName returns the storage name for an asset: "<id><ext>".
func fileName(id int64, ext string) string {
	return strconv.FormatInt(id, 10) + normalizeExt(ext)
}

// normalizeExt ensures a leading dot and defaults to ".bin".
func normalizeExt(ext string) string {
	if ext == "" {
		return ".bin"
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

// parseID extracts the asset ID from a storage name, returning false
// for names that do not look like "<id><ext>".
func parseID(name string) (int64, bool) {
	stem, _, _ := strings.Cut(name, ".")
	id, err := strconv.ParseInt(stem, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
