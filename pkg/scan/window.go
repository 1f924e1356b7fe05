// Package scan implements the incremental ID-range scan: computing
// the window of candidate IDs past the archive frontier and probing
// each one against the remote endpoint.
package scan

// Window is a contiguous, inclusive range of candidate asset IDs. It
// is derived fresh for each run and discarded afterwards.
type Window struct {
	First int64
	Last  int64
}

// NextWindow returns the window of size n immediately after the
// frontier: IDs frontier+1 through frontier+n. An empty archive has
// frontier 0, so the first-ever run scans 1..n.
func NextWindow(frontier, n int64) Window {
	return Window{First: frontier + 1, Last: frontier + n}
}

// Len returns the number of IDs in the window.
func (w Window) Len() int64 {
	if w.Last < w.First {
		return 0
	}
	return w.Last - w.First + 1
}

// IDs returns the window's IDs in ascending order.
func (w Window) IDs() []int64 {
	ids := make([]int64, 0, w.Len())
	for id := w.First; id <= w.Last; id++ {
		ids = append(ids, id)
	}
	return ids
}
