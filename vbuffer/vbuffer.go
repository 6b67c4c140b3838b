// Package vbuffer implements the graph-to-buffer projector (C2): given a
// retrieved alive subgraph rooted at an inode vertex, it produces a flat
// byte buffer plus the offset-to-vertex map the diff driver needs to map
// buffer offsets back to graph vertices. The Diff type also has fields for
// cyclic-conflict ranges, conflict markers and redundant edges; New leaves
// them empty.
package vbuffer

import (
	"sort"

	"github.com/pijuldag/recorder/pristine"
)

// MarkerKind names a conflict marker inserted into the projected buffer.
type MarkerKind int

const (
	MarkerBegin MarkerKind = iota
	MarkerEnd
	MarkerSideSep
)

// OffsetVertex pairs a byte offset in the projected buffer with the graph
// vertex that covers it.
type OffsetVertex struct {
	Offset int
	Vertex pristine.Vertex
}

// ByteRange is a half-open [Start, End) byte range in the projected
// buffer.
type ByteRange struct {
	Start, End int
}

// Diff is the projector's output: the flat buffer, the offset-to-vertex
// map, the sorted cyclic-conflict byte ranges, and the conflict-marker
// positions.
type Diff struct {
	ContentsA          []byte
	PosA               []OffsetVertex
	CyclicConflictBytes []ByteRange // sorted by Start
	Marker              map[int]MarkerKind
	Redundant           []pristine.Edge
}

// New walks the alive subgraph reachable forward from root (following
// non-Deleted, non-folder edges in the channel's graph) and linearises it
// into a Diff buffer in depth-first order. A vertex reached a second time
// is not emitted again. New records no cyclic-conflict ranges and inserts
// no conflict markers: CyclicConflictBytes, Marker and Redundant stay
// empty.
func New(txn pristine.GraphTxn, changes pristine.ChangeStore, channel string, root pristine.Vertex) (*Diff, error) {
	d := &Diff{Marker: make(map[int]MarkerKind)}

	visited := make(map[pristine.Vertex]bool)
	var walk func(v pristine.Vertex) error
	walk = func(v pristine.Vertex) error {
		if visited[v] {
			// Already emitted on an earlier path; nothing is
			// appended again.
			return nil
		}
		visited[v] = true

		if !v.IsInode() {
			b, err := changes.GetContents(v)
			if err != nil {
				return err
			}
			start := len(d.ContentsA)
			d.PosA = append(d.PosA, OffsetVertex{Offset: start, Vertex: v})
			d.ContentsA = append(d.ContentsA, b...)
		}

		edges := txn.IterAdjacent(channel, v, 0, pristine.EdgeBlock)
		for _, e := range edges {
			if e.Flag.Has(pristine.EdgeDeleted) || e.Flag.Has(pristine.EdgeParent) {
				continue
			}
			if err := walk(e.To); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}

	sort.Slice(d.CyclicConflictBytes, func(i, j int) bool {
		return d.CyclicConflictBytes[i].Start < d.CyclicConflictBytes[j].Start
	})
	return d, nil
}

// VertexAt returns the vertex covering byte offset b, if any.
func (d *Diff) VertexAt(b int) (pristine.Vertex, bool) {
	if b < 0 || b >= len(d.ContentsA) {
		return pristine.Vertex{}, false
	}
	// PosA is built in buffer order, so a linear scan finds the last
	// entry whose Offset is <= b; small buffers make a binary search not
	// worth the complexity here.
	var found pristine.Vertex
	ok := false
	for _, ov := range d.PosA {
		if ov.Offset <= b {
			found, ok = ov.Vertex, true
		} else {
			break
		}
	}
	return found, ok
}

// IsCyclic reports whether byte offset b falls inside a registered
// cyclic-conflict range.
func (d *Diff) IsCyclic(b int) bool {
	i := sort.Search(len(d.CyclicConflictBytes), func(i int) bool {
		return d.CyclicConflictBytes[i].End > b
	})
	return i < len(d.CyclicConflictBytes) && d.CyclicConflictBytes[i].Start <= b
}
