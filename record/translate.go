package record

import (
	"github.com/pijuldag/recorder/pristine"
	"github.com/pijuldag/recorder/vbuffer"
)

// ConflictContexts remembers which conflict sides have already been
// "claimed" by a prior hunk within the same file's diff pass, so that a
// delete hunk and its paired replace hunk — and any further hunks touching
// the same conflict region — connect to consistent up/down anchors instead
// of duplicating edge entries or crossing into an unrelated conflict side.
// It is per-file and never shared across workers; it dies with the diff
// call that created it.
//
// libpijul's actual delete.rs/replace.rs were not available to ground this
// type on directly (see the design notes on that gap); this is a from-spec
// reconstruction of the bookkeeping §4.4/§4.5 describe.
type ConflictContexts struct {
	bySide map[int][]pristine.Position
}

func newConflictContexts() *ConflictContexts {
	return &ConflictContexts{bySide: make(map[int][]pristine.Position)}
}

// claim returns every position previously recorded for boundary side, if
// any — additional up/down-context siblings a new hunk at the same side
// must also anchor to.
func (c *ConflictContexts) claim(side int) []pristine.Position {
	return c.bySide[side]
}

// record adds pos as an anchor future hunks at this boundary must connect
// to.
func (c *ConflictContexts) record(side int, pos pristine.Position) {
	c.bySide[side] = append(c.bySide[side], pos)
}

// anchorPosition resolves the graph context immediately above or below a
// byte offset in the projected buffer: the vertex covering that offset's
// start position, or — past either edge of the buffer — the file's own
// inode position, so every context anchors to something that already
// exists in the graph.
func anchorPosition(d *vbuffer.Diff, inode pristine.Position, offset int) pristine.Position {
	if v, ok := d.VertexAt(offset); ok {
		h := v.Change
		return pristine.Position{Change: &h, Pos: v.Start}
	}
	return inode
}

// deleteTranslator is the delete translator (C4): for a hunk's old range,
// it enumerates the graph edges whose source lies in that byte range of
// the projection and emits DELETED-flagged NewEdges, recording each visited
// vertex in cc at its byte offset. Repeated edges are filtered only within
// one call: a vertex that a later hunk of the same pass reaches again has
// its edges emitted again. A vertex loses its place in the live graph only once every
// alive edge touching it is gone, so both its own forward edge and the
// edge arriving at it from outside the range must be marked — the latter
// matters most for the range's first vertex, whose only alive predecessor
// lies before old_off and would otherwise never be visited.
func (r *Recorded) deleteTranslator(txn pristine.GraphTxn, channel string, d *vbuffer.Diff, inode pristine.Position, oldOff, oldLen int, cc *ConflictContexts) (pristine.EdgeMap, error) {
	em := pristine.EdgeMap{Inode: inode}
	seen := make(map[pristine.Vertex]bool)
	for off := oldOff; off < oldOff+oldLen; {
		v, ok := d.VertexAt(off)
		if !ok {
			break
		}
		if seen[v] {
			off++
			continue
		}
		seen[v] = true

		for _, e := range txn.IterAdjacent(channel, v, pristine.EdgeBlock, pristine.EdgeBlock|pristine.EdgeParent|pristine.EdgeDeleted) {
			if e.Flag.Has(pristine.EdgeDeleted) {
				continue
			}
			var from, to pristine.Vertex
			if e.Flag.Has(pristine.EdgeParent) {
				// The mirror of an edge whose real source is e.To; skip
				// it when that source is itself inside the range, since
				// its own forward-edge entry already covers this edge.
				if seen[e.To] {
					continue
				}
				from, to = e.To, v
			} else {
				from, to = v, e.To
			}
			fromPos := pristine.Position{Change: &from.Change, Pos: from.Start}
			toPos := pristine.Position{Change: &to.Change, Pos: to.Start}
			em.Edges = append(em.Edges, pristine.NewEdge{
				Previous: e.Flag &^ pristine.EdgeParent,
				Flag:     (e.Flag &^ pristine.EdgeParent) | pristine.EdgeDeleted,
				From:     fromPos,
				To:       toPos,
			})
		}
		cc.record(off, pristine.Position{Change: &v.Change, Pos: v.Start})
		off++
	}
	return em, nil
}

// replaceTranslator is the replace translator (C5): it appends the hunk's
// new bytes to the contents buffer and emits a BLOCK NewVertex anchored
// above old_off and below old_off+old_len, extended with any conflict-side
// siblings cc has on record for those boundaries.
func (r *Recorded) replaceTranslator(d *vbuffer.Diff, inode pristine.Position, oldOff, oldLen int, newBytes []byte, cc *ConflictContexts) pristine.NewVertex {
	start := r.contents.append(newBytes)
	end := start + pristine.ChangePosition(len(newBytes))

	up := append([]pristine.Position{anchorPosition(d, inode, oldOff-1)}, cc.claim(oldOff-1)...)
	down := append([]pristine.Position{anchorPosition(d, inode, oldOff+oldLen)}, cc.claim(oldOff+oldLen)...)

	nv := pristine.NewVertex{
		UpContext:   up,
		DownContext: down,
		Start:       start,
		End:         end,
		Flag:        pristine.EdgeBlock,
		Inode:       inode,
	}
	cc.record(oldOff+oldLen, pristine.Position{Pos: start})
	return nv
}
