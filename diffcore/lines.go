package diffcore

import (
	"github.com/pijuldag/recorder/diffline"
	"github.com/pijuldag/recorder/vbuffer"
)

// oldBufferID and newBufferID distinguish old-side and new-side lines for
// the pointer-equality ("same buffer, same offset, same length") fast
// path in diffline.Line.Equal.
const (
	oldBufferID = 0
	newBufferID = 1
)

// MakeOldLines builds the old-side line array from a projected conflict
// buffer, annotating each line with Cyclic (a point-in-range test against
// d.CyclicConflictBytes) and BeforeEndMarker (a lookup in d.Marker at
// offset+len+1 for a MarkerEnd).
func MakeOldLines(d *vbuffer.Diff) []diffline.Line {
	raw := SplitLines(oldBufferID, d.ContentsA)
	for i := range raw {
		off := raw[i].Offset
		raw[i].Cyclic = d.IsCyclic(off)
		if kind, ok := d.Marker[off+len(raw[i].Bytes)+1]; ok && kind == vbuffer.MarkerEnd {
			raw[i].BeforeEndMarker = true
		}
	}
	return raw
}

// MakeNewLines builds the new-side line array from the working copy's raw
// bytes. New lines never carry Cyclic or BeforeEndMarker: those bits only
// exist to reconcile a conflicted graph projection with a working copy
// that has none.
func MakeNewLines(b []byte) []diffline.Line {
	return SplitLines(newBufferID, b)
}

// BytesPos returns the byte offset of chunks[i] relative to chunks[0]. i ==
// len(chunks) is valid (an insertion hunk anchored past the last line) and
// returns the past-the-end offset, mirroring BytesLen's own fallback.
func BytesPos(chunks []diffline.Line, i int) int {
	if len(chunks) == 0 {
		return 0
	}
	if i == len(chunks) {
		last := chunks[len(chunks)-1]
		return last.Offset + len(last.Bytes) - chunks[0].Offset
	}
	return chunks[i].Offset - chunks[0].Offset
}

// BytesLen returns the total byte span of chunks[i : i+n]. When i+n lands
// past the end of chunks it falls back to the last chunk's offset+length
// minus chunks[i]'s offset; the degenerate case i == len(chunks) && n == 0
// returns 0.
func BytesLen(chunks []diffline.Line, i, n int) int {
	if n == 0 && i == len(chunks) {
		return 0
	}
	if i+n < len(chunks) {
		return chunks[i+n].Offset - chunks[i].Offset
	}
	if i+n > 0 {
		last := chunks[len(chunks)-1]
		return last.Offset + len(last.Bytes) - chunks[i].Offset
	}
	return 0
}
