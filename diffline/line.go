// Package diffline implements the line model (C1): zero-copy line tokens
// with identity-aware equality, the hinge the diff driver's correctness
// rests on.
package diffline

// Line is a view over a byte slice with three auxiliary bits alongside the
// bytes themselves: Cyclic (this line lives inside a cyclic-conflict
// region of the projected buffer), BeforeEndMarker (its trailing newline
// is eaten by a conflict end-marker in the projection), and Last (final
// line of its source buffer). Offset anchors the line within its owning
// buffer and is the pointer-equality fast path's integer replacement — two
// lines from the same buffer at the same offset and length are equal
// without a byte comparison.
type Line struct {
	Bytes           []byte
	BufferID        int
	Offset          int
	Cyclic          bool
	BeforeEndMarker bool
	Last            bool
}

// Equal implements the data model's equality rule. Two lines are equal
// when all hold:
//  1. Cyclic matches; AND
//  2. either (a) the bytes compare equal, or (b) both lines come from the
//     same buffer at the same offset and length (the alias fast path), or
//     (c) one side has BeforeEndMarker set, the other side is not Last and
//     its bytes end with '\n', and, with that newline stripped, the two
//     sides match in length and bytes.
//
// Rule (c) handles the asymmetry that a graph vertex truncated by a
// conflict marker has no newline, while the corresponding working-copy
// line does; they must still match.
func (a Line) Equal(b Line) bool {
	if a.Cyclic != b.Cyclic {
		return false
	}
	if a.BufferID == b.BufferID && a.Offset == b.Offset && len(a.Bytes) == len(b.Bytes) {
		return true
	}
	if bytesEqual(a.Bytes, b.Bytes) {
		return true
	}
	if a.BeforeEndMarker && !b.Last && hasTrailingNewline(b.Bytes) {
		return bytesEqual(a.Bytes, b.Bytes[:len(b.Bytes)-1])
	}
	if b.BeforeEndMarker && !a.Last && hasTrailingNewline(a.Bytes) {
		return bytesEqual(b.Bytes, a.Bytes[:len(a.Bytes)-1])
	}
	return false
}

func hasTrailingNewline(b []byte) bool {
	return len(b) > 0 && b[len(b)-1] == '\n'
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
