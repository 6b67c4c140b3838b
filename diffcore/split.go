package diffcore

import "github.com/pijuldag/recorder/diffline"

// SplitLines is the byte-level line-splitter: it breaks b on '\n',
// keeping the newline attached to the line it terminates, and marks the
// final line with Last. Lines from SplitLines never have Cyclic or
// BeforeEndMarker set — those annotations only apply to lines recovered
// from a conflicted graph projection (see MakeOldLines).
func SplitLines(bufferID int, b []byte) []diffline.Line {
	if len(b) == 0 {
		return nil
	}
	var lines []diffline.Line
	start := 0
	for i, c := range b {
		if c == '\n' {
			lines = append(lines, diffline.Line{
				Bytes:    b[start : i+1],
				BufferID: bufferID,
				Offset:   start,
			})
			start = i + 1
		}
	}
	if start < len(b) {
		lines = append(lines, diffline.Line{
			Bytes:    b[start:],
			BufferID: bufferID,
			Offset:   start,
		})
	}
	if len(lines) > 0 {
		lines[len(lines)-1].Last = true
	}
	return lines
}
