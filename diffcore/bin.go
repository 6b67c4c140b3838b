package diffcore

import "github.com/pijuldag/recorder/diffline"

// rollingWindow is the chunker's window size in bytes, fixed at 8192 per
// the data model.
const rollingWindow = 8192

const (
	rollingBase   = 257
	rollingModulo = 1<<31 - 1
)

// MakeOldChunks and MakeNewChunks apply a rolling-hash chunker to binary
// (encoding == nil) file content and emit pseudo-lines whose boundaries
// are chunk boundaries rather than line boundaries. Downstream C4/C5
// consume these identically to textual lines.
func MakeOldChunks(b []byte) []diffline.Line { return chunk(oldBufferID, b) }
func MakeNewChunks(b []byte) []diffline.Line { return chunk(newBufferID, b) }

// chunk scans b with a polynomial rolling hash over a rollingWindow-byte
// window, cutting a new chunk whenever the hash's low bits hit zero — the
// standard content-defined-chunking trick, so that inserting or deleting
// bytes only perturbs the chunks touching the edit, not the whole file.
func chunk(bufferID int, b []byte) []diffline.Line {
	if len(b) == 0 {
		return nil
	}
	var lines []diffline.Line
	start := 0
	var hash uint64
	var power uint64 = 1
	for i := 0; i < rollingWindow; i++ {
		power = (power * rollingBase) % rollingModulo
	}

	windowStart := 0
	for i, c := range b {
		hash = (hash*rollingBase + uint64(c)) % rollingModulo
		winLen := i - windowStart + 1
		if winLen > rollingWindow {
			drop := uint64(b[windowStart])
			hash = (hash - (drop*power)%rollingModulo + rollingModulo*rollingModulo) % rollingModulo
			windowStart++
			winLen--
		}

		atBoundary := winLen >= rollingWindow && hash%rollingWindow == 0
		atEOF := i == len(b)-1
		if atBoundary || atEOF {
			lines = append(lines, diffline.Line{
				Bytes:    b[start : i+1],
				BufferID: bufferID,
				Offset:   start,
			})
			start = i + 1
			windowStart = start
			hash = 0
		}
	}
	if len(lines) > 0 {
		lines[len(lines)-1].Last = true
	}
	return lines
}
