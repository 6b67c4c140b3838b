package diffcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLines(t *testing.T) {
	lines := SplitLines(oldBufferID, []byte("x\ny\nz"))
	if assert.Len(t, lines, 3) {
		assert.Equal(t, "x\n", string(lines[0].Bytes))
		assert.Equal(t, "y\n", string(lines[1].Bytes))
		assert.Equal(t, "z", string(lines[2].Bytes))
		assert.True(t, lines[2].Last)
		assert.False(t, lines[0].Last)
		assert.Equal(t, 0, lines[0].Offset)
		assert.Equal(t, 2, lines[1].Offset)
		assert.Equal(t, 4, lines[2].Offset)
	}
}

func TestSplitLinesEmpty(t *testing.T) {
	assert.Nil(t, SplitLines(oldBufferID, nil))
}

func TestBytesPos(t *testing.T) {
	chunks := SplitLines(oldBufferID, []byte("aa\nbb\ncc\n"))
	assert.Equal(t, 0, BytesPos(chunks, 0))
	assert.Equal(t, 3, BytesPos(chunks, 1))
	assert.Equal(t, 6, BytesPos(chunks, 2))
}

func TestBytesPosAtEndOfChunks(t *testing.T) {
	chunks := SplitLines(oldBufferID, []byte("aa\nbb\n"))
	// i == len(chunks) is the position a pure append-at-end-of-file hunk
	// anchors at; it must return the past-the-end offset, not panic.
	got := BytesPos(chunks, len(chunks))
	last := chunks[len(chunks)-1]
	want := last.Offset + len(last.Bytes) - chunks[0].Offset
	assert.Equal(t, want, got)
}

func TestBytesLenWithinRange(t *testing.T) {
	chunks := SplitLines(oldBufferID, []byte("aa\nbb\ncc\n"))
	assert.Equal(t, 3, BytesLen(chunks, 0, 1))
	assert.Equal(t, 6, BytesLen(chunks, 0, 2))
	assert.Equal(t, 3, BytesLen(chunks, 1, 1))
}

func TestBytesLenPastEndFallsBackToLastChunk(t *testing.T) {
	chunks := SplitLines(oldBufferID, []byte("aa\nbb\ncc"))
	// i+n (1+3=4) is past len(chunks)==3: falls back to
	// offset_of(last) + len_of(last) - offset_of(i).
	got := BytesLen(chunks, 1, 3)
	last := chunks[len(chunks)-1]
	want := last.Offset + len(last.Bytes) - chunks[1].Offset
	assert.Equal(t, want, got)
}

func TestBytesLenDegenerateEmptyTail(t *testing.T) {
	chunks := SplitLines(oldBufferID, []byte("aa\n"))
	assert.Equal(t, 0, BytesLen(chunks, len(chunks), 0))
}

func TestMakeNewLinesNeverCarriesConflictBits(t *testing.T) {
	lines := MakeNewLines([]byte("a\nb\n"))
	for _, l := range lines {
		assert.False(t, l.Cyclic)
		assert.False(t, l.BeforeEndMarker)
	}
}
