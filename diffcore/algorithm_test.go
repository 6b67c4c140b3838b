package diffcore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pijuldag/recorder/diffline"
)

func linesOf(s string) []byte { return []byte(s) }

func oldLinesOf(s string) []diffline.Line { return SplitLines(oldBufferID, []byte(s)) }

func TestDiffMyersPureContentEdit(t *testing.T) {
	old := oldLinesOf("x\ny\nz\n")
	new := MakeNewLines(linesOf("x\nY\nz\n"))
	hunks := Diff(old, new, Myers)
	if assert.Len(t, hunks, 1) {
		h := hunks[0]
		assert.Equal(t, 1, h.OldOff)
		assert.Equal(t, 1, h.OldLen)
		assert.Equal(t, 1, h.NewOff)
		assert.Equal(t, 1, h.NewLen)
	}
}

func TestDiffMyersNoChange(t *testing.T) {
	old := oldLinesOf("a\nb\nc\n")
	new := MakeNewLines(linesOf("a\nb\nc\n"))
	assert.Empty(t, Diff(old, new, Myers))
}

func TestDiffMyersPureInsertion(t *testing.T) {
	old := oldLinesOf("a\nc\n")
	new := MakeNewLines(linesOf("a\nb\nc\n"))
	hunks := Diff(old, new, Myers)
	if assert.Len(t, hunks, 1) {
		assert.Equal(t, 0, hunks[0].OldLen)
		assert.Equal(t, 1, hunks[0].NewLen)
	}
}

func TestDiffMyersPureDeletion(t *testing.T) {
	old := oldLinesOf("a\nb\nc\n")
	new := MakeNewLines(linesOf("a\nc\n"))
	hunks := Diff(old, new, Myers)
	if assert.Len(t, hunks, 1) {
		assert.Equal(t, 1, hunks[0].OldLen)
		assert.Equal(t, 0, hunks[0].NewLen)
	}
}

func TestDiffPatienceAndHistogramAgreeOnRename(t *testing.T) {
	oldText := "package foo\n\nfunc A() {}\nfunc B() {}\n"
	newText := "package foo\n\nfunc A() {}\nfunc C() {}\n"
	old := oldLinesOf(oldText)
	new := MakeNewLines(linesOf(newText))

	for _, algo := range []Algorithm{Patience, Histogram} {
		hunks := Diff(old, new, algo)
		if assert.Len(t, hunks, 1, "algo=%v", algo) {
			assert.Equal(t, 3, hunks[0].OldOff, "algo=%v", algo)
			assert.Equal(t, 1, hunks[0].OldLen, "algo=%v", algo)
		}
	}
}

func TestDiffPatienceNoCommonLines(t *testing.T) {
	old := oldLinesOf("a\nb\n")
	new := MakeNewLines(linesOf("c\nd\n"))
	hunks := Diff(old, new, Patience)
	if assert.Len(t, hunks, 1) {
		assert.Equal(t, 2, hunks[0].OldLen)
		assert.Equal(t, 2, hunks[0].NewLen)
	}
}
