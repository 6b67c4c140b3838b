// Package diffcore implements the diff driver (C3): it builds old/new line
// arrays, selects an LCS algorithm, and emits (old_range, new_range)
// hunks for the delete/replace translators to consume.
package diffcore

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/pijuldag/recorder/diffline"
)

// Algorithm selects the LCS variant the driver uses to align old and new
// lines.
type Algorithm int

const (
	// Myers runs the classic O(ND) algorithm via sergi/go-diff, encoding
	// each line's diffline.Equal-equivalence class as one rune so the
	// library's string-level Myers engine enforces exactly the line
	// model's equality rule rather than plain byte equality.
	Myers Algorithm = iota
	// Patience anchors on lines that occur exactly once on both sides,
	// in matching order, and recursively diffs the gaps between anchors.
	Patience
	// Histogram is Patience with the anchor choice widened to the
	// least-frequent matching line when no unique line exists, which
	// tends to produce tighter hunks around repeated boilerplate.
	Histogram
)

// Hunk is one aligned (old, new) range in old-line order.
type Hunk struct {
	OldOff, OldLen int
	NewOff, NewLen int
}

// Diff aligns old and new line arrays with the selected algorithm and
// returns the hunks in old order. For each hunk, the caller must invoke
// the delete translator (C4) before the replace translator (C5) when
// OldLen/NewLen are respectively nonzero, since C5 may reference edges C4
// has just deleted.
func Diff(old, new []diffline.Line, algo Algorithm) []Hunk {
	switch algo {
	case Patience, Histogram:
		return diffPatience(old, new, algo == Histogram)
	default:
		return diffMyers(old, new)
	}
}

func diffMyers(old, new []diffline.Line) []Hunk {
	classOf := classify(old, new)

	oldRunes := make([]rune, len(old))
	for i, l := range old {
		oldRunes[i] = classOf(l)
	}
	newRunes := make([]rune, len(new))
	for i, l := range new {
		newRunes[i] = classOf(l)
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(oldRunes), string(newRunes), false)
	return hunksFromRuneDiffs(diffs)
}

// classify groups lines into diffline.Equal equivalence classes and
// returns a function mapping any line to its class's rune. Equal is
// guaranteed to be an equivalence relation over lines drawn from both
// buffers (see diffline's tests), so grouping by mutual equality is safe.
func classify(old, new []diffline.Line) func(diffline.Line) rune {
	var reps []diffline.Line
	index := make(map[int]rune)
	classOf := func(l diffline.Line) rune {
		for i, r := range reps {
			if r.Equal(l) {
				return rune(i)
			}
		}
		reps = append(reps, l)
		return rune(len(reps) - 1)
	}
	_ = index
	return classOf
}

func hunksFromRuneDiffs(diffs []diffmatchpatch.Diff) []Hunk {
	var hunks []Hunk
	oldI, newI := 0, 0
	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldI += n
			newI += n
		case diffmatchpatch.DiffDelete:
			hunks = append(hunks, Hunk{OldOff: oldI, OldLen: n, NewOff: newI, NewLen: 0})
			oldI += n
		case diffmatchpatch.DiffInsert:
			if len(hunks) > 0 && hunks[len(hunks)-1].OldOff+hunks[len(hunks)-1].OldLen == oldI &&
				hunks[len(hunks)-1].NewLen == 0 && hunks[len(hunks)-1].NewOff == newI {
				hunks[len(hunks)-1].NewLen = n
			} else {
				hunks = append(hunks, Hunk{OldOff: oldI, OldLen: 0, NewOff: newI, NewLen: n})
			}
			newI += n
		}
	}
	return hunks
}
