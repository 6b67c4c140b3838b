package diffcore

import "github.com/pijuldag/recorder/diffline"

// diffPatience implements the Patience/Histogram diff family: find lines
// that occur on both sides under diffline.Equal, pick an anchor sequence
// among them (unique occurrences only for Patience; the least-frequent
// matching line when no unique line exists for Histogram), align the
// anchors via longest-increasing-subsequence, and recursively diff the
// gaps between anchors with the same strategy.
func diffPatience(old, new []diffline.Line, histogram bool) []Hunk {
	var hunks []Hunk
	recurse(old, new, 0, 0, histogram, &hunks)
	return hunks
}

func recurse(old, new []diffline.Line, oldBase, newBase int, histogram bool, hunks *[]Hunk) {
	// Trim matching prefix/suffix first so the anchor search only has to
	// work on the genuinely different middle section.
	lo := 0
	for lo < len(old) && lo < len(new) && old[lo].Equal(new[lo]) {
		lo++
	}
	hi := 0
	for hi < len(old)-lo && hi < len(new)-lo && old[len(old)-1-hi].Equal(new[len(new)-1-hi]) {
		hi++
	}
	old, new = old[lo:len(old)-hi], new[lo:len(new)-hi]
	oldBase, newBase = oldBase+lo, newBase+lo

	if len(old) == 0 && len(new) == 0 {
		return
	}
	if len(old) == 0 || len(new) == 0 {
		*hunks = append(*hunks, Hunk{OldOff: oldBase, OldLen: len(old), NewOff: newBase, NewLen: len(new)})
		return
	}

	anchors := pickAnchors(old, new, histogram)
	if len(anchors) == 0 {
		*hunks = append(*hunks, Hunk{OldOff: oldBase, OldLen: len(old), NewOff: newBase, NewLen: len(new)})
		return
	}

	prevOld, prevNew := 0, 0
	for _, a := range anchors {
		recurse(old[prevOld:a.oldIdx], new[prevNew:a.newIdx], oldBase+prevOld, newBase+prevNew, histogram, hunks)
		prevOld, prevNew = a.oldIdx+1, a.newIdx+1
	}
	recurse(old[prevOld:], new[prevNew:], oldBase+prevOld, newBase+prevNew, histogram, hunks)
}

type anchor struct {
	oldIdx, newIdx int
}

// pickAnchors finds a strictly increasing (in both old and new index)
// sequence of matching lines to align on: candidate lines are those
// appearing in both old and new. Patience restricts candidates to lines
// occurring exactly once on each side; Histogram falls back to the
// least-frequent matching line when no unique candidate exists, so it can
// still make progress on files with no unique lines at all.
func pickAnchors(old, new []diffline.Line, histogram bool) []anchor {
	type occ struct {
		oldIdxs, newIdxs []int
	}

	// Group old and new lines into equivalence classes (by Equal), then
	// keep classes with exactly one occurrence on each side.
	var classes []*occ
	classIndex := func(l diffline.Line, fromOld bool, idx int) {
		for _, c := range classes {
			var rep diffline.Line
			if len(c.oldIdxs) > 0 {
				rep = old[c.oldIdxs[0]]
			} else {
				rep = new[c.newIdxs[0]]
			}
			if rep.Equal(l) {
				if fromOld {
					c.oldIdxs = append(c.oldIdxs, idx)
				} else {
					c.newIdxs = append(c.newIdxs, idx)
				}
				return
			}
		}
		c := &occ{}
		if fromOld {
			c.oldIdxs = []int{idx}
		} else {
			c.newIdxs = []int{idx}
		}
		classes = append(classes, c)
	}
	for i, l := range old {
		classIndex(l, true, i)
	}
	for i, l := range new {
		classIndex(l, false, i)
	}

	var candidates []*occ
	for _, c := range classes {
		if len(c.oldIdxs) == 1 && len(c.newIdxs) == 1 {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 && histogram {
		// No unique line anywhere: fall back to the class with the
		// fewest total occurrences that still appears on both sides.
		var best *occ
		for _, c := range classes {
			if len(c.oldIdxs) == 0 || len(c.newIdxs) == 0 {
				continue
			}
			if best == nil || len(c.oldIdxs)+len(c.newIdxs) < len(best.oldIdxs)+len(best.newIdxs) {
				best = c
			}
		}
		if best != nil {
			candidates = append(candidates, best)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	anchors := make([]anchor, len(candidates))
	for i, c := range candidates {
		anchors[i] = anchor{oldIdx: c.oldIdxs[0], newIdx: c.newIdxs[0]}
	}
	return longestIncreasingByNew(anchors)
}

// longestIncreasingByNew sorts anchors by oldIdx and returns the longest
// subsequence whose newIdx is also strictly increasing — the patience
// sort step that turns unordered common-line candidates into a valid,
// crossing-free alignment.
func longestIncreasingByNew(anchors []anchor) []anchor {
	for i := 1; i < len(anchors); i++ {
		for j := i; j > 0 && anchors[j-1].oldIdx > anchors[j].oldIdx; j-- {
			anchors[j-1], anchors[j] = anchors[j], anchors[j-1]
		}
	}

	n := len(anchors)
	tails := make([]int, 0, n)     // index into anchors of the smallest tail for each length
	prev := make([]int, n)
	for i := range prev {
		prev[i] = -1
	}
	for i, a := range anchors {
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if anchors[tails[mid]].newIdx < a.newIdx {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}
	if len(tails) == 0 {
		return nil
	}
	out := make([]anchor, len(tails))
	k := tails[len(tails)-1]
	for i := len(tails) - 1; i >= 0; i-- {
		out[i] = anchors[k]
		k = prev[k]
	}
	return out
}
