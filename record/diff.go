package record

import (
	"github.com/pijuldag/recorder/diffcore"
	"github.com/pijuldag/recorder/diffline"
	"github.com/pijuldag/recorder/pristine"
	"github.com/pijuldag/recorder/vbuffer"
)

// diffFile is the C3 driver: it projects the inode's alive subgraph to a
// buffer, builds old/new line (or, for binary files, chunk) arrays,
// invokes the selected LCS algorithm, and replays each hunk through the
// delete translator (C4) before the replace translator (C5) — C4 must run
// first because C5 may reference edges C4 has just deleted. It reports
// whether any hunks were produced, which the caller uses to update
// oldestChange.
func (r *Recorded) diffFile(txn pristine.GraphTxn, changes pristine.ChangeStore, channel string, inodeVertex pristine.Vertex, path string, newBytes []byte, encoding *pristine.Encoding, algo diffcore.Algorithm) (bool, error) {
	d, err := vbuffer.New(txn, changes, channel, inodeVertex)
	if err != nil {
		return false, wrap(ErrDiff, path, err)
	}
	r.Redundant = append(r.Redundant, d.Redundant...)

	var oldLines, newLines []diffline.Line
	if encoding != nil {
		oldLines = diffcore.MakeOldLines(d)
		newLines = diffcore.MakeNewLines(newBytes)
	} else {
		r.HasBinaryFiles = true
		oldLines = diffcore.MakeOldChunks(d.ContentsA)
		newLines = diffcore.MakeNewChunks(newBytes)
	}

	hunks := diffcore.Diff(oldLines, newLines, algo)
	if len(hunks) == 0 {
		return false, nil
	}

	inode := pristine.Position{Change: &inodeVertex.Change, Pos: inodeVertex.Start}
	cc := newConflictContexts()
	for _, h := range hunks {
		// h.OldOff/h.OldLen are line (or chunk) indices into oldLines, not
		// byte offsets into d.ContentsA; bytes_pos/bytes_len convert.
		oldByteOff := diffcore.BytesPos(oldLines, h.OldOff)
		oldByteLen := diffcore.BytesLen(oldLines, h.OldOff, h.OldLen)

		var del *pristine.EdgeMap
		if h.OldLen > 0 {
			em, err := r.deleteTranslator(txn, channel, d, inode, oldByteOff, oldByteLen, cc)
			if err != nil {
				return false, err
			}
			del = &em
		}
		var add *pristine.NewVertex
		if h.NewLen > 0 {
			nv := r.replaceTranslator(d, inode, oldByteOff, oldByteLen, flattenLines(newLines[h.NewOff:h.NewOff+h.NewLen]), cc)
			add = &nv
		}
		r.emit(pristine.Edit{Del: del, Add: add, Path: path})
	}
	return true, nil
}

func flattenLines(lines []diffline.Line) []byte {
	var out []byte
	for _, l := range lines {
		out = append(out, l.Bytes...)
	}
	return out
}
