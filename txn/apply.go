package txn

import (
	"github.com/pijuldag/recorder/changestore"
	"github.com/pijuldag/recorder/pristine"
)

// Apply folds a finished recording session's hunks back into channel,
// registering changeHash as the change that owns every "this change"
// position in hunks, and contents as that change's full contents buffer
// (the slice NewVertex ranges index into). It is the accumulate-then-apply
// counterpart record.Builder.Record needs for round-trip fixed-point
// tests: record, Apply, record again, and expect no new hunks.
//
// This is a reference implementation, not a reimplementation of the real
// apply phase's conflict resolution — it is deliberately literal about
// folding in exactly the edges a hunk names, which is sufficient to make
// the graph converge to what the working copy described.
func (m *Memory) Apply(channel string, changeHash pristine.Hash, hunks []pristine.Hunk, contents []byte) error {
	m.Store.PutChange(changeHash, contents)

	for _, h := range hunks {
		switch hunk := h.(type) {
		case pristine.FileAdd:
			m.applyFileAdd(channel, changeHash, hunk)
		case pristine.FileDel:
			m.applyFileDel(channel, changeHash, hunk)
		case pristine.FileMove:
			m.applyFileMove(channel, changeHash, hunk)
		case pristine.FileUndel:
			m.applyEdgeMap(channel, changeHash, hunk.Resurrect, false)
		case pristine.SolveNameConflict:
			m.applyEdgeMap(channel, changeHash, hunk.Name, false)
		case pristine.Edit:
			if hunk.Del != nil {
				m.applyEdgeMap(channel, changeHash, *hunk.Del, false)
			}
			if hunk.Add != nil {
				m.applyNewVertex(channel, changeHash, *hunk.Add)
			}
		}
	}
	return nil
}

func (m *Memory) resolvePos(changeHash pristine.Hash, p pristine.Position) pristine.Position {
	if p.Change == nil {
		h := changeHash
		return pristine.Position{Change: &h, Pos: p.Pos}
	}
	return p
}

// resolveContextVertex turns a context Position into the Vertex it names,
// falling back to a zero-width inode vertex when no block boundary is
// registered at that position yet (the common case for a freshly minted
// inode anchor).
func (m *Memory) resolveContextVertex(channel string, changeHash pristine.Hash, p pristine.Position) pristine.Vertex {
	rp := m.resolvePos(changeHash, p)
	if v, ok := m.FindBlock(channel, rp); ok {
		return v
	}
	if v, ok := m.FindBlockEnd(channel, rp); ok {
		return v
	}
	return pristine.Vertex{Change: *rp.Change, Start: rp.Pos, End: rp.Pos}
}

func (m *Memory) applyNewVertex(channel string, changeHash pristine.Hash, nv pristine.NewVertex) pristine.Vertex {
	v := pristine.Vertex{Change: changeHash, Start: nv.Start, End: nv.End}
	for _, up := range nv.UpContext {
		from := m.resolveContextVertex(channel, changeHash, up)
		m.AddEdge(channel, nv.Flag, from, v, &changeHash)
	}
	for _, down := range nv.DownContext {
		to := m.resolveContextVertex(channel, changeHash, down)
		m.AddEdge(channel, nv.Flag, v, to, &changeHash)
	}
	return v
}

func (m *Memory) applyEdgeMap(channel string, changeHash pristine.Hash, em pristine.EdgeMap, clearDeleted bool) {
	for _, e := range em.Edges {
		from := m.resolveContextVertex(channel, changeHash, e.From)
		to := m.resolveContextVertex(channel, changeHash, e.To)
		flag := e.Flag
		if clearDeleted {
			flag &^= pristine.EdgeDeleted
		}
		m.AddEdge(channel, flag, from, to, e.IntroducedBy)
	}
}

func (m *Memory) applyFileAdd(channel string, changeHash pristine.Hash, h pristine.FileAdd) {
	nameVertex := m.applyNewVertex(channel, changeHash, h.AddName)
	inodeVertex := m.applyNewVertex(channel, changeHash, h.AddInode)

	inode := m.NewInode()
	inodePos := pristine.Position{Change: &changeHash, Pos: inodeVertex.Start}
	m.SetInode(inode, inodePos)

	var parentInode pristine.Inode
	if len(h.AddName.UpContext) > 0 {
		parentVertex := m.resolveContextVertex(channel, changeHash, h.AddName.UpContext[0])
		if pi, ok := m.GetRevinodes(pristine.Position{Change: &parentVertex.Change, Pos: parentVertex.Start}); ok {
			parentInode = pi
		}
	}
	basename := ""
	if fm, err := m.fileMetaFromVertex(nameVertex); err == nil {
		basename = fm.Basename
		m.Store.PutFileMeta(nameVertex, fm)
	}
	m.PutTree(parentInode, basename, inode)

	if h.Contents != nil {
		m.applyNewVertex(channel, changeHash, *h.Contents)
	}
}

func (m *Memory) fileMetaFromVertex(v pristine.Vertex) (pristine.FileMetadata, error) {
	b, err := m.Store.GetContents(v)
	if err != nil {
		return pristine.FileMetadata{}, err
	}
	return changestore.ReadFileMetadata(b)
}

func (m *Memory) applyFileDel(channel string, changeHash pristine.Hash, h pristine.FileDel) {
	m.applyEdgeMap(channel, changeHash, h.Del, false)
	if h.Contents != nil {
		m.applyEdgeMap(channel, changeHash, *h.Contents, false)
	}
	if inode, ok := m.GetRevinodes(h.Del.Inode); ok {
		m.RemoveTree(inode)
	}
}

func (m *Memory) applyFileMove(channel string, changeHash pristine.Hash, h pristine.FileMove) {
	m.applyEdgeMap(channel, changeHash, h.Del, false)
	nameVertex := m.applyNewVertex(channel, changeHash, h.Add)

	if inode, ok := m.GetRevinodes(h.Del.Inode); ok {
		m.RemoveTree(inode)
		var parentInode pristine.Inode
		if len(h.Add.UpContext) > 0 {
			parentVertex := m.resolveContextVertex(channel, changeHash, h.Add.UpContext[0])
			if pi, ok := m.GetRevinodes(pristine.Position{Change: &parentVertex.Change, Pos: parentVertex.Start}); ok {
				parentInode = pi
			}
		}
		basename := ""
		if fm, err := m.fileMetaFromVertex(nameVertex); err == nil {
			basename = fm.Basename
			m.Store.PutFileMeta(nameVertex, fm)
		}
		m.PutTree(parentInode, basename, inode)
	}
}
