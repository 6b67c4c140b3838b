package record

import (
	"strings"

	"github.com/pijuldag/recorder/pristine"
)

// pathForInode rebuilds the working-copy-relative path of inode by
// walking the tree table's revtree chain up to the root.
func pathForInode(txn pristine.GraphTxn, inode pristine.Inode) (string, bool) {
	var parts []string
	cur := inode
	for cur != pristine.RootInode {
		parent, basename, ok := txn.GetRevtree(cur)
		if !ok {
			return "", false
		}
		parts = append([]string{basename}, parts...)
		cur = parent
	}
	return strings.Join(parts, "/"), true
}

// deleteStackItem is one entry on the recursive deleter's explicit DFS
// stack: a vertex to visit, plus — once the walk has descended past an
// inode vertex into its own content subgraph — the Position of the inode
// vertex that subgraph belongs to. owning is nil while still walking
// FOLDER (tree) edges between distinct files.
type deleteStackItem struct {
	v      pristine.Vertex
	owning *pristine.Position
}

// recordDeletedFile is the recursive deleter (C8): a depth-first walk of
// the live subgraph rooted at root, emitting a FileDel hunk per inode
// vertex encountered and, for every vertex inside that file's own content
// subgraph, a DELETED transition folded into that FileDel's Contents via
// deleteFileEdge. A vertex whose tree path still resolves to a path that
// still exists on disk is skipped — it was moved elsewhere in this same
// recording session, not deleted.
func (r *Recorded) recordDeletedFile(
	txn pristine.GraphTxn,
	changes pristine.ChangeStore,
	wc pristine.WorkingCopy,
	channel string,
	root pristine.Vertex,
) error {
	stack := []deleteStackItem{{v: root}}
	visited := make(map[pristine.Vertex]bool)
	visited[root] = true

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		v := item.v

		if wc != nil {
			if inode, ok := txn.GetRevinodes(v.StartPos()); ok {
				if path, ok2 := pathForInode(txn, inode); ok2 {
					if _, exists, _ := wc.FileMetadata(path); exists {
						continue
					}
				}
			}
		}

		if item.owning != nil {
			if err := r.deleteFileEdge(txn, channel, v, *item.owning); err != nil {
				return err
			}
		} else if v.IsInode() {
			vPos := posOfVertex(v)
			if !r.deletedVertices.insert(v) {
				continue
			}
			if inode, ok := txn.GetRevinodes(vPos); ok {
				idx := len(r.Actions)
				r.recordedInodes.set(inode, vPos)
				r.Updatables[idx] = InodeUpdate{Deleted: &InodeDeleted{Inode: inode}}
			}
			if err := r.deleteInodeVertex(txn, changes, channel, v); err != nil {
				return err
			}
		}

		for _, e := range txn.IterAdjacent(channel, v, 0, ^pristine.EdgeFlags(0)) {
			if e.Flag.Has(pristine.EdgeDeleted) || e.Flag.Has(pristine.EdgeParent) {
				continue
			}
			if visited[e.To] {
				continue
			}
			visited[e.To] = true

			var nextOwning *pristine.Position
			switch {
			case item.owning != nil:
				nextOwning = item.owning
			case e.Flag.Has(pristine.EdgeFolder):
				nextOwning = nil
			default:
				p := posOfVertex(v)
				nextOwning = &p
			}
			stack = append(stack, deleteStackItem{v: e.To, owning: nextOwning})
		}
	}
	return nil
}

// deleteInodeVertex emits the FileDel hunk for an inode vertex: DELETED
// transitions for every non-PSEUDO (grandparent, parentDest) and
// (parentDest, inodeVertex) FOLDER edge, including edges already marked
// DELETED, and the encoding recorded on any of its FileMetadata parents. It
// pushes no action at all when it finds no such edge.
func (r *Recorded) deleteInodeVertex(txn pristine.GraphTxn, changes pristine.ChangeStore, channel string, v pristine.Vertex) error {
	vPos := posOfVertex(v)
	var edges []pristine.NewEdge
	var encoding *pristine.Encoding

	for _, parentEdge := range txn.IterAdjacent(channel, v, pristine.EdgeFolder|pristine.EdgeParent, ^pristine.EdgeFlags(0)) {
		parentVertex := parentEdge.To
		if encoding == nil {
			if fm, err := changes.GetFileMeta(parentVertex); err == nil {
				encoding = fm.Encoding
			}
		}

		for _, gpEdge := range txn.IterAdjacent(channel, parentVertex, pristine.EdgeFolder|pristine.EdgeParent, ^pristine.EdgeFlags(0)) {
			if gpEdge.Flag.Has(pristine.EdgePseudo) {
				continue
			}
			edges = append(edges, pristine.NewEdge{
				Previous: gpEdge.Flag &^ pristine.EdgeParent,
				Flag:     pristine.EdgeFolder | pristine.EdgeBlock | pristine.EdgeDeleted,
				From:     posOfVertex(gpEdge.To),
				To:       posOfVertex(parentVertex),
			})
		}

		if !parentEdge.Flag.Has(pristine.EdgePseudo) {
			edges = append(edges, pristine.NewEdge{
				Previous: parentEdge.Flag &^ pristine.EdgeParent,
				Flag:     pristine.EdgeFolder | pristine.EdgeBlock | pristine.EdgeDeleted,
				From:     posOfVertex(parentVertex),
				To:       vPos,
			})
		}
	}

	if len(edges) == 0 {
		return nil
	}

	path, _ := pathFor(txn, vPos)

	r.emit(pristine.FileDel{
		Del:      pristine.EdgeMap{Inode: vPos, Edges: edges},
		Contents: nil,
		Path:     path,
		Encoding: encoding,
	})
	return nil
}

func pathFor(txn pristine.GraphTxn, pos pristine.Position) (string, bool) {
	inode, ok := txn.GetRevinodes(pos)
	if !ok {
		return "", false
	}
	return pathForInode(txn, inode)
}

// deleteFileEdge extends the most recently emitted FileDel's content
// EdgeMap (constructing it lazily, owned by the inode vertex at owner)
// with one DELETED transition per non-PSEUDO, non-DELETED PARENT edge into
// to — it
// assumes the last emitted hunk is the FileDel for the owning inode, which
// every caller in this package guarantees by construction; that
// assumption is asserted explicitly here instead of failing silently.
func (r *Recorded) deleteFileEdge(txn pristine.GraphTxn, channel string, to pristine.Vertex, owner pristine.Position) error {
	if len(r.Actions) == 0 {
		return wrap(ErrIO, "", errNoPendingFileDel)
	}
	del, ok := r.Actions[len(r.Actions)-1].(pristine.FileDel)
	if !ok {
		return wrap(ErrIO, "", errNoPendingFileDel)
	}

	toPos := posOfVertex(to)
	for _, e := range txn.IterAdjacent(channel, to, pristine.EdgeParent, ^pristine.EdgeDeleted) {
		if e.Flag.Has(pristine.EdgePseudo) {
			continue
		}
		if del.Contents == nil {
			del.Contents = &pristine.EdgeMap{Inode: owner}
		}
		del.Contents.Edges = append(del.Contents.Edges, pristine.NewEdge{
			Previous: e.Flag &^ pristine.EdgeParent,
			Flag:     (e.Flag &^ pristine.EdgeParent) | pristine.EdgeDeleted,
			From:     posOfVertex(e.To),
			To:       toPos,
		})
	}
	r.Actions[len(r.Actions)-1] = del
	return nil
}

var errNoPendingFileDel = deleteFileEdgeError{}

type deleteFileEdgeError struct{}

func (deleteFileEdgeError) Error() string {
	return "delete_file_edge: last emitted hunk is not a FileDel"
}
