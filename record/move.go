package record

import (
	"github.com/pijuldag/recorder/changestore"
	"github.com/pijuldag/recorder/pristine"
)

// MovedEdges is the move/rename algebra's (C6) result: the edges to
// delete, the edges to reassert as still-alive, the edges to resurrect
// from DELETED, and whether a fresh name vertex is required.
type MovedEdges struct {
	Edges       []pristine.NewEdge
	Alive       []pristine.NewEdge
	Resurrect   []pristine.NewEdge
	NeedNewName bool
}

func posOfVertex(v pristine.Vertex) pristine.Position {
	h := v.Change
	return pristine.Position{Change: &h, Pos: v.Start}
}

// collectMovedEdges walks every FOLDER|PARENT edge into the file's inode
// vertex current ("parent" = the name vertex owning that edge), then every
// FOLDER|PARENT edge out of that name vertex ("grandparent" = the
// containing directory), classifying each (grandparent, parent, current)
// triple by grandparentChanged/nameChanged/metaChanged against the
// proposed (newParent, newBasename, newMeta) triple.
func collectMovedEdges(
	txn pristine.GraphTxn,
	changes pristine.ChangeStore,
	channel string,
	current pristine.Vertex,
	newParent pristine.Position,
	newBasename string,
	newMeta pristine.InodeMetadata,
) (MovedEdges, error) {
	var moved MovedEdges
	moved.NeedNewName = true

	type delDelKey struct {
		grandparent, parentDest pristine.Vertex
	}
	delDel := make(map[delDelKey][]pristine.Hash)
	aliveMulti := make(map[delDelKey][]pristine.Hash)

	isFirstParent := true
	var lastAliveMeta *pristine.InodeMetadata

	// add_file anchors name/inode vertices with FOLDER|BLOCK together (see
	// add.go), so the allowed mask here must admit BLOCK or every folder
	// edge gets filtered out.
	const folderAllowed = pristine.EdgeFolder | pristine.EdgeParent | pristine.EdgeBlock

	for _, parentEdge := range txn.IterAdjacent(channel, current, pristine.EdgeFolder|pristine.EdgeParent, folderAllowed|pristine.EdgeDeleted) {
		parentVertex := parentEdge.To
		parentPseudo := parentEdge.Flag.Has(pristine.EdgePseudo)
		parentIntroducedBy := parentEdge.IntroducedBy
		parentWasResurrected := false

		if !parentPseudo && parentEdge.Flag.Has(pristine.EdgeDeleted) {
			// Forward direction: the name vertex's own FOLDER edge points at
			// the inode vertex, so resurrecting it restores parent->current.
			moved.Resurrect = append(moved.Resurrect, pristine.NewEdge{
				Previous:     parentEdge.Flag &^ pristine.EdgeParent,
				Flag:         pristine.EdgeFolder | pristine.EdgeBlock,
				From:         posOfVertex(parentVertex),
				To:           posOfVertex(current),
				IntroducedBy: &parentIntroducedBy,
			})
			parentWasResurrected = true
		}

		fm, err := changes.GetFileMeta(parentVertex)
		if err != nil {
			return moved, wrap(ErrChangestore, "", err)
		}
		nameChanged := fm.Basename != newBasename
		metaChanged := fm.Metadata != newMeta
		if !metaChangeAloneMovesFile && !metaChanged && lastAliveMeta != nil {
			metaChanged = newMeta != *lastAliveMeta
		}

		for _, gpEdge := range txn.IterAdjacent(channel, parentVertex, pristine.EdgeFolder|pristine.EdgeParent, folderAllowed|pristine.EdgeDeleted) {
			if gpEdge.Flag.Has(pristine.EdgePseudo) {
				continue
			}
			grandparent := gpEdge.To
			grandparentChanged := !posOfVertex(grandparent).Equal(newParent)

			key := delDelKey{grandparent: grandparent, parentDest: parentVertex}

			introducedBy := gpEdge.IntroducedBy

			if gpEdge.Flag.Has(pristine.EdgeDeleted) {
				if !grandparentChanged && !nameChanged && !metaChanged {
					// Forward direction: the directory's own FOLDER edge
					// points at the name vertex.
					moved.Resurrect = append(moved.Resurrect, pristine.NewEdge{
						Previous:     gpEdge.Flag &^ pristine.EdgeParent,
						Flag:         pristine.EdgeFolder | pristine.EdgeBlock,
						From:         posOfVertex(grandparent),
						To:           posOfVertex(parentVertex),
						IntroducedBy: &introducedBy,
					})
					reassertParentAlive(&moved, parentEdge, parentIntroducedBy, parentVertex, current, parentWasResurrected)
					moved.NeedNewName = false
				} else {
					delDel[key] = append(delDel[key], introducedBy)
				}
				continue
			}

			// live grandparent edge. A bare metadata change only forces a
			// move on platforms where metaChangeAloneMovesFile is true —
			// see policy_unix.go / policy_windows.go.
			if grandparentChanged || nameChanged || (metaChanged && metaChangeAloneMovesFile) || !isFirstParent {
				moved.Edges = append(moved.Edges, pristine.NewEdge{
					Previous:     parentEdge.Flag &^ pristine.EdgeParent,
					Flag:         pristine.EdgeFolder | pristine.EdgeBlock | pristine.EdgeDeleted,
					From:         posOfVertex(grandparent),
					To:           posOfVertex(parentVertex),
					IntroducedBy: &introducedBy,
				})
				// Really important for missing-context detection: the
				// name->inode edge must stay asserted alive even though the
				// directory->name edge above is being deleted.
				reassertParentAlive(&moved, parentEdge, parentIntroducedBy, parentVertex, current, parentWasResurrected)
			} else {
				m := newMeta
				lastAliveMeta = &m
				aliveMulti[key] = append(aliveMulti[key], introducedBy)
				moved.NeedNewName = false
			}
			isFirstParent = false
		}
	}

	for key, intros := range delDel {
		distinct := distinctNonZero(intros)
		if len(distinct) > 1 {
			for i := range distinct {
				ib := distinct[i]
				moved.Edges = append(moved.Edges, pristine.NewEdge{
					Previous:     pristine.EdgeFolder | pristine.EdgeBlock | pristine.EdgeDeleted,
					Flag:         pristine.EdgeFolder | pristine.EdgeBlock | pristine.EdgeDeleted,
					From:         posOfVertex(key.grandparent),
					To:           posOfVertex(key.parentDest),
					IntroducedBy: &ib,
				})
			}
		}
	}
	for key, intros := range aliveMulti {
		distinct := distinctNonZero(intros)
		if len(distinct) > 1 || len(moved.Resurrect) > 0 {
			for i := range distinct {
				ib := distinct[i]
				moved.Alive = append(moved.Alive, pristine.NewEdge{
					Previous:     pristine.EdgeFolder | pristine.EdgeBlock,
					Flag:         pristine.EdgeFolder | pristine.EdgeBlock,
					From:         posOfVertex(key.grandparent),
					To:           posOfVertex(key.parentDest),
					IntroducedBy: &ib,
				})
			}
		}
	}

	return moved, nil
}

// reassertParentAlive re-emits the name->inode edge (parentVertex->current)
// as alive when a grandparent edge elsewhere in the same pass is being
// resurrected or deleted: a missing-context detector downstream needs this
// edge reasserted even though nothing about the name itself changed. It is
// skipped when the name edge was already resurrected above, or is itself a
// pseudo edge that was never really there to reassert.
func reassertParentAlive(moved *MovedEdges, parentEdge pristine.Edge, parentIntroducedBy pristine.Hash, parentVertex, current pristine.Vertex, parentWasResurrected bool) {
	if parentWasResurrected || parentEdge.Flag.Has(pristine.EdgePseudo) {
		return
	}
	moved.Alive = append(moved.Alive, pristine.NewEdge{
		Previous:     parentEdge.Flag &^ pristine.EdgeParent,
		Flag:         pristine.EdgeFolder | pristine.EdgeBlock,
		From:         posOfVertex(parentVertex),
		To:           posOfVertex(current),
		IntroducedBy: &parentIntroducedBy,
	})
}

// recordMovedFile runs C6 and translates its result into the Hunk the
// driver (C7) emits, per the output-translation rules: a restore wins over
// a pure move, a move that needs a fresh name vertex wins over one that
// does not, and when nothing actually changed the speculative metadata
// bytes are simply truncated away. encoding is the file's former parent's
// recorded Encoding, carried forward as-is: a rename does not re-decode
// the file's content, so it reuses whatever encoding the last content
// hunk (or add) already settled on.
func (r *Recorded) recordMovedFile(
	txn pristine.GraphTxn,
	changes pristine.ChangeStore,
	channel string,
	item RecordItem,
	current pristine.Vertex,
	encoding *pristine.Encoding,
) error {
	metaBytes := changestore.WriteFileMetadata(pristine.FileMetadata{
		Metadata: item.Metadata,
		Basename: item.Basename,
		Encoding: encoding,
	})
	metaStart := r.contents.append(metaBytes)

	moved, err := collectMovedEdges(txn, changes, channel, current, item.VPapa, item.Basename, item.Metadata)
	if err != nil {
		r.contents.truncate(metaStart)
		return err
	}

	currentPos := posOfVertex(current)
	switch {
	case len(moved.Resurrect) > 0:
		edges := append(append([]pristine.NewEdge{}, moved.Resurrect...), moved.Alive...)
		if !moved.NeedNewName {
			edges = append(edges, moved.Edges...)
		}
		r.emit(pristine.FileUndel{
			Resurrect: pristine.EdgeMap{Inode: currentPos, Edges: edges},
			Path:      item.FullPath,
		})
		r.contents.truncate(metaStart)

	case len(moved.Edges) > 0 && moved.NeedNewName:
		nv := pristine.NewVertex{
			UpContext:   []pristine.Position{item.VPapa},
			DownContext: []pristine.Position{currentPos},
			Start:       metaStart,
			End:         metaStart + pristine.ChangePosition(len(metaBytes)),
			Flag:        pristine.EdgeFolder | pristine.EdgeBlock,
			Inode:       currentPos,
		}
		r.emit(pristine.FileMove{
			Del:  pristine.EdgeMap{Inode: currentPos, Edges: moved.Edges},
			Add:  nv,
			Path: item.FullPath,
		})

	case len(moved.Edges) > 0:
		r.emit(pristine.SolveNameConflict{
			Name: pristine.EdgeMap{Inode: currentPos, Edges: moved.Edges},
			Path: item.FullPath,
		})
		r.contents.truncate(metaStart)

	default:
		r.contents.truncate(metaStart)
	}
	return nil
}

func distinctNonZero(hs []pristine.Hash) []pristine.Hash {
	var out []pristine.Hash
	seen := make(map[pristine.Hash]bool)
	var zero pristine.Hash
	for _, h := range hs {
		if h == zero {
			continue
		}
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}
