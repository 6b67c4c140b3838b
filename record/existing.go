package record

import (
	"github.com/pijuldag/recorder/diffcore"
	"github.com/pijuldag/recorder/pristine"
)

type formerParent struct {
	meta        pristine.FileMetadata
	grandparent pristine.Position
}

// recordExistingFile is C7b: it reconstructs the file's former parents
// from the graph, then dispatches to the move/rename algebra (C6) when
// anything about its placement changed, to the diff driver (C3) when its
// content might have, or to the recursive deleter (C8) when the
// working-copy path is simply gone.
func (r *Recorded) recordExistingFile(
	txn pristine.GraphTxn,
	changes pristine.ChangeStore,
	wc pristine.WorkingCopy,
	channel string,
	item RecordItem,
	inodeVertex pristine.Vertex,
	algo diffcore.Algorithm,
) error {
	var formerParents []formerParent
	isDeleted := false

	// add_file anchors name/inode vertices with FOLDER|BLOCK together (see
	// add.go), so the allowed mask here must admit BLOCK or every folder
	// edge gets filtered out.
	const folderAllowed = pristine.EdgeFolder | pristine.EdgeParent | pristine.EdgeBlock
	for _, e := range txn.IterAdjacent(channel, inodeVertex, pristine.EdgeFolder|pristine.EdgeParent, folderAllowed|pristine.EdgeDeleted) {
		if e.Flag.Has(pristine.EdgeDeleted) {
			isDeleted = true
			continue
		}
		fm, err := changes.GetFileMeta(e.To)
		if err != nil {
			return wrap(ErrChangestore, item.FullPath, err)
		}
		var grandparent pristine.Position
		for _, gp := range txn.IterAdjacent(channel, e.To, pristine.EdgeFolder|pristine.EdgeParent, folderAllowed) {
			if gp.Flag.Has(pristine.EdgePseudo) {
				continue
			}
			grandparent = posOfVertex(gp.To)
			break
		}
		formerParents = append(formerParents, formerParent{meta: fm, grandparent: grandparent})
	}
	if len(formerParents) == 0 {
		return wrap(ErrTransaction, item.FullPath, errNoFormerParent)
	}

	meta, exists, err := wc.FileMetadata(item.FullPath)
	if err != nil {
		return wrap(ErrWorkingCopy, item.FullPath, err)
	}

	if exists {
		first := formerParents[0]
		needsMove := len(formerParents) > 1 ||
			first.meta.Basename != item.Basename ||
			first.meta.Metadata != item.Metadata ||
			!first.grandparent.Equal(item.VPapa) ||
			isDeleted

		if needsMove {
			if err := r.recordMovedFile(txn, changes, channel, item, inodeVertex, first.meta.Encoding); err != nil {
				return err
			}
		}

		if !meta.IsDir() {
			mtime, err := wc.ModifiedTime(item.FullPath)
			if err != nil {
				return wrap(ErrSystemTime, item.FullPath, err)
			}
			if r.forceRediff || !mtime.Before(txn.LastModified(channel)) {
				decoded, enc, err := wc.DecodeFile(item.FullPath)
				if err != nil {
					return wrap(ErrWorkingCopy, item.FullPath, err)
				}
				hadNew, err := r.diffFile(txn, changes, channel, inodeVertex, item.FullPath, decoded, enc, algo)
				if err != nil {
					return err
				}
				r.observeMtime(mtime, hadNew)
			}
		}
		return nil
	}

	return r.recordDeletedFile(txn, changes, wc, channel, inodeVertex)
}

var errNoFormerParent = formerParentError{}

type formerParentError struct{}

func (formerParentError) Error() string { return "inode vertex has no live former parent" }
