package record

import "github.com/pijuldag/recorder/pristine"

// InodeUpdate records, for one hunk index, the inode-table side effect
// that hunk implies once applied: a freshly minted inode (Add) or one
// being marked gone (Deleted).
type InodeUpdate struct {
	Add     *InodeAdd
	Deleted *InodeDeleted
}

// InodeAdd is the Add variant of InodeUpdate.
type InodeAdd struct {
	Pos   pristine.ChangePosition
	Inode pristine.Inode
}

// InodeDeleted is the Deleted variant of InodeUpdate.
type InodeDeleted struct {
	Inode pristine.Inode
}

// RecordItem is one entry on the tree-walker's DFS stack: the anchor
// position of the containing directory (VPapa), that directory's inode
// (Papa), this item's own inode, its basename, its full working-copy
// path, and its current metadata.
type RecordItem struct {
	VPapa    pristine.Position
	Papa     pristine.Inode
	Inode    pristine.Inode
	Basename string
	FullPath string
	Metadata pristine.InodeMetadata
}

// RootItem builds the RecordItem seeding the walk at the repository root.
func RootItem() RecordItem {
	return RecordItem{
		VPapa:    pristine.RootPosition(),
		Papa:     pristine.RootInode,
		Inode:    pristine.RootInode,
		Basename: "",
		FullPath: "",
		Metadata: pristine.NewFileMetadata(true, 0o755),
	}
}
