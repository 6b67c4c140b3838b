package pristine

import "time"

// GraphTxn is the read side of the on-disk key/value transaction store that
// C6, C7, and C8 walk. A concrete implementation lives in package txn; this
// interface is what record, diffcore, and vbuffer depend on instead.
type GraphTxn interface {
	// GetInodes resolves an Inode to its current graph Position, if any.
	GetInodes(inode Inode) (Position, bool)
	// GetRevinodes resolves a Position back to the Inode that owns it.
	GetRevinodes(pos Position) (Inode, bool)
	// GetRevtree resolves an Inode to its (parent, basename) tree entry.
	GetRevtree(inode Inode) (parent Inode, basename string, ok bool)

	// IterTree yields tree entries at or after (parent, basename), in
	// (parent, basename) order, until the iterator is exhausted or the
	// caller stops calling Next.
	IterTree(parent Inode, basename string) TreeIter

	// IterAdjacent yields every edge out of (or into, depending on the
	// channel's graph orientation) vertex whose flags are a superset of
	// required and a subset of allowed.
	IterAdjacent(channel string, v Vertex, required, allowed EdgeFlags) []Edge

	// FindBlock returns the vertex starting at pos.
	FindBlock(channel string, pos Position) (Vertex, bool)
	// FindBlockEnd returns the vertex ending at pos.
	FindBlockEnd(channel string, pos Position) (Vertex, bool)

	// GetExternal resolves a change id to its content hash, once known.
	GetExternal(change Hash) (Hash, bool)

	// LastModified is the rediff threshold: files whose mtime is at or
	// after this instant are always re-diffed even without ForceRediff.
	LastModified(channel string) time.Time

	// NewInode allocates a fresh, never-before-used Inode for a path the
	// walker discovers with no graph history yet. Inode allocation is
	// independent of whether the change being recorded is ever applied.
	NewInode() Inode
}

// TreeIter walks (parent_inode, basename) -> child_inode entries in order.
type TreeIter interface {
	Next() bool
	Parent() Inode
	Basename() string
	Child() Inode
}

// FileMetadata is what a name vertex's content decodes to: the stored
// InodeMetadata, the basename it names, and the detected encoding (nil for
// binary files).
type FileMetadata struct {
	Metadata InodeMetadata
	Basename string
	Encoding *Encoding
}

// ChangeStore is the content-addressed blob store behind every committed
// change: given a vertex, it answers with the bytes it covers or the
// FileMetadata it decodes to.
type ChangeStore interface {
	GetContents(v Vertex) ([]byte, error)
	GetFileMeta(v Vertex) (FileMetadata, error)
}

// WorkingCopy is the filesystem adapter the tree walker reads from.
type WorkingCopy interface {
	// FileMetadata stats path, returning ok=false if it does not exist.
	FileMetadata(path string) (InodeMetadata, bool, error)
	// DecodeFile reads path and detects its encoding; a nil Encoding
	// return means the file is binary.
	DecodeFile(path string) ([]byte, *Encoding, error)
	// ModifiedTime is the path's last-modified instant.
	ModifiedTime(path string) (time.Time, error)
	// Children lists the basenames directly contained in dir, in no
	// particular order. dir == "" lists the repository root.
	Children(dir string) ([]string, error)
}
