package pristine

// Encoding names the text encoding detected for a file's content, or nil for
// a binary file diffed by the rolling-hash chunker instead of by lines.
type Encoding struct {
	Name string
}

// Hunk is one atomic edit in the output change. The six variants below are
// exactly the ones named in the data model: two structural additions/moves
// (FileAdd, FileMove), one removal (FileDel, via recursive deletion or
// obsolete-child pruning), one restoration (FileUndel), one pure
// folder-edge rewrite with no content implication (SolveNameConflict), and
// one content-level edit (Edit, emitted by the delete/replace translators).
type Hunk interface {
	isHunk()
}

// FileAdd introduces a brand-new file or directory: a name vertex anchored
// under the parent, a zero-length inode vertex below it, and (for regular
// files) a content vertex covering the decoded bytes.
type FileAdd struct {
	AddName  NewVertex
	AddInode NewVertex
	Contents *NewVertex // nil for directories
	Path     string
	Encoding *Encoding
}

func (FileAdd) isHunk() {}

// FileDel deletes the folder edges pointing at an inode (and, when Contents
// is non-nil, the content edges inside its subgraph as well).
type FileDel struct {
	Del      EdgeMap
	Contents *EdgeMap
	Path     string
	Encoding *Encoding
}

func (FileDel) isHunk() {}

// FileMove reassigns a file to a new parent/basename by deleting the old
// folder edges and introducing a fresh name vertex.
type FileMove struct {
	Del  EdgeMap
	Add  NewVertex
	Path string
}

func (FileMove) isHunk() {}

// FileUndel clears DELETED on the folder edges of a file being restored
// because the working copy re-introduced a name identical to one that was
// previously deleted.
type FileUndel struct {
	Resurrect EdgeMap
	Path      string
}

func (FileUndel) isHunk() {}

// SolveNameConflict rewrites folder edges without introducing any new name
// vertex: the existing name vertex already matches.
type SolveNameConflict struct {
	Name EdgeMap
	Path string
}

func (SolveNameConflict) isHunk() {}

// Edit is the content-level hunk produced jointly by the delete translator
// (Del) and the replace translator (Add), sharing one ConflictContexts
// frame so that a delete-then-replace pair within the same diff pass
// attaches to consistent conflict sides. Del is nil when the hunk is a pure
// insertion (old_len == 0); Add is nil when the hunk is a pure deletion
// (new_len == 0).
type Edit struct {
	Del *EdgeMap
	Add *NewVertex
	Path string
}

func (Edit) isHunk() {}

var (
	_ Hunk = FileAdd{}
	_ Hunk = FileDel{}
	_ Hunk = FileMove{}
	_ Hunk = FileUndel{}
	_ Hunk = SolveNameConflict{}
	_ Hunk = Edit{}
)
