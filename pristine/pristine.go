// Package pristine defines the data model shared by every component of the
// change-recording core: positions, vertices, inodes, edge flags, and the
// output vocabulary (NewVertex, NewEdge, EdgeMap, Atom, Hunk) that a
// recording session appends to.
package pristine

import "fmt"

// Hash identifies a change by content. No real change ever hashes to the
// zero value, which is reserved as the root sentinel (see RootPosition)
// and as the "no introducing change" default for Edge.IntroducedBy.
type Hash [32]byte

func (h Hash) String() string {
	return fmt.Sprintf("%x", h[:8])
}

// ChangePosition is an offset into a change's in-progress contents buffer.
type ChangePosition uint64

// Position is (change, offset). Change == nil means "this change, resolved
// after signing" — the in-progress change being recorded. A non-nil Change
// names a change that is already committed to history.
type Position struct {
	Change *Hash
	Pos    ChangePosition
}

// IsThisChange reports whether p refers to the change currently being
// recorded, as opposed to a previously committed one.
func (p Position) IsThisChange() bool { return p.Change == nil }

// Equal compares Positions by value. Change is a pointer so that a nil
// Position can mean "this change," which makes Go's built-in == compare
// pointer identity instead of the hash it points to — every posOfVertex
// call mints a fresh *Hash, so two value-equal Positions built separately
// would otherwise never compare equal.
func (p Position) Equal(o Position) bool {
	if p.Pos != o.Pos {
		return false
	}
	if p.Change == nil || o.Change == nil {
		return p.Change == o.Change
	}
	return *p.Change == *o.Change
}

// rootHash is the fixed, content-independent hash backing the repository
// root's position. Every channel shares this single value, so a root-level
// file's recorded grandparent compares equal across sessions no matter
// which change most recently touched a sibling.
var rootHash Hash

// RootPosition is the repository root directory's position: a single
// well-known value every change anchors its top-level folder edges to, the
// Position-side counterpart to RootInode on the inode side. Unlike a nil
// Change, it is never "resolved after signing" — it names a real, if
// content-free, vertex that already exists before the first change ever
// touches the channel.
func RootPosition() Position {
	return Position{Change: &rootHash, Pos: 0}
}

func (p Position) String() string {
	if p.Change == nil {
		return fmt.Sprintf("this:%d", p.Pos)
	}
	return fmt.Sprintf("%s:%d", p.Change, p.Pos)
}

// Vertex denotes the byte range [Start, End) of a content chunk belonging to
// Change. Start == End marks an inode vertex: a dimensionless anchor
// identifying a file or directory rather than a span of bytes.
type Vertex struct {
	Change Hash
	Start  ChangePosition
	End    ChangePosition
}

// IsInode reports whether v is a zero-width inode anchor.
func (v Vertex) IsInode() bool { return v.Start == v.End }

// StartPos is the Position of the first byte of v (or, for an inode vertex,
// its sole anchor position).
func (v Vertex) StartPos() Position {
	h := v.Change
	return Position{Change: &h, Pos: v.Start}
}

func (v Vertex) String() string {
	return fmt.Sprintf("%s[%d,%d)", v.Change, v.Start, v.End)
}

// Inode is an opaque local identifier, never persisted across channels.
type Inode uint64

// RootInode is the identifier of the repository root directory.
const RootInode Inode = 0

// EdgeFlags is a bitset of edge kinds. Every non-Folder edge represents
// content adjacency; Folder edges represent tree structure.
type EdgeFlags uint8

const (
	EdgeBlock   EdgeFlags = 1 << iota // content adjacency
	EdgeFolder                        // tree structure
	EdgeParent                        // mirror of a forward edge
	EdgeDeleted                       // logically absent, kept for history
	EdgePseudo                        // apply-phase reachability shortcut; never emitted by recording
)

// Has reports whether flags contains every bit in want.
func (f EdgeFlags) Has(want EdgeFlags) bool { return f&want == want }

// HasNone reports whether flags contains none of the bits in forbid.
func (f EdgeFlags) HasNone(forbid EdgeFlags) bool { return f&forbid == 0 }

func (f EdgeFlags) String() string {
	s := ""
	for _, b := range []struct {
		f EdgeFlags
		n string
	}{
		{EdgeBlock, "BLOCK"}, {EdgeFolder, "FOLDER"}, {EdgeParent, "PARENT"},
		{EdgeDeleted, "DELETED"}, {EdgePseudo, "PSEUDO"},
	} {
		if f.Has(b.f) {
			if s != "" {
				s += "|"
			}
			s += b.n
		}
	}
	if s == "" {
		return "0"
	}
	return s
}

// Edge is a committed edge as stored in a channel's graph, as opposed to a
// NewEdge which describes a flag transition still being recorded.
type Edge struct {
	Flag         EdgeFlags
	From, To     Vertex
	IntroducedBy Hash
}

// NewVertex introduces bytes [Start, End) into the contents buffer, anchored
// into the graph by UpContext/DownContext, with Flag describing whether it
// is folder/block content and Inode giving the position of the inode vertex
// of the file it belongs to (for a name vertex, the inode it names).
type NewVertex struct {
	UpContext   []Position
	DownContext []Position
	Start       ChangePosition
	End         ChangePosition
	Flag        EdgeFlags
	Inode       Position
}

func (NewVertex) isAtom() {}

// NewEdge is a single flag-transition for one edge between From and To.
// Previous is the prior flag set (never including EdgeParent); IntroducedBy
// names the change that first created the edge, if known.
type NewEdge struct {
	Previous     EdgeFlags
	Flag         EdgeFlags
	From, To     Position
	IntroducedBy *Hash
}

// EdgeMap is a bag of NewEdges sharing one owning inode.
type EdgeMap struct {
	Inode Position
	Edges []NewEdge
}

func (EdgeMap) isAtom() {}

// Atom is either a NewVertex or an EdgeMap: one elementary graph mutation.
type Atom interface {
	isAtom()
}

var (
	_ Atom = NewVertex{}
	_ Atom = EdgeMap{}
)

// InodeMetadata is the portion of filesystem metadata recorded alongside a
// name vertex: permission bits plus the is-directory/is-executable facts a
// move or diff needs to detect a meaningful metadata change.
type InodeMetadata uint16

const (
	metaDirBit  InodeMetadata = 1 << 15
	metaPermMask               = 0o777
)

// NewFileMetadata builds an InodeMetadata for a regular file or directory.
func NewFileMetadata(isDir bool, perm uint16) InodeMetadata {
	m := InodeMetadata(perm) & metaPermMask
	if isDir {
		m |= metaDirBit
	}
	return m
}

// IsDir reports whether m describes a directory.
func (m InodeMetadata) IsDir() bool { return m&metaDirBit != 0 }

// Permissions returns the low 9 permission bits.
func (m InodeMetadata) Permissions() uint16 { return uint16(m) & metaPermMask }
