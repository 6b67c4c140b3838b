// Package txn provides Memory, an in-memory reference implementation of
// pristine.GraphTxn plus an Apply method that folds a finished recording
// session back into the graph — closing the loop so record/apply/record
// round-trip tests can run without a real on-disk pristine store.
//
// The tree table is backed by an emirpasic/gods ordered treemap keyed by
// (parent inode, basename), which gives the ordered-scan contract the data
// model requires for free from the map's in-order iterator.
package txn

import (
	"time"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/pijuldag/recorder/changestore"
	"github.com/pijuldag/recorder/pristine"
)

type treeKey struct {
	Parent   pristine.Inode
	Basename string
}

func treeKeyCompare(a, b interface{}) int {
	ka, kb := a.(treeKey), b.(treeKey)
	if ka.Parent != kb.Parent {
		if ka.Parent < kb.Parent {
			return -1
		}
		return 1
	}
	if ka.Basename < kb.Basename {
		return -1
	}
	if ka.Basename > kb.Basename {
		return 1
	}
	return 0
}

// posKey is a comparable stand-in for pristine.Position, which embeds a
// pointer and so cannot be used as a map key directly.
type posKey struct {
	thisChange bool
	hash       pristine.Hash
	pos        pristine.ChangePosition
}

func keyOf(p pristine.Position) posKey {
	if p.Change == nil {
		return posKey{thisChange: true, pos: p.Pos}
	}
	return posKey{hash: *p.Change, pos: p.Pos}
}

// Memory is an in-memory GraphTxn plus mutation methods used to seed test
// fixtures and an Apply method used to fold recorded hunks back in.
type Memory struct {
	inodes    map[pristine.Inode]pristine.Position
	revinodes map[posKey]pristine.Inode
	revtree   map[pristine.Inode]treeKey
	tree      *treemap.Map // treeKey -> pristine.Inode

	// adjacency[channel][vertex] is every edge stored at vertex, in both
	// the forward direction (no EdgeParent bit) and the mirror direction
	// (EdgeParent bit set, pointing back at the edge's origin).
	adjacency map[string]map[pristine.Vertex][]pristine.Edge

	external     map[pristine.Hash]pristine.Hash
	lastModified map[string]time.Time

	nextInode pristine.Inode
	Store     *changestore.MemStore
}

// NewMemory returns an empty in-memory transaction backed by store.
func NewMemory(store *changestore.MemStore) *Memory {
	return &Memory{
		inodes:       make(map[pristine.Inode]pristine.Position),
		revinodes:    make(map[posKey]pristine.Inode),
		revtree:      make(map[pristine.Inode]treeKey),
		tree:         treemap.NewWith(treeKeyCompare),
		adjacency:    make(map[string]map[pristine.Vertex][]pristine.Edge),
		external:     make(map[pristine.Hash]pristine.Hash),
		lastModified: make(map[string]time.Time),
		nextInode:    pristine.RootInode + 1,
		Store:        store,
	}
}

// NewInode allocates a fresh, never-before-used Inode.
func (m *Memory) NewInode() pristine.Inode {
	i := m.nextInode
	m.nextInode++
	return i
}

// SetInode registers inode -> pos and its reverse mapping.
func (m *Memory) SetInode(inode pristine.Inode, pos pristine.Position) {
	m.inodes[inode] = pos
	m.revinodes[keyOf(pos)] = inode
}

// DeleteInode removes inode's forward and reverse mapping.
func (m *Memory) DeleteInode(inode pristine.Inode) {
	if pos, ok := m.inodes[inode]; ok {
		delete(m.revinodes, keyOf(pos))
	}
	delete(m.inodes, inode)
}

// PutTree registers a (parent, basename) -> child tree entry.
func (m *Memory) PutTree(parent pristine.Inode, basename string, child pristine.Inode) {
	k := treeKey{parent, basename}
	m.tree.Put(k, child)
	m.revtree[child] = k
}

// RemoveTree removes child's tree entry.
func (m *Memory) RemoveTree(child pristine.Inode) {
	if k, ok := m.revtree[child]; ok {
		m.tree.Remove(k)
		delete(m.revtree, child)
	}
}

// AddEdge records a committed edge flag..from..to plus its PARENT mirror.
func (m *Memory) AddEdge(channel string, flag pristine.EdgeFlags, from, to pristine.Vertex, introducedBy *pristine.Hash) {
	if m.adjacency[channel] == nil {
		m.adjacency[channel] = make(map[pristine.Vertex][]pristine.Edge)
	}
	m.adjacency[channel][from] = append(m.adjacency[channel][from], pristine.Edge{
		Flag: flag, From: from, To: to, IntroducedBy: derefOr(introducedBy),
	})
	mirror := (flag &^ pristine.EdgeParent) | pristine.EdgeParent
	m.adjacency[channel][to] = append(m.adjacency[channel][to], pristine.Edge{
		Flag: mirror, From: to, To: from, IntroducedBy: derefOr(introducedBy),
	})
}

func derefOr(h *pristine.Hash) pristine.Hash {
	if h == nil {
		return pristine.Hash{}
	}
	return *h
}

// SetLastModified sets the rediff threshold for a channel.
func (m *Memory) SetLastModified(channel string, t time.Time) {
	m.lastModified[channel] = t
}

// --- pristine.GraphTxn ---

func (m *Memory) GetInodes(inode pristine.Inode) (pristine.Position, bool) {
	p, ok := m.inodes[inode]
	return p, ok
}

func (m *Memory) GetRevinodes(pos pristine.Position) (pristine.Inode, bool) {
	i, ok := m.revinodes[keyOf(pos)]
	return i, ok
}

func (m *Memory) GetRevtree(inode pristine.Inode) (pristine.Inode, string, bool) {
	k, ok := m.revtree[inode]
	if !ok {
		return 0, "", false
	}
	return k.Parent, k.Basename, true
}

func (m *Memory) IterTree(parent pristine.Inode, basename string) pristine.TreeIter {
	it := m.tree.Iterator()
	start := treeKey{parent, basename}
	for it.Next() {
		if treeKeyCompare(it.Key(), start) >= 0 {
			return &treeIter{it: it, started: true, first: true}
		}
	}
	return &treeIter{it: it, started: true, done: true}
}

type treeIter struct {
	it      treemap.Iterator
	started bool
	first   bool
	done    bool
}

func (t *treeIter) Next() bool {
	if t.done {
		return false
	}
	if t.first {
		t.first = false
		return true
	}
	return t.it.Next()
}

func (t *treeIter) Parent() pristine.Inode   { return t.it.Key().(treeKey).Parent }
func (t *treeIter) Basename() string         { return t.it.Key().(treeKey).Basename }
func (t *treeIter) Child() pristine.Inode    { return t.it.Value().(pristine.Inode) }

func (m *Memory) IterAdjacent(channel string, v pristine.Vertex, required, allowed pristine.EdgeFlags) []pristine.Edge {
	var out []pristine.Edge
	for _, e := range m.adjacency[channel][v] {
		if e.Flag.Has(required) && e.Flag&^allowed == 0 {
			out = append(out, e)
		}
	}
	return out
}

func (m *Memory) FindBlock(channel string, pos pristine.Position) (pristine.Vertex, bool) {
	for v := range m.adjacency[channel] {
		if v.Change == derefOr(pos.Change) && v.Start == pos.Pos {
			return v, true
		}
	}
	return pristine.Vertex{}, false
}

func (m *Memory) FindBlockEnd(channel string, pos pristine.Position) (pristine.Vertex, bool) {
	for v := range m.adjacency[channel] {
		if v.Change == derefOr(pos.Change) && v.End == pos.Pos {
			return v, true
		}
	}
	return pristine.Vertex{}, false
}

func (m *Memory) GetExternal(change pristine.Hash) (pristine.Hash, bool) {
	h, ok := m.external[change]
	return h, ok
}

func (m *Memory) LastModified(channel string) time.Time {
	return m.lastModified[channel]
}

var _ pristine.GraphTxn = (*Memory)(nil)
