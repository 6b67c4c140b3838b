package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pijuldag/recorder/changestore"
	"github.com/pijuldag/recorder/pristine"
)

func TestIterTreeOrderedScanContract(t *testing.T) {
	m := NewMemory(changestore.NewMemStore())
	const parent pristine.Inode = 7
	m.PutTree(parent, "charlie", 10)
	m.PutTree(parent, "alpha", 11)
	m.PutTree(parent, "bravo", 12)
	m.PutTree(parent+1, "zzz", 13) // different parent, must not appear

	var got []string
	it := m.IterTree(parent, "")
	for it.Next() {
		if it.Parent() != parent {
			break
		}
		got = append(got, it.Basename())
	}
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, got)
}

func TestIterTreeStartsAtGivenBasename(t *testing.T) {
	m := NewMemory(changestore.NewMemStore())
	const parent pristine.Inode = 1
	m.PutTree(parent, "a", 1)
	m.PutTree(parent, "b", 2)
	m.PutTree(parent, "c", 3)

	var got []string
	it := m.IterTree(parent, "b")
	for it.Next() {
		if it.Parent() != parent {
			break
		}
		got = append(got, it.Basename())
	}
	assert.Equal(t, []string{"b", "c"}, got)
}

func TestSetInodeAndRevinodesRoundTrip(t *testing.T) {
	m := NewMemory(changestore.NewMemStore())
	var h pristine.Hash
	h[0] = 5
	pos := pristine.Position{Change: &h, Pos: 42}

	m.SetInode(99, pos)
	got, ok := m.GetInodes(99)
	require.True(t, ok)
	assert.Equal(t, pos, got)

	inode, ok := m.GetRevinodes(pos)
	require.True(t, ok)
	assert.Equal(t, pristine.Inode(99), inode)

	m.DeleteInode(99)
	_, ok = m.GetInodes(99)
	assert.False(t, ok)
	_, ok = m.GetRevinodes(pos)
	assert.False(t, ok)
}

func TestPutTreeAndRemoveTree(t *testing.T) {
	m := NewMemory(changestore.NewMemStore())
	m.PutTree(1, "child", 2)

	parent, basename, ok := m.GetRevtree(2)
	require.True(t, ok)
	assert.Equal(t, pristine.Inode(1), parent)
	assert.Equal(t, "child", basename)

	m.RemoveTree(2)
	_, _, ok = m.GetRevtree(2)
	assert.False(t, ok)
}

func TestAddEdgeMaintainsParentMirror(t *testing.T) {
	m := NewMemory(changestore.NewMemStore())
	var h pristine.Hash
	from := pristine.Vertex{Change: h, Start: 0, End: 3}
	to := pristine.Vertex{Change: h, Start: 3, End: 6}

	m.AddEdge("main", pristine.EdgeBlock, from, to, nil)

	forward := m.IterAdjacent("main", from, pristine.EdgeBlock, ^pristine.EdgeFlags(0))
	require.Len(t, forward, 1)
	assert.Equal(t, to, forward[0].To)
	assert.False(t, forward[0].Flag.Has(pristine.EdgeParent))

	mirror := m.IterAdjacent("main", to, pristine.EdgeParent, ^pristine.EdgeFlags(0))
	require.Len(t, mirror, 1)
	assert.Equal(t, from, mirror[0].To)
	assert.True(t, mirror[0].Flag.Has(pristine.EdgeParent))
}
