package record

import (
	"sync"

	"github.com/pijuldag/recorder/pristine"
)

// sharedContents is the per-session contents buffer: every worker appends
// to it, so it is mutex-protected rather than owned by any one Recorded.
type sharedContents struct {
	mu  sync.Mutex
	buf []byte
}

func newSharedContents() *sharedContents { return &sharedContents{} }

// push appends n zero bytes and returns the offset of the first one.
func (c *sharedContents) push(n int) pristine.ChangePosition {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := pristine.ChangePosition(len(c.buf))
	for i := 0; i < n; i++ {
		c.buf = append(c.buf, 0)
	}
	return pos
}

// append writes b at the current end of the buffer and returns its start
// offset.
func (c *sharedContents) append(b []byte) pristine.ChangePosition {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := pristine.ChangePosition(len(c.buf))
	c.buf = append(c.buf, b...)
	return pos
}

// truncate discards every byte from pos onward — used when a speculative
// metadata write is abandoned. Bytes are never overwritten, only
// truncated back to a previously recorded offset.
func (c *sharedContents) truncate(pos pristine.ChangePosition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = c.buf[:pos]
}

func (c *sharedContents) len() pristine.ChangePosition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pristine.ChangePosition(len(c.buf))
}

func (c *sharedContents) bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.buf))
	copy(out, c.buf)
	return out
}

// sharedRecordedInodes caches Inode -> Position across the whole session,
// so that a second visit to the same inode (possible when two stack
// entries race to resolve it) does not redo the work.
type sharedRecordedInodes struct {
	mu sync.Mutex
	m  map[pristine.Inode]pristine.Position
}

func newSharedRecordedInodes() *sharedRecordedInodes {
	return &sharedRecordedInodes{m: make(map[pristine.Inode]pristine.Position)}
}

func (s *sharedRecordedInodes) get(i pristine.Inode) (pristine.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[i]
	return p, ok
}

func (s *sharedRecordedInodes) set(i pristine.Inode, p pristine.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[i] = p
}

// sharedDeletedVertices dedups recursive-deletion visits to the same inode
// vertex across the whole session.
type sharedDeletedVertices struct {
	mu sync.Mutex
	m  map[pristine.Vertex]bool
}

func newSharedDeletedVertices() *sharedDeletedVertices {
	return &sharedDeletedVertices{m: make(map[pristine.Vertex]bool)}
}

// insert returns true iff v was not already present.
func (s *sharedDeletedVertices) insert(v pristine.Vertex) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m[v] {
		return false
	}
	s.m[v] = true
	return true
}
