// Package changestore provides an in-memory, content-addressed
// implementation of pristine.ChangeStore keyed by a blake3 hash of the
// bytes it holds, so that record and diffcore can be exercised without a
// real on-disk change format.
package changestore

import (
	"fmt"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/pijuldag/recorder/pristine"
)

// MemStore is a single-process, in-memory change store. Each committed
// change is registered with its full contents buffer; vertices are
// resolved by slicing that buffer at [Start, End).
type MemStore struct {
	mu      sync.RWMutex
	changes map[pristine.Hash][]byte
	meta    map[pristine.Vertex]pristine.FileMetadata
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		changes: make(map[pristine.Hash][]byte),
		meta:    make(map[pristine.Vertex]pristine.FileMetadata),
	}
}

// HashContents computes the content hash used to key a change.
func HashContents(b []byte) pristine.Hash {
	return pristine.Hash(blake3.Sum256(b))
}

// PutChange registers a change's full contents buffer under its hash.
func (s *MemStore) PutChange(h pristine.Hash, contents []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes[h] = contents
}

// PutFileMeta records the FileMetadata a name vertex decodes to. Real
// change stores derive this by parsing the serialized bytes at the
// vertex's range (see WriteFileMetadata/ReadFileMetadata); the in-memory store keeps
// it pre-parsed to avoid re-implementing that parse at every call site.
func (s *MemStore) PutFileMeta(v pristine.Vertex, fm pristine.FileMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[v] = fm
}

// GetContents implements pristine.ChangeStore.
func (s *MemStore) GetContents(v pristine.Vertex) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf, ok := s.changes[v.Change]
	if !ok {
		return nil, fmt.Errorf("changestore: unknown change %s", v.Change)
	}
	if int(v.End) > len(buf) || v.Start > v.End {
		return nil, fmt.Errorf("changestore: vertex %s out of range (len %d)", v, len(buf))
	}
	return buf[v.Start:v.End], nil
}

// GetFileMeta implements pristine.ChangeStore.
func (s *MemStore) GetFileMeta(v pristine.Vertex) (pristine.FileMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fm, ok := s.meta[v]
	if !ok {
		return pristine.FileMetadata{}, fmt.Errorf("changestore: no file metadata for %s", v)
	}
	return fm, nil
}

var _ pristine.ChangeStore = (*MemStore)(nil)
