// Package workingcopy implements pristine.WorkingCopy: the filesystem
// adapter the tree walker reads from. Mem is an in-memory implementation
// used throughout this repository's tests, in the same spirit as the
// teacher's tests building an in-memory filesystem rather than touching
// disk. OS is a thin os-backed implementation for real use.
package workingcopy

import (
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pijuldag/recorder/pristine"
)

// memFile is one entry in a Mem working copy.
type memFile struct {
	isDir    bool
	perm     uint16
	contents []byte
	modified time.Time
}

// Mem is an in-memory, map-backed WorkingCopy.
type Mem struct {
	mu    sync.RWMutex
	files map[string]*memFile
}

// NewMem returns an empty in-memory working copy.
func NewMem() *Mem {
	return &Mem{files: make(map[string]*memFile)}
}

// WriteFile sets or replaces a regular file's contents.
func (m *Mem) WriteFile(path string, contents []byte, perm uint16, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &memFile{perm: perm, contents: contents, modified: at}
}

// Mkdir records a directory entry.
func (m *Mem) Mkdir(path string, perm uint16, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &memFile{isDir: true, perm: perm, modified: at}
}

// Remove deletes a path from the working copy.
func (m *Mem) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// Children implements pristine.WorkingCopy: the basenames directly
// contained in dir, sorted.
func (m *Mem) Children(dir string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for p := range m.files {
		if parentOf(p) == dir {
			out = append(out, basenameOf(p))
		}
	}
	sort.Strings(out)
	return out, nil
}

func basenameOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func parentOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

// FileMetadata implements pristine.WorkingCopy.
func (m *Mem) FileMetadata(path string) (pristine.InodeMetadata, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return 0, false, nil
	}
	return pristine.NewFileMetadata(f.isDir, f.perm), true, nil
}

// DecodeFile implements pristine.WorkingCopy. A file is treated as binary
// (Encoding == nil) iff it contains invalid UTF-8 — standing in for the
// spec's external encoding detector, which this repository does not
// reimplement in full.
func (m *Mem) DecodeFile(path string) ([]byte, *pristine.Encoding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, nil, &pathError{path}
	}
	if !utf8.Valid(f.contents) {
		return f.contents, nil, nil
	}
	return f.contents, &pristine.Encoding{Name: "UTF-8"}, nil
}

// ModifiedTime implements pristine.WorkingCopy.
func (m *Mem) ModifiedTime(path string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return time.Time{}, &pathError{path}
	}
	return f.modified, nil
}

type pathError struct{ path string }

func (e *pathError) Error() string { return "workingcopy: no such path " + e.path }

var _ pristine.WorkingCopy = (*Mem)(nil)
