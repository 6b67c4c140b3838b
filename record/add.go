package record

import (
	"github.com/pijuldag/recorder/changestore"
	"github.com/pijuldag/recorder/pristine"
)

// addFile is C7a: it allocates a fresh inode position in the shared
// contents buffer, decodes the working-copy file (tracking largest-file
// and binary-file counters for regular files), serializes its
// FileMetadata, and emits a FileAdd hunk wiring a name vertex, a
// zero-length inode vertex, and — for regular files — a content vertex
// together. It returns the new inode position.
func (r *Recorded) addFile(wc pristine.WorkingCopy, item RecordItem, isDir bool) (pristine.Position, error) {
	r.contents.push(1)
	p := r.contents.len()
	r.contents.push(1)
	inodePos := pristine.Position{Pos: p}

	var contentsVertex *pristine.NewVertex
	var encoding *pristine.Encoding
	if !isDir {
		decoded, enc, err := wc.DecodeFile(item.FullPath)
		if err != nil {
			return pristine.Position{}, wrap(ErrWorkingCopy, item.FullPath, err)
		}
		encoding = enc
		if uint64(len(decoded)) > r.LargestFile {
			r.LargestFile = uint64(len(decoded))
		}
		if encoding == nil {
			r.HasBinaryFiles = true
		}
		if len(decoded) > 0 {
			start := r.contents.append(decoded)
			end := start + pristine.ChangePosition(len(decoded))
			contentsVertex = &pristine.NewVertex{
				UpContext: []pristine.Position{inodePos},
				Start:     start,
				End:       end,
				Flag:      pristine.EdgeBlock,
				Inode:     inodePos,
			}
		}
	}

	metaBytes := changestore.WriteFileMetadata(pristine.FileMetadata{
		Metadata: item.Metadata,
		Basename: item.Basename,
		Encoding: encoding,
	})
	r.contents.push(1)
	metaStart := r.contents.append(metaBytes)
	metaEnd := metaStart + pristine.ChangePosition(len(metaBytes))
	r.contents.push(1)
	nameVertexPos := pristine.Position{Pos: metaStart}

	addName := pristine.NewVertex{
		UpContext: []pristine.Position{item.VPapa},
		Start:     metaStart,
		End:       metaEnd,
		Flag:      pristine.EdgeFolder | pristine.EdgeBlock,
		Inode:     inodePos,
	}
	addInode := pristine.NewVertex{
		UpContext: []pristine.Position{nameVertexPos},
		Start:     p,
		End:       p,
		Flag:      pristine.EdgeFolder | pristine.EdgeBlock,
		Inode:     inodePos,
	}

	idx := r.emit(pristine.FileAdd{
		AddName:  addName,
		AddInode: addInode,
		Contents: contentsVertex,
		Path:     item.FullPath,
		Encoding: encoding,
	})
	r.Updatables[idx] = InodeUpdate{Add: &InodeAdd{Pos: p, Inode: item.Inode}}
	r.recordedInodes.set(item.Inode, inodePos)

	return inodePos, nil
}
