package changestore

import (
	"encoding/binary"
	"fmt"

	"github.com/pijuldag/recorder/pristine"
)

// WriteFileMetadata serializes fm into the fixed on-graph format: a 2-byte
// InodeMetadata header, a 2-byte basename length, the basename's UTF-8
// bytes, then a 1-byte encoding tag (0 = binary, 1 = present) followed by
// the encoding name when present.
func WriteFileMetadata(fm pristine.FileMetadata) []byte {
	out := make([]byte, 2, 2+2+len(fm.Basename)+1)
	binary.BigEndian.PutUint16(out, uint16(fm.Metadata))

	nameLen := make([]byte, 2)
	binary.BigEndian.PutUint16(nameLen, uint16(len(fm.Basename)))
	out = append(out, nameLen...)
	out = append(out, fm.Basename...)

	if fm.Encoding == nil {
		out = append(out, 0)
	} else {
		out = append(out, 1)
		out = append(out, fm.Encoding.Name...)
	}
	return out
}

// ReadFileMetadata is the inverse of WriteFileMetadata.
func ReadFileMetadata(b []byte) (pristine.FileMetadata, error) {
	if len(b) < 4 {
		return pristine.FileMetadata{}, fmt.Errorf("filemeta: short buffer (%d bytes)", len(b))
	}
	meta := pristine.InodeMetadata(binary.BigEndian.Uint16(b))
	nameLen := int(binary.BigEndian.Uint16(b[2:4]))
	b = b[4:]
	if len(b) < nameLen+1 {
		return pristine.FileMetadata{}, fmt.Errorf("filemeta: truncated basename")
	}
	basename := string(b[:nameLen])
	b = b[nameLen:]

	tag := b[0]
	b = b[1:]
	var enc *pristine.Encoding
	if tag != 0 {
		enc = &pristine.Encoding{Name: string(b)}
	}
	return pristine.FileMetadata{Metadata: meta, Basename: basename, Encoding: enc}, nil
}
