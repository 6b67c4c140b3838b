package changestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pijuldag/recorder/pristine"
)

func TestFileMetadataRoundTripText(t *testing.T) {
	fm := pristine.FileMetadata{
		Metadata: pristine.NewFileMetadata(false, 0o644),
		Basename: "hello.txt",
		Encoding: &pristine.Encoding{Name: "UTF-8"},
	}
	got, err := ReadFileMetadata(WriteFileMetadata(fm))
	require.NoError(t, err)
	assert.Equal(t, fm, got)
}

func TestFileMetadataRoundTripBinary(t *testing.T) {
	fm := pristine.FileMetadata{
		Metadata: pristine.NewFileMetadata(false, 0o755),
		Basename: "tool.bin",
	}
	got, err := ReadFileMetadata(WriteFileMetadata(fm))
	require.NoError(t, err)
	assert.Equal(t, fm, got)
	assert.Nil(t, got.Encoding)
}

func TestFileMetadataRoundTripDirectory(t *testing.T) {
	fm := pristine.FileMetadata{
		Metadata: pristine.NewFileMetadata(true, 0o755),
		Basename: "src",
	}
	got, err := ReadFileMetadata(WriteFileMetadata(fm))
	require.NoError(t, err)
	assert.True(t, got.Metadata.IsDir())
	assert.Equal(t, fm, got)
}

func TestReadFileMetadataRejectsShortBuffer(t *testing.T) {
	_, err := ReadFileMetadata([]byte{1, 2})
	assert.Error(t, err)
}

func TestHashContentsIsDeterministic(t *testing.T) {
	a := HashContents([]byte("same bytes"))
	b := HashContents([]byte("same bytes"))
	c := HashContents([]byte("different bytes"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestMemStoreGetContentsRange(t *testing.T) {
	s := NewMemStore()
	var h pristine.Hash
	h[0] = 1
	s.PutChange(h, []byte("0123456789"))

	v := pristine.Vertex{Change: h, Start: 2, End: 5}
	b, err := s.GetContents(v)
	require.NoError(t, err)
	assert.Equal(t, "234", string(b))
}

func TestMemStoreGetContentsUnknownChange(t *testing.T) {
	s := NewMemStore()
	_, err := s.GetContents(pristine.Vertex{})
	assert.Error(t, err)
}

func TestMemStoreGetContentsOutOfRange(t *testing.T) {
	s := NewMemStore()
	var h pristine.Hash
	s.PutChange(h, []byte("abc"))
	_, err := s.GetContents(pristine.Vertex{Change: h, Start: 0, End: 10})
	assert.Error(t, err)
}
