package workingcopy

import (
	"os"
	"time"
	"unicode/utf8"

	"github.com/pijuldag/recorder/pristine"
)

// OS is a WorkingCopy backed by the real filesystem, rooted at Root. It
// plays the role the teacher's RealDiskInterface plays for build state:
// a thin, uncached pass-through to the operating system.
type OS struct {
	Root string
}

func (o *OS) resolve(path string) string {
	if o.Root == "" {
		return path
	}
	return o.Root + "/" + path
}

// FileMetadata implements pristine.WorkingCopy.
func (o *OS) FileMetadata(path string) (pristine.InodeMetadata, bool, error) {
	fi, err := os.Lstat(o.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return pristine.NewFileMetadata(fi.IsDir(), uint16(fi.Mode().Perm())), true, nil
}

// DecodeFile implements pristine.WorkingCopy.
func (o *OS) DecodeFile(path string) ([]byte, *pristine.Encoding, error) {
	b, err := os.ReadFile(o.resolve(path))
	if err != nil {
		return nil, nil, err
	}
	if !utf8.Valid(b) {
		return b, nil, nil
	}
	return b, &pristine.Encoding{Name: "UTF-8"}, nil
}

// ModifiedTime implements pristine.WorkingCopy.
func (o *OS) ModifiedTime(path string) (time.Time, error) {
	fi, err := os.Lstat(o.resolve(path))
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// Children implements pristine.WorkingCopy via os.ReadDir.
func (o *OS) Children(dir string) ([]string, error) {
	entries, err := os.ReadDir(o.resolve(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out, nil
}

var _ pristine.WorkingCopy = (*OS)(nil)
