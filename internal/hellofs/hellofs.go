// Package hellofs is a read-only file system with a single file in its
// root directory.
package hellofs

import (
	"path"
	"syscall"

	"github.com/objectfs/fuse2go/pkg/fuse2"
)

const (
	DefaultName = "test"
	DefaultText = "Hello World\n"
)

// FS serves one regular file named Name containing Text.
type FS struct {
	Name string
	Text []byte
}

// New returns a file system with the given file. Empty arguments fall
// back to DefaultName and DefaultText.
func New(name, text string) *FS {
	if name == "" {
		name = DefaultName
	}
	if text == "" {
		text = DefaultText
	}
	return &FS{Name: name, Text: []byte(text)}
}

func (f *FS) file() string {
	return path.Join("/", f.Name)
}

func (f *FS) Getattr(_ *fuse2.Request, p string) (fuse2.FileAttr, error) {
	attr := fuse2.NewFileAttr()
	switch p {
	case "/":
		attr.Kind = fuse2.Directory
		attr.Perm = 0o755
		attr.Size = 512
		attr.Nlink = 2
	case f.file():
		attr.Perm = 0o644
		attr.Size = uint64(len(f.Text))
	default:
		return fuse2.FileAttr{}, syscall.ENOENT
	}
	return attr, nil
}

func (f *FS) Readdir(_ *fuse2.Request, p string, off uint64, fill fuse2.DirFiller, _ fuse2.FileInfo) error {
	if p != "/" {
		return syscall.ENOENT
	}
	if off != 0 {
		return nil
	}
	for _, name := range []string{".", "..", f.Name} {
		if !fill.Push(name) {
			break
		}
	}
	return nil
}

func (f *FS) Read(_ *fuse2.Request, p string, off uint64, buf []byte, _ fuse2.FileInfo) (int, error) {
	if p != f.file() {
		return 0, syscall.ENOENT
	}
	if off >= uint64(len(f.Text)) {
		return 0, nil
	}
	return copy(buf, f.Text[off:]), nil
}

// Open refuses write access.
func (f *FS) Open(_ *fuse2.Request, p string, fi *fuse2.FileInfo) error {
	if p != f.file() {
		return syscall.ENOENT
	}
	if fi.Flags&syscall.O_ACCMODE != syscall.O_RDONLY {
		return syscall.EACCES
	}
	return nil
}

func (f *FS) Statfs(*fuse2.Request, string) (fuse2.Statfs, error) {
	return fuse2.Statfs{
		Bsize:  512,
		Frsize: 512,
		Blocks: 1,
		Files:  2,
	}, nil
}
