package fuse2

import (
	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/errors"
)

// DirFiller receives the entries of one Readdir call.
type DirFiller interface {
	// Push adds an entry and reports whether there is room for more.
	// Once Push returns false the listing must stop; the kernel asks
	// again with the offset of the first entry it did not get.
	Push(name string) bool
}

type dirFiller struct {
	fill     native.FillDir
	err      error
	rejected bool
	pushed   int
}

func newDirFiller(fill native.FillDir) *dirFiller {
	return &dirFiller{fill: fill}
}

func (d *dirFiller) Push(name string) bool {
	if d.rejected || d.fill == nil {
		return false
	}

	cname, err := native.CString(name)
	if err != nil {
		d.err = errors.Wrap(err, errors.ErrCodePathInvalid, "invalid directory entry name").
			WithComponent("fuse2").
			WithOperation("readdir")
		d.rejected = true
		return false
	}

	if d.fill(cname, nil, 0) != 0 {
		d.rejected = true
		return false
	}
	d.pushed++
	return true
}
