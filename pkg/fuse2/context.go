package fuse2

import (
	"fmt"

	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/errors"
)

// request resolves the mount behind ctx.PrivateData and snapshots the
// caller identity.
func request(ctx *native.Context) (*mount, *Request, error) {
	if ctx == nil {
		return nil, nil, errors.NewError(errors.ErrCodeInvalidState, "no request context").
			WithComponent("fuse2")
	}
	m, ok := ctx.PrivateData.Value().(*mount)
	if !ok || m == nil {
		return nil, nil, errors.NewError(errors.ErrCodeInvalidState,
			fmt.Sprintf("private data %d is not a mount", uintptr(ctx.PrivateData))).
			WithComponent("fuse2")
	}
	return m, &Request{
		Uid:   ctx.Uid,
		Gid:   ctx.Gid,
		Pid:   int(ctx.Pid),
		Umask: ctx.Umask,
	}, nil
}
