package fuse2_test

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/fuse2go/internal/hellofs"
	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/errors"
	"github.com/objectfs/fuse2go/pkg/fuse2"
	"github.com/objectfs/fuse2go/pkg/utils"
)

// fakeKernel drives the slot table the way a runtime would for a short
// session: init, the checks in run, destroy.
func fakeKernel(run func(ctx *native.Context, ops *native.Operations)) native.MainFunc {
	return func(argv [][]byte, ops *native.Operations, userData native.Handle) int {
		ctx := &native.Context{Uid: 1000, Gid: 1000, Pid: 1, PrivateData: userData}
		ctx.PrivateData = ops.Init(ctx, &native.ConnInfo{ProtoMajor: 7, ProtoMinor: 26})
		run(ctx, ops)
		ops.Destroy(ctx, ctx.PrivateData)
		return 0
	}
}

func TestMountHelloFS(t *testing.T) {
	t.Parallel()

	var argv []string
	ran := false
	kernel := fakeKernel(func(ctx *native.Context, ops *native.Operations) {
		ran = true

		var st native.Stat
		require.Equal(t, 0, ops.Getattr(ctx, native.MustCString("/"), &st))
		assert.Equal(t, uint32(native.S_IFDIR|0o755), st.Mode)
		assert.EqualValues(t, 2, st.Nlink)

		require.Equal(t, 0, ops.Getattr(ctx, native.MustCString("/test"), &st))
		assert.Equal(t, uint32(native.S_IFREG|0o644), st.Mode)
		assert.Equal(t, int64(12), st.Size)

		assert.Equal(t, -int(syscall.ENOENT), ops.Getattr(ctx, native.MustCString("/missing"), &st))

		var names []string
		fill := func(name []byte, _ *native.Stat, _ int64) int {
			names = append(names, native.GoString(name))
			return 0
		}
		require.Equal(t, 0, ops.Readdir(ctx, native.MustCString("/"), fill, 0, &native.FileInfo{}))
		assert.Equal(t, []string{".", "..", "test"}, names)

		fi := &native.FileInfo{Flags: syscall.O_RDONLY}
		require.Equal(t, 0, ops.Open(ctx, native.MustCString("/test"), fi))
		assert.Equal(t, -int(syscall.EACCES), ops.Open(ctx, native.MustCString("/test"), &native.FileInfo{Flags: syscall.O_WRONLY}))

		buf := make([]byte, 8)
		assert.Equal(t, 8, ops.Read(ctx, native.MustCString("/test"), buf, 0, fi))
		assert.Equal(t, "Hello Wo", string(buf))
		assert.Equal(t, 0, ops.Read(ctx, native.MustCString("/test"), buf, 12, fi))
		assert.Equal(t, 0, ops.Read(ctx, native.MustCString("/test"), buf, 20, fi))

		assert.Nil(t, ops.Write, "read-only file system registers no write")
	})

	mt := &fuse2.Mounter{
		Logger:  utils.NewNopLogger(),
		Program: "hello",
		Main: func(a [][]byte, ops *native.Operations, h native.Handle) int {
			argv = native.GoStrings(a)
			return kernel(a, ops, h)
		},
	}
	err := mt.Mount("/mnt/hello", hellofs.New("", ""), fuse2.Foreground, fuse2.Debug, fuse2.AllowOther)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"hello", "-f", "-d", "-oallow_other", "/mnt/hello"}, argv)
}

func TestMountFailures(t *testing.T) {
	t.Parallel()

	failing := &fuse2.Mounter{
		Logger: utils.NewNopLogger(),
		Main:   func([][]byte, *native.Operations, native.Handle) int { return 1 },
	}

	err := failing.Mount("/mnt", hellofs.New("", ""))
	require.Error(t, err)
	var fe *errors.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, errors.ErrCodeMountFailed, fe.Code)
	assert.Equal(t, syscall.EIO, fuse2.Errno(err))

	err = failing.Mount("/mnt", nil)
	assert.Equal(t, syscall.EINVAL, fuse2.Errno(err))

	err = failing.Mount("/mnt", hellofs.New("", ""), fuse2.Custom("not-an-option"))
	assert.Equal(t, syscall.EINVAL, fuse2.Errno(err))

	err = failing.Mount("/mnt\x00", hellofs.New("", ""))
	assert.Equal(t, syscall.EINVAL, fuse2.Errno(err))
}

func TestMountPrivateDataRoundTrip(t *testing.T) {
	t.Parallel()

	var seen native.Handle
	mt := &fuse2.Mounter{
		Logger: utils.NewNopLogger(),
		Main: func(_ [][]byte, ops *native.Operations, h native.Handle) int {
			seen = ops.Init(&native.Context{PrivateData: h}, nil)
			if seen != h {
				return 1
			}
			ops.Destroy(&native.Context{PrivateData: h}, h)
			return 0
		},
	}
	require.NoError(t, mt.Mount("/mnt", hellofs.New("", "")))
	assert.Nil(t, seen.Value(), "handle is released after the mount returns")
}
