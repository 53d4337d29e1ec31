package fuse

import (
	"reflect"
	"syscall"
	"testing"

	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/utils"
)

func testSession(ops *native.Operations, args *Args) *session {
	if args == nil {
		args = &Args{}
	}
	return newSession(ops, args, native.Handle(42), utils.NewNopLogger())
}

func TestSessionDefaults(t *testing.T) {
	t.Parallel()

	s := testSession(&native.Operations{}, nil)
	ctx := s.context(1, 2, 3, 0)

	var st native.Stat
	if rc := s.getattr(ctx, "/", &st); rc != -int(syscall.ENOSYS) {
		t.Errorf("getattr without slot = %d, want -ENOSYS", rc)
	}
	fi := &native.FileInfo{}
	if rc := s.open(ctx, "/f", fi); rc != 0 {
		t.Errorf("open without slot = %d, want 0", rc)
	}
	if rc := s.opendir(ctx, "/", fi); rc != 0 {
		t.Errorf("opendir without slot = %d, want 0", rc)
	}
	if rc := s.release(ctx, "/f", fi); rc != 0 {
		t.Errorf("release without slot = %d, want 0", rc)
	}
	if rc := s.releasedir(ctx, "/", fi); rc != 0 {
		t.Errorf("releasedir without slot = %d, want 0", rc)
	}
	if rc := s.create(ctx, "/f", 0o644, fi); rc != -int(syscall.ENOSYS) {
		t.Errorf("create without slot = %d, want -ENOSYS", rc)
	}
	var sv native.Statvfs
	if rc := s.statfs(ctx, "/", &sv); rc != 0 || sv.Namemax != 255 || sv.Bsize != 512 {
		t.Errorf("statfs without slot = %d, %+v", rc, sv)
	}
	if rc := s.loadDir(ctx, &dirHandle{path: "/"}); rc != -int(syscall.ENOSYS) {
		t.Errorf("readdir without slot = %d, want -ENOSYS", rc)
	}
}

func TestSessionContext(t *testing.T) {
	t.Parallel()

	s := testSession(&native.Operations{}, nil)
	ctx := s.context(1000, 100, 77, 0o22)
	if ctx.Uid != 1000 || ctx.Gid != 100 || ctx.Pid != 77 || ctx.Umask != 0o22 {
		t.Errorf("context = %+v", ctx)
	}
	if ctx.PrivateData != 42 {
		t.Errorf("PrivateData = %d, want user data 42", ctx.PrivateData)
	}
}

func TestSessionInitDestroy(t *testing.T) {
	t.Parallel()

	t.Run("init handle replaces user data", func(t *testing.T) {
		var inits, destroys int
		var destroyed native.Handle
		ops := &native.Operations{
			Init: func(ctx *native.Context, conn *native.ConnInfo) native.Handle {
				inits++
				if ctx.PrivateData != 42 {
					t.Errorf("init PrivateData = %d, want 42", ctx.PrivateData)
				}
				return 99
			},
			Destroy: func(ctx *native.Context, data native.Handle) {
				destroys++
				destroyed = data
			},
		}
		s := testSession(ops, nil)

		s.destroy(s.context(0, 0, 0, 0))
		if destroys != 0 {
			t.Fatal("destroy ran before init")
		}

		s.init(s.context(0, 0, 0, 0), &native.ConnInfo{})
		s.init(s.context(0, 0, 0, 0), &native.ConnInfo{})
		if inits != 1 {
			t.Errorf("init ran %d times, want 1", inits)
		}
		if got := s.context(0, 0, 0, 0).PrivateData; got != 99 {
			t.Errorf("PrivateData after init = %d, want 99", got)
		}

		s.destroy(s.context(0, 0, 0, 0))
		s.destroy(s.context(0, 0, 0, 0))
		if destroys != 1 || destroyed != 99 {
			t.Errorf("destroy ran %d times with %d, want once with 99", destroys, destroyed)
		}
	})

	t.Run("zero handle keeps user data", func(t *testing.T) {
		ops := &native.Operations{
			Init: func(*native.Context, *native.ConnInfo) native.Handle { return 0 },
		}
		s := testSession(ops, nil)
		s.init(s.context(0, 0, 0, 0), &native.ConnInfo{})
		if got := s.context(0, 0, 0, 0).PrivateData; got != 42 {
			t.Errorf("PrivateData = %d, want 42", got)
		}
	})
}

func TestSessionOverrides(t *testing.T) {
	t.Parallel()

	ops := &native.Operations{
		Getattr: func(ctx *native.Context, path []byte, st *native.Stat) int {
			st.Mode = native.S_IFDIR | 0o700
			st.Uid = 1
			st.Gid = 1
			return 0
		},
	}
	args := &Args{SetUid: true, Uid: 1000, SetGid: true, Gid: 100, SetUmask: true, Umask: 0o027}
	s := testSession(ops, args)

	var st native.Stat
	if rc := s.getattr(s.context(0, 0, 0, 0), "/", &st); rc != 0 {
		t.Fatalf("getattr = %d", rc)
	}
	if st.Uid != 1000 || st.Gid != 100 {
		t.Errorf("owner = %d:%d, want 1000:100", st.Uid, st.Gid)
	}
	if want := uint32(native.S_IFDIR | 0o750); st.Mode != want {
		t.Errorf("mode = %o, want %o", st.Mode, want)
	}

	s.overrides = false
	if rc := s.getattr(s.context(0, 0, 0, 0), "/", &st); rc != 0 {
		t.Fatalf("getattr = %d", rc)
	}
	if st.Uid != 1 || st.Mode != native.S_IFDIR|0o700 {
		t.Errorf("overrides applied while disabled: %+v", st)
	}
}

func TestSessionOpenHints(t *testing.T) {
	t.Parallel()

	s := testSession(&native.Operations{}, &Args{DirectIO: true, KernelCache: true})
	fi := &native.FileInfo{}
	if rc := s.open(s.context(0, 0, 0, 0), "/f", fi); rc != 0 {
		t.Fatalf("open = %d", rc)
	}
	if fi.DirectIO() != 1 || fi.KeepCache() != 1 {
		t.Errorf("hints = direct_io %d keep_cache %d, want 1 1", fi.DirectIO(), fi.KeepCache())
	}
}

func TestSessionLoadDir(t *testing.T) {
	t.Parallel()

	calls := 0
	ops := &native.Operations{
		Readdir: func(ctx *native.Context, path []byte, fill native.FillDir, off int64, fi *native.FileInfo) int {
			calls++
			if native.GoString(path) != "/d" {
				t.Errorf("readdir path = %q", native.GoString(path))
			}
			if fi.Fh != 5 {
				t.Errorf("readdir fh = %d, want 5", fi.Fh)
			}
			for _, name := range []string{".", "..", "a"} {
				if fill(native.MustCString(name), nil, 0) != 0 {
					t.Errorf("fill(%q) reported a full buffer", name)
				}
			}
			fill(native.MustCString("b"), &native.Stat{Mode: native.S_IFREG, Ino: 9}, 0)
			return 0
		},
	}
	s := testSession(ops, &Args{UseIno: true})
	dh := &dirHandle{fh: 5, path: "/d"}

	for i := 0; i < 2; i++ {
		if rc := s.loadDir(s.context(0, 0, 0, 0), dh); rc != 0 {
			t.Fatalf("loadDir = %d", rc)
		}
	}
	if calls != 2 {
		t.Errorf("readdir calls = %d, want 2", calls)
	}
	if !dh.loaded || len(dh.entries) != 4 {
		t.Fatalf("entries = %+v, want 4 after reload", dh.entries)
	}
	last := dh.entries[3]
	if last.name != "b" || last.ino != 9 || last.mode != native.S_IFREG {
		t.Errorf("last entry = %+v", last)
	}
}

func TestSessionLoadDirFailedReload(t *testing.T) {
	t.Parallel()

	fail := false
	ops := &native.Operations{
		Readdir: func(ctx *native.Context, path []byte, fill native.FillDir, off int64, fi *native.FileInfo) int {
			if fail {
				fill(native.MustCString("partial"), nil, 0)
				return -int(syscall.EIO)
			}
			for _, name := range []string{".", "..", "a", "b"} {
				fill(native.MustCString(name), nil, 0)
			}
			return 0
		},
	}
	s := testSession(ops, nil)
	dh := &dirHandle{path: "/"}

	if rc := s.loadDir(s.context(0, 0, 0, 0), dh); rc != 0 {
		t.Fatalf("loadDir = %d", rc)
	}
	fail = true
	if rc := s.loadDir(s.context(0, 0, 0, 0), dh); rc != -int(syscall.EIO) {
		t.Fatalf("failed reload = %d, want -EIO", rc)
	}

	var names []string
	for _, e := range dh.entries {
		names = append(names, e.name)
	}
	if want := []string{".", "..", "a", "b"}; !reflect.DeepEqual(names, want) {
		t.Errorf("entries after failed reload = %q, want %q", names, want)
	}
	if !dh.loaded {
		t.Error("previous listing dropped")
	}
}
