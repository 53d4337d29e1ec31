package native

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileInfoBits(t *testing.T) {
	t.Parallel()

	var fi FileInfo
	fi.SetDirectIO(1)
	fi.SetNonseekable(1)
	assert.Equal(t, uint32(0b1001), fi.Bits())
	assert.Equal(t, uint32(1), fi.DirectIO())
	assert.Equal(t, uint32(0), fi.KeepCache())
	assert.Equal(t, uint32(0), fi.Flush())
	assert.Equal(t, uint32(1), fi.Nonseekable())

	fi.SetKeepCache(1)
	fi.SetFlush(1)
	fi.SetFlockRelease(1)
	assert.Equal(t, uint32(0b11111), fi.Bits())

	fi.SetDirectIO(0)
	fi.SetFlush(2) // only the low bit is stored
	assert.Equal(t, uint32(0b11010), fi.Bits())
	assert.Equal(t, uint32(1), fi.FlockRelease())
}

func TestCString(t *testing.T) {
	t.Parallel()

	b, err := CString("/test")
	require.NoError(t, err)
	assert.Equal(t, []byte("/test\x00"), b)
	assert.Equal(t, "/test", GoString(b))

	_, err = CString("a\x00b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmbeddedNul))
	assert.True(t, errors.Is(err, syscall.EINVAL))

	assert.Equal(t, "abc", GoString([]byte("abc")))
	assert.Equal(t, "", GoString(nil))
	assert.Equal(t, "caf\xc3", GoString([]byte("caf\xc3\x00tail")))

	argv, err := CStrings([]string{"prog", "-f", "/mnt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"prog", "-f", "/mnt"}, GoStrings(argv))

	_, err = CStrings([]string{"ok", "bad\x00"})
	assert.Error(t, err)
}

func TestHandles(t *testing.T) {
	t.Parallel()

	type payload struct{ n int }
	p := &payload{n: 7}

	h := NewHandle(p)
	require.NotZero(t, h)
	assert.Same(t, p, h.Value())

	other := NewHandle("x")
	assert.NotEqual(t, h, other)

	h.Delete()
	assert.Nil(t, h.Value())
	assert.Panics(t, func() { h.Delete() })

	assert.Nil(t, Handle(0).Value())
	assert.NotPanics(t, func() { Handle(0).Delete() })
	other.Delete()
}

func TestRegistered(t *testing.T) {
	t.Parallel()

	ops := &Operations{
		Getattr: func(*Context, []byte, *Stat) int { return 0 },
		Readdir: func(*Context, []byte, FillDir, int64, *FileInfo) int { return 0 },
		Utimens: func(*Context, []byte, *[2]Timespec) int { return 0 },
	}
	assert.Equal(t, []string{"getattr", "readdir", "utimens"}, ops.Registered())
	assert.Empty(t, (&Operations{}).Registered())
}
