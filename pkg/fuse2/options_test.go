package fuse2

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/fuse2go/internal/native"
)

func allOptions() []MountOption {
	return []MountOption{
		Foreground, Debug, AllowOther, DefaultPermissions, KernelCache,
		Ro, Rw, Atime, NoAtime, Dev, NoDev, Suid, NoSuid, Exec, NoExec,
		Sync, Async, UseIno, ReaddirIno, HardRemove,
		Uid(1000), Gid(0), Umask(0o022), Custom("-ofsname=hello"),
	}
}

func TestMountOptionRender(t *testing.T) {
	t.Parallel()

	for _, o := range allOptions() {
		tok := o.Render()
		assert.True(t, strings.HasPrefix(tok, "-"), "%q", tok)
		assert.NotContains(t, tok, "\x00")
		assert.NoError(t, o.Validate())
		assert.Equal(t, tok, o.String())
	}

	assert.Equal(t, "-f", Foreground.Render())
	assert.Equal(t, "-d", Debug.Render())
	assert.Equal(t, "-oallow_other", AllowOther.Render())
	assert.Equal(t, "-ouid=1000", Uid(1000).Render())
	assert.Equal(t, "-ogid=0", Gid(0).Render())
	assert.Equal(t, "-oumask=22", Umask(0o022).Render())
	assert.Equal(t, "-oumask=7777", Umask(0o17777).Render())
}

func TestMountOptionValidate(t *testing.T) {
	t.Parallel()

	assert.Error(t, MountOption{}.Validate())
	assert.Error(t, Custom("").Validate())
	assert.Error(t, Custom("allow_other").Validate())
	assert.Error(t, Custom("-ofoo\x00bar").Validate())
}

func TestParseMountOption(t *testing.T) {
	t.Parallel()

	for _, o := range allOptions() {
		parsed, err := ParseMountOption(o.Render())
		require.NoError(t, err, o.Render())
		assert.Equal(t, o, parsed)
	}

	for _, bad := range []string{"-ouid=root", "-ogid=-1", "-oumask=8", "plain", "-o\x00"} {
		_, err := ParseMountOption(bad)
		assert.Error(t, err, "%q", bad)
	}
}

func TestBuildArgv(t *testing.T) {
	t.Parallel()

	argv, err := buildArgv("hello", "/mnt/hello", []MountOption{Foreground, Ro, Uid(7)})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "-f", "-oro", "-ouid=7", "/mnt/hello"}, native.GoStrings(argv))
	for _, a := range argv {
		assert.Equal(t, byte(0), a[len(a)-1])
	}

	_, err = buildArgv("hello", "/mnt/bad\x00", nil)
	assert.Error(t, err)

	_, err = buildArgv("hello", "/mnt", []MountOption{Custom("nodash")})
	assert.Error(t, err)
}
