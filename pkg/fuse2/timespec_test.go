package fuse2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/fuse2go/internal/native"
)

func TestTimespec(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   time.Time
		want native.Timespec
	}{
		{"epoch", time.Unix(0, 0), native.Timespec{}},
		{"zero time", time.Time{}, native.Timespec{Sec: -62135596800}},
		{"after epoch", time.Unix(1700000000, 123456789), native.Timespec{Sec: 1700000000, Nsec: 123456789}},
		{"before epoch", time.Unix(-5, 250), native.Timespec{Sec: -5, Nsec: 250}},
		{"just before epoch", time.Unix(0, -1), native.Timespec{Sec: -1, Nsec: 999999999}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ts := timeToTimespec(tc.in)
			assert.Equal(t, tc.want, ts)
			assert.GreaterOrEqual(t, ts.Nsec, int64(0))
			assert.Less(t, ts.Nsec, int64(time.Second))
			assert.True(t, tc.in.Equal(timespecToTime(ts)), "round trip of %v gave %v", tc.in, timespecToTime(ts))
		})
	}
}

func TestUtimensTimes(t *testing.T) {
	t.Parallel()

	current := FileAttr{Atime: time.Unix(100, 1), Mtime: time.Unix(200, 2)}
	calls := 0
	getattr := func() (FileAttr, error) {
		calls++
		return current, nil
	}

	t.Run("nil means now", func(t *testing.T) {
		before := time.Now()
		a, m, err := utimensTimes(nil, getattr)
		require.NoError(t, err)
		assert.False(t, a.Before(before))
		assert.Equal(t, a, m)
	})

	t.Run("explicit", func(t *testing.T) {
		tv := [2]native.Timespec{{Sec: 10, Nsec: 5}, {Sec: -10, Nsec: 7}}
		a, m, err := utimensTimes(&tv, getattr)
		require.NoError(t, err)
		assert.True(t, a.Equal(time.Unix(10, 5)))
		assert.True(t, m.Equal(time.Unix(-10, 7)))
	})

	t.Run("omit keeps current", func(t *testing.T) {
		calls = 0
		tv := [2]native.Timespec{{Nsec: native.UtimeOmit}, {Nsec: native.UtimeOmit}}
		a, m, err := utimensTimes(&tv, getattr)
		require.NoError(t, err)
		assert.True(t, a.Equal(current.Atime))
		assert.True(t, m.Equal(current.Mtime))
		assert.Equal(t, 1, calls)
	})

	t.Run("now and omit", func(t *testing.T) {
		before := time.Now()
		tv := [2]native.Timespec{{Nsec: native.UtimeNow}, {Nsec: native.UtimeOmit}}
		a, m, err := utimensTimes(&tv, getattr)
		require.NoError(t, err)
		assert.False(t, a.Before(before))
		assert.True(t, m.Equal(current.Mtime))
	})

	t.Run("getattr failure", func(t *testing.T) {
		tv := [2]native.Timespec{{Sec: 1}, {Nsec: native.UtimeOmit}}
		_, _, err := utimensTimes(&tv, func() (FileAttr, error) { return FileAttr{}, ErrNotSupported })
		assert.ErrorIs(t, err, ErrNotSupported)
	})
}
