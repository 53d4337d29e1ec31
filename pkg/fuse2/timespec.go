package fuse2

import (
	"time"

	"github.com/objectfs/fuse2go/internal/native"
)

var epoch = time.Unix(0, 0)

// timeToTimespec splits t into seconds since the epoch (floored) and a
// non-negative nanosecond remainder.
func timeToTimespec(t time.Time) native.Timespec {
	return native.Timespec{Sec: t.Unix(), Nsec: int64(t.Nanosecond())}
}

func timespecToTime(ts native.Timespec) time.Time {
	return time.Unix(ts.Sec, ts.Nsec)
}

// utimensTimes resolves the utimens argument. A nil array means both
// times are now. Per-field UTIME_NOW is now, and UTIME_OMIT keeps the
// value from current, which is only called when needed.
func utimensTimes(tv *[2]native.Timespec, current func() (FileAttr, error)) (atime, mtime time.Time, err error) {
	now := time.Now()
	if tv == nil {
		return now, now, nil
	}

	resolved := [2]time.Time{}
	var attr *FileAttr
	for i, ts := range tv {
		switch ts.Nsec {
		case native.UtimeNow:
			resolved[i] = now
		case native.UtimeOmit:
			if attr == nil {
				a, err := current()
				if err != nil {
					return time.Time{}, time.Time{}, err
				}
				attr = &a
			}
			if i == 0 {
				resolved[i] = attr.Atime
			} else {
				resolved[i] = attr.Mtime
			}
		default:
			resolved[i] = timespecToTime(ts)
		}
	}
	return resolved[0], resolved[1], nil
}
