package fuse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/errors"
)

// Args is the parsed form of a fuse_main argument vector.
type Args struct {
	Program    string
	MountPoint string

	Foreground     bool
	Debug          bool
	SingleThreaded bool

	// Library options, consumed by the runtime.
	SetUid       bool
	Uid          uint32
	SetGid       bool
	Gid          uint32
	SetUmask     bool
	Umask        uint32
	UseIno       bool
	ReaddirIno   bool
	HardRemove   bool
	KernelCache  bool
	DirectIO     bool
	EntryTimeout time.Duration
	AttrTimeout  time.Duration
	FsName       string
	Subtype      string

	// Options are passed on to the kernel mount in order.
	Options []string

	// rest holds every argument except the program and the mount point.
	rest []string
}

// HasOption reports whether name was given as a kernel option.
func (a *Args) HasOption(name string) bool {
	for _, o := range a.Options {
		if o == name {
			return true
		}
	}
	return false
}

func invalidArg(format string, args ...interface{}) *errors.Error {
	return errors.NewError(errors.ErrCodeInvalidOption, fmt.Sprintf(format, args...)).
		WithComponent("fuse").
		WithOperation("parse_args")
}

// ParseArgs decodes argv the way fuse_parse_cmdline and the high-level
// library option parser do. Help and version requests are rejected; the
// runtime has nothing to print for them.
func ParseArgs(argv [][]byte) (*Args, error) {
	args := native.GoStrings(argv)
	if len(args) == 0 {
		return nil, invalidArg("empty argument vector")
	}

	a := &Args{
		Program:      args[0],
		EntryTimeout: time.Second,
		AttrTimeout:  time.Second,
	}

	for i := 1; i < len(args); i++ {
		arg := args[i]
		if !isPositional(arg) {
			a.rest = append(a.rest, arg)
		}
		switch {
		case arg == "-f":
			a.Foreground = true
		case arg == "-d" || arg == "-odebug":
			a.Debug = true
			a.Foreground = true
		case arg == "-s":
			a.SingleThreaded = true
		case arg == "-h" || arg == "--help" || arg == "-ho":
			return nil, invalidArg("help is not supported")
		case arg == "-V" || arg == "--version":
			return nil, invalidArg("version is not supported")
		case arg == "-o":
			if i+1 >= len(args) {
				return nil, invalidArg("missing argument after -o")
			}
			i++
			a.rest = append(a.rest, args[i])
			if err := a.parseOptions(args[i]); err != nil {
				return nil, err
			}
		case strings.HasPrefix(arg, "-o"):
			if err := a.parseOptions(arg[2:]); err != nil {
				return nil, err
			}
		case !isPositional(arg):
			return nil, invalidArg("unknown option %q", arg)
		default:
			if a.MountPoint != "" {
				return nil, invalidArg("invalid argument %q", arg)
			}
			a.MountPoint = arg
		}
	}

	if a.MountPoint == "" {
		return nil, invalidArg("missing mountpoint")
	}
	return a, nil
}

func isPositional(arg string) bool {
	return arg == "-" || !strings.HasPrefix(arg, "-")
}

func (a *Args) parseOptions(list string) error {
	for _, opt := range strings.Split(list, ",") {
		if opt == "" {
			continue
		}
		if err := a.parseOption(opt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Args) parseOption(opt string) error {
	name, value, hasValue := strings.Cut(opt, "=")

	parseUint := func(base int, bits int) (uint32, error) {
		n, err := strconv.ParseUint(value, base, bits)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeInvalidOption, "invalid numeric option").
				WithComponent("fuse").
				WithContext("option", opt)
		}
		return uint32(n), nil
	}
	parseSeconds := func() (time.Duration, error) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return 0, invalidArg("invalid timeout %q", opt)
		}
		return time.Duration(f * float64(time.Second)), nil
	}

	var err error
	switch {
	case name == "debug" && !hasValue:
		a.Debug = true
	case name == "uid" && hasValue:
		a.Uid, err = parseUint(10, 32)
		a.SetUid = err == nil
	case name == "gid" && hasValue:
		a.Gid, err = parseUint(10, 32)
		a.SetGid = err == nil
	case name == "umask" && hasValue:
		a.Umask, err = parseUint(8, 32)
		a.Umask &= 0o7777
		a.SetUmask = err == nil
	case name == "use_ino" && !hasValue:
		a.UseIno = true
	case name == "readdir_ino" && !hasValue:
		a.ReaddirIno = true
	case name == "hard_remove" && !hasValue:
		a.HardRemove = true
	case name == "kernel_cache" && !hasValue:
		a.KernelCache = true
	case name == "direct_io" && !hasValue:
		a.DirectIO = true
	case name == "entry_timeout" && hasValue:
		a.EntryTimeout, err = parseSeconds()
	case name == "attr_timeout" && hasValue:
		a.AttrTimeout, err = parseSeconds()
	case name == "fsname" && hasValue:
		a.FsName = value
	case name == "subtype" && hasValue:
		a.Subtype = value
	default:
		a.Options = append(a.Options, opt)
	}
	return err
}
