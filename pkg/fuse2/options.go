package fuse2

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/errors"
)

// MountOption is one command line switch for the FUSE main loop.
type MountOption struct {
	kind   optionKind
	num    uint32
	custom string
}

type optionKind int

const (
	optForeground optionKind = iota + 1
	optDebug
	optAllowOther
	optDefaultPermissions
	optKernelCache
	optRo
	optRw
	optAtime
	optNoAtime
	optDev
	optNoDev
	optSuid
	optNoSuid
	optExec
	optNoExec
	optSync
	optAsync
	optUseIno
	optReaddirIno
	optHardRemove
	optUid
	optGid
	optUmask
	optCustom
)

var optionTokens = map[optionKind]string{
	optForeground:         "-f",
	optDebug:              "-d",
	optAllowOther:         "-oallow_other",
	optDefaultPermissions: "-odefault_permissions",
	optKernelCache:        "-okernel_cache",
	optRo:                 "-oro",
	optRw:                 "-orw",
	optAtime:              "-oatime",
	optNoAtime:            "-onoatime",
	optDev:                "-odev",
	optNoDev:              "-onodev",
	optSuid:               "-osuid",
	optNoSuid:             "-onosuid",
	optExec:               "-oexec",
	optNoExec:             "-onoexec",
	optSync:               "-osync",
	optAsync:              "-oasync",
	optUseIno:             "-ouse_ino",
	optReaddirIno:         "-oreaddir_ino",
	optHardRemove:         "-ohard_remove",
}

var (
	Foreground         = MountOption{kind: optForeground}
	Debug              = MountOption{kind: optDebug}
	AllowOther         = MountOption{kind: optAllowOther}
	DefaultPermissions = MountOption{kind: optDefaultPermissions}
	KernelCache        = MountOption{kind: optKernelCache}
	Ro                 = MountOption{kind: optRo}
	Rw                 = MountOption{kind: optRw}
	Atime              = MountOption{kind: optAtime}
	NoAtime            = MountOption{kind: optNoAtime}
	Dev                = MountOption{kind: optDev}
	NoDev              = MountOption{kind: optNoDev}
	Suid               = MountOption{kind: optSuid}
	NoSuid             = MountOption{kind: optNoSuid}
	Exec               = MountOption{kind: optExec}
	NoExec             = MountOption{kind: optNoExec}
	Sync               = MountOption{kind: optSync}
	Async              = MountOption{kind: optAsync}
	UseIno             = MountOption{kind: optUseIno}
	ReaddirIno         = MountOption{kind: optReaddirIno}
	HardRemove         = MountOption{kind: optHardRemove}
)

// Uid reports uid as the owner of every file.
func Uid(uid uint32) MountOption { return MountOption{kind: optUid, num: uid} }

// Gid reports gid as the group of every file.
func Gid(gid uint32) MountOption { return MountOption{kind: optGid, num: gid} }

// Umask overrides the permission bits reported for every file. Only the
// low 12 bits are used.
func Umask(mask uint16) MountOption { return MountOption{kind: optUmask, num: uint32(mask)} }

// Custom passes token through unchanged. It must not contain a NUL byte.
func Custom(token string) MountOption { return MountOption{kind: optCustom, custom: token} }

// Render returns the argument token for the option.
func (o MountOption) Render() string {
	switch o.kind {
	case optUid:
		return fmt.Sprintf("-ouid=%d", o.num)
	case optGid:
		return fmt.Sprintf("-ogid=%d", o.num)
	case optUmask:
		return fmt.Sprintf("-oumask=%o", o.num&0o7777)
	case optCustom:
		return o.custom
	}
	return optionTokens[o.kind]
}

func (o MountOption) String() string { return o.Render() }

// Validate reports whether the option renders to a single well-formed
// switch: non-empty, starting with '-', free of NUL bytes.
func (o MountOption) Validate() error {
	if o.kind == 0 {
		return errors.NewError(errors.ErrCodeInvalidOption, "zero MountOption")
	}
	tok := o.Render()
	switch {
	case strings.IndexByte(tok, 0) >= 0:
		return errors.NewError(errors.ErrCodeInvalidOption, "option contains NUL byte").
			WithContext("option", strings.ReplaceAll(tok, "\x00", `\0`))
	case !strings.HasPrefix(tok, "-"):
		return errors.NewError(errors.ErrCodeInvalidOption, "option must start with '-'").
			WithContext("option", tok)
	}
	return nil
}

// ParseMountOption is the inverse of Render. Tokens that are not one of
// the named options become Custom options.
func ParseMountOption(token string) (MountOption, error) {
	if strings.IndexByte(token, 0) >= 0 {
		return MountOption{}, errors.NewError(errors.ErrCodeInvalidOption, "option contains NUL byte").
			WithContext("option", strings.ReplaceAll(token, "\x00", `\0`))
	}
	for kind, tok := range optionTokens {
		if tok == token {
			return MountOption{kind: kind}, nil
		}
	}

	parseNum := func(prefix string, base int, bits int) (uint32, bool, error) {
		if !strings.HasPrefix(token, prefix) {
			return 0, false, nil
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(token, prefix), base, bits)
		if err != nil {
			return 0, true, errors.Wrap(err, errors.ErrCodeInvalidOption, "invalid numeric option").
				WithContext("option", token)
		}
		return uint32(n), true, nil
	}

	if n, ok, err := parseNum("-ouid=", 10, 32); ok {
		return Uid(n), err
	}
	if n, ok, err := parseNum("-ogid=", 10, 32); ok {
		return Gid(n), err
	}
	if n, ok, err := parseNum("-oumask=", 8, 12); ok {
		return Umask(uint16(n)), err
	}
	o := Custom(token)
	if err := o.Validate(); err != nil {
		return MountOption{}, err
	}
	return o, nil
}

// buildArgv renders opts into a NUL-terminated argument vector:
// program name, the option tokens in order, then the mount point.
func buildArgv(program, mountpoint string, opts []MountOption) ([][]byte, error) {
	args := make([]string, 0, len(opts)+2)
	args = append(args, program)
	for _, o := range opts {
		if err := o.Validate(); err != nil {
			return nil, err
		}
		args = append(args, o.Render())
	}
	args = append(args, mountpoint)

	argv, err := native.CStrings(args)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePathInvalid, "cannot encode mount arguments").
			WithComponent("fuse2").
			WithOperation("mount").
			WithPath(mountpoint)
	}
	return argv, nil
}
