//go:build freebsd || openbsd || netbsd

package native

type (
	NlinkT   = uint32
	BlksizeT = int32
	DevT     = uint64
)

const (
	HasBirthtime = true
	HasFlags     = true
)
