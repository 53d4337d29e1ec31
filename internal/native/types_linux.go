//go:build linux

package native

type (
	NlinkT   = uint64
	BlksizeT = int64
	DevT     = uint64
)

// Linux struct stat carries neither a birth time nor BSD file flags.
const (
	HasBirthtime = false
	HasFlags     = false
)
