//go:build darwin

package native

type (
	NlinkT   = uint16
	BlksizeT = int32
	DevT     = int32
)

const (
	HasBirthtime = true
	HasFlags     = true
)
