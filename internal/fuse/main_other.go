//go:build !linux && !cgofuse

package fuse

import (
	"runtime"

	"github.com/objectfs/fuse2go/internal/native"
)

// Main reports failure: without the cgofuse build tag there is no FUSE
// runtime for this platform.
func Main(argv [][]byte, ops *native.Operations, userData native.Handle) int {
	log := logger()
	if _, err := ParseArgs(argv); err != nil {
		log.Error("invalid arguments", map[string]interface{}{"error": err.Error()})
		return 1
	}
	log.Error("no FUSE runtime for this platform, rebuild with -tags cgofuse", map[string]interface{}{
		"goos": runtime.GOOS,
	})
	return 1
}
