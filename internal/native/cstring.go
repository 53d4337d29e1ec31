package native

import (
	"bytes"
	"fmt"
	"strings"
	"syscall"
)

// ErrEmbeddedNul is returned when a string cannot be passed as a C string.
var ErrEmbeddedNul = fmt.Errorf("string contains NUL byte: %w", syscall.EINVAL)

// CString returns s as a NUL-terminated byte slice.
func CString(s string) ([]byte, error) {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return nil, fmt.Errorf("%w at offset %d", ErrEmbeddedNul, i)
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b, nil
}

// MustCString is CString for literals known to be NUL free.
func MustCString(s string) []byte {
	b, err := CString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// GoString decodes a C string: the bytes up to the first NUL, or the
// whole slice when there is none. The result does not alias b.
func GoString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// CStrings encodes an argument vector.
func CStrings(args []string) ([][]byte, error) {
	argv := make([][]byte, 0, len(args))
	for _, a := range args {
		c, err := CString(a)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", a, err)
		}
		argv = append(argv, c)
	}
	return argv, nil
}

// GoStrings decodes an argument vector.
func GoStrings(argv [][]byte) []string {
	args := make([]string, 0, len(argv))
	for _, a := range argv {
		args = append(args, GoString(a))
	}
	return args
}
