// Package errors provides a structured error system for fuse2go with error codes, categories, and errno projection.
package errors

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// ErrorCode represents a structured error code for adapter operations.
type ErrorCode string

// Error code constants organized by category.
const (
	// Configuration Errors
	ErrCodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig    ErrorCode = "MISSING_CONFIG"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrCodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigSave       ErrorCode = "CONFIG_SAVE"

	// Mount Errors
	ErrCodeMountFailed   ErrorCode = "MOUNT_FAILED"
	ErrCodeInvalidOption ErrorCode = "INVALID_OPTION"

	// Filesystem Errors
	ErrCodePathInvalid      ErrorCode = "PATH_INVALID"
	ErrCodeFileNotFound     ErrorCode = "FILE_NOT_FOUND"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodeNotSupported     ErrorCode = "NOT_SUPPORTED"

	// Translation Errors
	ErrCodeTranslationFailed ErrorCode = "TRANSLATION_FAILED"
	ErrCodeValueOverflow     ErrorCode = "TRANSLATION_OVERFLOW"

	// State Errors
	ErrCodeInvalidState   ErrorCode = "INVALID_STATE"
	ErrCodeAlreadyStarted ErrorCode = "ALREADY_STARTED"

	// Internal Errors
	ErrCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrCodePanicRecovered ErrorCode = "PANIC_RECOVERED"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryMount         ErrorCategory = "mount"
	CategoryFilesystem    ErrorCategory = "filesystem"
	CategoryTranslation   ErrorCategory = "translation"
	CategoryState         ErrorCategory = "state"
	CategoryInternal      ErrorCategory = "internal"
)

// Error represents a structured error with context and metadata.
type Error struct {
	Code     ErrorCode              `json:"code"`
	Category ErrorCategory          `json:"category"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`

	Context   map[string]string `json:"context,omitempty"`
	Cause     error             `json:"-"`
	Timestamp time.Time         `json:"timestamp"`

	Component string `json:"component"`
	Operation string `json:"operation,omitempty"`
	Path      string `json:"path,omitempty"`

	// Errno is the status reported to the kernel when this error
	// escapes a filesystem callback. Zero means the code's default.
	Errno      syscall.Errno `json:"errno,omitempty"`
	UserFacing bool          `json:"user_facing"`

	Stack string `json:"stack,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, msg)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error (for errors.Is compatibility).
func (e *Error) Is(target error) bool {
	if other, ok := target.(*Error); ok {
		return e.Code == other.Code
	}
	return false
}

// ErrnoValue returns the errno the error maps to. A zero Errno field
// falls back to the code's default.
func (e *Error) ErrnoValue() syscall.Errno {
	if e.Errno != 0 {
		return e.Errno
	}
	return GetDefaultErrno(e.Code)
}

// ExplicitErrno returns the errno set with WithErrno, or 0.
func (e *Error) ExplicitErrno() syscall.Errno {
	return e.Errno
}

// String returns a detailed string representation for logging.
func (e *Error) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("Category=%s", e.Category))
	parts = append(parts, fmt.Sprintf("Message=%q", e.Message))

	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("Path=%q", e.Path))
	}
	parts = append(parts, fmt.Sprintf("Errno=%d", int(e.ErrnoValue())))

	if len(e.Details) > 0 {
		details, _ := json.Marshal(e.Details)
		parts = append(parts, fmt.Sprintf("Details=%s", details))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}

	return fmt.Sprintf("Error{%s}", strings.Join(parts, ", "))
}

// JSON returns the error as a JSON string.
func (e *Error) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal error: %s"}`, err.Error())
	}
	return string(data)
}

// NewError creates a new error with default values.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:       code,
		Category:   GetCategory(code),
		Message:    message,
		Timestamp:  time.Now(),
		Details:    make(map[string]interface{}),
		Context:    make(map[string]string),
		UserFacing: IsUserFacingByDefault(code),
	}
}

// Wrap creates a new error with the given cause.
func Wrap(cause error, code ErrorCode, message string) *Error {
	return NewError(code, message).WithCause(cause)
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "INVALID_CONFIG") || strings.HasPrefix(codeStr, "MISSING_CONFIG") ||
		strings.HasPrefix(codeStr, "CONFIG_"):
		return CategoryConfiguration
	case strings.HasPrefix(codeStr, "MOUNT_") || strings.HasPrefix(codeStr, "UNMOUNT_") ||
		strings.HasPrefix(codeStr, "INVALID_OPTION"):
		return CategoryMount
	case strings.HasPrefix(codeStr, "PATH_") || strings.HasPrefix(codeStr, "FILE_") ||
		strings.HasPrefix(codeStr, "PERMISSION_") || strings.HasPrefix(codeStr, "NOT_SUPPORTED"):
		return CategoryFilesystem
	case strings.HasPrefix(codeStr, "TRANSLATION_"):
		return CategoryTranslation
	case strings.HasPrefix(codeStr, "INVALID_STATE") || strings.HasPrefix(codeStr, "ALREADY_") ||
		strings.HasPrefix(codeStr, "NOT_INITIALIZED"):
		return CategoryState
	default:
		return CategoryInternal
	}
}

// IsUserFacingByDefault determines if an error should be shown to users.
func IsUserFacingByDefault(code ErrorCode) bool {
	userFacingCodes := map[ErrorCode]bool{
		ErrCodeInvalidConfig:    true,
		ErrCodeMissingConfig:    true,
		ErrCodeConfigValidation: true,
		ErrCodeMountFailed:      true,
		ErrCodeInvalidOption:    true,
		ErrCodePathInvalid:      true,
		ErrCodeFileNotFound:     true,
		ErrCodePermissionDenied: true,
	}
	return userFacingCodes[code]
}

// GetDefaultErrno returns the default errno for an error code.
func GetDefaultErrno(code ErrorCode) syscall.Errno {
	errnoMap := map[ErrorCode]syscall.Errno{
		ErrCodeInvalidConfig:    syscall.EINVAL,
		ErrCodeConfigValidation: syscall.EINVAL,
		ErrCodeInvalidOption:    syscall.EINVAL,
		ErrCodePathInvalid:      syscall.EINVAL,
		ErrCodeFileNotFound:     syscall.ENOENT,
		ErrCodePermissionDenied: syscall.EACCES,
		ErrCodeNotSupported:     syscall.ENOSYS,
		ErrCodeAlreadyStarted:   syscall.EBUSY,
	}

	if errno, ok := errnoMap[code]; ok {
		return errno
	}
	return syscall.EIO
}

// CaptureStack captures the current stack trace for debugging.
func CaptureStack(skip int) string {
	const depth = 16
	var pcs [depth]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var stack []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "errors.go") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return strings.Join(stack, "\n")
}

// WithContext adds contextual information to an error
func (e *Error) WithContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail adds detailed information to an error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithComponent sets the component for an error
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithPath records the filesystem path the error refers to
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithErrno overrides the errno reported for the error
func (e *Error) WithErrno(errno syscall.Errno) *Error {
	e.Errno = errno
	return e
}

// WithCause sets the underlying cause
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithStack captures the current stack trace
func (e *Error) WithStack() *Error {
	e.Stack = CaptureStack(2)
	return e
}

// GetRecommendation returns a user-friendly recommendation for fixing the error
func (e *Error) GetRecommendation() string {
	recommendations := map[ErrorCode]string{
		ErrCodeMountFailed: "Failed to mount filesystem. " +
			"Check mount point permissions and ensure FUSE is installed and /dev/fuse is accessible.",
		ErrCodeInvalidOption: "A mount option was rejected. " +
			"Check option spelling and that numeric values are in range.",
		ErrCodePathInvalid: "Paths and option strings must not contain NUL bytes.",
		ErrCodeInvalidConfig: "Configuration validation failed. " +
			"Check your configuration file syntax and required parameters.",
		ErrCodeTranslationFailed: "A filesystem returned attributes the adapter cannot translate, such as an unknown file type.",
		ErrCodeValueOverflow:     "A filesystem returned a value that does not fit the platform stat structure.",
	}

	if rec, exists := recommendations[e.Code]; exists {
		return rec
	}
	return "Please check the error message for details."
}

// DetailedDiagnostic returns a comprehensive diagnostic message
func (e *Error) DetailedDiagnostic() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Error: %s", e.Message))
	parts = append(parts, fmt.Sprintf("Code: %s", e.Code))
	parts = append(parts, fmt.Sprintf("Category: %s", e.Category))
	parts = append(parts, fmt.Sprintf("Errno: %d (%s)", int(e.ErrnoValue()), e.ErrnoValue().Error()))

	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component: %s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation: %s", e.Operation))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("Path: %s", e.Path))
	}

	if len(e.Context) > 0 {
		parts = append(parts, "\nContext:")
		for k, v := range e.Context {
			parts = append(parts, fmt.Sprintf("  %s: %s", k, v))
		}
	}

	parts = append(parts, "\nRecommendation:")
	parts = append(parts, "  "+e.GetRecommendation())

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("\nUnderlying cause: %s", e.Cause.Error()))
	}

	return strings.Join(parts, "\n")
}
