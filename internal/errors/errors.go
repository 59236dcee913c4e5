// Package errors provides standardized error handling for pkgbatch.
// It defines the error kinds used across the application together with
// typed errors for files, configuration and tool invocations.
package errors

import (
	"errors"
	"fmt"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// Common error constants for frequently occurring errors
var (
	ErrDirectoryAccess = NewFileError("cannot list directory", "", DirectoryAccess, nil)
	ErrInvalidPackage  = NewFileError("invalid package", "", InvalidPackage, nil)
	ErrInvalidConfig   = NewConfigError("invalid configuration", "", InvalidConfig, nil)
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// File error kinds
	DirectoryAccess
	FileNotFound
	FileAccessDenied
	InvalidPath
	InvalidPackage
	// Invocation error kinds
	ToolNotLaunched
	ToolFailed
	// Config error kinds
	InvalidConfig
	ConfigNotFound
	InvalidPattern
	// Input error kinds
	InvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case DirectoryAccess:
		return "directory_access"
	case FileNotFound:
		return "file_not_found"
	case FileAccessDenied:
		return "file_access_denied"
	case InvalidPath:
		return "invalid_path"
	case InvalidPackage:
		return "invalid_package"
	case ToolNotLaunched:
		return "tool_not_launched"
	case ToolFailed:
		return "tool_failed"
	case InvalidConfig:
		return "invalid_config"
	case ConfigNotFound:
		return "config_not_found"
	case InvalidPattern:
		return "invalid_pattern"
	case InvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// FileError represents errors related to file and directory operations
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
}

// Error returns the file error message
func (e *FileError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Is matches sentinel file errors by kind, so a concrete error with a
// path still satisfies errors.Is(err, ErrDirectoryAccess).
func (e *FileError) Is(target error) bool {
	t, ok := target.(*FileError)
	if !ok {
		return false
	}
	return t.path == "" && t.err == nil && t.kind == e.kind
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// InvocationError describes a failed run of the external renaming tool.
// Its kind tells a tool that could not be started (ToolNotLaunched) apart
// from one that ran and reported failure (ToolFailed).
type InvocationError struct {
	ApplicationError
	tool     string
	file     string
	exitCode int
}

// NewInvocationError creates a new invocation error. exitCode is -1 when
// the tool never produced one.
func NewInvocationError(tool, file string, kind ErrorKind, exitCode int, err error) *InvocationError {
	msg := "renaming tool failed"
	if kind == ToolNotLaunched {
		msg = "renaming tool could not be launched"
	}
	return &InvocationError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		tool:     tool,
		file:     file,
		exitCode: exitCode,
	}
}

// Error returns the invocation error message
func (e *InvocationError) Error() string {
	s := fmt.Sprintf("%s: %s %s", e.msg, e.tool, e.file)
	if e.kind == ToolFailed && e.exitCode >= 0 {
		s = fmt.Sprintf("%s (exit status %d)", s, e.exitCode)
	}
	if e.err != nil {
		s = fmt.Sprintf("%s: %v", s, e.err)
	}
	return s
}

// Tool returns the executable that was invoked
func (e *InvocationError) Tool() string {
	return e.tool
}

// File returns the file name passed to the tool
func (e *InvocationError) File() string {
	return e.file
}

// ExitCode returns the tool's exit code, or -1 if it has none
func (e *InvocationError) ExitCode() int {
	return e.exitCode
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// NewKind creates a new error of the given kind
func NewKind(kind ErrorKind, format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: kind,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// KindOf returns the kind of the first application error in err's chain
// that carries a kind other than Unknown.
func KindOf(err error) ErrorKind {
	for err != nil {
		if k, ok := err.(interface{ Kind() ErrorKind }); ok && k.Kind() != Unknown {
			return k.Kind()
		}
		err = errors.Unwrap(err)
	}
	return Unknown
}

// IsDirectoryAccess checks if the error is a directory access error
func IsDirectoryAccess(err error) bool {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind() == DirectoryAccess
	}
	return false
}

// IsInvalidPackage checks if the error is an invalid package error
func IsInvalidPackage(err error) bool {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind() == InvalidPackage
	}
	return false
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == InvalidConfig || configErr.Kind() == InvalidPattern
	}
	return false
}

// IsToolNotLaunched checks if the error is a tool launch failure
func IsToolNotLaunched(err error) bool {
	var invErr *InvocationError
	if errors.As(err, &invErr) {
		return invErr.Kind() == ToolNotLaunched
	}
	return false
}

// IsToolFailed checks if the error is a tool that ran and failed
func IsToolFailed(err error) bool {
	var invErr *InvocationError
	if errors.As(err, &invErr) {
		return invErr.Kind() == ToolFailed
	}
	return false
}
