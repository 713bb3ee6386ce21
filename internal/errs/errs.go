// Package errs defines the error categories shared by all patching packages.
package errs

import "errors"

// Error categories. Package specific sentinel errors wrap one of these so
// callers can test either the exact failure or its category with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrFormat     = errors.New("format error")
	ErrCapacity   = errors.New("capacity error")
	ErrRange      = errors.New("range error")
	ErrNotFound   = errors.New("not found")
)
