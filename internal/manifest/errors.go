package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tailwags/blossom/internal/variables"
)

// Sentinel errors matched by the typed errors below via errors.Is.
var (
	// ErrFormat indicates the manifest text does not match the manifest schema.
	ErrFormat = errors.New("invalid manifest format")

	// ErrLicense indicates the license field is not a valid SPDX expression.
	ErrLicense = errors.New("invalid license expression")

	// ErrVariable indicates a field references an undefined variable.
	ErrVariable = errors.New("unresolved manifest variable")
)

// FormatError reports a structural problem in manifest text.
type FormatError struct {
	// Field is the dotted path of the offending field, empty for syntax errors.
	Field string
	// Err is the underlying cause.
	Err error
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", ErrFormat, e.Err)
	}

	return fmt.Sprintf("%s: %s: %v", ErrFormat, e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// LicenseError reports an invalid SPDX license expression.
type LicenseError struct {
	// Expression is the license text as written in the manifest.
	Expression string
	// Invalid lists the fragments the SPDX parser rejected.
	Invalid []string
}

func (e *LicenseError) Error() string {
	if len(e.Invalid) == 0 {
		return fmt.Sprintf("%s: %q", ErrLicense, e.Expression)
	}

	return fmt.Sprintf("%s: %q (rejected: %s)", ErrLicense, e.Expression, strings.Join(e.Invalid, ", "))
}

// Is reports whether target is ErrLicense.
func (e *LicenseError) Is(target error) bool {
	return target == ErrLicense
}

// VariableError reports a placeholder in a manifest field that could not be resolved.
type VariableError struct {
	// Field is the dotted path of the field, e.g. "steps[2].command".
	Field string
	// Err is the substitution failure.
	Err *variables.Error
	// Missing lists every undefined name referenced by the field.
	Missing []string
}

func (e *VariableError) Error() string {
	if len(e.Missing) > 1 {
		return fmt.Sprintf("%s: %s: undefined variables %s", ErrVariable, e.Field, strings.Join(e.Missing, ", "))
	}

	return fmt.Sprintf("%s: %s: %v", ErrVariable, e.Field, e.Err)
}

// Unwrap returns the substitution failure.
func (e *VariableError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrVariable.
func (e *VariableError) Is(target error) bool {
	return target == ErrVariable
}
