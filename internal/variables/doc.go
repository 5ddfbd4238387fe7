// Package variables resolves %{name} placeholders embedded in manifest strings.
//
// An Engine owns the compiled placeholder pattern. Substitution is strict:
// a placeholder whose name is missing from the Table is reported as an *Error
// and no partially substituted string is returned.
package variables
