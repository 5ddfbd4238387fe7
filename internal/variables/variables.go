package variables

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Table maps variable names to their values. Names are case-sensitive.
type Table map[string]string

// ErrUndefined is matched by every *Error via errors.Is.
var ErrUndefined = errors.New("undefined variable")

// Error reports a placeholder that references a name absent from the Table.
type Error struct {
	// Name is the variable name between the braces, taken verbatim.
	Name string
	// Haystack is the string that contained the placeholder.
	Haystack string
}

func (e *Error) Error() string {
	return fmt.Sprintf("undefined variable %q in %q", e.Name, e.Haystack)
}

// Unwrap lets errors.Is match ErrUndefined.
func (e *Error) Unwrap() error {
	return ErrUndefined
}

// placeholderPattern matches %{name} where name is one or more non-'}' runes.
const placeholderPattern = `%\{([^}]+)\}`

// Engine performs placeholder substitution.
type Engine struct {
	pattern *regexp.Regexp
}

// New compiles the placeholder pattern and returns a ready Engine.
func New() *Engine {
	return &Engine{
		pattern: regexp.MustCompile(placeholderPattern),
	}
}

// Default returns a process-wide Engine, compiled on first use.
//
//nolint:gochecknoglobals // Memoized accessor; callers may still build their own with New.
var Default = sync.OnceValue(New)

// Substitute replaces every %{name} in haystack with vars[name].
// Replaced text is not scanned again. If any name is missing the call fails
// with *Error and returns an empty string.
func (e *Engine) Substitute(haystack string, vars Table) (string, error) {
	matches := e.pattern.FindAllStringSubmatchIndex(haystack, -1)
	if len(matches) == 0 {
		return haystack, nil
	}

	var (
		builder strings.Builder
		last    int
	)

	builder.Grow(len(haystack))

	for _, m := range matches {
		name := haystack[m[2]:m[3]]

		value, ok := vars[name]
		if !ok {
			return "", &Error{Name: name, Haystack: haystack}
		}

		builder.WriteString(haystack[last:m[0]])
		builder.WriteString(value)

		last = m[1]
	}

	builder.WriteString(haystack[last:])

	return builder.String(), nil
}

// References returns the variable names referenced by haystack in order of
// appearance, duplicates included.
func (e *Engine) References(haystack string) []string {
	matches := e.pattern.FindAllStringSubmatch(haystack, -1)

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}

	return names
}

// Missing returns the referenced names that vars does not define, without duplicates.
func (e *Engine) Missing(haystack string, vars Table) []string {
	var (
		seen    = make(map[string]struct{})
		missing []string
	)

	for _, name := range e.References(haystack) {
		if _, ok := vars[name]; ok {
			continue
		}

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}
		missing = append(missing, name)
	}

	return missing
}
