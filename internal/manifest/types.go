package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"
)

// ArchiveExtension is the file extension of built package archives.
const ArchiveExtension = ".peach"

// Manifest is a parsed build manifest.
type Manifest struct {
	// Info identifies the package.
	Info Info
	// Dependencies is nil when the manifest has no [dependencies] table.
	Dependencies *Dependencies
	// Sources are the inputs to download, in declaration order.
	Sources []Source
	// Steps are the build steps, in declaration order.
	Steps []Step
	// Directories maps logical names to paths relative to the staging directory.
	Directories map[string]string
}

// ArchiveBaseName returns "<name>-<version>".
func (m *Manifest) ArchiveBaseName() string {
	return m.Info.Name + "-" + m.Info.Version
}

// ArchiveFilename returns the archive base name with ArchiveExtension.
func (m *Manifest) ArchiveFilename() string {
	return m.ArchiveBaseName() + ArchiveExtension
}

// Info is the package identity.
type Info struct {
	Name        string
	Version     string
	Description string
	License     License
}

// License is a validated SPDX license expression.
type License string

// ParseLicense validates expression against the SPDX expression grammar.
func ParseLicense(expression string) (License, error) {
	if strings.TrimSpace(expression) == "" {
		return "", &LicenseError{Expression: expression}
	}

	if valid, invalid := spdxexp.ValidateLicenses([]string{expression}); !valid {
		return "", &LicenseError{Expression: expression, Invalid: invalid}
	}

	return License(expression), nil
}

func (l License) String() string {
	return string(l)
}

// Dependencies lists package names by role. Names are opaque and unresolved.
type Dependencies struct {
	Required []string `toml:"required,omitempty"`
	Optional []string `toml:"optional,omitempty"`
	Build    []string `toml:"build,omitempty"`
}

// Source is a downloadable input with its expected checksum.
type Source struct {
	// URL has its placeholders resolved at parse time.
	URL string
	// Checksum has the form "<algorithm>:<lowercase hex digest>".
	Checksum string
}

// Filename returns the last path segment of the source URL, the name a
// fetched source is stored under.
func (s Source) Filename() string {
	u := s.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}

	u = strings.TrimRight(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		u = u[i+1:]
	}

	return filepath.Base(filepath.FromSlash(u))
}

// Step is one named unit of build work.
type Step struct {
	// Name is a free-form label; it need not be unique.
	Name string
	// Variant is either CommandStep or MoveStep.
	Variant StepVariant
}

// StepKind discriminates the step variants.
type StepKind int

const (
	// StepKindCommand runs a command through a runner.
	StepKindCommand StepKind = iota + 1
	// StepKindMove relocates a path into the staging directory.
	StepKindMove
)

func (k StepKind) String() string {
	switch k {
	case StepKindCommand:
		return "command"
	case StepKindMove:
		return "move"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// StepVariant is implemented only by CommandStep and MoveStep.
type StepVariant interface {
	Kind() StepKind
	isStepVariant()
}

// CommandStep executes Command with the interpreter selected by Runner.
type CommandStep struct {
	Runner  RunnerKind
	Command string
}

// Kind implements StepVariant.
func (CommandStep) Kind() StepKind { return StepKindCommand }

func (CommandStep) isStepVariant() {}

// MoveStep stages the file or directory at Path.
type MoveStep struct {
	Path string
}

// Kind implements StepVariant.
func (MoveStep) Kind() StepKind { return StepKindMove }

func (MoveStep) isStepVariant() {}

// RunnerKind names the interpreter of a command step.
type RunnerKind string

// RunnerShell runs commands with a POSIX shell.
const RunnerShell RunnerKind = "shell"

var errUnknownRunner = errors.New("unknown runner")

// ParseRunnerKind maps a manifest runner name to a RunnerKind.
func ParseRunnerKind(s string) (RunnerKind, error) {
	switch RunnerKind(s) {
	case RunnerShell:
		return RunnerShell, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownRunner, s)
	}
}

func (r RunnerKind) String() string {
	return string(r)
}
