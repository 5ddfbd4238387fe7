package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tailwags/blossom/internal/manifest"
)

// ExitStatus is the exit code of an executed command.
type ExitStatus int

// Success reports whether the command exited with status 0.
func (s ExitStatus) Success() bool {
	return s == 0
}

// Runner executes a single command string.
//
// A command that runs and exits non-zero yields its status and a nil error;
// an error means the command could not be run or was interrupted.
type Runner interface {
	Execute(ctx context.Context, command string) (ExitStatus, error)
}

// Interpreter selects the implementation behind the shell runner kind.
type Interpreter string

const (
	// InterpreterSystem runs commands with the system shell binary.
	InterpreterSystem Interpreter = "system"
	// InterpreterEmbedded runs commands with the built-in shell interpreter.
	InterpreterEmbedded Interpreter = "embedded"

	// DefaultShellPath is the POSIX shell used by InterpreterSystem.
	DefaultShellPath = "/bin/sh"
)

var (
	errUnknownInterpreter = errors.New("unknown shell interpreter")
	errUnsupportedRunner  = errors.New("unsupported runner")
)

// ParseInterpreter maps a configuration value to an Interpreter.
// An empty string selects InterpreterSystem.
func ParseInterpreter(s string) (Interpreter, error) {
	switch Interpreter(s) {
	case "":
		return InterpreterSystem, nil
	case InterpreterSystem, InterpreterEmbedded:
		return Interpreter(s), nil
	default:
		return "", fmt.Errorf("%w: %q (expected %s or %s)", errUnknownInterpreter, s, InterpreterSystem, InterpreterEmbedded)
	}
}

// Options is the execution environment shared by all runners.
type Options struct {
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env is the full environment; nil inherits the current process environment.
	Env []string
	// Stdin, Stdout and Stderr default to empty input and discarded output when nil.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// ShellPath overrides DefaultShellPath for InterpreterSystem.
	ShellPath string
}

// New returns the Runner for a manifest runner kind.
func New(kind manifest.RunnerKind, interpreter Interpreter, opts Options) (Runner, error) {
	if kind != manifest.RunnerShell {
		return nil, fmt.Errorf("%w: %q", errUnsupportedRunner, kind)
	}

	switch interpreter {
	case InterpreterSystem, "":
		return NewShell(opts), nil
	case InterpreterEmbedded:
		return NewEmbedded(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownInterpreter, interpreter)
	}
}
