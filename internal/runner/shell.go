package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Shell runs commands as "<shell> -c <command>" child processes.
type Shell struct {
	opts Options
}

// NewShell returns a Shell using opts.ShellPath or DefaultShellPath.
func NewShell(opts Options) *Shell {
	if opts.ShellPath == "" {
		opts.ShellPath = DefaultShellPath
	}

	return &Shell{opts: opts}
}

// Execute runs command and waits for it. Canceling ctx kills the child.
func (s *Shell) Execute(ctx context.Context, command string) (ExitStatus, error) {
	//nolint:gosec // Running manifest commands is the purpose of this runner.
	cmd := exec.CommandContext(ctx, s.opts.ShellPath, "-c", command)
	cmd.Dir = s.opts.Dir
	cmd.Env = s.opts.Env
	cmd.Stdin = s.opts.Stdin
	cmd.Stdout = s.opts.Stdout
	cmd.Stderr = s.opts.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, fmt.Errorf("run %s: %w", s.opts.ShellPath, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return ExitStatus(exitErr.ExitCode()), nil
	}

	return -1, fmt.Errorf("run %s: %w", s.opts.ShellPath, err)
}
