package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Embedded interprets commands in-process with mvdan.cc/sh.
// External programs are still started as child processes.
type Embedded struct {
	opts Options
}

// NewEmbedded returns an Embedded runner.
func NewEmbedded(opts Options) *Embedded {
	return &Embedded{opts: opts}
}

// Execute parses and runs command.
func (e *Embedded) Execute(ctx context.Context, command string) (ExitStatus, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "command")
	if err != nil {
		return -1, fmt.Errorf("parse command: %w", err)
	}

	env := e.opts.Env
	if env == nil {
		env = os.Environ()
	}

	runnerOpts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(e.opts.Stdin, e.opts.Stdout, e.opts.Stderr),
	}

	if e.opts.Dir != "" {
		runnerOpts = append(runnerOpts, interp.Dir(e.opts.Dir))
	}

	r, err := interp.New(runnerOpts...)
	if err != nil {
		return -1, fmt.Errorf("create interpreter: %w", err)
	}

	err = r.Run(ctx, prog)
	if err == nil {
		return 0, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, fmt.Errorf("interpret command: %w", ctxErr)
	}

	var status interp.ExitStatus
	if errors.As(err, &status) {
		return ExitStatus(status), nil
	}

	return -1, fmt.Errorf("interpret command: %w", err)
}
