package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/tailwags/blossom/internal/logger"
	"github.com/tailwags/blossom/internal/manifest"
	"github.com/tailwags/blossom/internal/runner"
)

var (
	errPathEscapesWorkDir = errors.New("move path escapes the working directory")
	errUnknownStep        = errors.New("unknown step variant")
)

// runSteps executes the manifest steps in declaration order and stops at the first failure.
func (b *builder) runSteps(ctx context.Context) error {
	total := len(b.manifest.Steps)

	for i, step := range b.manifest.Steps {
		stepCtx := logger.WithKV(ctx, "step", step.Name)

		logger.InfoKV(stepCtx, "Running step",
			"index", fmt.Sprintf("%d/%d", i+1, total),
			"kind", step.Variant.Kind().String())

		var err error

		switch v := step.Variant.(type) {
		case manifest.CommandStep:
			err = b.runCommand(stepCtx, step.Name, v)
		case manifest.MoveStep:
			err = b.move(stepCtx, v.Path)
		default:
			err = fmt.Errorf("%w: %T", errUnknownStep, step.Variant)
		}

		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
		}
	}

	return nil
}

func (b *builder) runCommand(ctx context.Context, name string, step manifest.CommandStep) error {
	r, err := runner.New(step.Runner, b.cfg.InterpreterValue(), b.runnerOptions())
	if err != nil {
		return err
	}

	if b.cfg.StepTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, b.cfg.StepTimeout)
		defer cancel()
	}

	logger.DebugKV(ctx, "Executing command", "command", step.Command)

	status, err := r.Execute(ctx, step.Command)
	if err != nil {
		return err
	}

	if !status.Success() {
		return fmt.Errorf("%w: %q exited with status %d", ErrStepFailed, name, status)
	}

	return nil
}

// move stages path into the staging directory. Relative paths keep their
// location relative to the working directory; absolute paths outside the
// staging directory land at its root under their base name.
func (b *builder) move(ctx context.Context, path string) error {
	src := path
	if !filepath.IsAbs(src) {
		if !filepath.IsLocal(path) {
			return fmt.Errorf("%w: %s", errPathEscapesWorkDir, path)
		}

		src = filepath.Join(b.workDir, path)
	}

	if rel, err := filepath.Rel(b.stagingDir, src); err == nil && (rel == "." || filepath.IsLocal(rel)) {
		logger.DebugKV(ctx, "Path already staged", "path", src)
		return nil
	}

	dst := filepath.Join(b.stagingDir, filepath.Base(src))
	if !filepath.IsAbs(path) {
		dst = filepath.Join(b.stagingDir, path)
	}

	if err := os.MkdirAll(filepath.Dir(dst), stagingDirMode); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Moving path into staging directory", "from", src, "to", dst)

	return movePath(src, dst)
}

// movePath renames src to dst, copying and removing src when they are on
// different devices. A directory moved onto an existing directory is merged
// into it entry by entry.
func movePath(src, dst string) error {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("stat move source: %w", err)
	}

	if srcInfo.IsDir() {
		if dstInfo, statErr := os.Lstat(dst); statErr == nil && dstInfo.IsDir() {
			return mergeDir(src, dst)
		}
	}

	err = os.Rename(src, dst)
	if err == nil {
		return nil
	}

	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("move %s: %w", src, err)
	}

	if err = copyTree(src, dst); err != nil {
		return err
	}

	return os.RemoveAll(src)
}

// mergeDir moves every entry of src into the existing directory dst and removes src.
func mergeDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read move source: %w", err)
	}

	for _, entry := range entries {
		if err = movePath(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}

	return os.Remove(src)
}

// copyTree copies a file, symlink or directory tree from src to dst.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case info.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}

			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			return copyRegular(path, target, info.Mode().Perm())
		default:
			return fmt.Errorf("copy %s: unsupported file type %s", path, info.Mode().Type())
		}
	})
}

func copyRegular(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}
