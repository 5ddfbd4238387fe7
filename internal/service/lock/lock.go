package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/tailwags/blossom/internal/logger"
)

// MarkerFilename is the lock file created in the working directory.
const MarkerFilename = ".blossom-build.lock"

// markerFileMode is the permission of the marker file.
const markerFileMode os.FileMode = 0o644

// ErrBuildRunning is returned when another live process holds the lock.
var ErrBuildRunning = errors.New("another build is running in this directory")

// processFinder looks up a process by PID; nil process means not running.
type processFinder func(pid int) (ps.Process, error)

// Lock is a held build marker.
type Lock struct {
	path string
}

// Acquire creates the marker in dir, replacing it if its owner is gone.
func Acquire(ctx context.Context, dir string) (*Lock, error) {
	return acquire(ctx, dir, os.Getpid(), ps.FindProcess)
}

func acquire(ctx context.Context, dir string, pid int, find processFinder) (*Lock, error) {
	path := filepath.Join(dir, MarkerFilename)

	for range 2 {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, markerFileMode)
		if err == nil {
			_, writeErr := file.WriteString(strconv.Itoa(pid))
			closeErr := file.Close()

			if err = errors.Join(writeErr, closeErr); err != nil {
				_ = os.Remove(path)

				return nil, fmt.Errorf("write build marker: %w", err)
			}

			logger.DebugKV(ctx, "Acquired build marker", "path", path, "pid", pid)

			return &Lock{path: path}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create build marker: %w", err)
		}

		if held, holder := isHeld(path, pid, find); held {
			return nil, fmt.Errorf("%w (pid %d, marker %s)", ErrBuildRunning, holder, path)
		}

		logger.Info(ctx, "The build marker is stale, removing it")

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale build marker: %w", err)
		}
	}

	return nil, fmt.Errorf("%w (marker %s)", ErrBuildRunning, path)
}

// isHeld reports whether the marker names a live process other than self.
// Unreadable markers and unknown processes count as stale.
func isHeld(path string, self int, find processFinder) (bool, int) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return false, 0
	}

	holder, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || holder <= 0 || holder == self {
		return false, holder
	}

	process, err := find(holder)
	if err != nil || process == nil {
		return false, holder
	}

	return true, holder
}

// Path returns the marker location.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the marker. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}

	err := os.Remove(l.path)
	l.path = ""

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove build marker: %w", err)
	}

	return nil
}
