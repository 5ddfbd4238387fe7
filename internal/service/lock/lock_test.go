package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	pid int
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return "blossom" }

func alive(pid int) (ps.Process, error) {
	return fakeProcess{pid: pid}, nil
}

func dead(int) (ps.Process, error) {
	return nil, nil
}

// TestAcquireRelease creates and removes the marker.
func TestAcquireRelease(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	l, err := Acquire(context.Background(), dir)
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, MarkerFilename))
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), string(contents))

	require.NoError(t, l.Release())
	require.NoError(t, l.Release())

	_, err = os.Stat(l.Path())
	require.Error(t, err)
}

// TestAcquireHeldByLiveProcess refuses to start while another build runs.
func TestAcquireHeldByLiveProcess(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MarkerFilename), []byte("4242"), 0o600))

	_, err := acquire(context.Background(), dir, 1000, alive)
	require.ErrorIs(t, err, ErrBuildRunning)
}

// TestAcquireReplacesStaleMarker takes over a marker whose owner is gone.
func TestAcquireReplacesStaleMarker(t *testing.T) {
	t.Parallel()

	for name, contents := range map[string]string{"dead pid": "4242", "garbage": "not a pid", "self": "1000"} {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, MarkerFilename), []byte(contents), 0o600))

		l, err := acquire(context.Background(), dir, 1000, dead)
		require.NoError(t, err, name)

		data, err := os.ReadFile(l.Path())
		require.NoError(t, err)
		require.Equal(t, "1000", string(data), name)
	}
}

// TestAcquireLookupFailure treats process lookup errors as a stale marker.
func TestAcquireLookupFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MarkerFilename), []byte("4242"), 0o600))

	l, err := acquire(context.Background(), dir, 1000, func(int) (ps.Process, error) {
		return nil, errors.New("no process table")
	})
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

// TestAcquireMissingDirectory reports a creation failure.
func TestAcquireMissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := Acquire(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrBuildRunning)
}
