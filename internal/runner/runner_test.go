package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tailwags/blossom/internal/manifest"
)

func runners(opts Options) map[string]Runner {
	return map[string]Runner{
		"system":   NewShell(opts),
		"embedded": NewEmbedded(opts),
	}
}

// TestExecuteOutputAndDir checks that both runners honour the directory, environment and stdout.
func TestExecuteOutputAndDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for name := range runners(Options{}) {
		var stdout bytes.Buffer

		r := runners(Options{
			Dir:    dir,
			Env:    []string{"PATH=" + os.Getenv("PATH"), "BLOSSOM_VERSION=1.0"},
			Stdout: &stdout,
		})[name]

		status, err := r.Execute(context.Background(), `echo "v=$BLOSSOM_VERSION" && pwd`)
		require.NoError(t, err, name)
		require.True(t, status.Success(), name)

		require.Contains(t, stdout.String(), "v=1.0\n", name)
		require.Contains(t, stdout.String(), filepath.Base(dir), name)
	}
}

// TestExecuteExitStatus ensures non-zero exits are reported as status, not error.
func TestExecuteExitStatus(t *testing.T) {
	t.Parallel()

	for name, r := range runners(Options{}) {
		status, err := r.Execute(context.Background(), "exit 3")
		require.NoError(t, err, name)
		require.Equal(t, ExitStatus(3), status, name)
		require.False(t, status.Success(), name)
	}
}

// TestExecuteCreatesFiles runs a command with side effects in the working directory.
func TestExecuteCreatesFiles(t *testing.T) {
	t.Parallel()

	for name := range runners(Options{}) {
		dir := t.TempDir()

		r := runners(Options{Dir: dir})[name]

		status, err := r.Execute(context.Background(), "mkdir -p out && printf built > out/result")
		require.NoError(t, err, name)
		require.True(t, status.Success(), name)

		data, err := os.ReadFile(filepath.Join(dir, "out", "result"))
		require.NoError(t, err, name)
		require.Equal(t, "built", string(data), name)
	}
}

// TestExecuteTimeout ensures a canceled context interrupts a long command.
func TestExecuteTimeout(t *testing.T) {
	t.Parallel()

	for name, r := range runners(Options{}) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)

		_, err := r.Execute(ctx, "sleep 10")

		cancel()

		require.ErrorIs(t, err, context.DeadlineExceeded, name)
	}
}

// TestEmbeddedSyntaxError reports unparsable commands as errors.
func TestEmbeddedSyntaxError(t *testing.T) {
	t.Parallel()

	_, err := NewEmbedded(Options{}).Execute(context.Background(), "if then")
	require.Error(t, err)
}

// TestShellMissingBinary reports an unusable shell path as an error.
func TestShellMissingBinary(t *testing.T) {
	t.Parallel()

	_, err := NewShell(Options{ShellPath: filepath.Join(t.TempDir(), "nosh")}).Execute(context.Background(), "true")
	require.Error(t, err)
}

// TestNew maps runner kinds and interpreters to implementations.
func TestNew(t *testing.T) {
	t.Parallel()

	r, err := New(manifest.RunnerShell, InterpreterSystem, Options{})
	require.NoError(t, err)
	require.IsType(t, &Shell{}, r)

	r, err = New(manifest.RunnerShell, InterpreterEmbedded, Options{})
	require.NoError(t, err)
	require.IsType(t, &Embedded{}, r)

	_, err = New("fish", InterpreterSystem, Options{})
	require.ErrorIs(t, err, errUnsupportedRunner)

	_, err = New(manifest.RunnerShell, "zsh", Options{})
	require.ErrorIs(t, err, errUnknownInterpreter)

	interpreter, err := ParseInterpreter("")
	require.NoError(t, err)
	require.Equal(t, InterpreterSystem, interpreter)

	_, err = ParseInterpreter("bash")
	require.ErrorIs(t, err, errUnknownInterpreter)
}
