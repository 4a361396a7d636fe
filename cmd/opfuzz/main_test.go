package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/opfuzz/internal/cli"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// A space file with a syntax error makes app.NewApp panic.
	filePath := filepath.Join(t.TempDir(), "space.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(`
		parameter "dim" {
			distribution = "literal"
	`), 0o600))

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	runErr := run(context.Background(), out, errOut, []string{"-n", "1", filePath})

	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")
	errStr := runErr.Error()
	require.True(t, strings.Contains(errStr, "application startup panicked"), "The error message should indicate that a panic was recovered.")
	require.True(t, strings.Contains(errStr, "failed to parse"), "The error message should contain the underlying reason for the panic.")
	require.Empty(t, out.String())
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	err := run(context.Background(), out, errOut, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, errOut.String(), "Usage:", "Expected help text to be printed to the error output")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_WritesRecords(t *testing.T) {
	t.Parallel()

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	err := run(context.Background(), out, errOut, []string{"-seed", "1", "-scale", "small", "-n", "4", "-log-format", "text"})

	require.NoError(t, err)
	require.Equal(t, 4, strings.Count(out.String(), "\n"))
	require.Contains(t, out.String(), `"x_size":`)
	require.Contains(t, errOut.String(), "Generation finished.")
}

func TestRun_DumpsSpace(t *testing.T) {
	t.Parallel()

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	err := run(context.Background(), out, errOut, []string{"-scale", "small", "-n", "0", "-dump-space", "-"})

	require.NoError(t, err)
	require.Contains(t, out.String(), `parameter "random_value"`)
	require.Contains(t, out.String(), `tensor "y"`)
}
