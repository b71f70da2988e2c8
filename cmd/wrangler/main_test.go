package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/wrangler/internal/cli"
)

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"--help"})

	require.NoError(t, err, "run() should return a nil error for --help")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 2, exitErr.Code)
}

func TestRun_InvalidHCL(t *testing.T) {
	t.Parallel()

	invalidHCL := `
		step "a" {
			verb = "fill"
		// Missing closing brace here
	`
	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600), "failed to set up test file")

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"validate", filePath})

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse")
}

func TestRun_Workflow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.csv"), []byte("n\n1\n2\n3\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flow.yaml"), []byte(`
input:
  - id: t
    path: t.csv
steps:
  - id: doubled
    verb: derive
    args:
      column1: n
      operator: "*"
      column2: n
      to: sq
    inputs:
      source: t
output:
  - doubled
`), 0o600))

	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"run", "--format", "csv", filepath.Join(dir, "flow.yaml")})

	require.NoError(t, err)
	require.Equal(t, "n,sq\n1,1\n2,4\n3,9\n", out.String())
}
