package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workflowJSON = `{
  "input": [{"id": "sales", "path": "sales.csv"}],
  "steps": [
    {"id": "big", "verb": "filter", "args": {"column": "amount", "criteria": [{"operator": ">", "value": 100}]}, "inputs": {"source": "sales"}}
  ],
  "output": ["big", {"name": "raw", "node": "sales"}]
}`

func writeWorkflow(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sales.csv"), []byte("region,amount\nnorth,120\nsouth,80\n"), 0o600))
	path := filepath.Join(dir, "flow.json")
	require.NoError(t, os.WriteFile(path, []byte(workflowJSON), 0o600))
	return path
}

func execute(args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	err := Execute(context.Background(), args, out, errOut)
	return out.String(), errOut.String(), err
}

func requireExitCode(t *testing.T, err error, code int) *ExitError {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
	assert.Equal(t, code, exitErr.Code)
	return exitErr
}

func TestExecute_Usage(t *testing.T) {
	t.Run("no arguments prints help", func(t *testing.T) {
		out, _, err := execute()
		require.NoError(t, err)
		assert.Contains(t, out, "Usage:")
		assert.Contains(t, out, "validate")
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, _, err := execute("--this-is-not-a-valid-flag")
		exitErr := requireExitCode(t, err, 2)
		assert.Contains(t, exitErr.Message, "unknown flag: --this-is-not-a-valid-flag")
	})

	t.Run("missing workflow argument", func(t *testing.T) {
		_, _, err := execute("run")
		requireExitCode(t, err, 2)
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, _, err := execute("run", "--log-level", "trace", "flow.json")
		exitErr := requireExitCode(t, err, 2)
		assert.Contains(t, exitErr.Message, "invalid log level")
	})

	t.Run("invalid mutation for watch", func(t *testing.T) {
		_, _, err := execute("watch", "--mutate", "{not json", "http://127.0.0.1:1")
		requireExitCode(t, err, 2)
	})
}

func TestExecute_Run(t *testing.T) {
	path := writeWorkflow(t)

	t.Run("flags", func(t *testing.T) {
		out, _, err := execute("run", "--format", "csv", "--output", "big", path)
		require.NoError(t, err)
		assert.Equal(t, "region,amount\nnorth,120\n", out)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("WRANGLER_FORMAT", "csv")
		out, _, err := execute("run", "--output", "raw", path)
		require.NoError(t, err)
		assert.Equal(t, "region,amount\nnorth,120\nsouth,80\n", out)
	})

	t.Run("config file", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "wrangler.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("format: csv\noutput:\n  - big\nlog_level: debug\n"), 0o600))
		out, logs, err := execute("run", "--config", cfgPath, path)
		require.NoError(t, err)
		assert.Equal(t, "region,amount\nnorth,120\n", out)
		assert.Contains(t, logs, "Workflow loaded.")
	})

	t.Run("flags beat the config file", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "wrangler.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("format: text\n"), 0o600))
		out, _, err := execute("run", "--config", cfgPath, "--format", "csv", "--output", "big", path)
		require.NoError(t, err)
		assert.Equal(t, "region,amount\nnorth,120\n", out)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, _, err := execute("run", "--config", filepath.Join(t.TempDir(), "nope.yaml"), path)
		requireExitCode(t, err, 2)
	})

	t.Run("runtime errors are not usage errors", func(t *testing.T) {
		_, _, err := execute("run", filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
		var exitErr *ExitError
		assert.False(t, errors.As(err, &exitErr))
	})
}

func TestExecute_Validate(t *testing.T) {
	path := writeWorkflow(t)
	out, _, err := execute("validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 steps, 2 outputs, ok")
}

func TestWatch_Unreachable(t *testing.T) {
	_, _, err := execute("watch", "--timeout", (300 * time.Millisecond).String(), "http://127.0.0.1:1")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	line, err := summarize(map[string]any{
		"steps": []any{
			map[string]any{"id": "a", "verb": "fill"},
			map[string]any{"id": "b", "verb": "filter"},
		},
		"inputs": []any{"t"},
		"outputs": map[string]any{
			"b": map[string]any{"columns": []any{"x"}, "rows": []any{[]any{1}, []any{2}}},
			"a": nil,
		},
		"errors": map[string]any{"b": "boom"},
	})
	require.NoError(t, err)
	assert.Equal(t, "steps=2 outputs=[a(pending) b(2 rows)] failing=[b]", line)

	_, err = summarize("not a snapshot")
	assert.Error(t, err)
}
