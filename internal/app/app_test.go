package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/wrangler/internal/graph"
	"github.com/zishang520/socket.io/v2/socket"
)

const salesCSV = `region,amount
north,120
south,80
east,300
`

const salesWorkflow = `{
  "input": [{"id": "sales", "path": "sales.csv"}],
  "steps": [
    {"id": "big", "verb": "filter", "args": {"column": "amount", "criteria": [{"operator": ">", "value": 100}]}, "inputs": {"source": "sales"}},
    {"id": "flagged", "verb": "fill", "args": {"to": "big", "value": true}}
  ],
  "output": ["flagged", {"name": "everything", "node": "sales"}]
}`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(Config{WorkflowPath: "flow.json"})
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, FormatText, cfg.Format)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, ":8080", cfg.ListenAddr)

	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing workflow", Config{}, "WorkflowPath"},
		{"bad log format", Config{WorkflowPath: "f", LogFormat: "xml"}, "invalid log format"},
		{"bad log level", Config{WorkflowPath: "f", LogLevel: "trace"}, "invalid log level"},
		{"bad output format", Config{WorkflowPath: "f", Format: "parquet"}, "invalid format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestApp_Run(t *testing.T) {
	dir := writeFiles(t, map[string]string{"sales.csv": salesCSV, "flow.json": salesWorkflow})

	t.Run("prints every output", func(t *testing.T) {
		cfg, err := NewConfig(Config{WorkflowPath: filepath.Join(dir, "flow.json")})
		require.NoError(t, err)
		a, out, _ := SetupAppTest(t, cfg)

		require.NoError(t, a.Run(context.Background()))
		text := out.String()
		assert.Contains(t, text, "== flagged ==")
		assert.Contains(t, text, "== everything ==")
		assert.Contains(t, text, "north")
		assert.Contains(t, text, "true")
	})

	t.Run("csv of a selected output", func(t *testing.T) {
		cfg, err := NewConfig(Config{WorkflowPath: filepath.Join(dir, "flow.json"), Format: FormatCSV, Outputs: []string{"flagged"}})
		require.NoError(t, err)
		a, out, _ := SetupAppTest(t, cfg)

		require.NoError(t, a.Run(context.Background()))
		assert.Equal(t, "region,amount,big\nnorth,120,true\neast,300,true\n", out.String())
	})

	t.Run("unknown selected output", func(t *testing.T) {
		cfg, err := NewConfig(Config{WorkflowPath: filepath.Join(dir, "flow.json"), Outputs: []string{"nope"}})
		require.NoError(t, err)
		a, _, _ := SetupAppTest(t, cfg)
		assert.ErrorIs(t, a.Run(context.Background()), graph.ErrUnknownOutput)
	})

	t.Run("input path overrides", func(t *testing.T) {
		other := writeFiles(t, map[string]string{"more.csv": "region,amount\nwest,500\n"})
		cfg, err := NewConfig(Config{
			WorkflowPath: filepath.Join(dir, "flow.json"),
			InputPaths:   map[string]string{"sales": filepath.Join(other, "more.csv")},
			Format:       FormatCSV,
			Outputs:      []string{"flagged"},
		})
		require.NoError(t, err)
		a, out, _ := SetupAppTest(t, cfg)

		require.NoError(t, a.Run(context.Background()))
		assert.Equal(t, "region,amount,big\nwest,500,true\n", out.String())
	})

	t.Run("sqlite export", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "out.db")
		cfg, err := NewConfig(Config{WorkflowPath: filepath.Join(dir, "flow.json"), SQLitePath: dbPath})
		require.NoError(t, err)
		a, _, _ := SetupAppTest(t, cfg)
		require.NoError(t, a.Run(context.Background()))

		db, err := sql.Open("sqlite3", dbPath)
		require.NoError(t, err)
		defer db.Close()
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "flagged"`).Scan(&n))
		assert.Equal(t, 2, n)
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "everything"`).Scan(&n))
		assert.Equal(t, 3, n)
	})
}

func TestApp_RunFailures(t *testing.T) {
	t.Run("step failures fail the run after printing", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"sales.csv": salesCSV,
			"flow.json": `{
			  "input": [{"id": "sales", "path": "sales.csv"}],
			  "steps": [{"id": "broken", "verb": "filter", "args": {"column": "missing"}, "inputs": {"source": "sales"}}],
			  "output": ["broken", {"name": "raw", "node": "sales"}]
			}`,
		})
		cfg, err := NewConfig(Config{WorkflowPath: filepath.Join(dir, "flow.json")})
		require.NoError(t, err)
		a, out, _ := SetupAppTest(t, cfg)

		err = a.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), `step "broken"`)
		assert.Contains(t, err.Error(), `output "broken" produced no table`)
		assert.Contains(t, out.String(), "== raw ==")
	})

	t.Run("missing input file", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"flow.json": salesWorkflow})
		cfg, err := NewConfig(Config{WorkflowPath: filepath.Join(dir, "flow.json")})
		require.NoError(t, err)
		a, _, _ := SetupAppTest(t, cfg)
		err = a.Run(context.Background())
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.ErrorContains(t, err, `input "sales"`)
	})

	t.Run("unsupported definition format", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"flow.toml": ""})
		cfg, err := NewConfig(Config{WorkflowPath: filepath.Join(dir, "flow.toml")})
		require.NoError(t, err)
		a, _, _ := SetupAppTest(t, cfg)
		assert.ErrorContains(t, a.Run(context.Background()), "unsupported definition format")
	})
}

func TestApp_RunFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "id,name\n1,ada\n2,grace\n")
	}))
	defer srv.Close()

	dir := writeFiles(t, map[string]string{
		"flow.hcl": fmt.Sprintf(`
step "people" {
  verb = "fetch"
  args = { url = "%s/people.csv" }
}
output "people" {
  node = "people"
}
`, srv.URL),
	})
	cfg, err := NewConfig(Config{WorkflowPath: dir, Format: FormatCSV})
	require.NoError(t, err)
	a, out, _ := SetupAppTest(t, cfg)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, "id,name\n1,ada\n2,grace\n", out.String())
}

func TestApp_Validate(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"sales.csv": salesCSV,
		"flow.json": salesWorkflow,
		"broken.yaml": `
steps:
  - id: a
    verb: fill
    inputs:
      source: ghost
`,
	})

	cfg, err := NewConfig(Config{WorkflowPath: filepath.Join(dir, "flow.json")})
	require.NoError(t, err)
	a, out, _ := SetupAppTest(t, cfg)
	require.NoError(t, a.Validate(context.Background()))
	assert.True(t, strings.HasSuffix(out.String(), "2 steps, 2 outputs, ok\n"), out.String())

	cfg, err = NewConfig(Config{WorkflowPath: filepath.Join(dir, "broken.yaml")})
	require.NoError(t, err)
	a, _, _ = SetupAppTest(t, cfg)
	assert.ErrorIs(t, a.Validate(context.Background()), graph.ErrUnknownReference)
}

func TestApp_Health(t *testing.T) {
	cfg, err := NewConfig(Config{WorkflowPath: "unused.json"})
	require.NoError(t, err)
	a, _, logs := SetupAppTest(t, cfg)

	io := socket.NewServer(nil, nil)
	defer io.Close(nil)
	srv := httptest.NewServer(a.serveMux(io))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, logs.String(), "Health check endpoint hit.")
}
