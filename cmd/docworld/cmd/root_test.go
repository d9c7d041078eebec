package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/docworld/cmd/docworld/cmd"
)

const config = `
log:
  level: error
types:
  vec:
    kind: object
    fields:
      - name: x
        kind: number
      - name: y
        kind: number
components:
  position:
    kind: ref
    ref: vec
`

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCmd(t *testing.T) {
	dir := t.TempDir()
	cfg := write(t, dir, "docworld.yaml", config)
	doc := write(t, dir, "doc.json", `{"e1": {"position": {"x": 1, "y": 2}}}`)
	update := write(t, dir, "next.json", `{
		"e1": {"position": {"x": 5, "y": 2}},
		"e2": {"position": {"x": 0, "y": 0}, "mystery": {}}
	}`)
	outPath := filepath.Join(dir, "world.json")

	var out bytes.Buffer
	root := cmd.NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"load",
		"--config", cfg,
		"--doc", doc,
		"--update", update,
		"--out", outPath,
	})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "entities: 2")
	assert.Contains(t, out.String(), "skipped: 1")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var world map[string]any
	require.NoError(t, json.Unmarshal(data, &world))
	assert.Equal(t, map[string]any{
		"e1": map[string]any{"position": map[string]any{"x": 5.0, "y": 2.0}},
		"e2": map[string]any{"position": map[string]any{"x": 0.0, "y": 0.0}},
	}, world)
}

func TestLoadCmdStrict(t *testing.T) {
	dir := t.TempDir()
	cfg := write(t, dir, "docworld.yaml", config)
	doc := write(t, dir, "doc.json", `{"e1": {"mystery": {}}}`)

	root := cmd.NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"load", "--config", cfg, "--doc", doc})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")
}

func TestLoadCmdMissingInput(t *testing.T) {
	root := cmd.NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"load", "--config", "nope.yaml", "--doc", "nope.json"})
	assert.Error(t, root.Execute())
}
