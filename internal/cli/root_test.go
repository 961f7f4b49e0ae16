package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/physics"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

const chainYAML = `nodes:
  - id: a
  - id: b
  - id: c
links:
  - {source: a, target: b}
  - {source: b, target: c}
`

func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.SetOutput(&out)
	return c, &out
}

func execute(c *CLI, args ...string) error {
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCommandHasSubcommands(t *testing.T) {
	c, _ := newTestCLI(t)
	root := c.RootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"layout", "serve", "cache", "version", "completion"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))
}

func TestLayoutCommand(t *testing.T) {
	c, out := newTestCLI(t)
	input := writeTemp(t, "chain.yaml", chainYAML)

	require.NoError(t, execute(c, "layout", input))

	outputPath := strings.TrimSuffix(input, ".yaml") + ".layout.json"
	l, err := graph.ReadLayoutFile(outputPath)
	require.NoError(t, err)
	assert.True(t, l.Stable)
	assert.Len(t, l.Positions, 3)
	assert.Contains(t, out.String(), "Layout converged")
	assert.Contains(t, out.String(), iconFresh)

	out.Reset()
	require.NoError(t, execute(c, "layout", input))
	assert.Contains(t, out.String(), iconCached)

	out.Reset()
	require.NoError(t, execute(c, "layout", "--refresh", input))
	assert.Contains(t, out.String(), iconFresh)
}

func TestLayoutCommandStdoutAndFlags(t *testing.T) {
	c, out := newTestCLI(t)
	input := writeTemp(t, "chain.yaml", chainYAML)

	require.NoError(t, execute(c, "layout", "--no-cache", "-d", "3", "--repulsion", "barneshut", "--theta", "0.3", "-o", "-", input))

	l, err := graph.UnmarshalLayout(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 3, l.Dimensions)
	for id, p := range l.Positions {
		assert.Len(t, p, 3, id)
	}
}

func TestLayoutCommandErrors(t *testing.T) {
	dangling := "nodes:\n  - id: a\nlinks:\n  - {source: a, target: ghost}\n"

	tests := []struct {
		name string
		args func(t *testing.T) []string
		code ferrors.Code
	}{
		{"missing file", func(t *testing.T) []string {
			return []string{"layout", filepath.Join(t.TempDir(), "none.json")}
		}, ferrors.ErrCodeFileNotFound},
		{"unsupported extension", func(t *testing.T) []string {
			return []string{"layout", writeTemp(t, "graph.txt", "")}
		}, ferrors.ErrCodeInvalidFormat},
		{"dangling link", func(t *testing.T) []string {
			return []string{"layout", writeTemp(t, "g.yaml", dangling)}
		}, ferrors.ErrCodeUnknownNode},
		{"bad flag value", func(t *testing.T) []string {
			return []string{"layout", "--drag", "2", writeTemp(t, "g.yaml", chainYAML)}
		}, ferrors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCLI(t)
			err := execute(c, tt.args(t)...)
			require.Error(t, err)
			assert.Equal(t, tt.code, ferrors.GetCode(err), "err = %v", err)
		})
	}

	t.Run("lenient accepts dangling link", func(t *testing.T) {
		c, _ := newTestCLI(t)
		input := writeTemp(t, "g.yaml", dangling)
		require.NoError(t, execute(c, "layout", "--lenient", "--no-cache", input))
		l, err := graph.ReadLayoutFile(strings.TrimSuffix(input, ".yaml") + ".layout.json")
		require.NoError(t, err)
		assert.Contains(t, l.Positions, "ghost")
	})
}

func TestMergeOptions(t *testing.T) {
	config := writeTemp(t, "layout.toml", "dimensions = 3\ngravity = -5.0\nseed = 1\n")

	opts := pipeline.DefaultOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	bindLayoutFlags(fs, &opts)
	require.NoError(t, fs.Parse([]string{"--seed", "9", "--dimensions", "2"}))

	merged, err := mergeOptions(fs, config, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, merged.Dimensions, "explicit flag beats the file")
	assert.Equal(t, uint64(9), merged.Seed, "explicit flag beats the file")
	assert.Equal(t, -5.0, merged.Gravity, "file beats the default")
	assert.Equal(t, physics.DefaultSpringLength, merged.SpringLength)

	plain, err := mergeOptions(fs, "", opts)
	require.NoError(t, err)
	assert.Equal(t, opts, plain)
}

func TestVersionCommand(t *testing.T) {
	c, out := newTestCLI(t)
	require.NoError(t, execute(c, "version"))
	assert.Contains(t, out.String(), "version")
	assert.Contains(t, out.String(), "commit")
}

func TestCachePathCommand(t *testing.T) {
	c, out := newTestCLI(t)
	require.NoError(t, execute(c, "cache", "path"))

	want, err := cacheDir()
	require.NoError(t, err)
	assert.Equal(t, want, strings.TrimSpace(out.String()))
}

func TestCacheClearCommand(t *testing.T) {
	c, out := newTestCLI(t)
	input := writeTemp(t, "chain.yaml", chainYAML)
	require.NoError(t, execute(c, "layout", input))

	out.Reset()
	require.NoError(t, execute(c, "cache", "clear"))
	assert.Contains(t, out.String(), "Cleared 1 cached layouts")

	out.Reset()
	require.NoError(t, execute(c, "layout", input))
	assert.Contains(t, out.String(), iconFresh)
}

func TestCompletionCommand(t *testing.T) {
	c, out := newTestCLI(t)
	require.NoError(t, execute(c, "completion", "bash"))
	assert.Contains(t, out.String(), "forcegraph")
}
