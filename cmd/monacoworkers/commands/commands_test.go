package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryguy/monacoworkers/internal/registry"
)

// resetFlags puts every flag in the tree back to its default, since the
// command tree is package state shared by all tests.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(interface{ Replace([]string) error }); ok {
			require.NoError(t, sv.Replace(nil))
		} else {
			require.NoError(t, f.Value.Set(f.DefValue))
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(t, sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(t, rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "monacoworkers dev")
	assert.Contains(t, out, "Probe engine:")
}

func TestResolve_SameOrigin(t *testing.T) {
	root := t.TempDir()
	out, err := run(t, "resolve", "--root", root, "--language-workers", "css", "--label", "less", "--page-url", "http://localhost:5173/")
	require.NoError(t, err)

	want := "/monacoeditorwork/" + registry.DeriveFilename("vs/language/css/css.worker")
	assert.Equal(t, want, strings.TrimSpace(out))

	_, err = os.Stat(filepath.Join(root, "node_modules", ".monaco"))
	assert.True(t, os.IsNotExist(err), "resolve must not touch the cache")
}

func TestResolve_UnknownLabel(t *testing.T) {
	_, err := run(t, "resolve", "--root", t.TempDir(), "--language-workers", "json", "--label", "python")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "python")
}

func TestCacheLs_Empty(t *testing.T) {
	out, err := run(t, "cache", "ls", "--root", t.TempDir(), "-o", "json")
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Empty(t, rows)
}

func TestCacheClean(t *testing.T) {
	root := t.TempDir()
	cacheDir := filepath.Join(root, "node_modules", ".monaco")
	require.NoError(t, os.MkdirAll(cacheDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "x.0000000000000000.bundle.js"), []byte("x"), 0644))

	_, err := run(t, "cache", "clean", "--root", root)
	require.NoError(t, err)
	_, err = os.Stat(cacheDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_FlagsDoNotLeak(t *testing.T) {
	root := t.TempDir()
	_, err := run(t, "resolve", "--root", root, "--language-workers", "json", "--label", "json")
	require.NoError(t, err)

	// Without --language-workers every label is selected again.
	out, err := run(t, "resolve", "--root", root, "--label", "css")
	require.NoError(t, err)
	assert.Equal(t, "/monacoeditorwork/"+registry.DeriveFilename("vs/language/css/css.worker"), strings.TrimSpace(out))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "TABLE": FormatTable, "json": FormatJSON, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestFormatter_PrintTable(t *testing.T) {
	data := TableData{Headers: []string{"FILE", "LABEL"}, Rows: [][]string{{"css.1.bundle.js", "css"}}}

	var buf bytes.Buffer
	NewFormatter(FormatTable, &buf).PrintTable(data)
	assert.Contains(t, buf.String(), "css.1.bundle.js")

	buf.Reset()
	NewFormatter(FormatYAML, &buf).PrintTable(data)
	assert.Contains(t, buf.String(), "label: css")

	buf.Reset()
	NewFormatter(FormatJSON, &buf).PrintTable(data)
	assert.JSONEq(t, `[{"file":"css.1.bundle.js","label":"css"}]`, buf.String())
}
