package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryguy/monacoworkers/internal/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monacoworkers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(""))
	require.NoError(t, err)

	assert.Nil(t, cfg.LanguageWorkers)
	assert.Equal(t, "monacoeditorwork", cfg.PublicPath)
	assert.False(t, cfg.GlobalAPI)
	assert.Equal(t, "monaco-editor", cfg.EditorPackage)
	assert.Equal(t, "dist", cfg.OutDir)
	assert.Equal(t, "/", cfg.Base)
	assert.Equal(t, ":5173", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
language_workers: [css, json, sql]
public_path: https://cdn.example.com/monaco
global_api: true
custom_workers:
  - label: sql
    entry: ./workers/sql.worker.js
cache_dir: .cache/monaco
custom_dist_path: public/workers
root: ./site
out_dir: build
base: /app/
log_format: json
`)
	cfg, err := Load(New(path))
	require.NoError(t, err)

	assert.Equal(t, []string{"css", "json", "sql"}, cfg.LanguageWorkers)
	assert.True(t, cfg.GlobalAPI)
	assert.Equal(t, []core.WorkUnit{{Label: "sql", Entry: "./workers/sql.worker.js"}}, cfg.CustomWorkers)

	opts := cfg.Options()
	assert.Equal(t, "https://cdn.example.com/monaco", opts.PublicPath)
	assert.Equal(t, ".cache/monaco", opts.CacheDir)
	assert.Equal(t, "public/workers", opts.CustomDistPath)

	rc := cfg.Resolved(core.CommandBuild)
	assert.Equal(t, core.ResolvedConfig{Root: "./site", OutDir: "build", Base: "/app/", Command: "build"}, rc)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("MONACOWORKERS_LANGUAGE_WORKERS", "css,typescript")
	t.Setenv("MONACOWORKERS_GLOBAL_API", "true")
	t.Setenv("MONACOWORKERS_ADDR", ":9000")
	t.Setenv("MONACOWORKERS_CACHE_DIR", "/tmp/monaco-cache")

	cfg, err := Load(New(writeConfig(t, "public_path: workers\n")))
	require.NoError(t, err)

	assert.Equal(t, []string{"css", "typescript"}, cfg.LanguageWorkers)
	assert.True(t, cfg.GlobalAPI)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "/tmp/monaco-cache", cfg.CacheDir)
	assert.Equal(t, "workers", cfg.PublicPath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("MONACOWORKERS_PUBLIC_PATH", "from-env")
	cfg, err := Load(New(writeConfig(t, "public_path: from-file\n")))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.PublicPath)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(filepath.Join(t.TempDir(), "absent.yaml")))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrIO)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(New(writeConfig(t, "language_workers: [css\n")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
	assert.ErrorIs(t, err, core.ErrInvalidOptions)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Addr: ":5173", LogLevel: "info", LogFormat: "console"}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{"valid config", func(c *Config) {}, false, ""},
		{"empty addr", func(c *Config) { c.Addr = "" }, true, "addr cannot be empty"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true, "log_level"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true, "log_format must be"},
		{"custom worker without entry", func(c *Config) {
			c.CustomWorkers = []core.WorkUnit{{Label: "sql"}}
		}, true, "custom_workers[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.ErrorIs(t, err, core.ErrInvalidOptions)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MONACOWORKERS_TEST_DOTENV=loaded\n"), 0644))
	t.Setenv("MONACOWORKERS_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("MONACOWORKERS_TEST_DOTENV"))

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("MONACOWORKERS_TEST_DOTENV"))

	assert.Error(t, loadEnvFile(filepath.Join(t.TempDir(), ".env")))

	bad := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.Mkdir(bad, 0755))
	assert.ErrorIs(t, loadEnvFile(bad), core.ErrIO)
}
