package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCDN(t *testing.T) {
	for in, want := range map[string]bool{
		"https://cdn.example.com/monaco": true,
		"http://cdn.example.com":         true,
		"//cdn.example.com/w":            true,
		"monacoeditorwork":               false,
		"/monacoeditorwork":              false,
		"file:///tmp/w":                  false,
	} {
		assert.Equal(t, want, IsCDN(in), in)
	}
}

func TestCacheDirFor(t *testing.T) {
	root := filepath.FromSlash("/proj")

	assert.Equal(t, filepath.Join(root, "node_modules", ".monaco"), Options{}.CacheDirFor(root))
	assert.Equal(t, filepath.Join(root, ".cache", "w"), Options{CacheDir: ".cache/w"}.CacheDirFor(root))

	abs := filepath.Join(t.TempDir(), "c")
	assert.Equal(t, abs, Options{CacheDir: abs}.CacheDirFor(root))
}

func TestPublicSegment(t *testing.T) {
	assert.Equal(t, DefaultPublicPath, Options{}.PublicSegment())
	assert.Equal(t, DefaultPublicPath, Options{PublicPath: "https://cdn.example.com/x"}.PublicSegment())
	assert.Equal(t, "assets/workers", Options{PublicPath: "/assets/workers/"}.PublicSegment())
}

func TestDistDir(t *testing.T) {
	root := t.TempDir()
	cfg := ResolvedConfig{Root: root}

	assert.Equal(t, filepath.Join(root, "dist", "monacoeditorwork"), Options{}.DistDir(cfg))
	assert.Equal(t, filepath.Join(root, "out", "w"), Options{PublicPath: "w"}.DistDir(ResolvedConfig{Root: root, OutDir: "out"}))
	assert.Equal(t, filepath.Join(root, "dist", "monacoeditorwork"),
		Options{PublicPath: "https://cdn.example.com/monaco"}.DistDir(cfg))
	assert.Equal(t, filepath.Join(root, "public", "w"), Options{CustomDistPath: "public/w"}.DistDir(cfg))

	abs := filepath.Join(t.TempDir(), "w")
	assert.Equal(t, abs, Options{CustomDistPath: abs}.DistDir(cfg))
}

func TestBasePath(t *testing.T) {
	for in, want := range map[string]string{
		"":      "/",
		"/":     "/",
		"app":   "/app/",
		"/app":  "/app/",
		"/app/": "/app/",
	} {
		assert.Equal(t, want, ResolvedConfig{Base: in}.BasePath(), in)
	}
}
