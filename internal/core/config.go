package core

import (
	"path/filepath"
	"strings"
)

const (
	DefaultPublicPath    = "monacoeditorwork"
	DefaultEditorPackage = "monaco-editor"
	DefaultOutDir        = "dist"
	DefaultBase          = "/"
)

// Options holds the user-facing plugin configuration after defaults are
// applied. It is never mutated once the plugin is built.
type Options struct {
	LanguageWorkers []string   // nil selects every known label
	PublicPath      string     // path segment, or an absolute URL for a CDN
	GlobalAPI       bool       // also expose the editor's global API
	CustomWorkers   []WorkUnit // extra units added on top of the registry
	CacheDir        string     // defaults to <root>/node_modules/.monaco
	CustomDistPath  string     // build output dir for workers, absolute or root-relative
	EditorPackage   string     // npm package holding the esm tree
}

// IsCDN reports whether the public path is an absolute URL rather than a
// path segment served by the host.
func IsCDN(publicPath string) bool {
	return strings.HasPrefix(publicPath, "http://") ||
		strings.HasPrefix(publicPath, "https://") ||
		strings.HasPrefix(publicPath, "//")
}

// CacheDirFor returns the bundle cache directory for a project root.
func (o Options) CacheDirFor(root string) string {
	if o.CacheDir == "" {
		return filepath.Join(root, "node_modules", ".monaco")
	}
	if filepath.IsAbs(o.CacheDir) {
		return o.CacheDir
	}
	return filepath.Join(root, o.CacheDir)
}

// DistDir returns the directory production worker files are written to.
func (o Options) DistDir(cfg ResolvedConfig) string {
	if o.CustomDistPath != "" {
		if filepath.IsAbs(o.CustomDistPath) {
			return o.CustomDistPath
		}
		return filepath.Join(cfg.Root, o.CustomDistPath)
	}
	return filepath.Join(cfg.AbsOutDir(), filepath.FromSlash(o.PublicSegment()))
}

// PublicSegment returns the path segment the host itself serves and writes
// workers under. A CDN public path falls back to DefaultPublicPath.
func (o Options) PublicSegment() string {
	if o.PublicPath == "" || IsCDN(o.PublicPath) {
		return DefaultPublicPath
	}
	return strings.Trim(o.PublicPath, "/")
}

// AbsOutDir returns OutDir anchored at Root.
func (c ResolvedConfig) AbsOutDir() string {
	out := c.OutDir
	if out == "" {
		out = DefaultOutDir
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(c.Root, out)
}

// BasePath returns Base normalized to start and end with a slash.
func (c ResolvedConfig) BasePath() string {
	b := c.Base
	if b == "" {
		return DefaultBase
	}
	if !strings.HasPrefix(b, "/") {
		b = "/" + b
	}
	if !strings.HasSuffix(b, "/") {
		b += "/"
	}
	return b
}
