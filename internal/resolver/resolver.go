// Package resolver locates worker entry files inside the editor package.
package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"

	"github.com/cryguy/monacoworkers/internal/core"
)

// fileExtensions are tried after the exact path, matching Node's file lookup.
var fileExtensions = []string{".js", ".mjs", ".cjs"}

// Resolver finds an absolute path for an entry relative to the editor
// package's esm tree. It has no side effects.
type Resolver struct {
	// Package is the editor's npm package name.
	Package string
	// SearchFrom is where the package lookup starts walking up.
	SearchFrom string
	// Root is the embedding project's root.
	Root string
	// NodePath lists extra directories searched after the ancestor walk.
	NodePath []string
}

// New returns a resolver for a project root. The package lookup starts at
// the process working directory and honours NODE_PATH, like Node does.
func New(pkg, root string) *Resolver {
	if pkg == "" {
		pkg = core.DefaultEditorPackage
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = root
	}
	var nodePath []string
	if env := os.Getenv("NODE_PATH"); env != "" {
		nodePath = filepath.SplitList(env)
	}
	return &Resolver{Package: pkg, SearchFrom: cwd, Root: root, NodePath: nodePath}
}

// Resolve tries, in order: the editor package as found from SearchFrom, the
// editor package under Root/node_modules, and rel itself.
func (r *Resolver) Resolve(rel string) (string, error) {
	var tried []string
	specifier := filepath.Join(r.Package, "esm", filepath.FromSlash(rel))

	if p, ok := r.lookupPackage(specifier, &tried); ok {
		return p, nil
	}

	if r.Root != "" {
		if p, ok := resolveFile(filepath.Join(r.Root, "node_modules", specifier), &tried); ok {
			return p, nil
		}
	}

	if p, ok := r.resolveBare(rel, &tried); ok {
		return p, nil
	}

	err := zerr.Wrap(core.ErrNotFound, "cannot resolve "+rel)
	err = zerr.With(err, "entry", rel)
	return "", zerr.With(err, "tried", tried)
}

// lookupPackage walks every ancestor node_modules directory of SearchFrom,
// then NodePath.
func (r *Resolver) lookupPackage(specifier string, tried *[]string) (string, bool) {
	if r.SearchFrom != "" {
		dir, err := filepath.Abs(r.SearchFrom)
		if err == nil {
			for {
				if filepath.Base(dir) != "node_modules" {
					if p, ok := resolveFile(filepath.Join(dir, "node_modules", specifier), tried); ok {
						return p, true
					}
				}
				parent := filepath.Dir(dir)
				if parent == dir {
					break
				}
				dir = parent
			}
		}
	}
	for _, dir := range r.NodePath {
		if dir == "" {
			continue
		}
		if p, ok := resolveFile(filepath.Join(dir, specifier), tried); ok {
			return p, true
		}
	}
	return "", false
}

func (r *Resolver) resolveBare(rel string, tried *[]string) (string, bool) {
	p := filepath.FromSlash(rel)
	if !filepath.IsAbs(p) {
		base := r.Root
		if base == "" {
			base = r.SearchFrom
		}
		p = filepath.Join(base, p)
		// A bare package specifier (e.g. "pkg/worker") is looked up like an import.
		if !strings.HasPrefix(rel, ".") {
			if found, ok := r.lookupPackage(filepath.FromSlash(rel), tried); ok {
				return found, true
			}
		}
	}
	return resolveFile(p, tried)
}

// resolveFile applies Node's file rules to candidate: the exact file, the
// file with a known extension, then an index.js inside it.
func resolveFile(candidate string, tried *[]string) (string, bool) {
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", false
	}
	probes := make([]string, 0, len(fileExtensions)+2)
	probes = append(probes, abs)
	for _, ext := range fileExtensions {
		probes = append(probes, abs+ext)
	}
	probes = append(probes, filepath.Join(abs, "index.js"))

	for _, p := range probes {
		*tried = append(*tried, p)
		if isFile(p) {
			return p, true
		}
	}
	return "", false
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
