package host

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.trai.ch/zerr"

	"github.com/cryguy/monacoworkers/internal/core"
)

// skipDirs are never searched for pages.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// BuildHTML writes every .html page under root into outDir at the same
// relative path, passed through transform. outDir itself is skipped when it
// lies inside root. It returns the written files, sorted.
func BuildHTML(root, outDir string, transform HTMLTransformer) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(core.ErrIO, err.Error()), "path", root)
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(core.ErrIO, err.Error()), "path", outDir)
	}

	var pages []string
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p == absOut || (p != absRoot && skipDirs[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".html") {
			pages = append(pages, p)
		}
		return nil
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(core.ErrIO, "scanning pages: "+err.Error()), "path", absRoot)
	}

	written := make([]string, 0, len(pages))
	for _, src := range pages {
		rel, err := filepath.Rel(absRoot, src)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(core.ErrIO, err.Error()), "path", src)
		}
		dest := filepath.Join(absOut, rel)
		if err := buildPage(src, dest, transform); err != nil {
			return nil, err
		}
		written = append(written, dest)
	}
	sort.Strings(written)
	return written, nil
}

func buildPage(src, dest string, transform HTMLTransformer) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return zerr.With(zerr.Wrap(core.ErrIO, "reading page: "+err.Error()), "path", src)
	}
	page := string(data)
	if transform != nil {
		if page, err = transform(page); err != nil {
			return zerr.With(zerr.Wrap(err, "transforming page"), "path", src)
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return zerr.With(zerr.Wrap(core.ErrIO, "creating output directory: "+err.Error()), "path", dest)
	}
	if err := os.WriteFile(dest, []byte(page), 0644); err != nil {
		return zerr.With(zerr.Wrap(core.ErrIO, "writing page: "+err.Error()), "path", dest)
	}
	return nil
}
