// Package registry holds the table of language workers the editor knows
// about and the filename scheme their bundles are stored under.
package registry

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"

	"github.com/cryguy/monacoworkers/internal/core"
)

// builtin lists the workers shipped in monaco-editor/esm, in the order they
// are provisioned when no selection is given.
var builtin = []core.WorkUnit{
	{Label: "editorWorkerService", Entry: "vs/editor/editor.worker"},
	{Label: "css", Entry: "vs/language/css/css.worker"},
	{Label: "html", Entry: "vs/language/html/html.worker"},
	{Label: "json", Entry: "vs/language/json/json.worker"},
	{Label: "typescript", Entry: "vs/language/typescript/ts.worker"},
}

// Aliases maps editor language labels that share another label's worker.
var Aliases = map[string]string{
	"javascript": "typescript",
	"less":       "css",
	"scss":       "css",
	"handlebars": "html",
	"razor":      "html",
}

// Builtin returns a copy of the built-in work units.
func Builtin() []core.WorkUnit {
	out := make([]core.WorkUnit, len(builtin))
	copy(out, builtin)
	return out
}

// Registry is an immutable label -> work unit table.
type Registry struct {
	units map[string]core.WorkUnit
	order []string
}

// New builds a registry from the built-in table plus custom units. A custom
// unit with a built-in label replaces the built-in entry.
func New(custom []core.WorkUnit) (*Registry, error) {
	r := &Registry{units: make(map[string]core.WorkUnit, len(builtin)+len(custom))}
	for _, u := range builtin {
		r.add(u)
	}
	seen := make(map[string]bool, len(custom))
	for _, u := range custom {
		if u.Label == "" || u.Entry == "" {
			return nil, zerr.With(zerr.Wrap(core.ErrInvalidOptions, "custom worker needs a label and an entry"), "label", u.Label)
		}
		if seen[u.Label] {
			return nil, zerr.With(zerr.Wrap(core.ErrInvalidOptions, "duplicate custom worker"), "label", u.Label)
		}
		seen[u.Label] = true
		r.add(u)
	}
	return r, nil
}

func (r *Registry) add(u core.WorkUnit) {
	if _, ok := r.units[u.Label]; !ok {
		r.order = append(r.order, u.Label)
	}
	r.units[u.Label] = u
}

// Labels returns every label in registration order.
func (r *Registry) Labels() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup returns the unit registered under label.
func (r *Registry) Lookup(label string) (core.WorkUnit, bool) {
	u, ok := r.units[label]
	return u, ok
}

// Select returns the units for labels, in the given order and without
// duplicates. A nil selection returns every unit; an empty one returns none.
func (r *Registry) Select(labels []string) ([]core.WorkUnit, error) {
	if labels == nil {
		labels = r.order
	}
	out := make([]core.WorkUnit, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		if seen[label] {
			continue
		}
		u, ok := r.units[label]
		if !ok {
			return nil, zerr.With(zerr.Wrap(core.ErrInvalidOptions, fmt.Sprintf("unknown language worker %q", label)), "label", label)
		}
		seen[label] = true
		out = append(out, u)
	}
	return out, nil
}

// DeriveFilename returns the cache and public filename for an entry path.
// The readable prefix comes from the entry's base name; the hash of the full
// normalized path keeps entries with equal base names apart.
func DeriveFilename(entry string) string {
	norm := path.Clean(filepath.ToSlash(entry))
	base := path.Base(norm)
	for _, ext := range []string{".js", ".mjs", ".cjs", ".ts"} {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	return fmt.Sprintf("%s.%016x.bundle.js", base, xxhash.Sum64String(norm))
}
