// Package bootstrap renders the MonacoEnvironment script that tells the
// editor where its workers live, and injects it into HTML pages.
package bootstrap

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/zerr"

	"github.com/cryguy/monacoworkers/internal/core"
	"github.com/cryguy/monacoworkers/internal/registry"
)

// WorkerURLs maps every unit's label, plus the labels aliased to it, to the
// URL its bundle is fetched from. An absolute publicPath (a CDN) is used as
// is; otherwise URLs are rooted at base.
func WorkerURLs(units []core.WorkUnit, publicPath, base string) map[string]string {
	prefix := strings.TrimSuffix(publicPath, "/")
	if !core.IsCDN(publicPath) {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		prefix = base + strings.Trim(publicPath, "/")
	}

	urls := make(map[string]string, len(units)+len(registry.Aliases))
	for _, u := range units {
		urls[u.Label] = prefix + "/" + registry.DeriveFilename(u.Entry)
	}
	for alias, target := range registry.Aliases {
		if _, taken := urls[alias]; taken {
			continue
		}
		if url, ok := urls[target]; ok {
			urls[alias] = url
		}
	}
	return urls
}

// Environment is the data the bootstrap script is rendered from.
type Environment struct {
	GlobalAPI  bool
	WorkerURLs map[string]string
	Minify     bool
}

// The page origin is derived from location the same way in every browser;
// URLs outside it are loaded through a same-origin blob since workers cannot
// be constructed cross-origin.
var scriptTemplate = template.Must(template.New("bootstrap").Funcs(template.FuncMap{
	"json": marshalJSON,
}).Parse(`self["MonacoEnvironment"] = (function (paths) {
  return {
    globalAPI: {{json .GlobalAPI}},
    getWorkerUrl: function (moduleId, label) {
      var result = paths[label];
      if (/^((http:)|(https:)|(file:)|(\/\/))/.test(result)) {
        var currentUrl = String(self.location);
        var currentOrigin = currentUrl.substr(0, currentUrl.length - self.location.hash.length - self.location.search.length - self.location.pathname.length);
        if (result.substring(0, currentOrigin.length) !== currentOrigin) {
          var js = "/*" + String(label).replace(/\*\//g, "* /") + "*/importScripts(" + JSON.stringify(result) + ");";
          var blob = new Blob([js], { type: "application/javascript" });
          return URL.createObjectURL(blob);
        }
      }
      return result;
    }
  };
})({{json .WorkerURLs}});
`))

// marshalJSON encodes v with HTML-safe escaping, so the result can sit
// inside a <script> element.
func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Render returns the bootstrap script. The output is syntax-checked, and
// minified when Minify is set.
func (e Environment) Render() (string, error) {
	urls := e.WorkerURLs
	if urls == nil {
		urls = map[string]string{}
	}
	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, Environment{GlobalAPI: e.GlobalAPI, WorkerURLs: urls}); err != nil {
		return "", zerr.Wrap(err, "rendering bootstrap script")
	}
	return transform(buf.String(), e.Minify)
}

// Tags returns the descriptor that places the bootstrap script at the top
// of <head>, ahead of any script that might construct the editor.
func (e Environment) Tags() ([]core.TagDescriptor, error) {
	script, err := e.Render()
	if err != nil {
		return nil, err
	}
	return []core.TagDescriptor{{
		Tag:      "script",
		Children: script,
		InjectTo: core.InjectHeadPrepend,
	}}, nil
}

func transform(code string, minify bool) (string, error) {
	result := api.Transform(code, api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            api.ES2015,
		MinifyWhitespace:  minify,
		MinifyIdentifiers: minify,
		MinifySyntax:      minify,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			msgs = append(msgs, m.Text)
		}
		return "", zerr.Wrap(core.ErrBundle, "bootstrap script: "+strings.Join(msgs, "; "))
	}
	return string(result.Code), nil
}
