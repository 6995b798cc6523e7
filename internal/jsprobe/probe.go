// Package jsprobe runs the bootstrap script in an embedded JavaScript engine
// against a simulated page and reports what the editor would be told.
package jsprobe

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"go.trai.ch/zerr"

	"github.com/cryguy/monacoworkers/internal/core"
)

// probeTimeout bounds a single evaluation.
const probeTimeout = 2 * time.Second

// ErrEvaluate is returned when the engine cannot run the script or the
// script does not produce a result.
var ErrEvaluate = zerr.New("bootstrap evaluation failed")

// Result is what getWorkerUrl returned for one label.
type Result struct {
	URL     string // the returned string, empty when Defined is false
	Defined bool   // false when the label is unknown to the page
	// BlobSource is the body of the Blob behind a blob: URL.
	BlobSource string
}

// prelude sets up the little of a browser page the bootstrap touches.
// Object URLs are numbered per evaluation.
const prelude = `globalThis.self = globalThis;
(function (loc) {
  globalThis.location = {
    href: loc.href,
    origin: loc.origin,
    pathname: loc.pathname,
    search: loc.search,
    hash: loc.hash,
    toString: function () { return loc.href; }
  };
  globalThis.__blobs = [];
  globalThis.Blob = function (parts, options) {
    this.source = parts.join("");
    this.type = (options && options.type) || "";
  };
  globalThis.URL = {
    createObjectURL: function (blob) {
      __blobs.push(blob);
      return "blob:" + loc.origin + "/" + __blobs.length;
    }
  };
})(%s);
`

const epilogue = `
;(function (label) {
  var env = self.MonacoEnvironment;
  if (!env || typeof env.getWorkerUrl !== "function") {
    throw new Error("MonacoEnvironment.getWorkerUrl is not defined");
  }
  var url = env.getWorkerUrl("", label);
  var out = { defined: url !== undefined };
  if (out.defined) {
    out.url = String(url);
    var m = /^blob:.*\/(\d+)$/.exec(out.url);
    if (m && __blobs[m[1] - 1]) {
      out.blob = __blobs[m[1] - 1].source;
    }
  }
  return JSON.stringify(out);
})(%s)`

type location struct {
	Href     string `json:"href"`
	Origin   string `json:"origin"`
	Pathname string `json:"pathname"`
	Search   string `json:"search"`
	Hash     string `json:"hash"`
}

func parseLocation(pageURL string) (location, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return location{}, zerr.With(zerr.Wrap(core.ErrInvalidOptions, "parsing page URL: "+err.Error()), "page_url", pageURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return location{}, zerr.With(zerr.Wrap(core.ErrInvalidOptions, "page URL must be absolute"), "page_url", pageURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	loc := location{
		Origin:   u.Scheme + "://" + u.Host,
		Pathname: u.EscapedPath(),
	}
	if u.RawQuery != "" || u.ForceQuery {
		loc.Search = "?" + u.RawQuery
	}
	if u.Fragment != "" {
		loc.Hash = "#" + u.EscapedFragment()
	}
	loc.Href = loc.Origin + loc.Pathname + loc.Search + loc.Hash
	return loc, nil
}

// Probe evaluates script on a page at pageURL and calls
// MonacoEnvironment.getWorkerUrl for label.
func Probe(script, pageURL, label string) (Result, error) {
	loc, err := parseLocation(pageURL)
	if err != nil {
		return Result{}, err
	}
	locJSON, err := json.Marshal(loc)
	if err != nil {
		return Result{}, zerr.Wrap(ErrEvaluate, err.Error())
	}
	labelJSON, err := json.Marshal(label)
	if err != nil {
		return Result{}, zerr.Wrap(ErrEvaluate, err.Error())
	}

	src := fmt.Sprintf(prelude, locJSON) + script + fmt.Sprintf(epilogue, labelJSON)
	out, err := evaluate(src, probeTimeout)
	if err != nil {
		return Result{}, err
	}

	var raw struct {
		Defined bool   `json:"defined"`
		URL     string `json:"url"`
		Blob    string `json:"blob"`
	}
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return Result{}, zerr.Wrap(ErrEvaluate, "decoding result: "+err.Error())
	}
	return Result{URL: raw.URL, Defined: raw.Defined, BlobSource: raw.Blob}, nil
}

// WorkerURL returns what getWorkerUrl yields for label, or "" for a label
// the script does not know.
func WorkerURL(script, pageURL, label string) (string, error) {
	r, err := Probe(script, pageURL, label)
	if err != nil {
		return "", err
	}
	return r.URL, nil
}
