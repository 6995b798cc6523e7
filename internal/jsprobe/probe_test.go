package jsprobe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryguy/monacoworkers/internal/bootstrap"
	"github.com/cryguy/monacoworkers/internal/core"
	"github.com/cryguy/monacoworkers/internal/registry"
)

func render(t *testing.T, env bootstrap.Environment) string {
	t.Helper()
	script, err := env.Render()
	require.NoError(t, err)
	return script
}

func TestWorkerURL_SameOriginUnchanged(t *testing.T) {
	script := render(t, bootstrap.Environment{
		GlobalAPI:  true,
		WorkerURLs: map[string]string{"A": "/monacoeditorwork/a.js"},
	})

	got, err := WorkerURL(script, "http://localhost:5173/", "A")
	require.NoError(t, err)
	assert.Equal(t, "/monacoeditorwork/a.js", got)
}

func TestWorkerURL_AbsoluteSameOriginUnchanged(t *testing.T) {
	script := render(t, bootstrap.Environment{
		WorkerURLs: map[string]string{"css": "http://localhost:5173/monacoeditorwork/css.js"},
	})

	got, err := WorkerURL(script, "http://localhost:5173/editor/index.html?x=1#top", "css")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5173/monacoeditorwork/css.js", got)
}

func TestProbe_CrossOriginBlob(t *testing.T) {
	const cdn = "https://cdn.example.com/monaco/css.js"
	script := render(t, bootstrap.Environment{
		GlobalAPI:  true,
		WorkerURLs: map[string]string{"css": cdn},
	})

	r, err := Probe(script, "http://localhost:5173/", "css")
	require.NoError(t, err)
	assert.True(t, r.Defined)
	assert.Regexp(t, `^blob:http://localhost:5173/\d+$`, r.URL)
	assert.Equal(t, `/*css*/importScripts("`+cdn+`");`, r.BlobSource)
}

func TestProbe_BlobSourceSurvivesCommentCloserInLabel(t *testing.T) {
	const cdn = "https://cdn.example.com/monaco/sql.js"
	const label = "sql*/throw 1;/*"
	script := render(t, bootstrap.Environment{WorkerURLs: map[string]string{label: cdn}})

	r, err := Probe(script, "http://localhost:5173/", label)
	require.NoError(t, err)
	require.NotEmpty(t, r.BlobSource)

	// The blob body must still be a single importScripts call.
	got, err := evaluate(`var imported = "";
function importScripts(u) { imported = u; }
`+r.BlobSource+`
imported;`, probeTimeout)
	require.NoError(t, err)
	assert.Equal(t, cdn, got)
}

func TestProbe_ProtocolRelativeIsCrossOrigin(t *testing.T) {
	script := render(t, bootstrap.Environment{
		WorkerURLs: map[string]string{"json": "//cdn.example.com/json.js"},
	})

	got, err := WorkerURL(script, "https://app.example.com/", "json")
	require.NoError(t, err)
	assert.Contains(t, got, "blob:")
}

func TestProbe_UnknownLabel(t *testing.T) {
	script := render(t, bootstrap.Environment{
		WorkerURLs: map[string]string{"css": "/monacoeditorwork/css.js"},
	})

	r, err := Probe(script, "http://localhost:5173/", "python")
	require.NoError(t, err)
	assert.False(t, r.Defined)
	assert.Empty(t, r.URL)
}

func TestProbe_Minified(t *testing.T) {
	script := render(t, bootstrap.Environment{
		WorkerURLs: map[string]string{"css": "/monacoeditorwork/css.js"},
		Minify:     true,
	})

	got, err := WorkerURL(script, "http://localhost:5173/", "css")
	require.NoError(t, err)
	assert.Equal(t, "/monacoeditorwork/css.js", got)
}

func TestProbe_Aliases(t *testing.T) {
	units := []core.WorkUnit{{Label: "typescript", Entry: "vs/language/typescript/ts.worker"}}
	urls := bootstrap.WorkerURLs(units, "monacoeditorwork", "/")
	script := render(t, bootstrap.Environment{WorkerURLs: urls})

	want := "/monacoeditorwork/" + registry.DeriveFilename(units[0].Entry)
	got, err := WorkerURL(script, "http://localhost:5173/", "javascript")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestProbe_BrokenScript(t *testing.T) {
	_, err := WorkerURL("self.MonacoEnvironment = {};", "http://localhost:5173/", "css")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEvaluate)
}

func TestProbe_RelativePageURL(t *testing.T) {
	_, err := WorkerURL("", "/index.html", "css")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidOptions)
}

func TestParseLocation(t *testing.T) {
	loc, err := parseLocation("https://example.com:8443/app/page?q=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com:8443", loc.Origin)
	assert.Equal(t, "/app/page", loc.Pathname)
	assert.Equal(t, "?q=1", loc.Search)
	assert.Equal(t, "#frag", loc.Hash)
	assert.Equal(t, "https://example.com:8443/app/page?q=1#frag", loc.Href)

	loc, err = parseLocation("http://localhost:5173")
	require.NoError(t, err)
	assert.Equal(t, "/", loc.Pathname)
	assert.Equal(t, "http://localhost:5173/", loc.Href)
}
