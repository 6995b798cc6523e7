package bootstrap

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryguy/monacoworkers/internal/core"
	"github.com/cryguy/monacoworkers/internal/registry"
)

func TestWorkerURLs_Local(t *testing.T) {
	units := registry.Builtin()
	urls := WorkerURLs(units, "monacoeditorwork", "/")

	css := "/monacoeditorwork/" + registry.DeriveFilename("vs/language/css/css.worker")
	ts := "/monacoeditorwork/" + registry.DeriveFilename("vs/language/typescript/ts.worker")
	html := "/monacoeditorwork/" + registry.DeriveFilename("vs/language/html/html.worker")

	assert.Equal(t, css, urls["css"])
	assert.Equal(t, css, urls["less"])
	assert.Equal(t, css, urls["scss"])
	assert.Equal(t, ts, urls["typescript"])
	assert.Equal(t, ts, urls["javascript"])
	assert.Equal(t, html, urls["handlebars"])
	assert.Equal(t, html, urls["razor"])
	assert.Len(t, urls, len(units)+len(registry.Aliases))
}

func TestWorkerURLs_BaseAndSlashes(t *testing.T) {
	units := []core.WorkUnit{{Label: "json", Entry: "vs/language/json/json.worker"}}
	urls := WorkerURLs(units, "/workers/", "/app")
	assert.Equal(t, map[string]string{
		"json": "/app/workers/" + registry.DeriveFilename(units[0].Entry),
	}, urls)
}

func TestWorkerURLs_CDN(t *testing.T) {
	units := []core.WorkUnit{{Label: "css", Entry: "vs/language/css/css.worker"}}
	urls := WorkerURLs(units, "https://cdn.example.com/monaco/", "/app/")
	want := "https://cdn.example.com/monaco/" + registry.DeriveFilename(units[0].Entry)
	assert.Equal(t, want, urls["css"])
	assert.Equal(t, want, urls["less"])
}

func TestWorkerURLs_AliasOnlyForSelected(t *testing.T) {
	units := []core.WorkUnit{{Label: "json", Entry: "vs/language/json/json.worker"}}
	urls := WorkerURLs(units, "monacoeditorwork", "/")
	assert.NotContains(t, urls, "javascript")
	assert.NotContains(t, urls, "less")
}

func TestWorkerURLs_CustomLabelShadowsAlias(t *testing.T) {
	units := []core.WorkUnit{
		{Label: "typescript", Entry: "vs/language/typescript/ts.worker"},
		{Label: "javascript", Entry: "/abs/custom/js.worker.js"},
	}
	urls := WorkerURLs(units, "monacoeditorwork", "/")
	assert.Equal(t, "/monacoeditorwork/"+registry.DeriveFilename("/abs/custom/js.worker.js"), urls["javascript"])
}

func TestRender(t *testing.T) {
	script, err := Environment{
		GlobalAPI:  true,
		WorkerURLs: map[string]string{"A": "/monacoeditorwork/a.js"},
	}.Render()
	require.NoError(t, err)

	assert.Contains(t, script, "MonacoEnvironment")
	assert.Contains(t, script, "globalAPI: true")
	assert.Contains(t, script, `"/monacoeditorwork/a.js"`)
	assert.Contains(t, script, "getWorkerUrl")
}

func TestRender_EscapesForScriptElement(t *testing.T) {
	script, err := Environment{
		WorkerURLs: map[string]string{"css": "/w/</script><script>alert(1)</script>.js"},
	}.Render()
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(script), "</script")
}

func TestRender_Minify(t *testing.T) {
	env := Environment{WorkerURLs: map[string]string{"css": "/w/css.js"}}
	plain, err := env.Render()
	require.NoError(t, err)

	env.Minify = true
	minified, err := env.Render()
	require.NoError(t, err)
	assert.Less(t, len(minified), len(plain))
	assert.Contains(t, minified, "MonacoEnvironment")
}

func TestTransform_SyntaxError(t *testing.T) {
	_, err := transform("var = ;", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrBundle))
}

func TestTags(t *testing.T) {
	tags, err := Environment{WorkerURLs: map[string]string{"css": "/w/css.js"}}.Tags()
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "script", tags[0].Tag)
	assert.Equal(t, core.InjectHeadPrepend, tags[0].InjectTo)
	assert.Contains(t, tags[0].Children, "MonacoEnvironment")
}

func script(children string, at core.InjectTo) core.TagDescriptor {
	return core.TagDescriptor{Tag: "script", Children: children, InjectTo: at}
}

func TestInject_HeadPrepend(t *testing.T) {
	doc := `<!DOCTYPE html><html><head><title>x</title><script src="/app.js"></script></head><body></body></html>`
	out, err := Inject(doc, []core.TagDescriptor{script("boot()", core.InjectHeadPrepend)})
	require.NoError(t, err)
	assert.Equal(t, `<!DOCTYPE html><html><head><script>boot()</script><title>x</title><script src="/app.js"></script></head><body></body></html>`, out)
}

func TestInject_HeadWithAttributes(t *testing.T) {
	doc := "<html lang=\"en\">\n<HEAD data-x=\"1\">\n<meta charset=\"utf-8\">\n</HEAD>\n</html>"
	out, err := Inject(doc, []core.TagDescriptor{script("boot()", core.InjectHeadPrepend)})
	require.NoError(t, err)
	assert.Equal(t, "<html lang=\"en\">\n<HEAD data-x=\"1\"><script>boot()</script>\n<meta charset=\"utf-8\">\n</HEAD>\n</html>", out)
}

func TestInject_SynthesizesHead(t *testing.T) {
	out, err := Inject(`<!doctype html><html><body><p>hi</p></body></html>`, []core.TagDescriptor{script("boot()", core.InjectHeadPrepend)})
	require.NoError(t, err)
	assert.Equal(t, `<!doctype html><html><head><script>boot()</script></head><body><p>hi</p></body></html>`, out)

	out, err = Inject(`<p>fragment</p>`, []core.TagDescriptor{script("boot()", core.InjectHeadPrepend)})
	require.NoError(t, err)
	assert.Equal(t, `<head><script>boot()</script></head><p>fragment</p>`, out)

	out, err = Inject(`<!DOCTYPE html><p>no html</p>`, []core.TagDescriptor{script("boot()", core.InjectHeadPrepend)})
	require.NoError(t, err)
	assert.Equal(t, `<!DOCTYPE html><head><script>boot()</script></head><p>no html</p>`, out)
}

func TestInject_AllPositions(t *testing.T) {
	doc := `<html><head><title>t</title></head><body><main></main></body></html>`
	out, err := Inject(doc, []core.TagDescriptor{
		script("a", core.InjectBody),
		script("b", core.InjectHead),
		script("c", core.InjectBodyPrepend),
		script("d", core.InjectHeadPrepend),
		script("e", core.InjectHeadPrepend),
	})
	require.NoError(t, err)
	assert.Equal(t, `<html><head><script>d</script><script>e</script><title>t</title><script>b</script></head><body><script>c</script><main></main><script>a</script></body></html>`, out)
}

func TestInject_IgnoresTagsInsideScripts(t *testing.T) {
	doc := `<html><head><script>var s = "<head>";</script></head></html>`
	out, err := Inject(doc, []core.TagDescriptor{script("boot()", core.InjectHead)})
	require.NoError(t, err)
	assert.Equal(t, `<html><head><script>var s = "<head>";</script><script>boot()</script></head></html>`, out)
}

func TestInject_Attributes(t *testing.T) {
	tag := core.TagDescriptor{
		Tag:      "script",
		Attrs:    map[string]string{"type": "module", "async": "", "data-q": `a"b`},
		InjectTo: core.InjectHeadPrepend,
	}
	out, err := Inject(`<head></head>`, []core.TagDescriptor{tag})
	require.NoError(t, err)
	assert.Equal(t, `<head><script async data-q="a&#34;b" type="module"></script></head>`, out)
}

func TestInject_NoTags(t *testing.T) {
	doc := "<html><head></head></html>"
	out, err := Inject(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, doc, out)
}
