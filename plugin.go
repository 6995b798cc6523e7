// Package monacoworkers provisions the Monaco editor's language workers for
// a bundler host: it bundles each worker into a cached standalone script,
// serves it in development, copies it into production builds, and injects
// the MonacoEnvironment bootstrap into HTML pages.
package monacoworkers

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.trai.ch/zerr"

	"github.com/cryguy/monacoworkers/internal/bootstrap"
	"github.com/cryguy/monacoworkers/internal/buildwriter"
	"github.com/cryguy/monacoworkers/internal/bundlecache"
	"github.com/cryguy/monacoworkers/internal/core"
	"github.com/cryguy/monacoworkers/internal/devserver"
	"github.com/cryguy/monacoworkers/internal/manifest"
	"github.com/cryguy/monacoworkers/internal/registry"
	"github.com/cryguy/monacoworkers/internal/resolver"
)

// Name identifies the plugin to hosts.
const Name = "monaco-editor-workers"

// Plugin carries the lifecycle hooks. Options are fixed at New; the resolved
// config arrives through ConfigResolved and may be replaced on rebuilds.
type Plugin struct {
	opts   Options
	units  []core.WorkUnit
	logger zerolog.Logger

	bundler  core.Bundler
	resolver core.PathResolver
	ledger   bool

	mu     sync.RWMutex
	cfg    *core.ResolvedConfig
	cache  *bundlecache.Cache
	record *manifest.Ledger
}

// Option customizes a Plugin beyond its user-facing Options.
type Option func(*Plugin)

// WithLogger sets the logger. The default is the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Plugin) { p.logger = l }
}

// WithBundler replaces the in-process esbuild bundler.
func WithBundler(b core.Bundler) Option {
	return func(p *Plugin) { p.bundler = b }
}

// WithResolver replaces the node_modules resolver.
func WithResolver(r core.PathResolver) Option {
	return func(p *Plugin) { p.resolver = r }
}

// WithoutLedger skips the bundle ledger in the cache directory.
func WithoutLedger() Option {
	return func(p *Plugin) { p.ledger = false }
}

// New applies defaults to opts and selects the work units. Unknown labels
// and a public path with no segment are rejected with ErrInvalidOptions.
func New(opts Options, options ...Option) (*Plugin, error) {
	if opts.PublicPath == "" {
		opts.PublicPath = core.DefaultPublicPath
	}
	if !core.IsCDN(opts.PublicPath) && strings.Trim(opts.PublicPath, "/") == "" {
		return nil, zerr.With(zerr.Wrap(core.ErrInvalidOptions, "public path needs at least one segment"), "public_path", opts.PublicPath)
	}
	if opts.EditorPackage == "" {
		opts.EditorPackage = core.DefaultEditorPackage
	}

	reg, err := registry.New(opts.CustomWorkers)
	if err != nil {
		return nil, err
	}
	if opts.LanguageWorkers == nil {
		opts.LanguageWorkers = reg.Labels()
	}
	units, err := reg.Select(opts.LanguageWorkers)
	if err != nil {
		return nil, err
	}

	p := &Plugin{opts: opts, units: units, logger: log.Logger, ledger: true}
	for _, o := range options {
		o(p)
	}
	return p, nil
}

// Options returns the normalized options.
func (p *Plugin) Options() Options { return p.opts }

// Units returns the selected work units.
func (p *Plugin) Units() []WorkUnit {
	out := make([]WorkUnit, len(p.units))
	copy(out, p.units)
	return out
}

// ConfigResolved captures the host configuration and prepares the bundle
// cache for its root. A relative root is made absolute.
func (p *Plugin) ConfigResolved(cfg ResolvedConfig) error {
	root := cfg.Root
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return zerr.With(zerr.Wrap(core.ErrIO, "resolving project root: "+err.Error()), "path", root)
	}
	cfg.Root = abs

	res := p.resolver
	if res == nil {
		res = resolver.New(p.opts.EditorPackage, cfg.Root)
	}
	bundler := p.bundler
	if bundler == nil {
		// Dev and build share the cache, so workers bundle the same way for both.
		bundler = &bundlecache.ESBuild{
			AbsWorkingDir: cfg.Root,
			NodePaths:     []string{filepath.Join(cfg.Root, "node_modules")},
		}
	}

	cacheDir := p.opts.CacheDirFor(cfg.Root)
	cacheOpts := []bundlecache.Option{bundlecache.WithLogger(p.logger)}
	var ledger *manifest.Ledger
	if p.ledger {
		// The ledger is bookkeeping; the cache works without it.
		ledger, err = manifest.Open(cacheDir)
		if err != nil {
			p.logger.Warn().Err(err).Str("dir", cacheDir).Msg("Bundle ledger unavailable")
		} else {
			cacheOpts = append(cacheOpts, bundlecache.WithRecorder(ledger))
		}
	}

	p.mu.Lock()
	old := p.record
	p.cfg = &cfg
	p.cache = bundlecache.New(cacheDir, res, bundler, cacheOpts...)
	p.record = ledger
	p.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	p.logger.Debug().Str("root", cfg.Root).Str("command", cfg.Command).Str("cache", cacheDir).Msg("Config resolved")
	return nil
}

// state returns the resolved config and cache, or ErrNotConfigured.
func (p *Plugin) state(hook string) (core.ResolvedConfig, *bundlecache.Cache, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cfg == nil {
		return core.ResolvedConfig{}, nil, zerr.With(zerr.Wrap(core.ErrNotConfigured, hook+" called before ConfigResolved"), "hook", hook)
	}
	return *p.cfg, p.cache, nil
}

// Cache returns the bundle cache once the config is resolved.
func (p *Plugin) Cache() (*bundlecache.Cache, error) {
	_, cache, err := p.state("Cache")
	return cache, err
}

// Ledger returns the bundle ledger, or nil when it is disabled or failed to
// open.
func (p *Plugin) Ledger() *manifest.Ledger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.record
}

// Middleware returns the dev middleware for the resolved config.
func (p *Plugin) Middleware() (*devserver.Middleware, error) {
	cfg, cache, err := p.state("Middleware")
	if err != nil {
		return nil, err
	}
	return devserver.New(cache, p.units, cfg.BasePath(), p.opts.PublicSegment(), devserver.WithLogger(p.logger)), nil
}

// ConfigureServer bundles every selected worker, then registers the dev
// middleware on srv. A failed warmup aborts server start and nothing is
// registered.
func (p *Plugin) ConfigureServer(ctx context.Context, srv Server) error {
	mw, err := p.Middleware()
	if err != nil {
		return err
	}
	if err := mw.Warm(ctx); err != nil {
		return zerr.Wrap(err, "warming workers")
	}
	srv.Use(mw.Handler)
	for _, path := range mw.Paths() {
		p.logger.Debug().Str("path", path).Msg("Serving worker")
	}
	return nil
}

// WorkerURLs returns the label -> URL table the bootstrap script embeds.
// Development always serves locally, so a CDN public path only applies to
// builds.
func (p *Plugin) WorkerURLs() (map[string]string, error) {
	cfg, _, err := p.state("WorkerURLs")
	if err != nil {
		return nil, err
	}
	return p.workerURLs(cfg), nil
}

func (p *Plugin) workerURLs(cfg core.ResolvedConfig) map[string]string {
	publicPath := p.opts.PublicPath
	if cfg.Command != core.CommandBuild {
		publicPath = p.opts.PublicSegment()
	}
	return bootstrap.WorkerURLs(p.units, publicPath, cfg.BasePath())
}

// TransformIndexHTML returns the tags to add to an HTML page: the bootstrap
// script, prepended to <head>. The page itself is not inspected.
func (p *Plugin) TransformIndexHTML(_ string) ([]TagDescriptor, error) {
	cfg, _, err := p.state("TransformIndexHTML")
	if err != nil {
		return nil, err
	}
	env := bootstrap.Environment{
		GlobalAPI:  p.opts.GlobalAPI,
		WorkerURLs: p.workerURLs(cfg),
		Minify:     cfg.Command == core.CommandBuild,
	}
	return env.Tags()
}

// TransformHTML returns html with the bootstrap tags applied, for hosts
// that do not place tag descriptors themselves.
func (p *Plugin) TransformHTML(html string) (string, error) {
	tags, err := p.TransformIndexHTML(html)
	if err != nil {
		return "", err
	}
	return bootstrap.Inject(html, tags)
}

// WriteBundle copies every selected worker into the build output and
// returns the files written.
func (p *Plugin) WriteBundle(ctx context.Context) ([]string, error) {
	cfg, cache, err := p.state("WriteBundle")
	if err != nil {
		return nil, err
	}
	logger := p.logger
	return buildwriter.New(cache, &logger).Write(ctx, p.opts.DistDir(cfg), p.units)
}

// Close releases the bundle ledger.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.record == nil {
		return nil
	}
	err := p.record.Close()
	p.record = nil
	return err
}

