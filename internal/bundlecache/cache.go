// Package bundlecache turns worker entries into single-file bundles and keeps
// them in a cache directory that outlives the process.
package bundlecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cryguy/monacoworkers/internal/core"
	"github.com/cryguy/monacoworkers/internal/manifest"
	"github.com/cryguy/monacoworkers/internal/registry"
)

// Recorder receives an entry for every bundle written.
type Recorder interface {
	Record(ctx context.Context, e manifest.Entry) error
}

// Cache stores one bundle per derived filename in Dir. A file that exists
// is a valid bundle; nothing is ever invalidated.
type Cache struct {
	dir      string
	resolver core.PathResolver
	bundler  core.Bundler
	recorder Recorder
	logger   zerolog.Logger

	requestGroup singleflight.Group
}

var _ core.BundleStore = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithRecorder records every bundle written to the cache.
func WithRecorder(r Recorder) Option {
	return func(c *Cache) { c.recorder = r }
}

// WithLogger sets the logger. The default is the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New returns a cache rooted at dir.
func New(dir string, resolver core.PathResolver, bundler core.Bundler, opts ...Option) *Cache {
	c := &Cache{
		dir:      dir,
		resolver: resolver,
		bundler:  bundler,
		logger:   log.Logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Path returns where the bundle for unit lives, whether or not it exists yet.
func (c *Cache) Path(unit core.WorkUnit) string {
	return filepath.Join(c.dir, registry.DeriveFilename(unit.Entry))
}

// Ensure returns the cached bundle path for unit, bundling it first if the
// file is missing. Concurrent calls for the same filename share one bundle.
func (c *Cache) Ensure(ctx context.Context, unit core.WorkUnit) (string, error) {
	name := registry.DeriveFilename(unit.Entry)
	target := filepath.Join(c.dir, name)

	if isFile(target) {
		bundleRequestsTotal.WithLabelValues("hit").Inc()
		c.logger.Debug().Str("label", unit.Label).Str("file", target).Msg("Worker bundle cached")
		return target, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	// The flight is shared; one caller's cancellation must not fail the others.
	flightCtx := context.WithoutCancel(ctx)
	_, err, _ := c.requestGroup.Do(name, func() (any, error) {
		// Another caller may have finished while we waited for the lock.
		if isFile(target) {
			return target, nil
		}
		return target, c.build(flightCtx, unit, name, target)
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		bundleRequestsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	return target, nil
}

func (c *Cache) build(ctx context.Context, unit core.WorkUnit, name, target string) error {
	bundleRequestsTotal.WithLabelValues("miss").Inc()

	entry, err := c.resolver.Resolve(unit.Entry)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "resolving worker "+unit.Label), "label", unit.Label)
	}

	start := time.Now()
	out, err := c.bundler.Bundle(ctx, entry)
	took := time.Since(start)
	if err != nil {
		if !errors.Is(err, core.ErrBundle) {
			err = zerr.Wrap(core.ErrBundle, err.Error())
		}
		return zerr.With(zerr.Wrap(err, "bundling worker "+unit.Label), "label", unit.Label)
	}
	bundleDuration.Observe(took.Seconds())

	if err := writeAtomic(c.dir, target, out); err != nil {
		return zerr.With(zerr.With(err, "label", unit.Label), "path", target)
	}

	c.logger.Info().
		Str("label", unit.Label).
		Str("entry", entry).
		Str("file", target).
		Int("bytes", len(out)).
		Dur("took", took).
		Msg("Bundled worker")

	if c.recorder != nil {
		rec := manifest.Entry{
			Filename: name,
			Label:    unit.Label,
			Entry:    unit.Entry,
			Size:     int64(len(out)),
			Checksum: manifest.Checksum(out),
			Duration: took,
		}
		if err := c.recorder.Record(ctx, rec); err != nil {
			c.logger.Warn().Err(err).Str("file", name).Msg("Failed to record bundle in ledger")
		}
	}
	return nil
}

// Read returns the bundle bytes for unit, bundling it first if needed.
func (c *Cache) Read(ctx context.Context, unit core.WorkUnit) ([]byte, error) {
	p, err := c.Ensure(ctx, unit)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p) //nolint:gosec // path is derived from the cache dir
	if err != nil {
		return nil, zerr.With(zerr.Wrap(core.ErrIO, err.Error()), "path", p)
	}
	return data, nil
}

// Warm ensures every unit is bundled, bundling distinct units in parallel.
// It stops at the first failure.
func (c *Cache) Warm(ctx context.Context, units []core.WorkUnit) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range units {
		g.Go(func() error {
			_, err := c.Ensure(gctx, u)
			return err
		})
	}
	return g.Wait()
}

// Files lists the bundle files currently in the cache directory.
func (c *Cache) Files() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(core.ErrIO, err.Error())
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".bundle.js") {
			out = append(out, filepath.Join(c.dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Clean removes the cache directory and everything in it.
func (c *Cache) Clean() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return zerr.With(zerr.Wrap(core.ErrIO, err.Error()), "path", c.dir)
	}
	return nil
}

// writeAtomic writes data next to target and renames it into place, so a
// reader never sees a partial bundle and racing writers leave one whole file.
func writeAtomic(dir, target string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return zerr.Wrap(core.ErrIO, "creating cache directory: "+err.Error())
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return zerr.Wrap(core.ErrIO, "creating temp file: "+err.Error())
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(core.ErrIO, "writing bundle: "+err.Error())
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(core.ErrIO, "closing bundle: "+err.Error())
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return zerr.Wrap(core.ErrIO, "setting bundle mode: "+err.Error())
	}
	if err := os.Rename(tmpName, target); err != nil {
		return zerr.Wrap(core.ErrIO, "moving bundle into place: "+err.Error())
	}
	return nil
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
