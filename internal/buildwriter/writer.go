// Package buildwriter copies cached worker bundles into a production build.
package buildwriter

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"github.com/cryguy/monacoworkers/internal/core"
	"github.com/cryguy/monacoworkers/internal/registry"
)

// Writer places one file per work unit in a dist directory.
type Writer struct {
	store  core.BundleStore
	logger zerolog.Logger
}

// New returns a Writer reading bundles from store.
func New(store core.BundleStore, logger *zerolog.Logger) *Writer {
	w := &Writer{store: store, logger: log.Logger}
	if logger != nil {
		w.logger = *logger
	}
	return w
}

// Write creates distDir and copies every unit's bundle into it as its
// derived filename, overwriting existing files. It returns the written paths
// sorted. Any failure fails the whole write.
func (w *Writer) Write(ctx context.Context, distDir string, units []core.WorkUnit) ([]string, error) {
	if err := os.MkdirAll(distDir, 0755); err != nil {
		return nil, zerr.With(zerr.Wrap(core.ErrIO, "creating worker output directory: "+err.Error()), "path", distDir)
	}

	var (
		mu      sync.Mutex
		written []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range units {
		g.Go(func() error {
			dest, err := w.copyUnit(gctx, distDir, u)
			if err != nil {
				return err
			}
			mu.Lock()
			written = append(written, dest)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(written)
	return written, nil
}

func (w *Writer) copyUnit(ctx context.Context, distDir string, u core.WorkUnit) (string, error) {
	data, err := w.store.Read(ctx, u)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(distDir, registry.DeriveFilename(u.Entry))
	if err := os.WriteFile(dest, data, 0644); err != nil {
		err = zerr.Wrap(core.ErrIO, "writing worker file: "+err.Error())
		return "", zerr.With(zerr.With(err, "label", u.Label), "path", dest)
	}
	w.logger.Info().Str("label", u.Label).Str("file", dest).Int("bytes", len(data)).Msg("Wrote worker")
	return dest, nil
}
