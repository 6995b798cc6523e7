package bundlecache

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/zerr"

	"github.com/cryguy/monacoworkers/internal/core"
)

// ESBuild bundles a worker entry and everything it imports into one
// classic script that a browser can start with new Worker(url).
type ESBuild struct {
	// AbsWorkingDir anchors relative paths in esbuild's output. Defaults to
	// the entry's directory.
	AbsWorkingDir string
	// NodePaths are extra directories esbuild searches for bare imports.
	NodePaths []string
}

var _ core.Bundler = (*ESBuild)(nil)

// Bundle runs esbuild in-process. Workers are emitted as IIFE so they load
// with importScripts and without module worker support.
func (b *ESBuild) Bundle(ctx context.Context, entry string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	workDir := b.AbsWorkingDir
	if workDir == "" {
		workDir = filepath.Dir(entry)
	}

	opts := esbuild.BuildOptions{
		EntryPoints:   []string{entry},
		AbsWorkingDir: workDir,
		Bundle:        true,
		Format:        esbuild.FormatIIFE,
		Platform:      esbuild.PlatformBrowser,
		Write:         false,
		LogLevel:      esbuild.LogLevelSilent,
		NodePaths:     b.NodePaths,
	}

	result := esbuild.Build(opts)

	if len(result.Errors) > 0 {
		return nil, zerr.With(zerr.Wrap(core.ErrBundle, formatMessages(result.Errors)), "entry", entry)
	}

	// Workers may pull in assets (fonts, css); only the script is wanted.
	for _, f := range result.OutputFiles {
		if strings.HasSuffix(f.Path, ".js") || f.Path == "<stdout>" {
			return f.Contents, nil
		}
	}
	if len(result.OutputFiles) > 0 {
		return result.OutputFiles[0].Contents, nil
	}
	return nil, zerr.With(zerr.Wrap(core.ErrBundle, "bundling produced no output"), "entry", entry)
}

func formatMessages(msgs []esbuild.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		text := m.Text
		if m.Location != nil {
			text = fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "; ")
}
