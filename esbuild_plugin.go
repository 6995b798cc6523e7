package monacoworkers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
)

// ESBuildPlugin adapts the plugin to an esbuild build. Each build start
// resolves the config from the build options; a build that finished without
// errors gets the workers written next to its output.
func (p *Plugin) ESBuildPlugin() api.Plugin {
	return api.Plugin{
		Name: Name,
		Setup: func(build api.PluginBuild) {
			initial := build.InitialOptions

			build.OnStart(func() (api.OnStartResult, error) {
				if err := p.ConfigResolved(configFromBuild(initial)); err != nil {
					return api.OnStartResult{Errors: []api.Message{{Text: err.Error(), PluginName: Name}}}, nil
				}
				return api.OnStartResult{}, nil
			})

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}
				files, err := p.WriteBundle(context.Background())
				if err != nil {
					return api.OnEndResult{Errors: []api.Message{{Text: err.Error(), PluginName: Name}}}, nil
				}
				p.logger.Info().Int("workers", len(files)).Msg("Workers written")
				return api.OnEndResult{}, nil
			})
		},
	}
}

// configFromBuild maps esbuild options onto a resolved config. Outdir wins
// over the directory of Outfile.
func configFromBuild(opts *api.BuildOptions) ResolvedConfig {
	root := opts.AbsWorkingDir
	if root == "" {
		if wd, err := os.Getwd(); err == nil {
			root = wd
		}
	}
	outDir := opts.Outdir
	if outDir == "" && opts.Outfile != "" {
		outDir = filepath.Dir(opts.Outfile)
	}
	return ResolvedConfig{Root: root, OutDir: outDir, Base: "/", Command: CommandBuild}
}
