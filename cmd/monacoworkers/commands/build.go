package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cryguy/monacoworkers"
	"github.com/cryguy/monacoworkers/internal/host"
)

var buildEntries []string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Write a production build with the workers",
	Long: `Write every HTML page under the project root into out_dir with the
bootstrap injected, then copy the selected workers into the public
subdirectory.

With --entry, bundle those application entries with esbuild instead; the
workers are written by the esbuild plugin once the build succeeds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPlugin(monacoworkers.CommandBuild)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		rc := settings.Resolved(monacoworkers.CommandBuild)
		root, err := filepath.Abs(rc.Root)
		if err != nil {
			return err
		}
		rc.Root = root

		if len(buildEntries) > 0 {
			return buildEntryPoints(p, rc)
		}

		pages, err := host.BuildHTML(rc.Root, rc.AbsOutDir(), p.TransformHTML)
		if err != nil {
			return err
		}
		workers, err := p.WriteBundle(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().Int("pages", len(pages)).Int("workers", len(workers)).Str("out", rc.AbsOutDir()).Msg("Build complete")
		return nil
	},
}

func buildEntryPoints(p *monacoworkers.Plugin, rc monacoworkers.ResolvedConfig) error {
	result := api.Build(api.BuildOptions{
		EntryPoints:   buildEntries,
		AbsWorkingDir: rc.Root,
		Outdir:        rc.AbsOutDir(),
		Bundle:        true,
		Write:         true,
		Format:        api.FormatESModule,
		Platform:      api.PlatformBrowser,
		MinifySyntax:  true,
		LogLevel:      api.LogLevelSilent,
		Plugins:       []api.Plugin{p.ESBuildPlugin()},
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			msgs = append(msgs, m.Text)
		}
		return fmt.Errorf("build failed: %s", strings.Join(msgs, "; "))
	}
	log.Info().Int("files", len(result.OutputFiles)).Str("out", rc.AbsOutDir()).Msg("Build complete")
	return nil
}

func init() {
	buildCmd.Flags().String("out-dir", "dist", "output directory, relative to the root")
	buildCmd.Flags().String("base", "/", "public base path")
	buildCmd.Flags().String("custom-dist-path", "", "write workers here instead of <out-dir>/<public-path>")
	buildCmd.Flags().StringSliceVar(&buildEntries, "entry", nil, "application entry points to bundle with esbuild")
}
