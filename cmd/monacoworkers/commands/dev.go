package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cryguy/monacoworkers"
	"github.com/cryguy/monacoworkers/internal/host"
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Serve the project root with workers and the bootstrap injected",
	Long: `Start a static development server over the project root. HTML pages get
the MonacoEnvironment bootstrap, worker bundles are served from the cache, and
Prometheus metrics are exposed at ` + host.MetricsPath + `.

Every selected worker is bundled before the server starts listening.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPlugin(monacoworkers.CommandServe)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		srv := host.NewDevServer(settings.Root, p.TransformHTML,
			host.WithBase(settings.Base),
			host.WithLogger(log.Logger),
		)
		if err := p.ConfigureServer(cmd.Context(), srv); err != nil {
			return err
		}
		return srv.ListenAndServe(cmd.Context(), settings.Addr)
	},
}

func init() {
	devCmd.Flags().String("addr", ":5173", "listen address")
	devCmd.Flags().String("base", "/", "public base path")
}
