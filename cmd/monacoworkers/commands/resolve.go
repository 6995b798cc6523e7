package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cryguy/monacoworkers"
	"github.com/cryguy/monacoworkers/internal/jsprobe"
)

var (
	resolveLabel   string
	resolvePageURL string
	resolveMode    string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the URL the bootstrap gives the editor for a label",
	Long: `Render the MonacoEnvironment bootstrap, run it in an embedded JavaScript
engine on a page at --page-url, and print what getWorkerUrl returns for
--label. Cross-origin workers come back as blob: URLs, as in a browser.`,
	Example: `  monacoworkers resolve --label json --page-url http://localhost:5173/
  monacoworkers resolve --label css --mode build --public-path https://cdn.example.com/monaco`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if resolveMode != monacoworkers.CommandServe && resolveMode != monacoworkers.CommandBuild {
			return fmt.Errorf("--mode must be %q or %q", monacoworkers.CommandServe, monacoworkers.CommandBuild)
		}
		p, err := newPlugin(resolveMode, monacoworkers.WithoutLedger())
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		tags, err := p.TransformIndexHTML("")
		if err != nil {
			return err
		}
		r, err := jsprobe.Probe(tags[0].Children, resolvePageURL, resolveLabel)
		if err != nil {
			return err
		}
		if !r.Defined {
			return fmt.Errorf("no worker for label %q", resolveLabel)
		}
		fmt.Fprintln(cmd.OutOrStdout(), r.URL)
		if r.BlobSource != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "blob source: %s\n", r.BlobSource)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveLabel, "label", "", "language label, as passed to getWorkerUrl")
	resolveCmd.Flags().StringVar(&resolvePageURL, "page-url", "http://localhost:5173/", "URL of the page running the bootstrap")
	resolveCmd.Flags().StringVar(&resolveMode, "mode", monacoworkers.CommandServe, "serve or build")
	resolveCmd.Flags().String("base", "/", "public base path")
	_ = resolveCmd.MarkFlagRequired("label")
}
