package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cryguy/monacoworkers/internal/jsprobe"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "monacoworkers %s\n", Version)
		fmt.Fprintf(out, "Commit: %s\n", Commit)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Probe engine: %s\n", jsprobe.Engine)
	},
}
