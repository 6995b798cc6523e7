package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cryguy/monacoworkers"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Bundle every selected worker into the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPlugin(monacoworkers.CommandServe)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		cache, err := p.Cache()
		if err != nil {
			return err
		}
		units := p.Units()
		if err := cache.Warm(cmd.Context(), units); err != nil {
			return err
		}
		for _, u := range units {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u.Label, cache.Path(u))
		}
		return nil
	},
}
