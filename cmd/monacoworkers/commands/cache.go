package commands

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cryguy/monacoworkers"
	"github.com/cryguy/monacoworkers/internal/manifest"
)

var outputFmt string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the worker bundle cache",
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached worker bundles",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := ParseFormat(outputFmt)
		if err != nil {
			return err
		}
		p, err := newPlugin(monacoworkers.CommandServe)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		cache, err := p.Cache()
		if err != nil {
			return err
		}
		files, err := cache.Files()
		if err != nil {
			return err
		}

		var entries []manifest.Entry
		if ledger := p.Ledger(); ledger != nil {
			entries, err = ledger.List(cmd.Context())
			if err != nil {
				return err
			}
		}
		recorded := make(map[string]bool, len(entries))

		data := TableData{Headers: []string{"FILE", "LABEL", "SIZE", "CHECKSUM", "TOOK", "BUNDLED"}}
		for _, e := range entries {
			if _, err := os.Stat(filepath.Join(cache.Dir(), e.Filename)); err != nil {
				continue
			}
			recorded[e.Filename] = true
			data.Rows = append(data.Rows, []string{
				e.Filename,
				e.Label,
				strconv.FormatInt(e.Size, 10),
				e.Checksum,
				e.Duration.Round(time.Millisecond).String(),
				e.BundledAt.Format(time.RFC3339),
			})
		}
		// Bundles written by another tool, or before the ledger existed.
		for _, f := range files {
			name := filepath.Base(f)
			if recorded[name] {
				continue
			}
			var size string
			if info, err := os.Stat(f); err == nil {
				size = strconv.FormatInt(info.Size(), 10)
			}
			data.Rows = append(data.Rows, []string{name, "", size, "", "", ""})
		}

		NewFormatter(format, cmd.OutOrStdout()).PrintTable(data)
		return nil
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the cache directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPlugin(monacoworkers.CommandServe, monacoworkers.WithoutLedger())
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		cache, err := p.Cache()
		if err != nil {
			return err
		}
		if err := cache.Clean(); err != nil {
			return err
		}
		log.Info().Str("dir", cache.Dir()).Msg("Cache removed")
		return nil
	},
}

func init() {
	cacheLsCmd.Flags().StringVarP(&outputFmt, "output", "o", "table", "output format: table, json, yaml")
	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
}
