// Package commands provides the Cobra commands for the monacoworkers CLI.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cryguy/monacoworkers"
	"github.com/cryguy/monacoworkers/internal/config"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	cfgFile string

	// settings is loaded before any subcommand runs.
	settings *config.Config
)

// flagKeys maps CLI flags onto config keys. Only flags a command declares
// are bound; the rest come from the file, the environment, or defaults.
var flagKeys = map[string]string{
	"root":             "root",
	"out-dir":          "out_dir",
	"base":             "base",
	"addr":             "addr",
	"log-level":        "log_level",
	"log-format":       "log_format",
	"public-path":      "public_path",
	"global-api":       "global_api",
	"language-workers": "language_workers",
	"cache-dir":        "cache_dir",
	"custom-dist-path": "custom_dist_path",
	"editor-package":   "editor_package",
}

var rootCmd = &cobra.Command{
	Use:   "monacoworkers",
	Short: "Provision Monaco editor language workers",
	Long: `monacoworkers bundles the Monaco editor's language workers into
standalone scripts, serves them from a development server, copies them into
production builds, and injects the MonacoEnvironment bootstrap into pages.

Settings come from monacoworkers.yaml, MONACOWORKERS_* environment
variables, and flags, in increasing order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := config.New(cfgFile)
		for flag, key := range flagKeys {
			if f := cmd.Flags().Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}
		var err error
		settings, err = config.Load(v)
		if err != nil {
			return err
		}
		setupLogging(settings.LogLevel, settings.LogFormat)
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./monacoworkers.yaml)")
	pf.String("root", ".", "project root")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "console", "log format: console, json")
	pf.String("public-path", monacoworkers.DefaultPublicPath, "public path segment, or an absolute URL for a CDN")
	pf.Bool("global-api", false, "expose the editor's global API")
	pf.StringSlice("language-workers", nil, "labels to provision (default: all)")
	pf.String("cache-dir", "", "bundle cache directory (default: <root>/node_modules/.monaco)")
	pf.String("editor-package", monacoworkers.DefaultEditorPackage, "npm package holding the editor's esm tree")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(cacheCmd)
}

func setupLogging(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// newPlugin builds the plugin from settings and resolves it for command.
func newPlugin(command string, options ...monacoworkers.Option) (*monacoworkers.Plugin, error) {
	options = append([]monacoworkers.Option{monacoworkers.WithLogger(log.Logger)}, options...)
	p, err := monacoworkers.New(settings.Options(), options...)
	if err != nil {
		return nil, err
	}
	if err := p.ConfigResolved(settings.Resolved(command)); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}
