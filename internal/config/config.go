// Package config loads plugin and host settings from monacoworkers.yaml,
// MONACOWORKERS_* environment variables, a .env file, and CLI flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.trai.ch/zerr"

	"github.com/cryguy/monacoworkers/internal/core"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "MONACOWORKERS"

// Config is the full settings tree. Plugin keys map onto core.Options; the
// rest configure the bundled host.
type Config struct {
	LanguageWorkers []string        `mapstructure:"language_workers"`
	PublicPath      string          `mapstructure:"public_path"`
	GlobalAPI       bool            `mapstructure:"global_api"`
	CustomWorkers   []core.WorkUnit `mapstructure:"custom_workers"`
	CacheDir        string          `mapstructure:"cache_dir"`
	CustomDistPath  string          `mapstructure:"custom_dist_path"`
	EditorPackage   string          `mapstructure:"editor_package"`

	Root      string `mapstructure:"root"`
	OutDir    string `mapstructure:"out_dir"`
	Base      string `mapstructure:"base"`
	Addr      string `mapstructure:"addr"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// keys lists every setting so each can be bound to its environment variable
// even when no default or file value exists.
var keys = []string{
	"language_workers", "public_path", "global_api", "custom_workers",
	"cache_dir", "custom_dist_path", "editor_package",
	"root", "out_dir", "base", "addr", "log_level", "log_format",
}

// New returns a viper instance with defaults and environment binding. An
// empty configFile searches for monacoworkers.yaml in . and ./config.
func New(configFile string) *viper.Viper {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("monacoworkers")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	return v
}

func setDefaults(v *viper.Viper) {
	// language_workers has no default: unset selects every worker.
	v.SetDefault("public_path", core.DefaultPublicPath)
	v.SetDefault("global_api", false)
	v.SetDefault("editor_package", core.DefaultEditorPackage)

	v.SetDefault("root", ".")
	v.SetDefault("out_dir", core.DefaultOutDir)
	v.SetDefault("base", core.DefaultBase)
	v.SetDefault("addr", ":5173")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Load reads the config file (if any) and decodes the settings. A .env file
// in the working directory is loaded first without overriding variables
// already set.
func Load(v *viper.Viper) (*Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			sentinel := core.ErrInvalidOptions
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
				sentinel = core.ErrIO
			}
			return nil, zerr.With(zerr.Wrap(sentinel, "error reading config file: "+err.Error()), "file", v.ConfigFileUsed())
		}
		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, zerr.Wrap(core.ErrInvalidOptions, "unable to decode config: "+err.Error())
	}
	if !v.IsSet("language_workers") {
		cfg.LanguageWorkers = nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, zerr.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return zerr.With(zerr.Wrap(core.ErrIO, "error loading .env file: "+err.Error()), "path", path)
	}
	log.Debug().Str("file", path).Msg(".env file loaded")
	return nil
}

// Validate checks the host settings. Plugin settings are validated when the
// plugin is built from Options().
func (c *Config) Validate() error {
	if c.Addr == "" {
		return zerr.Wrap(core.ErrInvalidOptions, "addr cannot be empty")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return zerr.With(zerr.Wrap(core.ErrInvalidOptions, "log_level: "+err.Error()), "log_level", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return zerr.With(zerr.Wrap(core.ErrInvalidOptions, "log_format must be 'console' or 'json'"), "log_format", c.LogFormat)
	}
	for i, w := range c.CustomWorkers {
		if w.Label == "" || w.Entry == "" {
			return zerr.With(zerr.Wrap(core.ErrInvalidOptions, fmt.Sprintf("custom_workers[%d] needs a label and an entry", i)), "label", w.Label)
		}
	}
	return nil
}

// Options returns the plugin options.
func (c *Config) Options() core.Options {
	return core.Options{
		LanguageWorkers: c.LanguageWorkers,
		PublicPath:      c.PublicPath,
		GlobalAPI:       c.GlobalAPI,
		CustomWorkers:   c.CustomWorkers,
		CacheDir:        c.CacheDir,
		CustomDistPath:  c.CustomDistPath,
		EditorPackage:   c.EditorPackage,
	}
}

// Resolved returns the host config for command.
func (c *Config) Resolved(command string) core.ResolvedConfig {
	return core.ResolvedConfig{
		Root:    c.Root,
		OutDir:  c.OutDir,
		Base:    c.Base,
		Command: command,
	}
}
