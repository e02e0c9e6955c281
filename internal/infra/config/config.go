package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	PolicyReapAny  = "reap-any"
	PolicyDrainAll = "drain-all"

	DefaultListingURL = "http://api.bitcoincharts.com/v1/csv/"
)

type Config struct {
	Workers  WorkersConfig  `mapstructure:"workers" yaml:"workers"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Status   StatusConfig   `mapstructure:"status" yaml:"status"`
}

type WorkersConfig struct {
	Max int `mapstructure:"max" yaml:"max"`
	// DownloaderPath is the external single-URL fetch executable.
	// Empty means downloads run in-process.
	DownloaderPath string `mapstructure:"downloader_path" yaml:"downloader_path"`
	Policy         string `mapstructure:"policy" yaml:"policy"`
}

type DownloadConfig struct {
	OutDir     string `mapstructure:"out_dir" yaml:"out_dir"`
	ListingURL string `mapstructure:"listing_url" yaml:"listing_url"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type StoreConfig struct {
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

type StatusConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// FlagKeys maps config keys to the command-line flags that override them.
var FlagKeys = map[string]string{
	"workers.max":             "num-workers",
	"workers.downloader_path": "downloader",
	"workers.policy":          "policy",
	"download.out_dir":        "output-dir",
	"download.listing_url":    "listing-url",
	"status.addr":             "status-addr",
	"store.sqlite_path":       "history-db",
}

// Load reads the optional config file at path, then environment variables, then any changed flags.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set Defaults
	v.SetDefault("workers.max", runtime.NumCPU())
	v.SetDefault("workers.downloader_path", "")
	v.SetDefault("workers.policy", PolicyReapAny)
	v.SetDefault("download.out_dir", "./gzips")
	v.SetDefault("download.listing_url", DefaultListingURL)
	v.SetDefault("http.timeout", "0s")
	v.SetDefault("log.path", "bulkfetch.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", false)
	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("status.addr", "")

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}

		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("BULKFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Workers.Max <= 0 {
		return fmt.Errorf("workers.max must be at least 1, got %d", c.Workers.Max)
	}

	switch c.Workers.Policy {
	case PolicyReapAny, PolicyDrainAll:
	case "":
		c.Workers.Policy = PolicyReapAny
	default:
		return fmt.Errorf("unknown workers.policy %q (want %s or %s)", c.Workers.Policy, PolicyReapAny, PolicyDrainAll)
	}

	if strings.TrimSpace(c.Download.OutDir) == "" {
		return fmt.Errorf("download.out_dir is required")
	}

	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout cannot be negative")
	}

	return nil
}
