// Package cmd implements the defectscope command-line interface.
package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/defectscope/defectscope/engine/analyze"
	"github.com/defectscope/defectscope/engine/cache"
	"github.com/defectscope/defectscope/engine/nhtsa"
	"github.com/defectscope/defectscope/pkg/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

// Config is the CLI configuration, loaded from file, environment, and flags.
type Config struct {
	CacheDir      string  `mapstructure:"cache_dir"`
	Enrich        bool    `mapstructure:"enrich"`
	EnrichMax     int     `mapstructure:"enrich_max"`
	EnrichWorkers int     `mapstructure:"enrich_workers"`
	RatePerSec    float64 `mapstructure:"rate_per_sec"`
	TimeoutSec    int     `mapstructure:"timeout_seconds"`
}

var (
	cfgFile string
	verbose bool
	cfg     Config
)

var rootCmd = &cobra.Command{
	Use:   "defectscope",
	Short: "DefectScope: NHTSA recall and complaint analysis",
	Long: `DefectScope fetches recall and complaint data from the NHTSA public
APIs for a vehicle (by VIN or make/model/year), enriches complaints with
per-record detail, and reports component frequencies, severity totals,
and text-search results over complaint narratives.

Commands:
  analyze  Run a full analysis for a vehicle
  search   Search complaint narratives for a vehicle
  cache    Manage the on-disk response cache`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./defectscope.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	viper.SetDefault("cache_dir", ".defectscope-cache")
	viper.SetDefault("enrich", true)
	viper.SetDefault("enrich_max", 150)
	viper.SetDefault("enrich_workers", 6)
	viper.SetDefault("rate_per_sec", 10.0)
	viper.SetDefault("timeout_seconds", 20)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("defectscope")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/defectscope")
	}

	// DEFECTSCOPE_CACHE_DIR -> cache_dir, and so on.
	viper.SetEnvPrefix("DEFECTSCOPE")
	viper.AutomaticEnv()

	viper.BindEnv("cache_dir", "DEFECTSCOPE_CACHE_DIR")
	viper.BindEnv("enrich", "DEFECTSCOPE_ENRICH")
	viper.BindEnv("enrich_max", "DEFECTSCOPE_ENRICH_MAX")
	viper.BindEnv("enrich_workers", "DEFECTSCOPE_ENRICH_WORKERS")
	viper.BindEnv("rate_per_sec", "DEFECTSCOPE_RATE_PER_SEC")
	viper.BindEnv("timeout_seconds", "DEFECTSCOPE_TIMEOUT_SECONDS")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}
}

// newAnalyzer builds the shared fetch-and-analyze stack for subcommands.
func newAnalyzer(enrich bool) (*analyze.Analyzer, *nhtsa.Client, *cache.Disk, error) {
	store, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return nil, nil, nil, err
	}

	clientCfg := nhtsa.Config{
		Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
	}
	if cfg.RatePerSec > 0 {
		clientCfg.RateLimit = rate.Limit(cfg.RatePerSec)
	}
	client := nhtsa.New(store, clientCfg, metrics.New(), slog.Default())

	opts := analyze.DefaultOptions()
	opts.Enrich = enrich && cfg.Enrich
	opts.MaxEnrich = cfg.EnrichMax
	opts.Workers = cfg.EnrichWorkers

	return analyze.New(client, opts, slog.Default()), client, store, nil
}
