package main

import (
	"fmt"
	"os"

	"github.com/danielafriyie/raccy-orm/adapters/metrics"
	"github.com/danielafriyie/raccy-orm/config"
	"github.com/danielafriyie/raccy-orm/core/dialect"
	"github.com/danielafriyie/raccy-orm/core/orm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	modelsDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ro",
	Short: "Minimal ORM: declare models in YAML, create their tables",
	Long: `ro maps model declarations onto SQL tables.

Models are YAML files with a model name, optional abstract parent and
ordered fields. Every concrete model gets a table named after it,
lower-cased, with an implicit "pk" primary key.

Commands:
  ro inspect        # Show fields and column SQL of every model
  ro migrate        # Create the tables on the configured database`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "ro.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&modelsDir, "models", "m", "", "model declarations directory (overrides models.dir)")
}

// loadConfig reads the config file, falling back to RO_* environment
// variables when it does not exist.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, err
	}
	if modelsDir != "" {
		cfg.Models.Dir = modelsDir
	}
	return cfg, nil
}

// loadModels registers every model declared under the configured
// directory.
func loadModels(cfg *config.Config, logger zerolog.Logger) ([]*orm.Model, error) {
	orm.SetLogger(logger)

	models, err := orm.Load(cfg.Models.Dir)
	if err != nil {
		return nil, fmt.Errorf("load models from %s: %w", cfg.Models.Dir, err)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no model declarations found in %s", cfg.Models.Dir)
	}
	return models, nil
}

// activate opens the configured database and makes it the active one.
// The returned function closes it.
func activate(cfg *config.Config, logger zerolog.Logger) (func() error, error) {
	rt := config.Global()
	rt.SetLogger(logger)
	if cfg.Metrics.Enabled {
		rt.SetMetrics(metrics.New(cfg.Metrics.Namespace))
	}

	if _, err := os.Stat(cfgFile); err == nil {
		h, err := config.NewHolder(cfgFile, logger)
		if err != nil {
			return nil, err
		}
		if err := h.Activate(); err != nil {
			return nil, err
		}
		return h.Close, nil
	}

	db, err := dialect.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SQL().SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if err := rt.SetDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	return db.Close, nil
}
