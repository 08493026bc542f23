package main

import (
	"fmt"
	"os"
	"path/filepath"

	"rubyistrun/internal/config"
	"rubyistrun/internal/content"
	"rubyistrun/internal/database"
	"rubyistrun/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is filled in before any subcommand runs.
type app struct {
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "rubyistrun",
		Short:         "Rubyist Run content index and RSS feed",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./rubyistrun.yaml)")
	flags.String("content", "", "content directory (default src/content or RUBYISTRUN_CONTENT_DIR)")
	flags.String("db", "", "path to database file (default data/content.db or RUBYISTRUN_DB_PATH)")
	flags.String("site", "", "public site URL feed links are resolved against")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.Bool("lenient", false, "skip invalid content entries instead of failing")
	flags.Bool("prod", false, "enable production mode (JSON logs)")

	root.AddCommand(newServeCmd(a), newBuildCmd(a), newCheckCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) loader(strict bool) *content.Loader {
	lc := a.cfg.LoaderConfig()
	lc.Strict = strict
	return content.NewLoader(content.NewRegistry(), lc, a.logger)
}

// openStore opens the on-disk store, creating its directory as needed.
func (a *app) openStore() (*database.DB, error) {
	dbPath := a.cfg.DBPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := database.NewDB(dbPath, database.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}
