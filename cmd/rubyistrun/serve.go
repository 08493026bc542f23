package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"rubyistrun/internal/database"
	"rubyistrun/internal/feed"
	"rubyistrun/internal/indexer"
	"rubyistrun/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Index content and serve the feed over HTTP",
		Long: `The serve command indexes the content directory into the database, then
serves /rss.xml, /healthz and /metrics. With --watch it re-indexes whenever
the content tree changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().Int("port", 0, "port to run the server on (default 8080 or RUBYISTRUN_PORT)")
	cmd.Flags().Bool("watch", false, "re-index when content changes")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	logger.Info("starting rubyistrun",
		zap.String("version", Version),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.DBPath),
		zap.String("content", cfg.ContentDir),
		zap.Bool("strict", cfg.Strict),
		zap.Bool("watch", cfg.Watch),
		zap.String("mode", map[bool]string{true: "production", false: "development"}[cfg.Production]))

	db, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	metrics := server.NewMetrics()
	idx := indexer.New(a.loader(cfg.Strict), db, logger)
	idx.SetObserver(metrics)
	if _, err := idx.Index(ctx); err != nil {
		return err
	}
	if err := logStoreStatus(ctx, db, logger); err != nil {
		return err
	}

	site, err := cfg.SiteURL()
	if err != nil {
		return err
	}
	gen := feed.NewGenerator(db, cfg.FeedConfig(), logger)
	srv := server.NewServer(db, gen, logger, metrics, server.Config{
		Site:     site,
		MaxConns: cfg.MaxConns,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx, cfg.GetAddress())
	})
	if cfg.Watch {
		g.Go(func() error {
			return idx.Watch(ctx)
		})
	}
	return g.Wait()
}

func logStoreStatus(ctx context.Context, db *database.DB, logger *zap.Logger) error {
	status, err := db.Status(ctx)
	if err != nil {
		return err
	}
	for _, s := range status {
		logger.Info("collection indexed",
			zap.String("collection", string(s.Collection)),
			zap.Int("entries", s.Entries),
			zap.Time("indexed_at", s.IndexedAt))
	}
	return nil
}
