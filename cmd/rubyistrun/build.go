package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"rubyistrun/internal/database"
	"rubyistrun/internal/feed"
	"rubyistrun/internal/indexer"
	"rubyistrun/internal/rss"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newBuildCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write the RSS feed to the output directory",
		Long: `The build command indexes content into an in-memory database, generates the
feed, checks that it parses back as RSS and writes it to <out>/rss.xml.
A site URL is required.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := a.build(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().String("out", "", "output directory (default dist or RUBYISTRUN_OUT_DIR)")
	return cmd
}

func (a *app) build(ctx context.Context) (string, error) {
	site, err := a.cfg.SiteURL()
	if err != nil {
		return "", err
	}
	if site == nil {
		return "", errors.New("a site URL is required to build the feed (--site or RUBYISTRUN_SITE)")
	}

	db, err := database.NewDB(":memory:", database.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if _, err := indexer.New(a.loader(a.cfg.Strict), db, a.logger).Index(ctx); err != nil {
		return "", err
	}

	data, err := feed.NewGenerator(db, a.cfg.FeedConfig(), a.logger).Render(ctx, site)
	if err != nil {
		return "", err
	}
	parsed, err := rss.Verify(data)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(a.cfg.OutDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(a.cfg.OutDir, "rss.xml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("error writing %s: %w", path, err)
	}

	a.logger.Info("wrote feed", zap.String("path", path), zap.Int("items", len(parsed.Items)))
	return path, nil
}
