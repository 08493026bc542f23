// internal/feed/generator.go
// Package feed turns a content collection into an RSS document.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"rubyistrun/internal/content"
	"rubyistrun/internal/rss"

	"go.uber.org/zap"
)

// ErrCollectionQuery wraps any failure to read the feed's collection.
var ErrCollectionQuery = errors.New("collection query failed")

const (
	DefaultTitle       = "Rubyist Run"
	DefaultDescription = "Personal Blog about Ruby and JavaScript, written by Gaiheilu Kamei"
	DefaultLinkPrefix  = "/js/"
)

// Querier is the content query capability the generator reads from.
type Querier interface {
	GetCollection(ctx context.Context, c content.Collection) ([]content.Entry, error)
}

type Config struct {
	Title       string
	Description string
	Collection  content.Collection
	// LinkPrefix is prepended to each slug. It does not follow Collection.
	LinkPrefix    string
	TrailingSlash bool
}

// DefaultConfig is the feed published at /rss.xml.
func DefaultConfig() Config {
	return Config{
		Title:         DefaultTitle,
		Description:   DefaultDescription,
		Collection:    content.JS,
		LinkPrefix:    DefaultLinkPrefix,
		TrailingSlash: true,
	}
}

// Item is the projection of one entry into the feed.
type Item struct {
	Title   string
	PubDate *time.Time
	Link    string
}

// Generator is stateless and safe for concurrent use.
type Generator struct {
	store  Querier
	config Config
	logger *zap.Logger
}

func NewGenerator(store Querier, config Config, logger *zap.Logger) *Generator {
	defaults := DefaultConfig()
	if config.Title == "" {
		config.Title = defaults.Title
	}
	if config.Description == "" {
		config.Description = defaults.Description
	}
	if config.Collection == "" {
		config.Collection = defaults.Collection
	}
	if config.LinkPrefix == "" {
		config.LinkPrefix = defaults.LinkPrefix
	}
	return &Generator{
		store:  store,
		config: config,
		logger: logger.Named("feed"),
	}
}

// Items queries the collection once and projects every entry, keeping the
// order the store returned.
func (g *Generator) Items(ctx context.Context) ([]Item, error) {
	entries, err := g.store.GetCollection(ctx, g.config.Collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCollectionQuery, g.config.Collection, err)
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{
			Title:   e.Data.Title,
			PubDate: e.Data.PublishedAt,
			Link:    Link(g.config.LinkPrefix, e.Slug),
		})
	}
	return items, nil
}

// Generate builds the feed document for site.
func (g *Generator) Generate(ctx context.Context, site *url.URL) (*rss.RSS, error) {
	items, err := g.Items(ctx)
	if err != nil {
		return nil, err
	}

	inputs := make([]rss.ItemInput, len(items))
	for i, it := range items {
		inputs[i] = rss.ItemInput{Title: it.Title, Link: it.Link, PubDate: it.PubDate}
	}

	doc, err := rss.New(rss.Options{
		Title:         g.config.Title,
		Description:   g.config.Description,
		Site:          site,
		TrailingSlash: g.config.TrailingSlash,
	}, inputs)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("generated feed",
		zap.String("collection", string(g.config.Collection)),
		zap.Int("items", len(items)))
	return doc, nil
}

// Render generates the feed and serializes it.
func (g *Generator) Render(ctx context.Context, site *url.URL) ([]byte, error) {
	doc, err := g.Generate(ctx, site)
	if err != nil {
		return nil, err
	}
	return rss.Render(doc)
}

// Link builds an item link from the prefix and slug alone.
func Link(prefix, slug string) string {
	slug = strings.TrimPrefix(slug, "/")
	if p := strings.Trim(prefix, "/"); p != "" {
		return "/" + p + "/" + slug
	}
	return "/" + slug
}
