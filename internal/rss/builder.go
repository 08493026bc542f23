// internal/rss/builder.go
package rss

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

var (
	ErrSiteRequired = errors.New("feed site URL is required")
	ErrInvalidFeed  = errors.New("rendered feed is not valid RSS")
)

// pubDateFormat is RFC 1123 with the zone spelled GMT, as RSS readers expect.
const pubDateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

var repeatedSlashes = regexp.MustCompile(`/{2,}`)

// Options describes the feed channel.
type Options struct {
	Title       string
	Description string
	// Site is the absolute base URL relative item links are resolved against.
	Site *url.URL
	// TrailingSlash appends "/" to item links without a file extension.
	TrailingSlash bool
}

// ItemInput is one feed item before serialization.
type ItemInput struct {
	Title   string
	Link    string
	PubDate *time.Time
}

// New builds a feed document from items, preserving their order.
func New(opts Options, items []ItemInput) (*RSS, error) {
	if opts.Site == nil || !opts.Site.IsAbs() || opts.Site.Host == "" {
		return nil, ErrSiteRequired
	}

	doc := &RSS{
		Version: "2.0",
		Channel: Channel{
			Title:       opts.Title,
			Description: opts.Description,
			Link:        siteLink(opts.Site, opts.TrailingSlash),
			Items:       make([]Item, 0, len(items)),
		},
	}

	for _, in := range items {
		link, err := CanonicalLink(in.Link, opts.Site, opts.TrailingSlash)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", in.Title, err)
		}
		item := Item{
			Title: in.Title,
			Link:  link,
			GUID:  GUID{Value: link, IsPermaLink: true},
		}
		if in.PubDate != nil {
			item.PubDate = FormatPubDate(*in.PubDate)
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}
	return doc, nil
}

// CanonicalLink resolves link against site. Absolute links are kept as is.
// For relative links "/index.html" is dropped, repeated slashes collapse,
// and paths without an extension get (or lose) a trailing slash.
func CanonicalLink(link string, site *url.URL, trailingSlash bool) (string, error) {
	if u, err := url.Parse(link); err == nil && u.IsAbs() {
		return link, nil
	}

	p, rest := link, ""
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		p, rest = link[:i], link[i:]
	}
	p = repeatedSlashes.ReplaceAllString(p, "/")
	p = strings.TrimSuffix(p, "/index.html")
	if path.Ext(p) == "" {
		p = strings.TrimRight(p, "/")
		if trailingSlash {
			p += "/"
		}
	}
	if p == "" {
		p = "/"
	}

	ref, err := url.Parse(p + rest)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", link, err)
	}
	return site.ResolveReference(ref).String(), nil
}

// FormatPubDate renders t the way RSS pubDate expects.
func FormatPubDate(t time.Time) string {
	return t.UTC().Format(pubDateFormat)
}

func siteLink(site *url.URL, trailingSlash bool) string {
	u := *site
	if trailingSlash && !strings.HasSuffix(u.Path, "/") && path.Ext(u.Path) == "" {
		u.Path += "/"
	}
	return u.String()
}

// Render serializes doc with an XML declaration.
func Render(doc *RSS) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("error marshalling RSS feed to XML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("error marshalling RSS feed to XML: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify parses data with a general feed parser and checks it reads back as RSS.
func Verify(data []byte) (*gofeed.Feed, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}
	if parsed.FeedType != "rss" {
		return nil, fmt.Errorf("%w: parsed as %q", ErrInvalidFeed, parsed.FeedType)
	}
	return parsed, nil
}
