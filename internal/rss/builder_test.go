package rss

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestCanonicalLink(t *testing.T) {
	site := mustURL(t, "https://rubyist.run")

	tests := []struct {
		name     string
		link     string
		trailing bool
		want     string
	}{
		{"trailing slash added", "/js/a", true, "https://rubyist.run/js/a/"},
		{"trailing slash removed", "/js/a/", false, "https://rubyist.run/js/a"},
		{"trailing slash kept", "/js/a/", true, "https://rubyist.run/js/a/"},
		{"file extension untouched", "/rss.xml", true, "https://rubyist.run/rss.xml"},
		{"index.html dropped", "/js/a/index.html", true, "https://rubyist.run/js/a/"},
		{"repeated slashes", "//js//a", false, "https://rubyist.run/js/a"},
		{"nested slug", "/js/2024/post", false, "https://rubyist.run/js/2024/post"},
		{"absolute link kept", "https://other.example/x", true, "https://other.example/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalLink(tt.link, site, tt.trailing)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalLink_SiteWithPath(t *testing.T) {
	got, err := CanonicalLink("/js/a", mustURL(t, "https://example.com/blog/"), false)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/js/a", got)
}

func TestNew_RequiresSite(t *testing.T) {
	_, err := New(Options{Title: "t"}, nil)
	assert.ErrorIs(t, err, ErrSiteRequired)

	_, err = New(Options{Title: "t", Site: mustURL(t, "/relative")}, nil)
	assert.ErrorIs(t, err, ErrSiteRequired)
}

func TestNewAndRender(t *testing.T) {
	published := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

	doc, err := New(Options{
		Title:         "Rubyist Run",
		Description:   "A blog",
		Site:          mustURL(t, "https://rubyist.run"),
		TrailingSlash: true,
	}, []ItemInput{
		{Title: "A", Link: "/js/a", PubDate: &published},
		{Title: "B & C", Link: "/js/b"},
	})
	require.NoError(t, err)

	assert.Equal(t, "2.0", doc.Version)
	assert.Equal(t, "https://rubyist.run/", doc.Channel.Link)
	require.Len(t, doc.Channel.Items, 2)
	assert.Equal(t, "Mon, 15 Jan 2024 00:00:00 GMT", doc.Channel.Items[0].PubDate)
	assert.Empty(t, doc.Channel.Items[1].PubDate)
	assert.Equal(t, doc.Channel.Items[0].Link, doc.Channel.Items[0].GUID.Value)

	data, err := Render(doc)
	require.NoError(t, err)
	body := string(data)

	assert.True(t, strings.HasPrefix(body, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, body, `<rss version="2.0">`)
	assert.Contains(t, body, `<title>Rubyist Run</title>`)
	assert.Contains(t, body, `<guid isPermaLink="true">https://rubyist.run/js/a/</guid>`)
	assert.Contains(t, body, `<title>B &amp; C</title>`)
	assert.Equal(t, 1, strings.Count(body, "<pubDate>"))

	parsed, err := Verify(data)
	require.NoError(t, err)
	assert.Equal(t, "Rubyist Run", parsed.Title)
	require.Len(t, parsed.Items, 2)
	assert.Equal(t, "https://rubyist.run/js/a/", parsed.Items[0].Link)
	require.NotNil(t, parsed.Items[0].PublishedParsed)
	assert.True(t, parsed.Items[0].PublishedParsed.Equal(published))
	assert.Equal(t, "B & C", parsed.Items[1].Title)
}

func TestRender_EmptyFeedVerifies(t *testing.T) {
	doc, err := New(Options{Title: "Empty", Description: "none", Site: mustURL(t, "https://rubyist.run")}, nil)
	require.NoError(t, err)

	data, err := Render(doc)
	require.NoError(t, err)

	parsed, err := Verify(data)
	require.NoError(t, err)
	assert.Empty(t, parsed.Items)
}

func TestVerify_RejectsNonRSS(t *testing.T) {
	_, err := Verify([]byte("<html><body>nope</body></html>"))
	assert.ErrorIs(t, err, ErrInvalidFeed)

	atom := `<?xml version="1.0" encoding="utf-8"?><feed xmlns="http://www.w3.org/2005/Atom"><title>x</title></feed>`
	_, err = Verify([]byte(atom))
	assert.ErrorIs(t, err, ErrInvalidFeed)
}
