package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"rubyistrun/internal/content"
	"rubyistrun/internal/database"
	"rubyistrun/internal/rss"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeContent(t *testing.T, dir, rel, data string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestBuild_WritesFeed(t *testing.T) {
	dir := t.TempDir()
	writeContent(t, dir, "js/hello.md", "---\ntitle: Hello\npublishedAt: 2024-01-15\n---\nbody")
	writeContent(t, dir, "ruby/ignored.md", "---\ntitle: Not in the feed\n---\n")
	out := filepath.Join(t.TempDir(), "dist")

	stdout, err := run(t, "build", "--content", dir, "--out", out, "--site", "https://rubyist.run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "rss.xml")

	data, err := os.ReadFile(filepath.Join(out, "rss.xml"))
	require.NoError(t, err)
	parsed, err := rss.Verify(data)
	require.NoError(t, err)
	require.Len(t, parsed.Items, 1)
	assert.Equal(t, "Hello", parsed.Items[0].Title)
	assert.Equal(t, "https://rubyist.run/js/hello/", parsed.Items[0].Link)
}

func TestBuild_RequiresSite(t *testing.T) {
	_, err := run(t, "build", "--content", t.TempDir(), "--out", t.TempDir())
	assert.ErrorContains(t, err, "site URL is required")
}

func TestBuild_StrictFailure(t *testing.T) {
	dir := t.TempDir()
	writeContent(t, dir, "js/bad.md", "---\npublishedAt: 2024-01-15\n---\n")
	out := t.TempDir()

	_, err := run(t, "build", "--content", dir, "--out", out, "--site", "https://rubyist.run")
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(out, "rss.xml"))

	_, err = run(t, "build", "--content", dir, "--out", out, "--site", "https://rubyist.run", "--lenient")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "rss.xml"))
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	writeContent(t, dir, "js/a.md", "---\ntitle: A\n---\n")
	writeContent(t, dir, "go/b.md", "+++\ntitle = \"B\"\n+++\n")

	stdout, err := run(t, "check", "--content", dir)
	require.NoError(t, err)
	assert.Regexp(t, `js\s+1`, stdout)
	assert.Regexp(t, `go\s+1`, stdout)
	assert.Regexp(t, `hidden\s+0`, stdout)

	writeContent(t, dir, "js/broken.md", "---\ntitle: 42\n---\n")
	stdout, err = run(t, "check", "--content", dir)
	assert.ErrorContains(t, err, "1 invalid content entries")
	assert.Contains(t, stdout, "invalid:")
}

func TestLogStoreStatus(t *testing.T) {
	db, err := database.NewDB(":memory:", database.DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.ReplaceCollection(ctx, content.JS, []content.Entry{
		{Collection: content.JS, ID: "a.md", Slug: "a", Data: content.PostEntry{Title: "A"}},
	}))

	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, logStoreStatus(ctx, db, zap.New(core)))

	lines := logs.FilterMessage("collection indexed").All()
	require.Len(t, lines, len(content.Collections()))
	fields := lines[1].ContextMap()
	assert.Equal(t, "js", fields["collection"])
	assert.EqualValues(t, 1, fields["entries"])

	require.NoError(t, db.Close())
	assert.Error(t, logStoreStatus(ctx, db, zap.NewNop()))
}
