package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"rubyistrun/internal/content"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens an in-memory database with the schema applied.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(":memory:", DefaultConfig())
	require.NoError(t, err, "failed to create in-memory database")
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(t time.Time) *time.Time { return &t }

func TestNewDB_CreatesTables(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "content.db"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"entries", "collections"} {
		var count int
		err := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s", table)
	}

	exists, err := columnExists(db.DB, "entries", "body")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNewDB_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.db")
	ctx := context.Background()

	db, err := NewDB(path, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, db.ReplaceCollection(ctx, content.Go, []content.Entry{
		{Collection: content.Go, ID: "x.md", Slug: "x", Data: content.PostEntry{Title: "X"}},
	}))
	require.NoError(t, db.Close())

	db, err = NewDB(path, DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	entries, err := db.GetCollection(ctx, content.Go)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "X", entries[0].Data.Title)
}

func TestGetCollection_EmptyForEveryCollection(t *testing.T) {
	db := setupTestDB(t)

	for _, c := range content.Collections() {
		entries, err := db.GetCollection(context.Background(), c)
		require.NoError(t, err, "collection %s", c)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	}
}

func TestReplaceCollection_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	published := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2024, time.March, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	in := []content.Entry{
		{Collection: content.JS, ID: "b.md", Slug: "b", Data: content.PostEntry{Title: "B"}, Body: "body b"},
		{Collection: content.JS, ID: "a.md", Slug: "a", Data: content.PostEntry{Title: "A", PublishedAt: ptr(published), UpdatedAt: ptr(updated)}},
	}
	require.NoError(t, db.ReplaceCollection(ctx, content.JS, in))

	out, err := db.GetCollection(ctx, content.JS)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "a", out[0].Slug)
	assert.Equal(t, "a.md", out[0].ID)
	assert.Equal(t, content.JS, out[0].Collection)
	require.NotNil(t, out[0].Data.PublishedAt)
	assert.True(t, out[0].Data.PublishedAt.Equal(published))
	require.NotNil(t, out[0].Data.UpdatedAt)
	assert.True(t, out[0].Data.UpdatedAt.Equal(updated))

	assert.Equal(t, "b", out[1].Slug)
	assert.Equal(t, "body b", out[1].Body)
	assert.Nil(t, out[1].Data.PublishedAt)
	assert.Nil(t, out[1].Data.UpdatedAt)

	ruby, err := db.GetCollection(ctx, content.Ruby)
	require.NoError(t, err)
	assert.Empty(t, ruby, "collections must not leak into each other")
}

func TestReplaceCollection_ReplacesPreviousEntries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := []content.Entry{
		{Collection: content.Ruby, ID: "old.md", Slug: "old", Data: content.PostEntry{Title: "Old"}},
	}
	second := []content.Entry{
		{Collection: content.Ruby, ID: "new.md", Slug: "new", Data: content.PostEntry{Title: "New"}},
	}
	require.NoError(t, db.ReplaceCollection(ctx, content.Ruby, first))
	require.NoError(t, db.ReplaceCollection(ctx, content.Ruby, second))

	out, err := db.GetCollection(ctx, content.Ruby)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "new", out[0].Slug)

	at, ok, err := db.LastIndexed(ctx, content.Ruby)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, at.IsZero())

	_, ok, err = db.LastIndexed(ctx, content.Hidden)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplaceCollection_RejectsForeignEntries(t *testing.T) {
	db := setupTestDB(t)

	err := db.ReplaceCollection(context.Background(), content.JS, []content.Entry{
		{Collection: content.Go, ID: "x.md", Slug: "x", Data: content.PostEntry{Title: "X"}},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = db.ReplaceCollection(context.Background(), content.JS, []content.Entry{
		{Collection: content.JS, ID: "x.md", Data: content.PostEntry{Title: "X"}},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCountByCollection(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.ReplaceCollection(ctx, content.JS, []content.Entry{
		{Collection: content.JS, ID: "a.md", Slug: "a", Data: content.PostEntry{Title: "A"}},
		{Collection: content.JS, ID: "b.md", Slug: "b", Data: content.PostEntry{Title: "B"}},
	}))
	require.NoError(t, db.ReplaceCollection(ctx, content.Go, []content.Entry{
		{Collection: content.Go, ID: "c.md", Slug: "c", Data: content.PostEntry{Title: "C"}},
	}))

	counts, err := db.CountByCollection(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[content.Collection]int{content.JS: 2, content.Go: 1}, counts)
}

func TestStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.ReplaceCollection(ctx, content.JS, []content.Entry{
		{Collection: content.JS, ID: "a.md", Slug: "a", Data: content.PostEntry{Title: "A"}},
	}))
	require.NoError(t, db.ReplaceCollection(ctx, content.Ruby, []content.Entry{}))

	status, err := db.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, len(content.Collections()))

	byName := make(map[content.Collection]CollectionStatus)
	for _, s := range status {
		byName[s.Collection] = s
	}
	assert.Equal(t, 1, byName[content.JS].Entries)
	assert.False(t, byName[content.JS].IndexedAt.IsZero())
	assert.Equal(t, 0, byName[content.Ruby].Entries)
	assert.False(t, byName[content.Ruby].IndexedAt.IsZero(), "empty but indexed")
	assert.True(t, byName[content.Hidden].IndexedAt.IsZero())
}

func TestReplaceCollection_RejectsUnstorableDates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.ReplaceCollection(ctx, content.JS, []content.Entry{
		{Collection: content.JS, ID: "a.md", Slug: "a", Data: content.PostEntry{Title: "A"}},
	}))

	farFuture := time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC)
	beforeZero := time.UnixMilli(-1e15).UTC()
	for _, bad := range []time.Time{farFuture, beforeZero} {
		err := db.ReplaceCollection(ctx, content.JS, []content.Entry{
			{Collection: content.JS, ID: "a.md", Slug: "a", Data: content.PostEntry{Title: "A"}},
			{Collection: content.JS, ID: "b.md", Slug: "b", Data: content.PostEntry{Title: "B", PublishedAt: ptr(bad)}},
		})
		assert.ErrorIs(t, err, ErrInvalidInput, "date %v", bad)
	}

	entries, err := db.GetCollection(ctx, content.JS)
	require.NoError(t, err, "previous entries stay readable")
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Slug)
}

func TestGetCollection_ClosedDatabase(t *testing.T) {
	db, err := NewDB(":memory:", DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.GetCollection(context.Background(), content.JS)
	assert.Error(t, err)
}
