// internal/database/queries.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rubyistrun/internal/content"
)

// Error definitions
var (
	ErrInvalidInput = errors.New("invalid input")
)

// timeFormat is how entry dates are stored.
const timeFormat = time.RFC3339Nano

// ReplaceCollection swaps the stored entries of c for entries in one
// transaction. Readers see either the old or the new set.
func (db *DB) ReplaceCollection(ctx context.Context, c content.Collection, entries []content.Entry) error {
	for _, e := range entries {
		if e.Collection != c {
			return fmt.Errorf("%w: entry %s belongs to %q, not %q", ErrInvalidInput, e.ID, e.Collection, c)
		}
		if e.Slug == "" {
			return fmt.Errorf("%w: entry %s has no slug", ErrInvalidInput, e.ID)
		}
		for _, t := range []*time.Time{e.Data.PublishedAt, e.Data.UpdatedAt} {
			if !storable(t) {
				return fmt.Errorf("%w: entry %s has a date outside years 0000-9999", ErrInvalidInput, e.ID)
			}
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE collection = ?", string(c)); err != nil {
		return fmt.Errorf("error clearing collection %s: %w", c, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (collection, slug, entry_id, title, published_at, updated_at, body, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			string(c), e.Slug, e.ID, e.Data.Title,
			formatTime(e.Data.PublishedAt), formatTime(e.Data.UpdatedAt), e.Body,
		); err != nil {
			return fmt.Errorf("error inserting entry %s: %w", e.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (name, entry_count, indexed_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
		entry_count = excluded.entry_count,
		indexed_at = CURRENT_TIMESTAMP`,
		string(c), len(entries),
	); err != nil {
		return fmt.Errorf("error recording collection %s: %w", c, err)
	}

	return tx.Commit()
}

// GetCollection returns the stored entries of c ordered by slug. An empty
// collection yields an empty, non-nil slice.
func (db *DB) GetCollection(ctx context.Context, c content.Collection) ([]content.Entry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT slug, entry_id, title, published_at, updated_at, body
		FROM entries
		WHERE collection = ?
		ORDER BY slug`,
		string(c),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []content.Entry{}
	for rows.Next() {
		var (
			e                      content.Entry
			publishedAt, updatedAt sql.NullString
		)
		if err := rows.Scan(&e.Slug, &e.ID, &e.Data.Title, &publishedAt, &updatedAt, &e.Body); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		e.Collection = c
		if e.Data.PublishedAt, err = parseTime(publishedAt); err != nil {
			return nil, fmt.Errorf("entry %s: published_at: %w", e.ID, err)
		}
		if e.Data.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("entry %s: updated_at: %w", e.ID, err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// CountByCollection reports how many entries each indexed collection holds.
func (db *DB) CountByCollection(ctx context.Context) (map[content.Collection]int, error) {
	rows, err := db.QueryContext(ctx, "SELECT collection, COUNT(*) FROM entries GROUP BY collection")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[content.Collection]int)
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		counts[content.Collection(name)] = count
	}
	return counts, rows.Err()
}

// LastIndexed returns when c was last replaced. ok is false if it never was.
func (db *DB) LastIndexed(ctx context.Context, c content.Collection) (t time.Time, ok bool, err error) {
	err = db.QueryRowContext(ctx,
		"SELECT indexed_at FROM collections WHERE name = ?",
		string(c),
	).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// CollectionStatus summarizes what the store holds for one collection.
type CollectionStatus struct {
	Collection content.Collection
	Entries    int
	// IndexedAt is zero when the collection was never indexed.
	IndexedAt time.Time
}

// Status reports every declared collection in declaration order.
func (db *DB) Status(ctx context.Context) ([]CollectionStatus, error) {
	counts, err := db.CountByCollection(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting entries: %w", err)
	}

	status := make([]CollectionStatus, 0, len(content.Collections()))
	for _, c := range content.Collections() {
		at, _, err := db.LastIndexed(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("error reading index time of %s: %w", c, err)
		}
		status = append(status, CollectionStatus{Collection: c, Entries: counts[c], IndexedAt: at})
	}
	return status, nil
}

// storable reports whether t survives a round trip through timeFormat.
func storable(t *time.Time) bool {
	if t == nil {
		return true
	}
	y := t.UTC().Year()
	return y >= 0 && y <= 9999
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
