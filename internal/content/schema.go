// internal/content/schema.go
// Package content holds the blog post schema, the collections it is bound to,
// and the loader that turns content files into validated entries.
package content

import (
	"fmt"
	"time"
)

// Collection names a content collection. Names are case-sensitive.
type Collection string

const (
	Ruby   Collection = "ruby"
	JS     Collection = "js"
	Go     Collection = "go"
	Other  Collection = "other"
	Hidden Collection = "hidden"
)

// Collections lists every declared collection in declaration order.
func Collections() []Collection {
	return []Collection{Ruby, JS, Go, Other, Hidden}
}

// ParseCollection maps a name to its Collection.
func ParseCollection(name string) (Collection, error) {
	for _, c := range Collections() {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// Front-matter keys
const (
	FieldTitle       = "title"
	FieldPublishedAt = "publishedAt"
	FieldUpdatedAt   = "updatedAt"
	FieldSlug        = "slug"
)

// PostEntry is the validated front matter of a blog post.
type PostEntry struct {
	Title       string
	PublishedAt *time.Time
	UpdatedAt   *time.Time
}

// Entry is a validated content file as it is indexed and queried.
type Entry struct {
	Collection Collection
	// ID is the file path relative to the collection directory.
	ID   string
	Slug string
	Data PostEntry
	Body string
}

// Schema validates and coerces raw front matter into a PostEntry.
type Schema struct {
	// DateParser coerces date-like values. Defaults to CoerceDate.
	DateParser func(v any) (time.Time, error)
}

// PostSchema returns the schema shared by every blog collection.
func PostSchema() *Schema {
	return &Schema{DateParser: CoerceDate}
}

// Validate checks raw against the schema. Keys the schema does not declare
// are ignored. All failing fields are reported in one *ValidationError.
func (s *Schema) Validate(raw map[string]any) (PostEntry, error) {
	var (
		entry PostEntry
		fails []*FieldError
	)

	title, err := coerceTitle(raw)
	if err != nil {
		fails = append(fails, err)
	}
	entry.Title = title

	if entry.PublishedAt, err = s.optionalDate(raw, FieldPublishedAt); err != nil {
		fails = append(fails, err)
	}
	if entry.UpdatedAt, err = s.optionalDate(raw, FieldUpdatedAt); err != nil {
		fails = append(fails, err)
	}

	if len(fails) > 0 {
		return PostEntry{}, &ValidationError{Fields: fails}
	}
	return entry, nil
}

func coerceTitle(raw map[string]any) (string, *FieldError) {
	v, ok := raw[FieldTitle]
	if !ok || v == nil {
		return "", &FieldError{Field: FieldTitle, Kind: ErrMissingRequiredField}
	}
	title, ok := v.(string)
	if !ok {
		return "", &FieldError{Field: FieldTitle, Kind: ErrTypeMismatch, Value: v}
	}
	if title == "" {
		return "", &FieldError{Field: FieldTitle, Kind: ErrMissingRequiredField, Value: v}
	}
	return title, nil
}

func (s *Schema) optionalDate(raw map[string]any, field string) (*time.Time, *FieldError) {
	v, ok := raw[field]
	if !ok || v == nil {
		return nil, nil
	}
	parse := s.DateParser
	if parse == nil {
		parse = CoerceDate
	}
	t, err := parse(v)
	if err != nil {
		return nil, &FieldError{Field: field, Kind: ErrInvalidDateFormat, Value: v}
	}
	return &t, nil
}

// Registry binds every collection to its schema. It is built once and is
// read-only afterwards, so it can be shared between goroutines.
type Registry struct {
	schemas map[Collection]*Schema
}

// NewRegistry binds the shared post schema to all declared collections.
func NewRegistry() *Registry {
	posts := PostSchema()
	r := &Registry{schemas: make(map[Collection]*Schema, len(Collections()))}
	for _, c := range Collections() {
		r.schemas[c] = posts
	}
	return r
}

// Schema returns the schema bound to c.
func (r *Registry) Schema(c Collection) (*Schema, bool) {
	s, ok := r.schemas[c]
	return s, ok
}

// Collections returns the bound collections in declaration order.
func (r *Registry) Collections() []Collection {
	var out []Collection
	for _, c := range Collections() {
		if _, ok := r.schemas[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Validate runs the schema bound to c against raw.
func (r *Registry) Validate(c Collection, raw map[string]any) (PostEntry, error) {
	s, ok := r.Schema(c)
	if !ok {
		return PostEntry{}, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return s.Validate(raw)
}
