// internal/content/loader.go
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/frontmatter"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// entryExtensions are the file types treated as collection entries.
var entryExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdx":      true,
}

// frontMatterFormats recognises YAML, TOML and JSON fences.
var frontMatterFormats = []*frontmatter.Format{
	frontmatter.NewFormat("---", "---", yaml.Unmarshal),
	frontmatter.NewFormat("+++", "+++", toml.Unmarshal),
	frontmatter.NewFormat(";;;", ";;;", json.Unmarshal),
}

type LoaderConfig struct {
	// Dir is the content root; each collection lives in Dir/<name>.
	Dir string
	// Strict fails the whole load on any invalid entry. When false,
	// invalid entries are logged and skipped.
	Strict bool
}

// Loader discovers content files and validates them against a Registry.
type Loader struct {
	registry *Registry
	config   LoaderConfig
	logger   *zap.Logger
}

func NewLoader(registry *Registry, config LoaderConfig, logger *zap.Logger) *Loader {
	return &Loader{
		registry: registry,
		config:   config,
		logger:   logger.Named("loader"),
	}
}

// Dir returns the content root the loader reads from.
func (l *Loader) Dir() string {
	return l.config.Dir
}

// Result holds validated entries grouped by collection.
type Result struct {
	Entries map[Collection][]Entry
	// Skipped lists entries dropped in lenient mode.
	Skipped []*EntryError
}

// Collection returns the entries of c, never nil.
func (r *Result) Collection(c Collection) []Entry {
	if entries := r.Entries[c]; entries != nil {
		return entries
	}
	return []Entry{}
}

// Total counts the entries across all collections.
func (r *Result) Total() int {
	n := 0
	for _, entries := range r.Entries {
		n += len(entries)
	}
	return n
}

// Load reads every declared collection. Entries within a collection are
// ordered by slug.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	result := &Result{Entries: make(map[Collection][]Entry)}
	for _, c := range l.registry.Collections() {
		result.Entries[c] = []Entry{}
	}

	if _, err := os.Stat(l.config.Dir); errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("content directory not found, all collections are empty", zap.String("dir", l.config.Dir))
		return result, nil
	} else if err != nil {
		return nil, fmt.Errorf("error reading content directory %s: %w", l.config.Dir, err)
	}

	if err := l.warnUndeclared(); err != nil {
		return nil, err
	}

	var invalid []error
	for _, c := range l.registry.Collections() {
		entries, bad, err := l.loadCollection(ctx, c)
		if err != nil {
			return nil, err
		}
		for _, e := range bad {
			if l.config.Strict {
				invalid = append(invalid, e)
				continue
			}
			l.logger.Warn("skipping invalid entry",
				zap.String("collection", string(e.Collection)),
				zap.String("path", e.Path),
				zap.Error(e.Err))
			result.Skipped = append(result.Skipped, e)
		}
		result.Entries[c] = entries
		l.logger.Debug("loaded collection", zap.String("collection", string(c)), zap.Int("entries", len(entries)))
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("%d invalid content entries: %w", len(invalid), errors.Join(invalid...))
	}
	return result, nil
}

func (l *Loader) warnUndeclared() error {
	dirEntries, err := os.ReadDir(l.config.Dir)
	if err != nil {
		return fmt.Errorf("error listing content directory %s: %w", l.config.Dir, err)
	}
	for _, d := range dirEntries {
		if !d.IsDir() || ignored(d.Name()) {
			continue
		}
		c := Collection(d.Name())
		if _, ok := l.registry.Schema(c); !ok {
			l.logger.Warn("directory does not match a declared collection, ignoring",
				zap.String("dir", filepath.Join(l.config.Dir, d.Name())))
		}
	}
	return nil
}

func (l *Loader) loadCollection(ctx context.Context, c Collection) ([]Entry, []*EntryError, error) {
	root := filepath.Join(l.config.Dir, string(c))
	entries := []Entry{}
	var bad []*EntryError

	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return entries, nil, nil
	}

	seen := make(map[string]string)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != root && ignored(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !entryExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("error resolving %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		entry, err := l.loadEntry(c, path, rel)
		if err != nil {
			var ee *EntryError
			if errors.As(err, &ee) {
				bad = append(bad, ee)
				return nil
			}
			return err
		}

		if prev, dup := seen[entry.Slug]; dup {
			bad = append(bad, &EntryError{
				Collection: c,
				Path:       rel,
				Err:        fmt.Errorf("%w %q, already used by %s", ErrDuplicateSlug, entry.Slug, prev),
			})
			return nil
		}
		seen[entry.Slug] = rel
		entries = append(entries, entry)
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("error loading collection %s: %w", c, walkErr)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Slug < entries[j].Slug
	})
	return entries, bad, nil
}

// loadEntry returns an *EntryError for content problems and a plain error
// for I/O failures.
func (l *Loader) loadEntry(c Collection, path, rel string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	raw := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(data), &raw, frontMatterFormats...)
	if err != nil {
		return Entry{}, &EntryError{Collection: c, Path: rel, Err: fmt.Errorf("could not parse front matter: %w", err)}
	}

	slug := SlugFromPath(rel)
	if v, ok := raw[FieldSlug]; ok && v != nil {
		s, isString := v.(string)
		if !isString || strings.TrimSpace(s) == "" {
			return Entry{}, &EntryError{Collection: c, Path: rel, Err: &ValidationError{Fields: []*FieldError{
				{Field: FieldSlug, Kind: ErrTypeMismatch, Value: v},
			}}}
		}
		slug = strings.Trim(s, "/")
	}

	post, err := l.registry.Validate(c, raw)
	if err != nil {
		return Entry{}, &EntryError{Collection: c, Path: rel, Err: err}
	}

	return Entry{
		Collection: c,
		ID:         rel,
		Slug:       slug,
		Data:       post,
		Body:       string(body),
	}, nil
}

func ignored(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}
