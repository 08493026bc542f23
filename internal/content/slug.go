// internal/content/slug.go
package content

import (
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// Slugify lowercases s, turns whitespace into hyphens and drops everything
// that is not a letter, digit, hyphen or underscore.
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range lower.String(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('-')
		}
	}
	return b.String()
}

// SlugFromPath derives a slug from a path relative to its collection
// directory: the extension is removed, every segment is slugified and a
// trailing "index" segment is dropped.
func SlugFromPath(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, path.Ext(rel))

	var segments []string
	for _, seg := range strings.Split(rel, "/") {
		if s := Slugify(seg); s != "" {
			segments = append(segments, s)
		}
	}
	if n := len(segments); n > 1 && segments[n-1] == "index" {
		segments = segments[:n-1]
	}
	return strings.Join(segments, "/")
}
