// Package naming turns JSON keys and values into filesystem names. All three
// entry points are total: they always return a non-empty, path-safe name.
package naming

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/skytree/skytree/internal/categorize"
	"github.com/skytree/skytree/internal/value"
)

const maxSegmentRunes = 200

// Segment sanitizes a JSON key into a directory or file base name:
//
//  1. characters illegal in paths (< > : " / \ | ? *) become "_"
//  2. runs of whitespace and underscores collapse into a single "_"
//  3. leading and trailing dots and spaces are trimmed
//  4. the result is capped at 200 runes
//  5. an empty result becomes "unnamed"
func Segment(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	joined := false
	for _, r := range key {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			r = '_'
		}
		if r == '_' || unicode.IsSpace(r) {
			if joined {
				continue
			}
			b.WriteByte('_')
			joined = true
			continue
		}
		joined = false
		b.WriteRune(r)
	}
	s := strings.Trim(b.String(), ". ")
	s = truncateRunes(s, maxSegmentRunes)
	if s == "" {
		return "unnamed"
	}
	return s
}

// LeafFileName names the file for a scalar value: Segment(key) or "data"
// when there is no key, plus the extension from the type rule table.
func LeafFileName(key string, v value.Value) string {
	base := "data"
	if key != "" {
		base = Segment(key)
	}
	return base + Extension(v)
}

type extRule struct {
	ext     string
	applies func(v value.Value) bool
}

// extRules decides leaf extensions, first match wins. The order carries
// meaning: the url and at_uri prefixes have to come before the length check
// so a long URL stays ".url" instead of degrading to ".text".
var extRules = []extRule{
	{".null", func(v value.Value) bool { return v.Kind == value.Null }},
	{".bool", func(v value.Value) bool { return v.Kind == value.Bool }},
	{".int", func(v value.Value) bool { return v.Kind == value.Int }},
	{".float", func(v value.Value) bool { return v.Kind == value.Float }},
	{".url", strRule(func(s string) bool {
		return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
	})},
	{".at_uri", strRule(func(s string) bool { return strings.HasPrefix(s, "at://") })},
	{".handle", strRule(isHandleShaped)},
	{".did", strRule(func(s string) bool { return strings.HasPrefix(s, "did:") })},
	{".text", strRule(func(s string) bool { return utf8.RuneCountInString(s) > 100 })},
	{".str", func(v value.Value) bool { return v.Kind == value.Str }},
}

func strRule(f func(s string) bool) func(v value.Value) bool {
	return func(v value.Value) bool { return v.Kind == value.Str && f(v.S) }
}

// Extension returns the self-describing extension for a value. Containers
// and anything no rule claims get ".txt".
func Extension(v value.Value) string {
	for _, r := range extRules {
		if r.applies(v) {
			return r.ext
		}
	}
	return ".txt"
}

// isHandleShaped matches classic user@host handles and bare domain handles
// (Bluesky handles are domains, so "alice.test" counts).
func isHandleShaped(s string) bool {
	if strings.Contains(s, "@") && strings.Contains(s, ".") {
		return true
	}
	return isDomainShaped(s)
}

func isDomainShaped(s string) bool {
	if len(s) < 3 || len(s) > 253 {
		return false
	}
	lastDot := -1
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-':
		case r == '.':
			if i == 0 {
				return false
			}
			lastDot = i
		default:
			return false
		}
	}
	if lastDot < 0 || lastDot == len(s)-1 {
		return false
	}
	// The final label has to be alphabetic, so "1.5x" stays a string.
	for _, r := range s[lastDot+1:] {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

const (
	snippetRunes  = 30
	uriIdentRunes = 20
	didIdentRunes = 15
)

// ListItemName names the directory for a sequence item. The name always
// starts with a zero-padded index so siblings sort in payload order and
// never collide. Mapping items additionally get a category tag (when
// withCategories is set) and an identifier mined from their fields;
// everything else is just "NNNN_item".
func ListItemName(item value.Value, index int, withCategories bool) string {
	prefix := fmt.Sprintf("%04d", index)
	if item.Kind != value.Mapping {
		return prefix + "_item"
	}

	cat := categorize.Content
	if withCategories {
		cat = categorize.Categorize(item)
	}

	ident := identifier(item, cat)
	if ident == "" {
		return prefix + "_item"
	}
	if cat == categorize.Content {
		return prefix + "_" + ident
	}
	return prefix + "_" + string(cat) + "_" + ident
}

// identifier picks the most recognizable field of an item. Category-aware
// rules run first, then the generic priority list.
func identifier(item value.Value, cat categorize.Category) string {
	switch cat {
	case categorize.Posts:
		if id := postIdentifier(item); id != "" {
			return id
		}
	case categorize.Profiles:
		if id := profileIdentifier(item); id != "" {
			return id
		}
	}
	return genericIdentifier(item)
}

// postIdentifier prefers the post text snippet over the author handle. The
// text may sit on the item itself, on its record, or one level down under a
// feed item's "post" wrapper.
func postIdentifier(item value.Value) string {
	for _, path := range [][]string{
		{"text"},
		{"record", "text"},
		{"post", "record", "text"},
		{"post", "text"},
	} {
		if text := lookupStr(item, path); text != "" {
			if snippet := sanitizeIdent(collapseSnippet(text)); snippet != "" {
				return snippet
			}
		}
	}
	for _, path := range [][]string{
		{"author", "handle"},
		{"post", "author", "handle"},
	} {
		if handle := lookupStr(item, path); handle != "" {
			if id := sanitizeIdent(handle); id != "" {
				return id
			}
		}
	}
	return ""
}

func profileIdentifier(item value.Value) string {
	for _, key := range []string{"handle", "display_name", "displayName"} {
		if s := strings.TrimSpace(item.GetStr(key)); s != "" {
			if id := sanitizeIdent(s); id != "" {
				return id
			}
		}
	}
	return ""
}

var genericIdentKeys = []string{"handle", "did", "uri", "title", "name", "display_name"}

func genericIdentifier(item value.Value) string {
	for _, key := range genericIdentKeys {
		s := strings.TrimSpace(item.GetStr(key))
		if s == "" {
			continue
		}
		switch key {
		case "uri":
			if i := strings.LastIndex(s, "/"); i >= 0 {
				s = s[i+1:]
			}
			s = truncateRunes(s, uriIdentRunes)
		case "did":
			if i := strings.LastIndex(s, ":"); i >= 0 {
				s = s[i+1:]
			}
			s = truncateRunes(s, didIdentRunes)
		}
		if id := sanitizeIdent(s); id != "" {
			return id
		}
	}
	return ""
}

// lookupStr walks nested mappings along path and returns the trimmed string
// at the end, or "" when any hop is missing or the wrong kind.
func lookupStr(v value.Value, path []string) string {
	for _, key := range path[:len(path)-1] {
		next, ok := v.Get(key)
		if !ok || next.Kind != value.Mapping {
			return ""
		}
		v = next
	}
	return strings.TrimSpace(v.GetStr(path[len(path)-1]))
}

// collapseSnippet takes the leading slice of a post text and flattens line
// breaks so it can live in a single path segment.
func collapseSnippet(text string) string {
	s := truncateRunes(text, snippetRunes)
	s = strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
	return strings.TrimSpace(s)
}

// sanitizeIdent is Segment plus a dot rewrite: identifiers become directory
// names, and a handle like "a.b" kept verbatim would read as a file
// extension in listings. Empty in, empty out, so callers can fall through
// to the next candidate field.
func sanitizeIdent(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, ".", "_")
	return Segment(s)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
