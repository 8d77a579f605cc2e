// Package categorize buckets mapping values by shape. Sequence items in API
// payloads are heterogeneous (posts next to profiles next to embeds), and the
// bucket decides both the grouping folder and which identifier fields are
// worth naming an item after.
package categorize

import (
	"strings"

	"github.com/skytree/skytree/internal/value"
)

// Category is a content bucket name, usable directly as a directory segment.
type Category string

const (
	Posts        Category = "posts"
	Profiles     Category = "profiles"
	Media        Category = "media"
	Embeds       Category = "embeds"
	Threads      Category = "threads"
	Interactions Category = "interactions"
	// Content means "no bucket matched". It is a sentinel, not a folder
	// name: callers must never create a directory called "content".
	Content Category = "content"
)

type rule struct {
	cat     Category
	applies func(m value.Value) bool
}

// rules is evaluated top to bottom and the first match wins. The order is
// fixed and intentional, not a specificity ranking: a mapping with both
// "text"+"author" and "embed" is a post, never an embed.
var rules = []rule{
	{Posts, func(m value.Value) bool {
		return m.Has("text") && m.Has("author")
	}},
	{Posts, func(m value.Value) bool {
		p, ok := m.Get("post")
		return ok && p.Kind == value.Mapping
	}},
	{Profiles, func(m value.Value) bool {
		return m.Has("handle") || m.Has("did") || m.Has("display_name") || m.Has("displayName")
	}},
	{Media, hasMediaShape},
	{Embeds, func(m value.Value) bool {
		return m.Has("external") || m.Has("embed")
	}},
	{Threads, func(m value.Value) bool {
		return m.Has("reply") || m.Has("parent") || m.Has("root")
	}},
	{Interactions, func(m value.Value) bool {
		return m.Has("reason") || m.Has("by")
	}},
}

// Categorize returns the bucket for a mapping. Non-mappings and mappings
// matching no rule return Content.
func Categorize(m value.Value) Category {
	if m.Kind != value.Mapping {
		return Content
	}
	for _, r := range rules {
		if r.applies(m) {
			return r.cat
		}
	}
	return Content
}

// hasMediaShape looks for an images collection, or for the CDN preset
// markers anywhere in the serialized form. The serialized scan is what
// catches media nested a level down (embed views, thumbnails inside
// records).
func hasMediaShape(m value.Value) bool {
	if m.Has("images") {
		return true
	}
	enc := string(m.CompactJSON())
	return strings.Contains(enc, "fullsize") || strings.Contains(enc, "thumb")
}
