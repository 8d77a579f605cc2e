// Package filter strips protocol noise from decoded payloads before they
// are materialized. The pass is idempotent and structural: dropping a key
// never reorders the survivors.
package filter

import (
	"strings"

	"github.com/skytree/skytree/internal/value"
)

// defaultNoiseKeys are the low-signal fields dropped from every mapping:
// protocol typing markers, facet byte offsets, viewer-relationship state,
// and moderation labels. The set is a constant of the tool, not something
// inferred from payloads.
var defaultNoiseKeys = []string{
	"$type",
	"py_type",
	"viewer",
	"labels",
	"pinned",
	"byteStart",
	"byteEnd",
	"byte_start",
	"byte_end",
}

// DefaultNoiseKeys returns a fresh copy of the built-in denylist.
func DefaultNoiseKeys() []string {
	return append([]string(nil), defaultNoiseKeys...)
}

// Options configures a Filter.
type Options struct {
	// NoiseKeys is the full denylist. Nil means DefaultNoiseKeys().
	NoiseKeys []string
	// KeepOriginalMedia disables the media-quality rewrite, leaving CDN
	// URLs pointed at full-size assets.
	KeepOriginalMedia bool
}

// Filter removes denylisted keys, prunes empty containers and blank
// strings, and rewrites media URLs to their thumbnail presets.
type Filter struct {
	noise        map[string]struct{}
	rewriteMedia bool
}

// New builds a Filter from Options.
func New(opts Options) *Filter {
	keys := opts.NoiseKeys
	if keys == nil {
		keys = defaultNoiseKeys
	}
	noise := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		noise[k] = struct{}{}
	}
	return &Filter{noise: noise, rewriteMedia: !opts.KeepOriginalMedia}
}

// Apply filters v. The second return is false when the value filters away
// entirely (a container left with no children). Scalars always survive a
// direct Apply; blank strings are only dropped as mapping members.
//
// Apply(Apply(v)) == Apply(v) for every v, so re-running the pass on an
// already filtered subtree is harmless.
func (f *Filter) Apply(v value.Value) (value.Value, bool) {
	switch v.Kind {
	case value.Mapping:
		members := make([]value.Member, 0, len(v.Members))
		for _, m := range v.Members {
			if _, drop := f.noise[m.Key]; drop {
				continue
			}
			child, ok := f.Apply(m.Val)
			if !ok {
				continue
			}
			if child.Kind == value.Str {
				if isBlank(child.S) {
					continue
				}
				if f.rewriteMedia && isMediaKey(m.Key) {
					child = value.StrValue(RewriteMediaURL(child.S))
				}
			}
			members = append(members, value.Member{Key: m.Key, Val: child})
		}
		if len(members) == 0 {
			return value.Value{}, false
		}
		return value.MappingValue(members...), true

	case value.Sequence:
		items := make([]value.Value, 0, len(v.Items))
		for _, item := range v.Items {
			child, ok := f.Apply(item)
			if !ok {
				continue
			}
			items = append(items, child)
		}
		if len(items) == 0 {
			return value.Value{}, false
		}
		return value.SequenceValue(items...), true
	}
	return v, true
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
