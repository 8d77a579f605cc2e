package filter

import (
	"net/url"
	"strings"
)

// cdnHost is the image CDN whose URLs encode the quality preset as a path
// segment.
const cdnHost = "cdn.bsky.app"

// mediaKeys are the mapping keys whose string values carry media URLs.
var mediaKeys = map[string]struct{}{
	"avatar":    {},
	"banner":    {},
	"thumb":     {},
	"thumbnail": {},
	"fullsize":  {},
}

func isMediaKey(key string) bool {
	_, ok := mediaKeys[key]
	return ok
}

// presetRewrites maps full-size CDN presets to their thumbnail presets.
// Presets without a smaller variant (banner) are left alone.
var presetRewrites = map[string]string{
	"feed_fullsize": "feed_thumbnail",
	"avatar":        "avatar_thumbnail",
}

// RewriteMediaURL swaps a full-size CDN preset for its thumbnail preset.
// Anything that is not a recognized CDN image URL passes through untouched,
// and rewritten URLs are a fixed point of the function.
func RewriteMediaURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.Host != cdnHost {
		return s
	}
	segs := strings.Split(u.Path, "/")
	// Expected shape: /img/<preset>/plain/<did>/<cid>@<format>
	if len(segs) < 3 || segs[1] != "img" {
		return s
	}
	repl, ok := presetRewrites[segs[2]]
	if !ok {
		return s
	}
	segs[2] = repl
	u.Path = strings.Join(segs, "/")
	return u.String()
}
