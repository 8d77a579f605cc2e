package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skytree/skytree/internal/value"
)

func mustDecode(t *testing.T, src string) value.Value {
	t.Helper()
	v, err := value.Decode([]byte(src))
	require.NoError(t, err)
	return v
}

func TestFilter_DropsNoiseKeys(t *testing.T) {
	f := New(Options{})
	v := mustDecode(t, `{"$type": "app.bsky.feed.post", "text": "hi", "viewer": {"muted": false}, "labels": [], "pinned": false}`)

	got, ok := f.Apply(v)
	require.True(t, ok)
	assert.Equal(t, `{"text":"hi"}`, string(got.CompactJSON()))
}

func TestFilter_PrunesEmptyAndBlank(t *testing.T) {
	f := New(Options{})
	v := mustDecode(t, `{"a": {}, "b": [], "c": "", "d": "   ", "e": [{}, [], ""], "keep": 0}`)

	got, ok := f.Apply(v)
	require.True(t, ok)
	// "" survives inside the sequence (scalars never filter to absent),
	// but the sequence's empty containers are gone.
	assert.Equal(t, `{"e":[""],"keep":0}`, string(got.CompactJSON()))
}

func TestFilter_AbsentWhenNothingSurvives(t *testing.T) {
	f := New(Options{})

	_, ok := f.Apply(mustDecode(t, `{"viewer": {"muted": true}}`))
	assert.False(t, ok)

	_, ok = f.Apply(mustDecode(t, `[{"labels": []}, {}]`))
	assert.False(t, ok)

	_, ok = f.Apply(mustDecode(t, `{}`))
	assert.False(t, ok)
}

func TestFilter_ScalarsPassThrough(t *testing.T) {
	f := New(Options{})

	got, ok := f.Apply(value.StrValue(""))
	require.True(t, ok)
	assert.Equal(t, value.StrValue(""), got)

	got, ok = f.Apply(value.NullValue())
	require.True(t, ok)
	assert.Equal(t, value.NullValue(), got)
}

func TestFilter_Idempotent(t *testing.T) {
	f := New(Options{})
	v := mustDecode(t, `{
		"feed": [
			{"post": {"$type": "x", "text": "a", "viewer": {}, "embed": {"images": []}}},
			{"post": {"labels": [{"val": "spam"}]}}
		],
		"cursor": ""
	}`)

	once, ok := f.Apply(v)
	require.True(t, ok)
	twice, ok := f.Apply(once)
	require.True(t, ok)
	assert.Equal(t, string(once.CompactJSON()), string(twice.CompactJSON()))
}

func TestFilter_NoEmptyContainersSurvive(t *testing.T) {
	f := New(Options{})
	v := mustDecode(t, `{"a": {"b": {"c": {}}}, "d": [[], {}], "keep": 1}`)

	got, ok := f.Apply(v)
	require.True(t, ok)

	var walk func(value.Value)
	walk = func(v value.Value) {
		if v.IsContainer() {
			assert.NotZero(t, v.Len())
		}
		for _, m := range v.Members {
			walk(m.Val)
		}
		for _, item := range v.Items {
			walk(item)
		}
	}
	walk(got)
	assert.Equal(t, `{"keep":1}`, string(got.CompactJSON()))
}

func TestFilter_CustomNoiseKeys(t *testing.T) {
	f := New(Options{NoiseKeys: append(DefaultNoiseKeys(), "langs")})
	v := mustDecode(t, `{"langs": ["en"], "text": "hi"}`)

	got, ok := f.Apply(v)
	require.True(t, ok)
	assert.Equal(t, `{"text":"hi"}`, string(got.CompactJSON()))
}

func TestFilter_MediaRewrite(t *testing.T) {
	f := New(Options{})
	v := mustDecode(t, `{
		"avatar": "https://cdn.bsky.app/img/avatar/plain/did:plc:x/bafkrei123@jpeg",
		"thumb": "https://cdn.bsky.app/img/feed_fullsize/plain/did:plc:x/bafkrei456@jpeg",
		"banner": "https://cdn.bsky.app/img/banner/plain/did:plc:x/bafkrei789@jpeg",
		"website": "https://example.com/avatar"
	}`)

	got, ok := f.Apply(v)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.bsky.app/img/avatar_thumbnail/plain/did:plc:x/bafkrei123@jpeg", got.GetStr("avatar"))
	assert.Equal(t, "https://cdn.bsky.app/img/feed_thumbnail/plain/did:plc:x/bafkrei456@jpeg", got.GetStr("thumb"))
	// No thumbnail preset exists for banners.
	assert.Equal(t, "https://cdn.bsky.app/img/banner/plain/did:plc:x/bafkrei789@jpeg", got.GetStr("banner"))
	// Non-media keys never rewrite, whatever the URL looks like.
	assert.Equal(t, "https://example.com/avatar", got.GetStr("website"))
}

func TestFilter_KeepOriginalMedia(t *testing.T) {
	f := New(Options{KeepOriginalMedia: true})
	orig := "https://cdn.bsky.app/img/feed_fullsize/plain/did:plc:x/bafkrei@jpeg"
	v := mustDecode(t, `{"fullsize": "`+orig+`"}`)

	got, ok := f.Apply(v)
	require.True(t, ok)
	assert.Equal(t, orig, got.GetStr("fullsize"))
}

func TestRewriteMediaURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"fullsize preset",
			"https://cdn.bsky.app/img/feed_fullsize/plain/did:plc:x/c@jpeg",
			"https://cdn.bsky.app/img/feed_thumbnail/plain/did:plc:x/c@jpeg",
		},
		{
			"avatar preset",
			"https://cdn.bsky.app/img/avatar/plain/did:plc:x/c@jpeg",
			"https://cdn.bsky.app/img/avatar_thumbnail/plain/did:plc:x/c@jpeg",
		},
		{
			"already thumbnail",
			"https://cdn.bsky.app/img/feed_thumbnail/plain/did:plc:x/c@jpeg",
			"https://cdn.bsky.app/img/feed_thumbnail/plain/did:plc:x/c@jpeg",
		},
		{
			"foreign host",
			"https://images.example.com/img/feed_fullsize/x",
			"https://images.example.com/img/feed_fullsize/x",
		},
		{
			"not a url",
			"just some text",
			"just some text",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RewriteMediaURL(tc.in))
		})
	}
}

func TestRewriteMediaURL_FixedPoint(t *testing.T) {
	in := "https://cdn.bsky.app/img/avatar/plain/did:plc:x/c@jpeg"
	once := RewriteMediaURL(in)
	assert.Equal(t, once, RewriteMediaURL(once))
}
