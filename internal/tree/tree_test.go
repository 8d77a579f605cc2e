package tree

import (
	"sort"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
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

// snapshot flattens a materialized tree into path → content for files and
// path → "<dir>" for directories, with paths relative to root.
func snapshot(t *testing.T, fs billy.Filesystem, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	var walk func(dir, rel string)
	walk = func(dir, rel string) {
		entries, err := fs.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			childRel := e.Name()
			if rel != "" {
				childRel = rel + "/" + e.Name()
			}
			child := fs.Join(dir, e.Name())
			if e.IsDir() {
				out[childRel] = "<dir>"
				walk(child, childRel)
				continue
			}
			data, err := util.ReadFile(fs, child)
			require.NoError(t, err)
			out[childRel] = string(data)
		}
	}
	walk(root, "")
	return out
}

func pathsOf(snap map[string]string) []string {
	paths := make([]string, 0, len(snap))
	for p := range snap {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func TestMaterialize_ScalarMappingMembers(t *testing.T) {
	fs := memfs.New()
	m := New(fs, SimpleConfig(), nil)

	v := mustDecode(t, `{"handle": "alice.test", "did": "did:plc:abc", "followers_count": 10}`)
	st, err := m.Materialize(v, "out")
	require.NoError(t, err)

	snap := snapshot(t, fs, "out")
	assert.Equal(t, map[string]string{
		"handle.handle":       "alice.test",
		"did.did":             "did:plc:abc",
		"followers_count.int": "10",
	}, snap)
	assert.Equal(t, Stats{Dirs: 1, Files: 3, Bytes: 23}, st)
}

func TestMaterialize_CategorizedListItem(t *testing.T) {
	fs := memfs.New()
	m := New(fs, Config{MaxDepth: 5, ApplyFiltering: true, ApplyCategorization: true}, nil)

	v := mustDecode(t, `{"posts": [{"text": "hi", "author": {"handle": "a.b"}}]}`)
	_, err := m.Materialize(v, "out")
	require.NoError(t, err)

	snap := snapshot(t, fs, "out")
	assert.Equal(t, "a.b", snap["posts/0000_posts_hi/author/handle.handle"])
	assert.Equal(t, "hi", snap["posts/0000_posts_hi/text.str"])
}

func TestMaterialize_DenylistedKeyAppearsNowhere(t *testing.T) {
	fs := memfs.New()
	m := New(fs, DefaultConfig(), nil)

	v := mustDecode(t, `{
		"profile": {"handle": "alice.test", "pinned": false, "viewer": {"muted": true}},
		"pinned": false,
		"feed": [{"pinned": false, "text": "hello", "author": {"handle": "b.c"}}]
	}`)
	_, err := m.Materialize(v, "out")
	require.NoError(t, err)

	for _, p := range pathsOf(snapshot(t, fs, "out")) {
		assert.NotContains(t, p, "pinned")
		assert.NotContains(t, p, "viewer")
	}
}

func TestMaterialize_DepthBoundSerializesMapping(t *testing.T) {
	fs := memfs.New()
	m := New(fs, Config{MaxDepth: 4}, nil)

	v := mustDecode(t, `{"l1": {"l2": {"l3": {"l4": {"l5": {"l6": "x"}}}}}}`)
	_, err := m.Materialize(v, "out")
	require.NoError(t, err)

	snap := snapshot(t, fs, "out")
	assert.Equal(t, []string{
		"l1",
		"l1/l2",
		"l1/l2/l3",
		"l1/l2/l3/l4.json",
	}, pathsOf(snap))
	assert.Equal(t, "{\n  \"l5\": {\n    \"l6\": \"x\"\n  }\n}", snap["l1/l2/l3/l4.json"])
}

func TestMaterialize_NoDirectoryAtOrPastBound(t *testing.T) {
	fs := memfs.New()
	maxDepth := 3
	m := New(fs, Config{MaxDepth: maxDepth}, nil)

	v := mustDecode(t, `{
		"a": {"b": {"c": {"d": {"e": 1}}}},
		"list": [[1, 2], {"k": {"deep": {"deeper": true}}}],
		"flat": "value"
	}`)
	_, err := m.Materialize(v, "out")
	require.NoError(t, err)

	for p, content := range snapshot(t, fs, "out") {
		if content != "<dir>" {
			continue
		}
		depth := strings.Count(p, "/") + 1
		assert.Less(t, depth, maxDepth, "directory %s sits at depth >= %d", p, maxDepth)
	}
}

func TestMaterialize_SequenceAtBoundBecomesChunk(t *testing.T) {
	fs := memfs.New()
	m := New(fs, Config{MaxDepth: 1}, nil)

	v := mustDecode(t, `{"items": [1, 2, 3]}`)
	_, err := m.Materialize(v, "out")
	require.NoError(t, err)

	snap := snapshot(t, fs, "out")
	assert.Equal(t, []string{"items_chunk.json"}, pathsOf(snap))
	assert.Equal(t, "[\n  1,\n  2,\n  3\n]", snap["items_chunk.json"])
}

func TestMaterialize_RootSequenceAtBound(t *testing.T) {
	fs := memfs.New()
	m := New(fs, Config{MaxDepth: 0}, nil)

	v := mustDecode(t, `[{"a": 1}]`)
	_, err := m.Materialize(v, "out")
	require.NoError(t, err)

	snap := snapshot(t, fs, "out")
	assert.Equal(t, []string{"list_chunk.json"}, pathsOf(snap))
}

func TestMaterialize_RootMappingAtBoundFlattens(t *testing.T) {
	fs := memfs.New()
	m := New(fs, Config{MaxDepth: 0, ChunkThreshold: 40}, nil)

	v := mustDecode(t, `{
		"big": [{"text": "0123456789012345678901234567890123456789"}],
		"small": {"a": 1},
		"s": "x"
	}`)
	_, err := m.Materialize(v, "out")
	require.NoError(t, err)

	snap := snapshot(t, fs, "out")
	assert.Equal(t, []string{"big.json", "s.str", "small.txt"}, pathsOf(snap))
	// Over the threshold: indented JSON. Under it: inline compact JSON.
	assert.Contains(t, snap["big.json"], "\n  ")
	assert.Equal(t, `{"a":1}`, snap["small.txt"])
	assert.Equal(t, "x", snap["s.str"])
}

func TestMaterialize_ScalarSequenceItems(t *testing.T) {
	fs := memfs.New()
	m := New(fs, SimpleConfig(), nil)

	v := mustDecode(t, `{"nums": [1, 2.5, "three", null, true]}`)
	_, err := m.Materialize(v, "out")
	require.NoError(t, err)

	snap := snapshot(t, fs, "out")
	assert.Equal(t, "1", snap["nums/item_0.int"])
	assert.Equal(t, "2.5", snap["nums/item_1.float"])
	assert.Equal(t, "three", snap["nums/item_2.str"])
	assert.Equal(t, "null", snap["nums/item_3.null"])
	assert.Equal(t, "true", snap["nums/item_4.bool"])
}

func TestMaterialize_TopLevelScalar(t *testing.T) {
	fs := memfs.New()
	m := New(fs, SimpleConfig(), nil)

	st, err := m.Materialize(value.StrValue("hello"), "out")
	require.NoError(t, err)

	snap := snapshot(t, fs, "out")
	assert.Equal(t, map[string]string{"data.str": "hello"}, snap)
	assert.Equal(t, Stats{Dirs: 1, Files: 1, Bytes: 5}, st)
}

func TestMaterialize_FilteredToNothingCreatesNothing(t *testing.T) {
	fs := memfs.New()
	m := New(fs, DefaultConfig(), nil)

	st, err := m.Materialize(mustDecode(t, `{"viewer": {"muted": true}, "labels": []}`), "out")
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)

	_, err = fs.Stat("out")
	assert.Error(t, err)
}

func TestMaterialize_CategoryGrouping(t *testing.T) {
	fs := memfs.New()
	m := New(fs, Config{MaxDepth: 4, ApplyCategorization: true}, nil)

	v := mustDecode(t, `{
		"first": {"handle": "a.test"},
		"second": {"handle": "b.test"},
		"third": {"did": "did:plc:x"},
		"fourth": {"reply": {"uri": "at://x"}},
		"plain": "scalar",
		"other": {"misc": 1}
	}`)
	_, err := m.Materialize(v, "out")
	require.NoError(t, err)

	snap := snapshot(t, fs, "out")
	assert.Equal(t, "<dir>", snap["profiles/first"])
	assert.Equal(t, "<dir>", snap["profiles/second"])
	assert.Equal(t, "<dir>", snap["profiles/third"])
	assert.Equal(t, "<dir>", snap["threads/fourth"])
	assert.Equal(t, "scalar", snap["plain.str"])
	// Content-category members stay at the top level, ungrouped.
	assert.Equal(t, "1", snap["other/misc.int"])
	assert.Equal(t, "a.test", snap["profiles/first/handle.handle"])
}

func TestMaterialize_GroupingNeedsMoreThanThree(t *testing.T) {
	fs := memfs.New()
	m := New(fs, Config{MaxDepth: 4, ApplyCategorization: true}, nil)

	v := mustDecode(t, `{
		"first": {"handle": "a.test"},
		"second": {"handle": "b.test"},
		"third": {"did": "did:plc:x"}
	}`)
	_, err := m.Materialize(v, "out")
	require.NoError(t, err)

	snap := snapshot(t, fs, "out")
	assert.NotContains(t, snap, "profiles")
	assert.Equal(t, "a.test", snap["first/handle.handle"])
}

func TestMaterialize_Deterministic(t *testing.T) {
	input := `{
		"profile": {"handle": "alice.test", "followers_count": 3},
		"feed": [
			{"post": {"record": {"text": "first"}, "author": {"handle": "x.y"}}},
			{"post": {"record": {"text": "second"}, "author": {"handle": "y.z"}}}
		],
		"deep": {"a": {"b": {"c": {"d": 1}}}}
	}`

	run := func(root string, fs billy.Filesystem) map[string]string {
		m := New(fs, DefaultConfig(), nil)
		_, err := m.Materialize(mustDecode(t, input), root)
		require.NoError(t, err)
		return snapshot(t, fs, root)
	}

	fs := memfs.New()
	first := run("one", fs)
	second := run("two", fs)
	assert.Equal(t, first, second)
}

func TestMaterialize_MixedSequenceItemAtBound(t *testing.T) {
	fs := memfs.New()
	m := New(fs, Config{MaxDepth: 2, ApplyCategorization: true}, nil)

	v := mustDecode(t, `{"feed": [{"text": "hi", "author": {"handle": "a.b"}}, [1, 2]]}`)
	_, err := m.Materialize(v, "out")
	require.NoError(t, err)

	snap := snapshot(t, fs, "out")
	assert.Equal(t, []string{
		"feed",
		"feed/0000_posts_hi.json",
		"feed/item_1_chunk.json",
	}, pathsOf(snap))
}

func TestMaterialize_ChunkFilesAreIndentedJSON(t *testing.T) {
	fs := memfs.New()
	m := New(fs, Config{MaxDepth: 1}, nil)

	v := mustDecode(t, `{"wrap": {"k": [1, {"x": "y"}]}}`)
	_, err := m.Materialize(v, "out")
	require.NoError(t, err)

	snap := snapshot(t, fs, "out")
	require.Contains(t, snap, "wrap.json")
	decoded, err := value.Decode([]byte(snap["wrap.json"]))
	require.NoError(t, err)
	assert.Equal(t, `{"k":[1,{"x":"y"}]}`, string(decoded.CompactJSON()))
}
