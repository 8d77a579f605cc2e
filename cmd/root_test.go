package cmd

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skytree/skytree/internal/config"
)

func TestLastSegment(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"at://did:plc:abc123/app.bsky.feed.post/xyz789", "xyz789"},
		{"at://did:plc:abc123/app.bsky.graph.list/3kabc", "3kabc"},
		{"xyz789", "xyz789"},
		{"", ""},
	}
	for _, tt := range tests {
		got := lastSegment(tt.input)
		if got != tt.want {
			t.Errorf("lastSegment(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestOutputRoot(t *testing.T) {
	re := regexp.MustCompile(`^profile_alice\.test_\d{8}_\d{6}$`)
	assert.Regexp(t, re, outputRoot("profile", "alice.test"))

	// Unsafe identifiers are sanitized, empty ones become "unknown".
	assert.Regexp(t, `^post_xyz_abc_\d{8}_\d{6}$`, outputRoot("post", "xyz/abc"))
	assert.Regexp(t, `^timeline_unknown_\d{8}_\d{6}$`, outputRoot("timeline", ""))
}

func TestTreeConfig_Modes(t *testing.T) {
	restore := func() {
		cfg = config.Config{}
		simpleMode = false
		maxDepthSet = false
	}
	defer restore()

	restore()
	cfg.MaxDepth = 4
	tc := treeConfig()
	assert.True(t, tc.ApplyFiltering)
	assert.True(t, tc.ApplyCategorization)
	assert.Equal(t, 4, tc.MaxDepth)
	assert.Equal(t, 500, tc.ChunkThreshold)

	restore()
	cfg.MaxDepth = 4
	simpleMode = true
	tc = treeConfig()
	assert.False(t, tc.ApplyFiltering)
	assert.False(t, tc.ApplyCategorization)
	assert.Equal(t, 5, tc.MaxDepth)
	assert.Equal(t, 1000, tc.ChunkThreshold)

	restore()
	cfg.MaxDepth = 2
	simpleMode = true
	maxDepthSet = true
	tc = treeConfig()
	assert.Equal(t, 2, tc.MaxDepth)

	restore()
	cfg.Identifier = "alice.test"
	cfg.OriginalMedia = true
	cfg.ExtraNoiseKeys = []string{"threadgate"}
	cfg.MaxDepth = 3
	tc = treeConfig()
	assert.True(t, tc.KeepOriginalMedia)
	assert.Contains(t, tc.NoiseKeys, "threadgate")
	assert.Contains(t, tc.NoiseKeys, "viewer")
	assert.Equal(t, 3, tc.MaxDepth)
}
