package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/skytree/skytree/internal/bsky"
	"github.com/skytree/skytree/internal/naming"
	"github.com/skytree/skytree/internal/tree"
	"github.com/skytree/skytree/internal/value"
)

// connect returns a client with a working session, reusing the stored
// token for the configured identifier or, failing that, the most recently
// used one.
func connect(ctx context.Context) (*bsky.Client, error) {
	store := bsky.NewStore(cfg.TokensDir)
	identifier := cfg.Identifier
	if identifier == "" {
		last, err := store.LastIdentifier()
		if err != nil {
			return nil, fmt.Errorf("no account given: use --user, SKYTREE_ID or the config file")
		}
		identifier = last
	}
	c, err := bsky.Connect(ctx, store, bsky.Options{Service: cfg.Service, Logger: logger}, identifier, cfg.Password)
	if err != nil {
		return nil, err
	}
	if verbose {
		fmt.Printf("Connected as: %s\n", c.Session().Identifier)
	}
	return c, nil
}

// outputRoot names the per-run directory under the output dir, tagged with
// the entity type and a timestamp so runs never collide.
func outputRoot(entity, identifier string) string {
	safe := "unknown"
	if identifier != "" {
		safe = naming.Segment(identifier)
	}
	return fmt.Sprintf("%s_%s_%s", entity, safe, time.Now().Format("20060102_150405"))
}

// lastSegment extracts the record key from an AT URI for use as a
// directory identifier.
func lastSegment(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// treeConfig resolves the materializer settings from mode and flags.
func treeConfig() tree.Config {
	tc := tree.DefaultConfig()
	if simpleMode {
		tc = tree.SimpleConfig()
		if maxDepthSet {
			tc.MaxDepth = cfg.MaxDepth
		}
	} else {
		tc.MaxDepth = cfg.MaxDepth
	}
	tc.KeepOriginalMedia = cfg.OriginalMedia
	tc.NoiseKeys = cfg.NoiseKeys()
	return tc
}

// materialize writes the downloaded envelope as a folder tree and prints
// the run summary.
func materialize(env value.Value, entity, identifier string) error {
	root := outputRoot(entity, identifier)
	dest := filepath.Join(cfg.OutputDir, root)
	if verbose {
		fmt.Printf("Saving data to: %s\n", dest)
	}

	m := tree.New(osfs.New(cfg.OutputDir), treeConfig(), logger)
	st, err := m.Materialize(env, root)
	if err != nil {
		return err
	}

	fmt.Printf("Download completed! Data saved to: %s\n", dest)
	if verbose {
		fmt.Printf("Entity type: %s\n", env.GetStr("type"))
		if n, ok := env.Get("total_posts"); ok {
			fmt.Printf("Total posts: %d\n", n.I)
		}
		if n, ok := env.Get("total_members"); ok {
			fmt.Printf("Total members: %d\n", n.I)
		}
		if n, ok := env.Get("total_lists"); ok {
			fmt.Printf("Total lists: %d\n", n.I)
		}
	}
	fmt.Printf("Created %s files in %s directories (%s)\n",
		humanize.Comma(int64(st.Files)), humanize.Comma(int64(st.Dirs)), humanize.Bytes(uint64(st.Bytes)))
	return nil
}
