// Package tree materializes decoded payloads as directory trees. Mappings
// become directories of their keys, sequences become directories of
// index-named items, scalars become typed leaf files, and anything that
// would nest past the depth bound is serialized to JSON in place. The walk
// is synchronous and depth-first; every path is written exactly once per
// invocation.
package tree

import (
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"

	"github.com/skytree/skytree/internal/categorize"
	"github.com/skytree/skytree/internal/filter"
	"github.com/skytree/skytree/internal/naming"
	"github.com/skytree/skytree/internal/value"
)

const defaultChunkThreshold = 1000

// Config controls one materialization run. The zero value is usable but
// shallow; use DefaultConfig or SimpleConfig for the two standard modes.
type Config struct {
	// MaxDepth is the directory nesting bound below the root. Containers
	// that would land at this depth are serialized instead of descended.
	MaxDepth int
	// ChunkThreshold is the compact-encoded size above which a container
	// flattened at the depth bound gets an indented .json file of its own
	// instead of an inline leaf.
	ChunkThreshold int
	// ApplyFiltering runs the noise filter over the payload before the
	// walk. Off, the tree mirrors the payload verbatim.
	ApplyFiltering bool
	// ApplyCategorization turns on category tags in list-item names and
	// the grouping of category-heavy mappings into bucket subdirectories.
	ApplyCategorization bool
	// KeepOriginalMedia leaves CDN media URLs at full quality.
	KeepOriginalMedia bool
	// NoiseKeys overrides the filter denylist. Nil keeps the default set.
	NoiseKeys []string
}

// DefaultConfig is the enhanced mode: filtering and categorization on, a
// tighter depth bound, and smaller chunks.
func DefaultConfig() Config {
	return Config{
		MaxDepth:            4,
		ChunkThreshold:      500,
		ApplyFiltering:      true,
		ApplyCategorization: true,
	}
}

// SimpleConfig is the plain mode: no filtering, no categorization, payload
// mirrored as-is.
func SimpleConfig() Config {
	return Config{
		MaxDepth:       5,
		ChunkThreshold: defaultChunkThreshold,
	}
}

// Stats totals what one Materialize call wrote.
type Stats struct {
	Dirs  int
	Files int
	Bytes int64
}

// Materializer writes Value trees through a billy filesystem, so the same
// walk serves osfs in the CLI and memfs in tests.
type Materializer struct {
	fs  billy.Filesystem
	cfg Config
	flt *filter.Filter
	log *zap.Logger
}

// New builds a Materializer. A nil logger is replaced with a nop logger.
func New(fs billy.Filesystem, cfg Config, log *zap.Logger) *Materializer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	if cfg.ChunkThreshold <= 0 {
		cfg.ChunkThreshold = defaultChunkThreshold
	}
	return &Materializer{
		fs:  fs,
		cfg: cfg,
		flt: filter.New(filter.Options{
			NoiseKeys:         cfg.NoiseKeys,
			KeepOriginalMedia: cfg.KeepOriginalMedia,
		}),
		log: log,
	}
}

// Materialize writes v as a tree rooted at root. A payload that filters
// away entirely produces nothing, not even the root directory. The first
// filesystem error aborts the run; a partial tree from an aborted run is
// the caller's to discard.
func (m *Materializer) Materialize(v value.Value, root string) (Stats, error) {
	if m.cfg.ApplyFiltering {
		filtered, ok := m.flt.Apply(v)
		if !ok {
			m.log.Debug("payload filtered to nothing", zap.String("root", root))
			return Stats{}, nil
		}
		v = filtered
	}
	var st Stats
	err := m.walk(v, root, 0, "", &st)
	return st, err
}

// walk materializes one value whose own directory is dir. parentKey is the
// mapping key or synthetic item label the value was reached under; depth
// counts descents from the root. Children are dispatched inline so that a
// container crossing the depth bound is serialized by its parent and never
// becomes a directory.
func (m *Materializer) walk(v value.Value, dir string, depth int, parentKey string, st *Stats) error {
	if err := m.mkdir(dir, st); err != nil {
		return err
	}
	switch v.Kind {
	case value.Mapping:
		if depth >= m.cfg.MaxDepth {
			return m.flattenMapping(v, dir, st)
		}
		return m.walkMapping(v, dir, depth, st)
	case value.Sequence:
		if depth >= m.cfg.MaxDepth {
			name := naming.Segment(orList(parentKey)) + "_chunk.json"
			return m.writeFile(dir, name, v.IndentJSON(), st)
		}
		return m.walkSequence(v, dir, depth, st)
	}
	// A scalar payload still gets a root directory with one leaf inside.
	return m.writeFile(dir, naming.LeafFileName(parentKey, v), scalarContent(v), st)
}

// walkMapping handles a mapping below the depth bound: scalar members
// become leaf files in dir, container members either recurse or, when the
// next level is the bound, serialize in place. With categorization on, a
// mapping dominated by categorizable sub-mappings has those members
// regrouped under bucket directories; the buckets reshape paths only and
// consume no depth.
func (m *Materializer) walkMapping(v value.Value, dir string, depth int, st *Stats) error {
	groups := m.groupCategories(v)
	made := make(map[string]bool)
	for i, mem := range v.Members {
		if mem.Val.IsScalar() {
			if err := m.writeFile(dir, naming.LeafFileName(mem.Key, mem.Val), scalarContent(mem.Val), st); err != nil {
				return err
			}
			continue
		}
		base := dir
		if cat, ok := groups[i]; ok {
			base = m.fs.Join(dir, string(cat))
			if !made[base] {
				if err := m.mkdir(base, st); err != nil {
					return err
				}
				made[base] = true
			}
		}
		seg := naming.Segment(mem.Key)
		if depth+1 >= m.cfg.MaxDepth {
			if err := m.serializeContainer(base, seg, mem.Val, st); err != nil {
				return err
			}
			continue
		}
		if err := m.walk(mem.Val, m.fs.Join(base, seg), depth+1, mem.Key, st); err != nil {
			return err
		}
	}
	return nil
}

// walkSequence handles a sequence below the depth bound: scalar items
// become item_<i> leaf files in dir, container items recurse into
// index-prefixed directories or serialize when the next level is the bound.
func (m *Materializer) walkSequence(v value.Value, dir string, depth int, st *Stats) error {
	for i, item := range v.Items {
		itemKey := fmt.Sprintf("item_%d", i)
		if item.IsScalar() {
			if err := m.writeFile(dir, naming.LeafFileName(itemKey, item), scalarContent(item), st); err != nil {
				return err
			}
			continue
		}
		if depth+1 >= m.cfg.MaxDepth {
			var err error
			if item.Kind == value.Mapping {
				name := naming.ListItemName(item, i, m.cfg.ApplyCategorization)
				err = m.writeFile(dir, name+".json", item.IndentJSON(), st)
			} else {
				err = m.writeFile(dir, naming.Segment(itemKey)+"_chunk.json", item.IndentJSON(), st)
			}
			if err != nil {
				return err
			}
			continue
		}
		name := naming.ListItemName(item, i, m.cfg.ApplyCategorization)
		if err := m.walk(item, m.fs.Join(dir, name), depth+1, itemKey, st); err != nil {
			return err
		}
	}
	return nil
}

// flattenMapping writes a mapping entered at the depth bound as one file
// per key: big containers get indented .json files, everything else an
// inline leaf.
func (m *Materializer) flattenMapping(v value.Value, dir string, st *Stats) error {
	for _, mem := range v.Members {
		if mem.Val.IsContainer() {
			compact := mem.Val.CompactJSON()
			if len(compact) > m.cfg.ChunkThreshold {
				if err := m.writeFile(dir, naming.Segment(mem.Key)+".json", mem.Val.IndentJSON(), st); err != nil {
					return err
				}
				continue
			}
			if err := m.writeFile(dir, naming.LeafFileName(mem.Key, mem.Val), compact, st); err != nil {
				return err
			}
			continue
		}
		if err := m.writeFile(dir, naming.LeafFileName(mem.Key, mem.Val), scalarContent(mem.Val), st); err != nil {
			return err
		}
	}
	return nil
}

// serializeContainer writes a container that would cross the depth bound as
// a single indented JSON file next to its would-be siblings.
func (m *Materializer) serializeContainer(dir, seg string, v value.Value, st *Stats) error {
	name := seg + ".json"
	if v.Kind == value.Sequence {
		name = seg + "_chunk.json"
	}
	m.log.Debug("depth bound reached, serializing container",
		zap.String("dir", dir), zap.String("file", name))
	return m.writeFile(dir, name, v.IndentJSON(), st)
}

// groupCategories decides whether the mapping is "data-like" enough to
// regroup: more than three members must be mappings with a real category.
// Returns nil when grouping is off or the mapping does not qualify.
func (m *Materializer) groupCategories(v value.Value) map[int]categorize.Category {
	if !m.cfg.ApplyCategorization {
		return nil
	}
	groups := make(map[int]categorize.Category)
	for i, mem := range v.Members {
		if mem.Val.Kind != value.Mapping {
			continue
		}
		if cat := categorize.Categorize(mem.Val); cat != categorize.Content {
			groups[i] = cat
		}
	}
	if len(groups) <= 3 {
		return nil
	}
	return groups
}

func (m *Materializer) mkdir(dir string, st *Stats) error {
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	st.Dirs++
	return nil
}

func (m *Materializer) writeFile(dir, name string, content []byte, st *Stats) error {
	path := m.fs.Join(dir, name)
	if err := util.WriteFile(m.fs, path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	st.Files++
	st.Bytes += int64(len(content))
	return nil
}

// scalarContent renders a scalar the way it reads best in a single file:
// strings raw, everything else in its JSON form.
func scalarContent(v value.Value) []byte {
	if v.Kind == value.Str {
		return []byte(v.S)
	}
	return v.CompactJSON()
}

func orList(parentKey string) string {
	if parentKey == "" {
		return "list"
	}
	return parentKey
}
