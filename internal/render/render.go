// Package render converts materialized post JSON files into Markdown
// documents, mirroring the input directory layout. Post media can
// optionally be downloaded next to the output so the documents work
// offline.
package render

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"go.uber.org/zap"
)

// Paths into a post view. Lookups run against whatever shape the file
// held, so an absent branch just yields no match.
var (
	handlePath    = jp.MustParseString("author.handle")
	avatarPath    = jp.MustParseString("author.avatar")
	createdAtPath = jp.MustParseString("record.createdAt")
	textPath      = jp.MustParseString("record.text")
	likesPath     = jp.MustParseString("likeCount")
	repostsPath   = jp.MustParseString("repostCount")
	repliesPath   = jp.MustParseString("replyCount")
	externalPath  = jp.MustParseString("embed.external")
	imagesPath    = jp.MustParseString("embed.images[*]")
	videoPath     = jp.MustParseString("embed.video")
)

// Config controls a rendering run.
type Config struct {
	// FetchMedia downloads avatars, thumbnails and images into a media/
	// directory under the output and links them locally.
	FetchMedia bool
	// HTTPClient overrides the default 30s-timeout client used for media.
	HTTPClient *http.Client
	// Logger receives per-file debug logging. Nil means nop.
	Logger *zap.Logger
}

// Stats summarizes a rendering run.
type Stats struct {
	// Rendered counts Markdown documents written.
	Rendered int
	// MediaFiles counts media downloads that landed on disk.
	MediaFiles int
}

// Renderer walks a materialized tree and writes one Markdown document per
// JSON file found.
type Renderer struct {
	fs  billy.Filesystem
	cfg Config
	log *zap.Logger
}

// New builds a Renderer on fs.
func New(fs billy.Filesystem, cfg Config) *Renderer {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{fs: fs, cfg: cfg, log: log}
}

// Run renders every *.json file under inputDir into outputDir, keeping the
// relative layout and swapping the extension for .md.
func (r *Renderer) Run(ctx context.Context, inputDir, outputDir string) (Stats, error) {
	var st Stats
	media := &mediaFetcher{
		fs:    r.fs,
		dir:   r.fs.Join(outputDir, "media"),
		httpc: r.cfg.HTTPClient,
		log:   r.log,
	}
	if r.cfg.FetchMedia {
		if err := r.fs.MkdirAll(media.dir, 0o755); err != nil {
			return st, fmt.Errorf("create media directory: %w", err)
		}
	}

	err := util.Walk(r.fs, inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(inputDir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		data, err := util.ReadFile(r.fs, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		outPath := r.fs.Join(outputDir, strings.TrimSuffix(rel, ".json")+".md")
		if err := r.fs.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", outPath, err)
		}
		doc := r.render(ctx, data, media)
		if err := util.WriteFile(r.fs, outPath, doc, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
		st.Rendered++
		r.log.Debug("rendered", zap.String("in", path), zap.String("out", outPath))
		return nil
	})
	if err != nil {
		return st, err
	}
	st.MediaFiles = media.fetched
	return st, nil
}

// render turns one JSON document into Markdown. Files that do not look
// like posts still produce a document saying so, matching the one-output-
// per-input contract.
func (r *Renderer) render(ctx context.Context, data []byte, media *mediaFetcher) []byte {
	doc, err := oj.Parse(data)
	if err != nil {
		return []byte(fmt.Sprintf("# JSON Parse Error\n\nCould not parse JSON file: %v\n", err))
	}
	post := extractPost(doc)
	if post == nil {
		return []byte("# Unknown Post Format\n\nCould not parse post data from JSON structure.\n")
	}

	handle := strAt(post, handlePath, "unknown")
	extMap, _ := externalPath.First(post).(map[string]any)

	var lines []string
	if title, ok := extMap["title"].(string); ok {
		lines = append(lines, "# "+title+"\n")
	} else {
		lines = append(lines, "# Post by @"+handle+"\n")
	}
	if r.cfg.FetchMedia {
		if avatar := strAt(post, avatarPath, ""); avatar != "" {
			if local := media.fetch(ctx, avatar, "avatar_"); local != "" {
				lines = append(lines, "![avatar]("+local+")")
			}
		}
	}
	lines = append(lines,
		"- **Author**: @"+handle,
		"- **Date**: "+strAt(post, createdAtPath, "unknown"),
		fmt.Sprintf("- **Likes**: %d | **Reposts**: %d | **Replies**: %d\n",
			intAt(post, likesPath), intAt(post, repostsPath), intAt(post, repliesPath)),
	)
	if text := strings.TrimSpace(strAt(post, textPath, "")); text != "" {
		lines = append(lines, text+"\n")
	}

	// External link card.
	if uri, ok := extMap["uri"].(string); ok {
		linkTitle := "Link"
		if t, ok := extMap["title"].(string); ok {
			linkTitle = t
		}
		lines = append(lines, fmt.Sprintf("[%s](%s)", linkTitle, uri))
		if desc, ok := extMap["description"].(string); ok {
			lines = append(lines, "> "+desc)
		}
		if thumb, ok := extMap["thumb"].(string); ok && r.cfg.FetchMedia {
			if local := media.fetch(ctx, thumb, "thumb_"); local != "" {
				lines = append(lines, "![thumbnail]("+local+")")
			} else {
				lines = append(lines, "![thumbnail]("+thumb+")")
			}
		}
	}

	// Attached images.
	for i, img := range imagesPath.Get(post) {
		m, ok := img.(map[string]any)
		if !ok {
			continue
		}
		fullsize, ok := m["fullsize"].(string)
		if !ok {
			continue
		}
		local := ""
		if r.cfg.FetchMedia {
			local = media.fetch(ctx, fullsize, fmt.Sprintf("img_%d_", i))
		}
		if local != "" {
			alt := fmt.Sprintf("Image %d", i+1)
			if a, ok := m["alt"].(string); ok {
				alt = a
			}
			lines = append(lines, fmt.Sprintf("![%s](%s)", alt, local))
		} else {
			lines = append(lines, fmt.Sprintf("![Image %d](%s)", i+1, fullsize))
		}
	}

	// Video embed.
	if video, ok := videoPath.First(post).(map[string]any); ok {
		if playlist, ok := video["playlist"].(string); ok {
			lines = append(lines, "[Video]("+playlist+")")
		}
		if thumb, ok := video["thumbnail"].(string); ok && r.cfg.FetchMedia {
			if local := media.fetch(ctx, thumb, "video_thumb_"); local != "" {
				lines = append(lines, "![video thumbnail]("+local+")")
			}
		}
	}

	return []byte(strings.Join(lines, "\n") + "\n")
}

// extractPost digs the post view out of the shapes the materializer
// produces: a feed item wrapping a post, a bare post view, or a chunk
// array of either.
func extractPost(doc any) any {
	switch d := doc.(type) {
	case map[string]any:
		if p, ok := d["post"].(map[string]any); ok {
			return p
		}
		if _, ok := d["author"]; ok {
			if _, ok := d["record"]; ok {
				return d
			}
		}
	case []any:
		if len(d) == 0 {
			return nil
		}
		m, ok := d[0].(map[string]any)
		if !ok {
			return nil
		}
		if p, ok := m["post"].(map[string]any); ok {
			return p
		}
		if _, ok := m["author"]; ok {
			return m
		}
	}
	return nil
}

func strAt(doc any, path jp.Expr, fallback string) string {
	if s, ok := path.First(doc).(string); ok {
		return s
	}
	return fallback
}

func intAt(doc any, path jp.Expr) int64 {
	switch n := path.First(doc).(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}
