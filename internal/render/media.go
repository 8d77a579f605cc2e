package render

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"
)

// mediaFetcher downloads post media into one shared directory. Files are
// named by a hash of their URL, so the same image referenced from many
// posts is fetched once.
type mediaFetcher struct {
	fs      billy.Filesystem
	dir     string
	httpc   *http.Client
	log     *zap.Logger
	fetched int
}

// fetch downloads rawURL into the media directory and returns the
// POSIX-style relative link to embed in the Markdown. An unfetchable URL
// yields ""; callers fall back to the remote link or drop the reference.
func (f *mediaFetcher) fetch(ctx context.Context, rawURL, prefix string) string {
	if !strings.HasPrefix(rawURL, "http") {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := path.Ext(parsed.Path)
	if ext == "" {
		// CDN URLs carry the format after an @ sign, not as an extension.
		ext = ".jpg"
	}
	sum := md5.Sum([]byte(rawURL))
	name := fmt.Sprintf("%s%x%s", prefix, sum[:4], ext)
	full := f.fs.Join(f.dir, name)
	link := "media/" + name

	if _, err := f.fs.Stat(full); err == nil {
		return link
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	resp, err := f.httpc.Do(req)
	if err != nil {
		f.log.Warn("media download failed", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		f.log.Warn("media download failed",
			zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		return ""
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		f.log.Warn("media download failed", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	if err := util.WriteFile(f.fs, full, data, 0o644); err != nil {
		f.log.Warn("media write failed", zap.String("path", full), zap.Error(err))
		return ""
	}
	f.fetched++
	return link
}
