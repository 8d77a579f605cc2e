package bsky

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/skytree/skytree/internal/naming"
)

// ErrNoSession reports that no stored session exists for an identifier.
var ErrNoSession = errors.New("no stored session")

// Session is one authenticated identity on a PDS. It is what the token
// store persists between runs.
type Session struct {
	Identifier string `json:"identifier"`
	Handle     string `json:"handle"`
	Did        string `json:"did"`
	AccessJwt  string `json:"access_jwt"`
	RefreshJwt string `json:"refresh_jwt"`
	Service    string `json:"service"`
}

// sessionPayload is the wire shape createSession and refreshSession share.
type sessionPayload struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Handle     string `json:"handle"`
	Did        string `json:"did"`
}

// Store keeps one token file per identifier under a directory, so several
// identities can stay logged in side by side.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created lazily
// on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

const tokenExt = ".token"

func (s *Store) path(identifier string) string {
	return filepath.Join(s.dir, naming.Segment(identifier)+tokenExt)
}

// Save writes the session's token file, replacing any previous one for the
// same identifier. Token files are private to the user.
func (s *Store) Save(sess *Session) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create token directory %s: %w", s.dir, err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	path := s.path(sess.Identifier)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token file %s: %w", path, err)
	}
	return nil
}

// Load reads the stored session for identifier. A missing token file is
// reported as ErrNoSession.
func (s *Store) Load(identifier string) (*Session, error) {
	path := s.path(identifier)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", identifier, ErrNoSession)
		}
		return nil, fmt.Errorf("read token file %s: %w", path, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", path, err)
	}
	return &sess, nil
}

// Delete removes the token file for identifier. Deleting an absent token
// is not an error.
func (s *Store) Delete(identifier string) error {
	err := os.Remove(s.path(identifier))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// LastIdentifier returns the identifier whose token file was written most
// recently, so repeat runs can omit --user.
func (s *Store) LastIdentifier() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("read token directory %s: %w", s.dir, err)
	}
	var (
		newest    time.Time
		newestIDs string
	)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != tokenExt {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newestIDs != "" && !info.ModTime().After(newest) {
			continue
		}
		sess, err := s.Load(entry.Name()[:len(entry.Name())-len(tokenExt)])
		if err != nil {
			continue
		}
		newest = info.ModTime()
		newestIDs = sess.Identifier
	}
	if newestIDs == "" {
		return "", ErrNoSession
	}
	return newestIDs, nil
}

// Login creates a fresh session with an app password and makes it the
// client's active session.
func (c *Client) Login(ctx context.Context, identifier, password string) (*Session, error) {
	in := struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}{Identifier: identifier, Password: password}
	var out sessionPayload
	if err := c.post(ctx, "com.atproto.server.createSession", "", in, &out); err != nil {
		return nil, fmt.Errorf("create session for %s: %w", identifier, err)
	}
	c.session = &Session{
		Identifier: identifier,
		Handle:     out.Handle,
		Did:        out.Did,
		AccessJwt:  out.AccessJwt,
		RefreshJwt: out.RefreshJwt,
		Service:    c.service,
	}
	c.log.Debug("session created", zap.String("handle", out.Handle), zap.String("did", out.Did))
	return c.session, nil
}

// Resume adopts a stored session, validating it against the server and
// refreshing the access token once if it has expired.
func (c *Client) Resume(ctx context.Context, sess *Session) error {
	c.session = sess
	_, err := c.get(ctx, "com.atproto.server.getSession", nil)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		c.session = nil
		return err
	}
	if err := c.refresh(ctx); err != nil {
		c.session = nil
		return err
	}
	return nil
}

// refresh trades the refresh token for a new token pair.
func (c *Client) refresh(ctx context.Context) error {
	var out sessionPayload
	if err := c.post(ctx, "com.atproto.server.refreshSession", c.session.RefreshJwt, nil, &out); err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	c.session.AccessJwt = out.AccessJwt
	c.session.RefreshJwt = out.RefreshJwt
	c.session.Handle = out.Handle
	c.session.Did = out.Did
	c.log.Debug("session refreshed", zap.String("handle", out.Handle))
	return nil
}

// Connect returns a client with a working session for identifier: the
// stored token when it still validates, a fresh login otherwise. The
// resulting session is written back to the store either way, so token
// rotation survives the process.
func Connect(ctx context.Context, store *Store, opts Options, identifier, password string) (*Client, error) {
	c := New(opts)
	sess, err := store.Load(identifier)
	switch {
	case err == nil && sess.Service == c.service:
		if resumeErr := c.Resume(ctx, sess); resumeErr == nil {
			if saveErr := store.Save(c.session); saveErr != nil {
				c.log.Warn("saving refreshed token failed", zap.Error(saveErr))
			}
			return c, nil
		}
		c.log.Debug("stored session no longer valid", zap.String("identifier", identifier))
	case err == nil:
		// Token was minted against another service; ignore it.
		c.log.Debug("stored session is for a different service",
			zap.String("identifier", identifier), zap.String("service", sess.Service))
	case !errors.Is(err, ErrNoSession):
		return nil, err
	}

	if password == "" {
		return nil, fmt.Errorf("no valid session for %s and no password given: %w", identifier, ErrNoSession)
	}
	if _, err := c.Login(ctx, identifier, password); err != nil {
		return nil, err
	}
	if err := store.Save(c.session); err != nil {
		c.log.Warn("saving session token failed", zap.Error(err))
	}
	return c, nil
}
