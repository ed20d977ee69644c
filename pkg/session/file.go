package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/masonry/pkg/errors"
)

const sessionExt = ".json"

// FileStore keeps one JSON file per session in a directory readable only
// by its owner. The CLI stores its login here, and `masonry serve` falls
// back to it when Redis sessions are off.
type FileStore struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// NewFileStore opens a store in dir, creating it with mode 0700. An empty
// dir means DefaultDir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating session dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// DefaultDir is ~/.config/masonry/sessions.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home dir: %w", err)
	}
	return filepath.Join(home, ".config", "masonry", "sessions"), nil
}

// Path returns the store directory.
func (s *FileStore) Path() string { return s.dir }

// sessionPath keeps only the last element of id, so "../x" maps to x.json
// inside the store.
func (s *FileStore) sessionPath(id string) string {
	name := filepath.Base(filepath.Clean("/" + id))
	return filepath.Join(s.dir, name+sessionExt)
}

// Get returns the session, or nil when it is missing or expired. Expired
// files are removed.
func (s *FileStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.sessionPath(id)
	sess, err := readSessionFile(path)
	if err != nil || sess == nil {
		return nil, err
	}
	if s.now().After(sess.ExpiresAt) {
		_ = os.Remove(path)
		return nil, nil
	}
	return sess, nil
}

// Set writes sess with mode 0600, replacing any previous file atomically.
func (s *FileStore) Set(_ context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "session has no ID")
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), s.sessionPath(sess.ID))
	}
	if werr != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing session: %w", werr)
	}
	return nil
}

// Delete removes the session. Missing sessions are not an error.
func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.sessionPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

// Cleanup removes expired and unreadable session files. It stops early
// when ctx is done.
func (s *FileStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading session dir: %w", err)
	}
	now := s.now()
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != sessionExt || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(s.dir, name)
		sess, err := readSessionFile(path)
		if err != nil || (sess != nil && now.After(sess.ExpiresAt)) {
			_ = os.Remove(path)
		}
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

// readSessionFile returns nil, nil for a missing file.
func readSessionFile(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", filepath.Base(path), err)
	}
	return &sess, nil
}

var _ Store = (*FileStore)(nil)

// CLIID is the session ID the CLI logs in under.
const CLIID = "default"

// CLIStore is a FileStore holding the single CLI login.
type CLIStore struct {
	files *FileStore
}

// NewCLIStore opens the CLI login store in dir, or DefaultDir when empty.
func NewCLIStore(dir string) (*CLIStore, error) {
	fs, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return &CLIStore{files: fs}, nil
}

// GetSession returns the login, or nil when logged out.
func (c *CLIStore) GetSession(ctx context.Context) (*Session, error) {
	return c.files.Get(ctx, CLIID)
}

// SaveSession stores sess as the login, overwriting its ID.
func (c *CLIStore) SaveSession(ctx context.Context, sess *Session) error {
	sess.ID = CLIID
	return c.files.Set(ctx, sess)
}

func (c *CLIStore) DeleteSession(ctx context.Context) error {
	return c.files.Delete(ctx, CLIID)
}

// Path returns the login file.
func (c *CLIStore) Path() string { return c.files.sessionPath(CLIID) }
