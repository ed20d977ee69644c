package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const entryExt = ".json"

// FileCache stores one JSON file per entry under dir, fanned out into
// subdirectories named by the first two characters of the key hash.
type FileCache struct {
	dir string
	now func() time.Time
}

// NewFileCache opens or creates a file cache rooted at dir.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, now: time.Now}, nil
}

// fileEntry is a stored value, also the on-disk form of a FileCache entry.
// A zero Expires never expires.
type fileEntry struct {
	Data    []byte    `json:"data"`
	Expires time.Time `json:"expires_at"`
}

func (e fileEntry) expired(now time.Time) bool {
	return !e.Expires.IsZero() && now.After(e.Expires)
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Get returns the value for key. Unreadable and expired entries are
// removed and reported as misses.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	e, ok, err := readEntry(path)
	if errors.Is(err, errCorruptEntry) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	if err != nil || !ok {
		return nil, false, err
	}
	if e.expired(c.now()) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return e.Data, true, nil
}

// Set writes key through a temp file in the target directory, so readers
// see either the old entry or the new one.
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	e := fileEntry{Data: data}
	if ttl > 0 {
		e.Expires = c.now().Add(ttl)
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}

	path := c.path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(raw)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmp.Name())
		return werr
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes key. Deleting a missing key is not an error.
func (c *FileCache) Delete(_ context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear removes every entry and returns how many were removed.
func (c *FileCache) Clear() (int, error) {
	return c.removeWhere(func(string) bool { return true })
}

// Prune removes expired and unreadable entries, keeping live ones, and
// returns how many were removed.
func (c *FileCache) Prune() (int, error) {
	now := c.now()
	return c.removeWhere(func(path string) bool {
		e, ok, err := readEntry(path)
		return err != nil || !ok || e.expired(now)
	})
}

// removeWhere deletes the entries for which drop returns true, then any
// fan-out directories left empty.
func (c *FileCache) removeWhere(drop func(path string) bool) (int, error) {
	removed := 0
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil && path == c.dir:
			if os.IsNotExist(err) {
				return fs.SkipAll
			}
			return err
		case err != nil, d.IsDir(), filepath.Ext(path) != entryExt:
			return nil
		}
		if drop(path) && os.Remove(path) == nil {
			removed++
		}
		return nil
	})

	subdirs, _ := os.ReadDir(c.dir)
	for _, d := range subdirs {
		if d.IsDir() {
			// Fails harmlessly on directories that still hold entries.
			_ = os.Remove(filepath.Join(c.dir, d.Name()))
		}
	}
	return removed, err
}

// Close is a no-op.
func (c *FileCache) Close() error { return nil }

func (c *FileCache) path(key string) string {
	h := Hash([]byte(key))
	return filepath.Join(c.dir, h[:2], h[2:]+entryExt)
}

var errCorruptEntry = errors.New("cache: corrupt entry")

// readEntry reports ok=false for a missing file.
func readEntry(path string) (fileEntry, bool, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fileEntry{}, false, nil
	}
	if err != nil {
		return fileEntry{}, false, err
	}
	var e fileEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return fileEntry{}, false, errCorruptEntry
	}
	return e, true, nil
}

var _ Cache = (*FileCache)(nil)
