package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const mediaExt = ".mp4"

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrInvalidKey is returned for keys that cannot be used as a file name.
var ErrInvalidKey = errors.New("invalid cache key")

// FillFunc writes the content of a new cache entry.
type FillFunc func(ctx context.Context, w io.Writer) error

// MediaCache stores downloaded media as <dir>/<key>.mp4. Entries are never
// overwritten or expired; reclaiming disk space is left to the operator.
type MediaCache struct {
	dir       string
	lockRetry time.Duration
}

// CacheEntry describes one cached media file.
type CacheEntry struct {
	Key        string    `json:"key"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

func NewMediaCache(dir string) *MediaCache {
	return &MediaCache{
		dir:       dir,
		lockRetry: 250 * time.Millisecond,
	}
}

func (c *MediaCache) Dir() string {
	return c.dir
}

// Path returns the canonical location for key, whether or not it exists.
func (c *MediaCache) Path(key string) string {
	return filepath.Join(c.dir, key+mediaExt)
}

// Lookup reports whether a complete entry exists for key.
func (c *MediaCache) Lookup(key string) (string, bool) {
	if !validKey.MatchString(key) {
		return "", false
	}
	path := c.Path(key)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

// Populate returns the entry for key, calling fill to create it on a miss.
// Concurrent callers for the same key are serialized by a lock file, and the
// content is written to a temporary file that is renamed into place only
// after fill succeeds, so readers never see a partial entry.
func (c *MediaCache) Populate(ctx context.Context, key string, fill FillFunc) (path string, hit bool, err error) {
	if !validKey.MatchString(key) {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if path, ok := c.Lookup(key); ok {
		return path, true, nil
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", false, fmt.Errorf("failed to create cache directory: %w", err)
	}

	lock := flock.New(filepath.Join(c.dir, "."+key+".lock"))
	locked, err := lock.TryLockContext(ctx, c.lockRetry)
	if err != nil {
		return "", false, fmt.Errorf("failed to lock cache entry %s: %w", key, err)
	}
	if !locked {
		return "", false, fmt.Errorf("failed to lock cache entry %s", key)
	}
	defer lock.Unlock()

	// Another process may have filled the entry while we waited for the lock.
	if path, ok := c.Lookup(key); ok {
		return path, true, nil
	}

	tmp, err := os.CreateTemp(c.dir, "."+key+"-*.part")
	if err != nil {
		return "", false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := fill(ctx, tmp); err != nil {
		return "", false, err
	}
	if err := tmp.Sync(); err != nil {
		return "", false, fmt.Errorf("failed to flush cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", false, fmt.Errorf("failed to close cache entry: %w", err)
	}

	path = c.Path(key)
	if err := os.Rename(tmpPath, path); err != nil {
		return "", false, fmt.Errorf("failed to commit cache entry: %w", err)
	}
	committed = true

	return path, false, nil
}

// Entries lists cached media, newest first.
func (c *MediaCache) Entries() ([]CacheEntry, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var entries []CacheEntry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, mediaExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, CacheEntry{
			Key:        strings.TrimSuffix(name, mediaExt),
			Path:       filepath.Join(c.dir, name),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModifiedAt.After(entries[j].ModifiedAt)
	})
	return entries, nil
}
