package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMediaCachePopulate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	cache := NewMediaCache(dir)
	ctx := context.Background()

	var fills int32
	fill := func(ctx context.Context, w io.Writer) error {
		atomic.AddInt32(&fills, 1)
		_, err := io.WriteString(w, "video bytes")
		return err
	}

	t.Run("MissWritesEntry", func(t *testing.T) {
		path, hit, err := cache.Populate(ctx, "dQw4w9WgXcQ", fill)
		if err != nil {
			t.Fatalf("Populate() error = %v", err)
		}
		if hit {
			t.Error("First Populate() reported a cache hit")
		}
		if want := filepath.Join(dir, "dQw4w9WgXcQ.mp4"); path != want {
			t.Errorf("path = %s, want %s", path, want)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read entry: %v", err)
		}
		if string(data) != "video bytes" {
			t.Errorf("entry content = %q, want %q", data, "video bytes")
		}
	})

	t.Run("HitSkipsFill", func(t *testing.T) {
		path, hit, err := cache.Populate(ctx, "dQw4w9WgXcQ", fill)
		if err != nil {
			t.Fatalf("Populate() error = %v", err)
		}
		if !hit {
			t.Error("Second Populate() did not report a cache hit")
		}
		if path != cache.Path("dQw4w9WgXcQ") {
			t.Errorf("path = %s, want %s", path, cache.Path("dQw4w9WgXcQ"))
		}
		if got := atomic.LoadInt32(&fills); got != 1 {
			t.Errorf("fill called %d times, want 1", got)
		}
	})
}

func TestMediaCacheFailedFillLeavesNoEntry(t *testing.T) {
	dir := t.TempDir()
	cache := NewMediaCache(dir)
	boom := errors.New("network down")

	_, _, err := cache.Populate(context.Background(), "abcdefghijk", func(ctx context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Populate() error = %v, want %v", err, boom)
	}

	if _, ok := cache.Lookup("abcdefghijk"); ok {
		t.Error("Failed fill left a cache entry behind")
	}
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".part") {
			t.Errorf("Temporary file %s not cleaned up", f.Name())
		}
	}
}

func TestMediaCacheConcurrentPopulate(t *testing.T) {
	cache := NewMediaCache(t.TempDir())

	var fills int32
	fill := func(ctx context.Context, w io.Writer) error {
		atomic.AddInt32(&fills, 1)
		_, err := io.WriteString(w, strings.Repeat("x", 1<<16))
		return err
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := cache.Populate(context.Background(), "samekey0001", fill); err != nil {
				t.Errorf("Populate() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&fills); got != 1 {
		t.Errorf("fill called %d times for one key, want 1", got)
	}
	info, err := os.Stat(cache.Path("samekey0001"))
	if err != nil {
		t.Fatalf("Entry missing: %v", err)
	}
	if info.Size() != 1<<16 {
		t.Errorf("entry size = %d, want %d", info.Size(), 1<<16)
	}
}

func TestMediaCacheRejectsInvalidKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	cache := NewMediaCache(dir)

	_, _, err := cache.Populate(context.Background(), "../escape", func(ctx context.Context, w io.Writer) error {
		t.Error("fill must not run for an invalid key")
		return nil
	})
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Populate() error = %v, want ErrInvalidKey", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Cache directory created for an invalid key")
	}
}

func TestMediaCacheEntries(t *testing.T) {
	dir := t.TempDir()
	cache := NewMediaCache(dir)

	entries, err := cache.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Entries() on empty cache = %d, want 0", len(entries))
	}

	for _, key := range []string{"aaaaaaaaaaa", "bbbbbbbbbbb"} {
		if _, _, err := cache.Populate(context.Background(), key, func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, key)
			return err
		}); err != nil {
			t.Fatalf("Populate(%s) error = %v", key, err)
		}
	}

	entries, err = cache.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Entries() = %d, want 2 (lock files must be skipped)", len(entries))
	}
	for _, e := range entries {
		if e.SizeBytes != 11 {
			t.Errorf("entry %s size = %d, want 11", e.Key, e.SizeBytes)
		}
	}
}

func TestMediaCacheEntriesMissingDir(t *testing.T) {
	cache := NewMediaCache(filepath.Join(t.TempDir(), "missing"))
	entries, err := cache.Entries()
	if err != nil || entries != nil {
		t.Errorf("Entries() = %v, %v; want nil, nil", entries, err)
	}
}
