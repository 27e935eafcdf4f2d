package acquire

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/storage"
)

// Fetcher downloads the video with the given 11-char ID into w, choosing the
// best stream that carries both video and audio.
type Fetcher interface {
	Fetch(ctx context.Context, videoID string, w io.Writer) error
}

// Acquirer resolves user-submitted sources to local files through the media cache.
type Acquirer struct {
	cache    *storage.MediaCache
	fetcher  Fetcher
	spoolDir string
}

func New(cache *storage.MediaCache, fetcher Fetcher) *Acquirer {
	return &Acquirer{
		cache:   cache,
		fetcher: fetcher,
	}
}

// Acquire returns the cached file for src, downloading or persisting it on a miss.
func (a *Acquirer) Acquire(ctx context.Context, src models.MediaSource) (*models.CachedFile, error) {
	if src.IsUpload() {
		return a.acquireUpload(ctx, src)
	}

	key, err := ExtractVideoID(src.URL)
	if err != nil {
		return nil, err
	}

	if path, ok := a.cache.Lookup(key); ok {
		log.Printf("Found %s in cache, skipping download", key)
		return &models.CachedFile{Key: key, Path: path, Hit: true}, nil
	}

	if a.fetcher == nil {
		return nil, &AcquisitionError{Key: key, Err: errors.New("no downloader configured")}
	}

	log.Printf("Downloading %s...", key)
	path, hit, err := a.cache.Populate(ctx, key, func(ctx context.Context, w io.Writer) error {
		return a.fetcher.Fetch(ctx, key, w)
	})
	if err != nil {
		return nil, &AcquisitionError{Key: key, Err: err}
	}
	if !hit {
		log.Printf("Cached %s at %s", key, path)
	}

	return &models.CachedFile{Key: key, Path: path, Hit: hit}, nil
}

// acquireUpload spools the upload to a temp file while hashing it, since the
// cache key depends on the full content.
func (a *Acquirer) acquireUpload(ctx context.Context, src models.MediaSource) (*models.CachedFile, error) {
	spool, err := os.CreateTemp(a.spoolDir, "inspector-upload-*")
	if err != nil {
		return nil, &AcquisitionError{Key: "upload", Err: fmt.Errorf("failed to create spool file: %w", err)}
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(spool, hash), src.Upload)
	if err != nil {
		return nil, &AcquisitionError{Key: "upload", Err: fmt.Errorf("failed to read upload: %w", err)}
	}
	if size == 0 {
		return nil, &InvalidSourceError{Source: src.String(), Reason: "uploaded file is empty"}
	}

	key := uploadKey(hash.Sum(nil))
	path, hit, err := a.cache.Populate(ctx, key, func(ctx context.Context, w io.Writer) error {
		if _, err := spool.Seek(0, io.SeekStart); err != nil {
			return err
		}
		_, err := io.Copy(w, spool)
		return err
	})
	if err != nil {
		return nil, &AcquisitionError{Key: key, Err: err}
	}
	if hit {
		log.Printf("Upload %s matches cached %s", src.String(), key)
	}

	return &models.CachedFile{Key: key, Path: path, Hit: hit}, nil
}
