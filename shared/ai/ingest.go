package ai

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/config"
)

const defaultMIMEType = "video/mp4"

var videoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

// FileStore is the part of the provider's file API that ingestion needs.
type FileStore interface {
	Upload(ctx context.Context, path, mimeType string) (*models.RemoteAsset, error)
	Status(ctx context.Context, name string) (*models.RemoteAsset, error)
}

// Ingestor uploads local media and waits for the provider to finish processing it.
type Ingestor struct {
	store           FileStore
	pollInterval    time.Duration
	maxPollInterval time.Duration
	timeout         time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewIngestor(store FileStore, cfg *config.AIConfig) *Ingestor {
	return &Ingestor{
		store:           store,
		pollInterval:    cfg.PollInterval(),
		maxPollInterval: cfg.PollMaxInterval(),
		timeout:         cfg.IngestTimeout(),
		now:             time.Now,
		sleep:           sleepWithContext,
	}
}

// MIMETypeFor picks the upload MIME type from the file extension.
func MIMETypeFor(path string) string {
	if mimeType, ok := videoMIMETypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mimeType
	}
	return defaultMIMEType
}

// Ingest uploads path and polls until the asset leaves PROCESSING. The poll
// interval doubles after each check up to the configured ceiling; a zero
// timeout waits until ctx is done.
func (i *Ingestor) Ingest(ctx context.Context, path string) (*models.RemoteAsset, error) {
	mimeType := MIMETypeFor(path)
	log.Printf("Uploading %s (%s)...", path, mimeType)

	asset, err := i.store.Upload(ctx, path, mimeType)
	if err != nil {
		return nil, &IngestionError{Path: path, Err: err}
	}
	name := asset.Name

	start := i.now()
	wait := i.pollInterval
	polls := 0

	for asset.State == models.AssetProcessing {
		if i.timeout > 0 {
			elapsed := i.now().Sub(start)
			if elapsed >= i.timeout {
				return nil, &IngestionError{Path: path, Name: name, Err: &IngestionTimeoutError{Waited: elapsed, Polls: polls}}
			}
			if remaining := i.timeout - elapsed; wait > remaining {
				wait = remaining
			}
		}

		if err := i.sleep(ctx, wait); err != nil {
			return nil, &IngestionError{Path: path, Name: name, Err: err}
		}

		asset, err = i.store.Status(ctx, name)
		if err != nil {
			return nil, &IngestionError{Path: path, Name: name, Err: err}
		}
		polls++

		wait *= 2
		if i.maxPollInterval > 0 && wait > i.maxPollInterval {
			wait = i.maxPollInterval
		}
	}

	switch asset.State {
	case models.AssetReady:
		log.Printf("Asset %s ready after %d polls (%v)", name, polls, i.now().Sub(start).Round(time.Millisecond))
		return asset, nil
	case models.AssetFailed:
		return nil, &IngestionError{Path: path, Name: name, Err: ErrAssetFailed}
	default:
		return nil, &IngestionError{Path: path, Name: name, Err: fmt.Errorf("unexpected asset state %q", asset.State)}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
