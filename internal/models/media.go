package models

import (
	"io"
	"time"
)

// MediaSource is what the user submitted: either a link or the bytes of an uploaded file.
type MediaSource struct {
	URL      string
	Upload   io.Reader
	Filename string
}

func (s MediaSource) IsUpload() bool {
	return s.Upload != nil
}

func (s MediaSource) String() string {
	if s.IsUpload() {
		if s.Filename == "" {
			return "upload"
		}
		return "upload:" + s.Filename
	}
	return s.URL
}

// CachedFile is a local media file resolved through the download cache.
type CachedFile struct {
	Key  string `json:"key"`
	Path string `json:"path"`
	Hit  bool   `json:"hit"`
}

type AssetState string

const (
	AssetProcessing AssetState = "PROCESSING"
	AssetReady      AssetState = "READY"
	AssetFailed     AssetState = "FAILED"
)

// RemoteAsset references a file held by the model provider's file store.
type RemoteAsset struct {
	Name     string     `json:"name"`
	URI      string     `json:"uri"`
	MIMEType string     `json:"mime_type"`
	State    AssetState `json:"state"`
}

// VideoMetadata is the platform's description of a linked video.
type VideoMetadata struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ChannelTitle    string    `json:"channel_title"`
	PublishedAt     time.Time `json:"published_at"`
	Duration        string    `json:"duration"`
	DurationSeconds int       `json:"duration_seconds"`
	ViewCount       int64     `json:"view_count"`
	URL             string    `json:"url"`
}
