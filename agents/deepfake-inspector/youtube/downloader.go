package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"
)

// ErrNoStream is returned when a video offers no downloadable format.
var ErrNoStream = errors.New("no downloadable stream")

// Downloader fetches progressive streams (video and audio muxed together)
// so both classifiers see the same file.
type Downloader struct {
	client *ytdl.Client
}

// NewDownloader uses httpClient for all requests; nil means http.DefaultClient.
func NewDownloader(httpClient *http.Client) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Downloader{client: &ytdl.Client{HTTPClient: httpClient}}
}

// Fetch writes the best muxed stream for videoID into w.
func (d *Downloader) Fetch(ctx context.Context, videoID string, w io.Writer) error {
	video, err := d.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return fmt.Errorf("failed to resolve video: %w", err)
	}

	format, err := selectFormat(video.Formats)
	if err != nil {
		return fmt.Errorf("%s: %w", video.ID, err)
	}
	log.Printf("Downloading %s (%s, %dp, %d kbps)", video.ID, format.MimeType, format.Height, format.Bitrate/1000)

	stream, _, err := d.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer stream.Close()

	if _, err := io.Copy(w, stream); err != nil {
		return fmt.Errorf("failed to download stream: %w", err)
	}
	return nil
}

// selectFormat prefers an mp4 with audio, then any video with audio, then
// anything at all. Within a tier the highest bitrate wins.
func selectFormat(formats []ytdl.Format) (*ytdl.Format, error) {
	tiers := []func(f *ytdl.Format) bool{
		func(f *ytdl.Format) bool {
			return f.AudioChannels > 0 && strings.HasPrefix(f.MimeType, "video/mp4")
		},
		func(f *ytdl.Format) bool {
			return f.AudioChannels > 0 && strings.HasPrefix(f.MimeType, "video/")
		},
		func(f *ytdl.Format) bool {
			return true
		},
	}

	for _, accept := range tiers {
		var best *ytdl.Format
		for i := range formats {
			f := &formats[i]
			if !accept(f) {
				continue
			}
			if best == nil || f.Bitrate > best.Bitrate {
				best = f
			}
		}
		if best != nil {
			return best, nil
		}
	}
	return nil, ErrNoStream
}
