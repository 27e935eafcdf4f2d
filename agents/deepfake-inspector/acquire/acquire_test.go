package acquire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/storage"
)

// countingFetcher writes fixed content and counts calls.
type countingFetcher struct {
	mu      sync.Mutex
	calls   int
	ids     []string
	content string
	err     error
}

func (f *countingFetcher) Fetch(ctx context.Context, videoID string, w io.Writer) error {
	f.mu.Lock()
	f.calls++
	f.ids = append(f.ids, videoID)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, f.content)
	return err
}

func newTestAcquirer(t *testing.T, fetcher Fetcher) (*Acquirer, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "downloads")
	a := New(storage.NewMediaCache(dir), fetcher)
	a.spoolDir = t.TempDir()
	return a, dir
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"Watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"Watch URL with extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s&list=PL123", "dQw4w9WgXcQ"},
		{"Param before v", "https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"Short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"Short link with query", "https://youtu.be/dQw4w9WgXcQ?si=abcdef", "dQw4w9WgXcQ"},
		{"Shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"Embed", "https://www.youtube.com/embed/dQw4w9WgXcQ/", "dQw4w9WgXcQ"},
		{"Fragment", "https://youtu.be/dQw4w9WgXcQ#t=10", "dQw4w9WgXcQ"},
		{"Surrounding whitespace", "  https://youtu.be/dQw4w9WgXcQ\n", "dQw4w9WgXcQ"},
		{"ID with dash and underscore", "https://youtu.be/a-B_c1D2e3F", "a-B_c1D2e3F"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			if err != nil {
				t.Fatalf("ExtractVideoID(%q) error = %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %s, want %s", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractVideoIDRejects(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"not a url",
		"https://example.com/",
		"https://youtu.be/short",
		"https://youtu.be/dQw4w9WgXcQextra",
	}

	for _, url := range tests {
		_, err := ExtractVideoID(url)
		var invalid *InvalidSourceError
		if !errors.As(err, &invalid) {
			t.Errorf("ExtractVideoID(%q) error = %v, want *InvalidSourceError", url, err)
		}
	}
}

func TestAcquirePassesVideoIDToFetcher(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"Watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s"},
		{"Shorts", "https://youtube.com/shorts/dQw4w9WgXcQ?feature=share"},
		{"Embed", "https://www.youtube.com/embed/dQw4w9WgXcQ"},
		{"Fragment", "  https://youtu.be/dQw4w9WgXcQ#t=10  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &countingFetcher{content: "video bytes"}
			a, _ := newTestAcquirer(t, fetcher)

			if _, err := a.Acquire(context.Background(), models.MediaSource{URL: tt.url}); err != nil {
				t.Fatalf("Acquire() error = %v", err)
			}
			if len(fetcher.ids) != 1 || fetcher.ids[0] != "dQw4w9WgXcQ" {
				t.Errorf("Fetch received %v, want [dQw4w9WgXcQ]", fetcher.ids)
			}
		})
	}
}

func TestAcquireCachesByVideoID(t *testing.T) {
	fetcher := &countingFetcher{content: "video bytes"}
	a, dir := newTestAcquirer(t, fetcher)
	ctx := context.Background()

	first, err := a.Acquire(ctx, models.MediaSource{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if first.Hit {
		t.Error("first Acquire() reported a cache hit")
	}
	if want := filepath.Join(dir, "dQw4w9WgXcQ.mp4"); first.Path != want {
		t.Errorf("Path = %s, want %s", first.Path, want)
	}

	// same video through a different URL form
	second, err := a.Acquire(ctx, models.MediaSource{URL: "https://youtu.be/dQw4w9WgXcQ?si=xyz"})
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if !second.Hit {
		t.Error("second Acquire() should be a cache hit")
	}
	if second.Path != first.Path {
		t.Errorf("second Path = %s, want %s", second.Path, first.Path)
	}
	if fetcher.calls != 1 {
		t.Errorf("Fetch called %d times, want 1", fetcher.calls)
	}

	data, err := os.ReadFile(first.Path)
	if err != nil {
		t.Fatalf("failed to read cached file: %v", err)
	}
	if string(data) != "video bytes" {
		t.Errorf("cached content = %q", data)
	}
}

func TestAcquireInvalidURL(t *testing.T) {
	fetcher := &countingFetcher{content: "video bytes"}
	a, dir := newTestAcquirer(t, fetcher)

	_, err := a.Acquire(context.Background(), models.MediaSource{URL: "https://example.com/watch"})
	var invalid *InvalidSourceError
	if !errors.As(err, &invalid) {
		t.Fatalf("Acquire() error = %v, want *InvalidSourceError", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("Fetch called %d times for an invalid URL", fetcher.calls)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("cache directory should not be created for an invalid URL")
	}
}

func TestAcquireFetchFailure(t *testing.T) {
	boom := errors.New("403 forbidden")
	a, dir := newTestAcquirer(t, &countingFetcher{err: boom})

	_, err := a.Acquire(context.Background(), models.MediaSource{URL: "https://youtu.be/dQw4w9WgXcQ"})
	var acqErr *AcquisitionError
	if !errors.As(err, &acqErr) {
		t.Fatalf("Acquire() error = %v, want *AcquisitionError", err)
	}
	if acqErr.Key != "dQw4w9WgXcQ" {
		t.Errorf("Key = %s, want dQw4w9WgXcQ", acqErr.Key)
	}
	if !errors.Is(err, boom) {
		t.Error("AcquisitionError should wrap the fetch failure")
	}
	if _, ok := storage.NewMediaCache(dir).Lookup("dQw4w9WgXcQ"); ok {
		t.Error("failed download left a cache entry")
	}
}

func TestAcquireWithoutFetcher(t *testing.T) {
	a, _ := newTestAcquirer(t, nil)

	_, err := a.Acquire(context.Background(), models.MediaSource{URL: "https://youtu.be/dQw4w9WgXcQ"})
	var acqErr *AcquisitionError
	if !errors.As(err, &acqErr) {
		t.Errorf("Acquire() error = %v, want *AcquisitionError", err)
	}
}

func TestAcquireUploadDeduplicates(t *testing.T) {
	fetcher := &countingFetcher{}
	a, dir := newTestAcquirer(t, fetcher)
	ctx := context.Background()

	first, err := a.Acquire(ctx, models.MediaSource{Upload: strings.NewReader("clip content"), Filename: "clip.mp4"})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if first.Hit {
		t.Error("first upload reported a cache hit")
	}
	if !strings.HasPrefix(first.Key, "upload-") || len(first.Key) != len("upload-")+16 {
		t.Errorf("Key = %s, want upload-<16 hex>", first.Key)
	}
	if filepath.Dir(first.Path) != dir {
		t.Errorf("upload stored in %s, want %s", filepath.Dir(first.Path), dir)
	}

	second, err := a.Acquire(ctx, models.MediaSource{Upload: bytes.NewBufferString("clip content"), Filename: "renamed.mp4"})
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if !second.Hit || second.Key != first.Key {
		t.Errorf("identical upload = %+v, want hit on %s", second, first.Key)
	}

	other, err := a.Acquire(ctx, models.MediaSource{Upload: strings.NewReader("different clip")})
	if err != nil {
		t.Fatalf("third Acquire() error = %v", err)
	}
	if other.Key == first.Key {
		t.Error("different content produced the same key")
	}

	if fetcher.calls != 0 {
		t.Errorf("uploads should never hit the downloader, got %d calls", fetcher.calls)
	}
	spooled, _ := os.ReadDir(a.spoolDir)
	if len(spooled) != 0 {
		t.Errorf("spool directory holds %d leftover files", len(spooled))
	}
}

func TestAcquireEmptyUpload(t *testing.T) {
	a, _ := newTestAcquirer(t, nil)

	_, err := a.Acquire(context.Background(), models.MediaSource{Upload: strings.NewReader("")})
	var invalid *InvalidSourceError
	if !errors.As(err, &invalid) {
		t.Errorf("Acquire() error = %v, want *InvalidSourceError", err)
	}
}
