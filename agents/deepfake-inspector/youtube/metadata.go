package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// ErrMetadataDisabled is returned when neither an API key nor an OAuth client is configured.
var ErrMetadataDisabled = errors.New("youtube metadata lookups are not configured")

// ErrVideoNotFound is returned when the Data API has no record of a video ID.
var ErrVideoNotFound = errors.New("video not found")

var isoDuration = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// MetadataClient looks up title, channel and duration for linked videos
// through the YouTube Data API.
type MetadataClient struct {
	service *yt.Service
}

// NewMetadataClient prefers a plain API key. Without one it falls back to an
// OAuth client and the token saved by AuthorizeDevice.
func NewMetadataClient(ctx context.Context, cfg *config.YouTubeConfig) (*MetadataClient, error) {
	if !cfg.MetadataEnabled() {
		return nil, ErrMetadataDisabled
	}

	var opt option.ClientOption
	if cfg.APIKey != "" {
		opt = option.WithAPIKey(cfg.APIKey)
	} else {
		httpClient, err := oauthHTTPClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opt = option.WithHTTPClient(httpClient)
	}

	service, err := yt.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &MetadataClient{service: service}, nil
}

// Lookup fetches the metadata for one video ID.
func (c *MetadataClient) Lookup(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	resp, err := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get video details for %s: %w", videoID, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}

	return metadataFromVideo(resp.Items[0]), nil
}

func metadataFromVideo(item *yt.Video) *models.VideoMetadata {
	meta := &models.VideoMetadata{
		ID:  item.Id,
		URL: fmt.Sprintf("https://www.youtube.com/watch?v=%s", item.Id),
	}

	if item.Snippet != nil {
		meta.Title = item.Snippet.Title
		meta.ChannelTitle = item.Snippet.ChannelTitle
		if publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			meta.PublishedAt = publishedAt
		}
	}
	if item.ContentDetails != nil {
		meta.Duration = item.ContentDetails.Duration
		meta.DurationSeconds = parseDurationSeconds(item.ContentDetails.Duration)
	}
	if item.Statistics != nil {
		meta.ViewCount = int64(item.Statistics.ViewCount)
	}

	return meta
}

func oauthConfig(cfg *config.YouTubeConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{yt.YoutubeReadonlyScope},
		Endpoint:     google.Endpoint,
	}
}

func oauthHTTPClient(ctx context.Context, cfg *config.YouTubeConfig) (*http.Client, error) {
	tok, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth token from %s (run `inspector youtube-auth`): %w", cfg.TokenFile, err)
	}
	if tok.RefreshToken == "" && !tok.Valid() {
		return nil, fmt.Errorf("OAuth token in %s is expired and cannot be refreshed", cfg.TokenFile)
	}

	ts := &tokenSaver{
		config:    oauthConfig(cfg),
		token:     tok,
		tokenFile: cfg.TokenFile,
	}
	return oauth2.NewClient(ctx, ts), nil
}

// tokenSaver persists refreshed tokens so they survive restarts.
type tokenSaver struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	mu        sync.Mutex
}

func (ts *tokenSaver) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != ts.token.AccessToken {
		log.Println("YouTube token refreshed, saving to file")
		ts.token = newToken
		if err := saveToken(ts.tokenFile, newToken); err != nil {
			log.Printf("Warning: Failed to save refreshed token: %v", err)
		}
	}

	return newToken, nil
}

// AuthorizeDevice runs the OAuth device flow and saves the resulting token
// to cfg.TokenFile. Instructions are written to out.
func AuthorizeDevice(ctx context.Context, cfg *config.YouTubeConfig, out func(format string, args ...any)) error {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenFile == "" {
		return errors.New("youtube.client_id, youtube.client_secret and youtube.token_file are required for device authorization")
	}
	oc := oauthConfig(cfg)

	resp, err := oc.DeviceAuth(ctx, oauth2.AccessTypeOffline)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			log.Printf("Device authorization response failed (%s): %s", retrieveErr.Response.Status, strings.TrimSpace(string(retrieveErr.Body)))
		}
		return fmt.Errorf("unable to start device authorization: %w. Ensure your OAuth client is created as 'TVs and Limited Input devices' and that the YouTube Data API v3 is enabled", err)
	}

	out("%s\n", strings.Repeat("=", 80))
	out("YOUTUBE DEVICE AUTHORIZATION\n")
	out("%s\n", strings.Repeat("=", 80))
	out("1. Visit %s in your browser (any device works).\n", resp.VerificationURI)
	out("2. Enter this code when prompted: %s\n\n", resp.UserCode)
	if completeURL := strings.TrimSpace(resp.VerificationURIComplete); completeURL != "" {
		out("   Or open directly: %s\n\n", completeURL)
	}
	out("Waiting for authorization to complete... (Ctrl+C to cancel)\n")

	tok, err := oc.DeviceAccessToken(ctx, resp, oauth2.AccessTypeOffline)
	if err != nil {
		return fmt.Errorf("device authorization did not complete: %w", err)
	}

	if err := saveToken(cfg.TokenFile, tok); err != nil {
		return err
	}
	out("Authorization successful. Token saved to %s\n", cfg.TokenFile)
	return nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode oauth token: %w", err)
	}
	return nil
}

// parseDurationSeconds converts an ISO 8601 duration such as PT2H15M30S.
func parseDurationSeconds(duration string) int {
	matches := isoDuration.FindStringSubmatch(duration)
	if len(matches) == 0 {
		return 0
	}

	var total int
	for i, unit := range []int{3600, 60, 1} {
		if matches[i+1] == "" {
			continue
		}
		if n, err := strconv.Atoi(matches[i+1]); err == nil {
			total += n * unit
		}
	}
	return total
}
