package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AI         AIConfig         `yaml:"ai"`
	Cache      CacheConfig      `yaml:"cache"`
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Server     ServerConfig     `yaml:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Watch      WatchConfig      `yaml:"watch"`
	History    HistoryConfig    `yaml:"history"`
	Email      EmailConfig      `yaml:"email"`
}

type AIConfig struct {
	GeminiAPIKey           string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	VisualModel            string `yaml:"visual_model"`
	AudioModel             string `yaml:"audio_model"`
	PollIntervalSeconds    int    `yaml:"poll_interval_seconds"`
	PollMaxIntervalSeconds int    `yaml:"poll_max_interval_seconds"`
	IngestTimeoutMinutes   int    `yaml:"ingest_timeout_minutes"`
	RequestsPerMinute      int    `yaml:"requests_per_minute"`
	Parallel               bool   `yaml:"parallel"`
}

func (c AIConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c AIConfig) PollMaxInterval() time.Duration {
	return time.Duration(c.PollMaxIntervalSeconds) * time.Second
}

func (c AIConfig) IngestTimeout() time.Duration {
	return time.Duration(c.IngestTimeoutMinutes) * time.Minute
}

type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// YouTubeConfig configures optional metadata lookups. Either an API key or an
// OAuth client with a previously saved token file enables them.
type YouTubeConfig struct {
	APIKey       string `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile    string `yaml:"token_file"`
}

func (c YouTubeConfig) MetadataEnabled() bool {
	return c.APIKey != "" || (c.ClientID != "" && c.ClientSecret != "" && c.TokenFile != "")
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

type WatchConfig struct {
	Schedule string   `yaml:"schedule"`
	URLs     []string `yaml:"urls"`
}

type HistoryConfig struct {
	DataDir    string `yaml:"data_dir"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func (c HistoryConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

type EmailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

// Load reads the YAML config at path. An empty path falls back to CONFIG_FILE
// and then config.yaml; a missing default file is not an error since every
// setting has a default except the Gemini API key, which may come from the
// environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
		explicit = path != ""
	}
	if path == "" {
		path = "config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults and environment only
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.AI.GeminiAPIKey == "" {
		// name used by the Google client libraries
		c.AI.GeminiAPIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.YouTube.ClientID == "" {
		c.YouTube.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.YouTube.ClientSecret == "" {
		c.YouTube.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if c.Email.Username == "" {
		c.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if c.Email.Password == "" {
		c.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}
}

func (c *Config) applyDefaults() {
	if c.AI.VisualModel == "" {
		c.AI.VisualModel = "gemini-2.5-pro"
	}
	if c.AI.AudioModel == "" {
		c.AI.AudioModel = "gemini-2.0-flash"
	}
	if c.AI.PollIntervalSeconds == 0 {
		c.AI.PollIntervalSeconds = 1
	}
	if c.AI.PollMaxIntervalSeconds == 0 {
		c.AI.PollMaxIntervalSeconds = 16
	}
	if c.AI.IngestTimeoutMinutes == 0 {
		c.AI.IngestTimeoutMinutes = 10
	}
	if c.AI.RequestsPerMinute == 0 {
		c.AI.RequestsPerMinute = 60
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "downloads"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8501"
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 200
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Watch.Schedule == "" {
		c.Watch.Schedule = "0 0 9 * * *" // Daily at 9 AM
	}
	if c.History.DataDir == "" {
		c.History.DataDir = "data"
	}
	if c.History.MaxAgeDays == 0 {
		c.History.MaxAgeDays = 7
	}
	if c.YouTube.TokenFile == "" && c.YouTube.ClientID != "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
}

func (c *Config) validate() error {
	if c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	if c.AI.PollIntervalSeconds < 0 || c.AI.PollMaxIntervalSeconds < c.AI.PollIntervalSeconds {
		return fmt.Errorf("ai.poll_max_interval_seconds must be >= ai.poll_interval_seconds (got %d and %d)",
			c.AI.PollMaxIntervalSeconds, c.AI.PollIntervalSeconds)
	}
	if c.AI.IngestTimeoutMinutes < 0 {
		return fmt.Errorf("ai.ingest_timeout_minutes must not be negative")
	}
	if c.AI.RequestsPerMinute < 0 {
		return fmt.Errorf("ai.requests_per_minute must not be negative")
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("server.max_upload_mb must not be negative")
	}
	if c.Email.Enabled {
		if c.Email.Username == "" {
			return fmt.Errorf("Email username is required (set EMAIL_USERNAME or email.username)")
		}
		if c.Email.Password == "" {
			return fmt.Errorf("Email password is required (set EMAIL_PASSWORD or email.password)")
		}
		if c.Email.SMTPServer == "" || c.Email.ToEmail == "" {
			return fmt.Errorf("email.smtp_server and email.to_email are required when email is enabled")
		}
	}
	return nil
}
