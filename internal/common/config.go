package common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joseph-ayodele/leaflet-scanner/constants"
)

// envKeyReplacer maps nested keys to env names, e.g. scan.keyword ->
// LEAFLET_SCAN_KEYWORD.
var envKeyReplacer = strings.NewReplacer(".", "_")

// Config holds all application configuration. It is loaded once at startup
// and passed by value into component constructors; nothing mutates it after
// LoadConfig returns.
type Config struct {
	Scan      ScanConfig
	Cache     CacheConfig
	OCR       OCRConfig
	Notify    NotifyConfig
	Discovery DiscoveryConfig
}

// ScanConfig holds per-run scan parameters.
type ScanConfig struct {
	Keyword         string
	SaveFolder      string
	Workers         int
	DownloadTimeout time.Duration
}

// CacheConfig holds recognition cache parameters.
type CacheConfig struct {
	Path          string
	FlushEvery    int
	QueryChunkLen int
}

// OCRConfig holds recognition engine parameters.
type OCRConfig struct {
	Language    string
	TessdataDir string
}

// NotifyConfig holds webhook transport and batch packing parameters.
type NotifyConfig struct {
	WebhookURL    string
	MaxBatchBytes int64
	MaxItems      int
	MaxCaptions   int
	MaxImageWidth int
	JPEGQuality   int
	SendTimeout   time.Duration
}

// DiscoveryConfig holds leaflet discovery parameters.
type DiscoveryConfig struct {
	ListingURL  string
	APIBaseURL  string
	UserAgent   string
	HTTPTimeout time.Duration
	Retries     int
}

// LoadConfig loads configuration from an optional leaflet.yaml and
// LEAFLET_-prefixed environment variables, with defaults for everything
// except the keyword.
func LoadConfig(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("scan.keyword", "")
	v.SetDefault("scan.save_folder", "gazetki")
	v.SetDefault("scan.workers", 5)
	v.SetDefault("scan.download_timeout", 15*time.Second)

	v.SetDefault("cache.path", "leaflet-cache.db")
	v.SetDefault("cache.flush_every", 25)
	v.SetDefault("cache.query_chunk_len", constants.CacheQueryChunkSize)

	v.SetDefault("ocr.language", "pol")
	v.SetDefault("ocr.tessdata_dir", "")

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.max_batch_bytes", int64(7_500_000))
	v.SetDefault("notify.max_items", constants.DiscordMaxAttachments)
	v.SetDefault("notify.max_captions", constants.DiscordMaxEmbeds)
	v.SetDefault("notify.max_image_width", 2000)
	v.SetDefault("notify.jpeg_quality", 80)
	v.SetDefault("notify.send_timeout", 30*time.Second)

	v.SetDefault("discovery.listing_url", "https://www.biedronka.pl/pl/gazetki")
	v.SetDefault("discovery.api_base_url", "https://leaflet-api.prod.biedronka.cloud")
	v.SetDefault("discovery.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("discovery.http_timeout", 10*time.Second)
	v.SetDefault("discovery.retries", 3)

	v.SetEnvPrefix("LEAFLET")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("leaflet")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Scan: ScanConfig{
			Keyword:         v.GetString("scan.keyword"),
			SaveFolder:      v.GetString("scan.save_folder"),
			Workers:         v.GetInt("scan.workers"),
			DownloadTimeout: v.GetDuration("scan.download_timeout"),
		},
		Cache: CacheConfig{
			Path:          v.GetString("cache.path"),
			FlushEvery:    v.GetInt("cache.flush_every"),
			QueryChunkLen: v.GetInt("cache.query_chunk_len"),
		},
		OCR: OCRConfig{
			Language:    v.GetString("ocr.language"),
			TessdataDir: v.GetString("ocr.tessdata_dir"),
		},
		Notify: NotifyConfig{
			WebhookURL:    v.GetString("notify.webhook_url"),
			MaxBatchBytes: v.GetInt64("notify.max_batch_bytes"),
			MaxItems:      v.GetInt("notify.max_items"),
			MaxCaptions:   v.GetInt("notify.max_captions"),
			MaxImageWidth: v.GetInt("notify.max_image_width"),
			JPEGQuality:   v.GetInt("notify.jpeg_quality"),
			SendTimeout:   v.GetDuration("notify.send_timeout"),
		},
		Discovery: DiscoveryConfig{
			ListingURL:  v.GetString("discovery.listing_url"),
			APIBaseURL:  v.GetString("discovery.api_base_url"),
			UserAgent:   v.GetString("discovery.user_agent"),
			HTTPTimeout: v.GetDuration("discovery.http_timeout"),
			Retries:     v.GetInt("discovery.retries"),
		},
	}
	return cfg, nil
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Scan.Keyword == "" {
		return NewAppError("CONFIG_ERROR", "scan.keyword is required", ErrInvalidInput)
	}
	if c.Scan.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "scan.workers must be positive", ErrInvalidInput)
	}
	if c.Cache.Path == "" {
		return NewAppError("CONFIG_ERROR", "cache.path is required", ErrInvalidInput)
	}
	if c.Cache.FlushEvery <= 0 {
		return NewAppError("CONFIG_ERROR", "cache.flush_every must be positive", ErrInvalidInput)
	}
	if c.Notify.MaxBatchBytes > constants.DiscordMaxPayloadBytes {
		return NewAppError("CONFIG_ERROR",
			fmt.Sprintf("notify.max_batch_bytes %d exceeds transport payload limit %d",
				c.Notify.MaxBatchBytes, constants.DiscordMaxPayloadBytes), ErrInvalidInput)
	}
	if c.Notify.MaxItems <= 0 || c.Notify.MaxItems > constants.DiscordMaxAttachments {
		return NewAppError("CONFIG_ERROR", "notify.max_items out of transport range", ErrInvalidInput)
	}
	if c.Notify.MaxCaptions <= 0 || c.Notify.MaxCaptions > constants.DiscordMaxEmbeds {
		return NewAppError("CONFIG_ERROR", "notify.max_captions out of transport range", ErrInvalidInput)
	}
	return nil
}
