package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Source  SourceConfig
	Browser BrowserConfig
	Scraper ScraperConfig
	Storage StorageConfig
	Metrics MetricsConfig
	Log     LogConfig
}

// SourceConfig identifies the listing site being scraped.
type SourceConfig struct {
	// BaseURL is the listing index; page N is reached via PageParam.
	BaseURL string // default: "https://www.newlaunchportal.sg/projects"

	// PageParam is the query parameter carrying the 1-based page index.
	PageParam string // default: "page"

	// MaxPages caps the number of listing pages visited; 0 means until an
	// empty page is encountered.
	MaxPages int // default: 0
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is an optional proxy URL for all navigation.
	Proxy string

	// Stealth enables anti-bot-detection evasions.
	Stealth bool // default: true

	// BlockedResources lists resource types dropped on listing pages.
	// Detail pages load everything; the gallery needs its images.
	BlockedResources []string // default: Image, Font, Media
}

// ScraperConfig controls scraping behavior.
type ScraperConfig struct {
	// NavigationTimeout is the deadline for one page navigation.
	NavigationTimeout time.Duration // default: 30s

	// MaxRetries is the attempt count for transient navigation failures.
	MaxRetries int // default: 3

	// RetryBackoff is the base delay before the first retry; it doubles
	// per attempt.
	RetryBackoff time.Duration // default: 2s

	// RequestsPerSecond bounds the navigation rate against the source site.
	RequestsPerSecond float64 // default: 0.5

	// SettleTimeout bounds the wait for a gallery tab's image swap.
	SettleTimeout time.Duration // default: 3s

	// ControlPollInterval is the sleep between control-file polls while paused.
	ControlPollInterval time.Duration // default: 2s

	// DataDir holds the checkpoint and control files.
	DataDir string // default: ".propscout"

	// ErrorCap bounds the recent-error list carried in the checkpoint.
	ErrorCap int // default: 50

	// MaxPageFailures fails the session after this many consecutive
	// listing-page failures.
	MaxPageFailures int // default: 5
}

// StorageConfig controls the backing SQLite store.
type StorageConfig struct {
	// DBPath is the SQLite database file.
	DBPath string // default: "propscout.db"
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddr serves /metrics when non-empty, e.g. ":9090".
	ListenAddr string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL:   envOr("PROPSCOUT_BASE_URL", "https://www.newlaunchportal.sg/projects"),
			PageParam: envOr("PROPSCOUT_PAGE_PARAM", "page"),
			MaxPages:  envIntOr("PROPSCOUT_MAX_PAGES", 0),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("PROPSCOUT_HEADLESS", true),
			NoSandbox:  envBoolOr("PROPSCOUT_NO_SANDBOX", false),
			BrowserBin: os.Getenv("PROPSCOUT_BROWSER_BIN"),
			Proxy:      os.Getenv("PROPSCOUT_PROXY"),
			Stealth:    envBoolOr("PROPSCOUT_STEALTH", true),
			BlockedResources: envSliceOr("PROPSCOUT_BLOCKED_RESOURCES",
				[]string{"Image", "Font", "Media"}),
		},
		Scraper: ScraperConfig{
			NavigationTimeout:   envDurationOr("PROPSCOUT_NAV_TIMEOUT", 30*time.Second),
			MaxRetries:          envIntOr("PROPSCOUT_MAX_RETRIES", 3),
			RetryBackoff:        envDurationOr("PROPSCOUT_RETRY_BACKOFF", 2*time.Second),
			RequestsPerSecond:   envFloatOr("PROPSCOUT_RATE_RPS", 0.5),
			SettleTimeout:       envDurationOr("PROPSCOUT_SETTLE_TIMEOUT", 3*time.Second),
			ControlPollInterval: envDurationOr("PROPSCOUT_POLL_INTERVAL", 2*time.Second),
			DataDir:             envOr("PROPSCOUT_DATA_DIR", ".propscout"),
			ErrorCap:            envIntOr("PROPSCOUT_ERROR_CAP", 50),
			MaxPageFailures:     envIntOr("PROPSCOUT_MAX_PAGE_FAILURES", 5),
		},
		Storage: StorageConfig{
			DBPath: envOr("PROPSCOUT_DB_PATH", "propscout.db"),
		},
		Metrics: MetricsConfig{
			ListenAddr: os.Getenv("PROPSCOUT_METRICS_ADDR"),
		},
		Log: LogConfig{
			Level:  envOr("PROPSCOUT_LOG_LEVEL", "info"),
			Format: envOr("PROPSCOUT_LOG_FORMAT", "text"),
		},
	}
}

// CheckpointPath is the checkpoint file location under DataDir.
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.Scraper.DataDir, "checkpoint.json")
}

// ControlPath is the control-command file location under DataDir.
func (c *Config) ControlPath() string {
	return filepath.Join(c.Scraper.DataDir, "control.json")
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
