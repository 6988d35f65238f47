package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultUserAgent is the desktop Chrome UA presented to the target page.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.7390.107 Safari/537.36"

// Config holds all application configuration.
type Config struct {
	// Automation selects headless automation mode. When false the run is
	// a local no-op: no browser is launched and nothing is persisted.
	Automation bool

	Browser BrowserConfig
	Session SessionConfig
	Poller  PollerConfig
	Logbook LogbookConfig
	Log     LogConfig
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in CI containers).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is an optional upstream proxy URL.
	Proxy string

	// UserAgent overrides the navigator user agent.
	UserAgent string

	// WindowSize is passed to --window-size as "W,H".
	WindowSize string // default: "1920,1080"

	// Stealth injects go-rod/stealth evasions before navigation.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// ExtraHeaders are sent with every request from the page.
	ExtraHeaders map[string]string
}

// SessionConfig controls the fixed interaction sequence.
type SessionConfig struct {
	// TargetURL is the measurement page.
	TargetURL string // default: "https://t1.y130.icu/t1/bestip"

	// Source is the desired value of the IP source <select>.
	Source string // default: "official"

	// Port is the desired value of the port <select>.
	Port string // default: "443"

	// SettleDelay is the fixed pause after navigation.
	SettleDelay time.Duration // default: 5s

	// ActionTimeout bounds each element lookup and interaction.
	ActionTimeout time.Duration // default: 20s
}

// PollerConfig controls the completion wait.
type PollerConfig struct {
	// InitialDelay is the quiescence delay before the first check.
	InitialDelay time.Duration // default: 350s

	// Interval is the spacing between checks.
	Interval time.Duration // default: 30s

	// MaxChecks is the number of checks before giving up.
	MaxChecks int // default: 10
}

// Budget is the worst-case wall-clock time spent awaiting completion.
func (c PollerConfig) Budget() time.Duration {
	return c.InitialDelay + time.Duration(c.MaxChecks)*c.Interval
}

// LogbookConfig controls the persisted result log.
type LogbookConfig struct {
	// Path is the log file location.
	Path string // default: "ip.txt"

	// RotateAfterDays is the record age that triggers an overwrite.
	RotateAfterDays int // default: 7

	// Marker is the body substring after which the run token is inserted.
	Marker string // default: "官方优选"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Automation: envBoolOr("BESTIP_AUTOMATION", os.Getenv("GITHUB_ACTIONS") != ""),
		Browser: BrowserConfig{
			Headless:   envBoolOr("BESTIP_HEADLESS", true),
			NoSandbox:  envBoolOr("BESTIP_NO_SANDBOX", true),
			BrowserBin: os.Getenv("BESTIP_BROWSER_BIN"),
			Proxy:      os.Getenv("BESTIP_PROXY"),
			UserAgent:  envOr("BESTIP_USER_AGENT", DefaultUserAgent),
			WindowSize: envOr("BESTIP_WINDOW_SIZE", "1920,1080"),
			Stealth:    envBoolOr("BESTIP_STEALTH", true),
			BlockedResourceTypes: envSliceOr("BESTIP_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			ExtraHeaders: envMapOr("BESTIP_EXTRA_HEADERS", nil),
		},
		Session: SessionConfig{
			TargetURL:     envOr("BESTIP_TARGET_URL", "https://t1.y130.icu/t1/bestip"),
			Source:        envOr("BESTIP_SOURCE", "official"),
			Port:          envOr("BESTIP_PORT", "443"),
			SettleDelay:   envDurationOr("BESTIP_SETTLE_DELAY", 5*time.Second),
			ActionTimeout: envDurationOr("BESTIP_ACTION_TIMEOUT", 20*time.Second),
		},
		Poller: PollerConfig{
			InitialDelay: envDurationOr("BESTIP_INITIAL_DELAY", 350*time.Second),
			Interval:     envDurationOr("BESTIP_POLL_INTERVAL", 30*time.Second),
			MaxChecks:    envIntOr("BESTIP_POLL_CHECKS", 10),
		},
		Logbook: LogbookConfig{
			Path:            envOr("BESTIP_LOG_FILE", "ip.txt"),
			RotateAfterDays: envIntOr("BESTIP_ROTATE_AFTER_DAYS", 7),
			Marker:          envOr("BESTIP_MARKER", "官方优选"),
		},
		Log: LogConfig{
			Level:  envOr("BESTIP_LOG_LEVEL", "info"),
			Format: envOr("BESTIP_LOG_FORMAT", "json"),
		},
	}
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

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
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

// envMapOr parses "k1=v1,k2=v2". Pairs without '=' are ignored.
func envMapOr(key string, fallback map[string]string) map[string]string {
	pairs := envSliceOr(key, nil)
	if len(pairs) == 0 {
		return fallback
	}
	result := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		result[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
