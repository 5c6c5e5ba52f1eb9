package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	"github.com/hamed0406/dlprobe/internal/probe"
)

type Config struct {
	Addr       string // API bind address, e.g., "127.0.0.1:8080" or ":8080" (Docker)
	LogDir     string // logs directory
	LogLevel   string // debug, info, warn, error
	LogConsole bool   // also log to stderr

	CatalogPath  string // YAML catalog; empty means the built-in one
	TemplatePath string // page template; empty means the built-in one

	ProbeMode           string // "socket" (raw HEAD on port 80) or "client" (net/http)
	ProbePort           int
	ProbeConnectTimeout time.Duration
	ProbeReadTimeout    time.Duration
	ProbeRequestTarget  string // "url" or "path"
	MaxConcurrentProbes int

	WatchSchedule   string // cron schedule for the link watcher, empty disables it
	SlackWebhookURL string
	AlertOnRecovery bool
	AlertCooldown   time.Duration

	PublicAPIKeys  []string
	AdminAPIKeys   []string
	PublicRPM      int
	PublicBurst    int
	AdminRPM       int
	AdminBurst     int
	AllowedOrigins []string
	TrustProxy     bool // key rate limits on X-Forwarded-For
}

// FromEnv reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real env vars win.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr:       str("API_ADDR", "127.0.0.1:8080"),
		LogDir:     str("LOG_DIR", "logs"),
		LogLevel:   str("LOG_LEVEL", "info"),
		LogConsole: boolean("LOG_CONSOLE", false),

		CatalogPath:  os.Getenv("CATALOG_PATH"),
		TemplatePath: os.Getenv("TEMPLATE_PATH"),

		ProbeMode:           strings.ToLower(str("PROBE_MODE", "socket")),
		ProbePort:           integer("PROBE_PORT", probe.DefaultPort),
		ProbeConnectTimeout: millis("PROBE_CONNECT_TIMEOUT_MS", probe.DefaultConnectTimeout),
		ProbeReadTimeout:    millis("PROBE_READ_TIMEOUT_MS", probe.DefaultReadTimeout),
		ProbeRequestTarget:  str("PROBE_REQUEST_TARGET", "url"),
		MaxConcurrentProbes: integer("MAX_CONCURRENT_PROBES", 8),

		WatchSchedule:   os.Getenv("WATCH_SCHEDULE"),
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		AlertOnRecovery: boolean("ALERT_ON_RECOVERY", true),
		AlertCooldown:   millis("ALERT_COOLDOWN_MS", 30*time.Minute),

		PublicAPIKeys:  list("PUBLIC_API_KEYS"),
		AdminAPIKeys:   list("ADMIN_API_KEYS"),
		PublicRPM:      integer("PUBLIC_RPM", 120),
		PublicBurst:    integer("PUBLIC_BURST", 60),
		AdminRPM:       integer("ADMIN_RPM", 60),
		AdminBurst:     integer("ADMIN_BURST", 30),
		AllowedOrigins: list("ALLOWED_ORIGINS"),
		TrustProxy:     boolean("TRUST_PROXY", false),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var err error
	if c.Addr == "" {
		err = multierr.Append(err, errors.New("API_ADDR must not be empty"))
	}
	if c.ProbeMode != "socket" && c.ProbeMode != "client" {
		err = multierr.Append(err, fmt.Errorf("PROBE_MODE %q: want socket or client", c.ProbeMode))
	}
	if c.ProbePort < 1 || c.ProbePort > 65535 {
		err = multierr.Append(err, fmt.Errorf("PROBE_PORT %d out of range", c.ProbePort))
	}
	if c.ProbeConnectTimeout <= 0 {
		err = multierr.Append(err, errors.New("PROBE_CONNECT_TIMEOUT_MS must be positive"))
	}
	if _, perr := probe.ParseRequestTarget(c.ProbeRequestTarget); perr != nil {
		err = multierr.Append(err, fmt.Errorf("PROBE_REQUEST_TARGET: %w", perr))
	}
	if c.MaxConcurrentProbes < 1 {
		err = multierr.Append(err, errors.New("MAX_CONCURRENT_PROBES must be at least 1"))
	}
	if c.WatchSchedule != "" {
		if _, perr := cron.ParseStandard(c.WatchSchedule); perr != nil {
			err = multierr.Append(err, fmt.Errorf("WATCH_SCHEDULE: %w", perr))
		}
	}
	return err
}

// Prober builds the prober selected by ProbeMode.
func (c Config) Prober() (probe.Prober, error) {
	switch c.ProbeMode {
	case "client":
		return probe.NewClientProber(c.ProbeConnectTimeout + c.ProbeReadTimeout), nil
	case "socket", "":
		target, err := probe.ParseRequestTarget(c.ProbeRequestTarget)
		if err != nil {
			return nil, err
		}
		p := probe.NewExistenceProber()
		p.Port = c.ProbePort
		p.ConnectTimeout = c.ProbeConnectTimeout
		p.ReadTimeout = c.ProbeReadTimeout
		p.Target = target
		return p, nil
	default:
		return nil, fmt.Errorf("unknown probe mode %q", c.ProbeMode)
	}
}

func str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func integer(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func boolean(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func millis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
