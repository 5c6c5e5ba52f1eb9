// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hamed0406/dlprobe/internal/catalog"
	"github.com/hamed0406/dlprobe/internal/config"
	"github.com/hamed0406/dlprobe/internal/render"
)

func main() {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		fail(err.Error())
	} else {
		ok(fmt.Sprintf("API_ADDR=%s PROBE_MODE=%s PROBE_PORT=%d", cfg.Addr, cfg.ProbeMode, cfg.ProbePort))
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty (anyone can add downloads).")
	}
	if len(cfg.PublicAPIKeys) == 0 && len(cfg.AdminAPIKeys) == 0 {
		warn("no API keys configured; /api routes are open.")
	}
	for name, v := range map[string]string{"ADMIN_API_KEYS": os.Getenv("ADMIN_API_KEYS"), "PUBLIC_API_KEYS": os.Getenv("PUBLIC_API_KEYS")} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	if c, err := catalog.Load(cfg.CatalogPath); err != nil {
		fail(err.Error())
	} else {
		src := cfg.CatalogPath
		if src == "" {
			src = "built-in"
		}
		ok(fmt.Sprintf("catalog %s: %d downloads", src, len(c.Downloads)))
	}

	if _, err := render.Load(cfg.TemplatePath); err != nil {
		fail(err.Error())
	} else {
		ok("page template parses")
	}

	if cfg.WatchSchedule == "" {
		warn("WATCH_SCHEDULE empty; links are only checked on request.")
	} else if cfg.SlackWebhookURL == "" {
		warn("WATCH_SCHEDULE set but SLACK_WEBHOOK_URL empty; changes are only logged.")
	} else {
		ok("watcher " + cfg.WatchSchedule + " -> slack")
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; CORS allows every origin.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}
