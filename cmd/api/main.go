package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/dlprobe/internal/catalog"
	"github.com/hamed0406/dlprobe/internal/config"
	"github.com/hamed0406/dlprobe/internal/httpapi"
	apimw "github.com/hamed0406/dlprobe/internal/httpapi/middleware"
	"github.com/hamed0406/dlprobe/internal/index"
	"github.com/hamed0406/dlprobe/internal/logging"
	"github.com/hamed0406/dlprobe/internal/notify"
	"github.com/hamed0406/dlprobe/internal/render"
	"github.com/hamed0406/dlprobe/internal/repo/memory"
	"github.com/hamed0406/dlprobe/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Console: cfg.LogConsole})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api_exit", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	prober, err := cfg.Prober()
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	rnd, err := render.Load(cfg.TemplatePath)
	if err != nil {
		return err
	}

	store := memory.New()
	svc := index.New(logger, store, prober, cfg.MaxConcurrentProbes)
	if err := svc.Load(ctx, cat); err != nil {
		return err
	}

	var notifiers notify.Multi
	if s := notify.NewSlack(cfg.SlackWebhookURL); s != nil {
		notifiers = append(notifiers, s)
	}
	alerter := scheduler.NewAlerter(store, notifiers, scheduler.AlerterConfig{
		AlertOnRecovery: cfg.AlertOnRecovery,
		Cooldown:        cfg.AlertCooldown,
	})
	watcher := scheduler.NewWatcher(logger.Named("watcher"), svc, alerter, cfg.WatchSchedule)

	api := httpapi.NewServer(logger, svc, rnd)
	api.TrustProxy = cfg.TrustProxy
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api_listen",
			zap.String("addr", cfg.Addr),
			zap.String("probe_mode", cfg.ProbeMode),
			zap.Int("downloads", len(cat.Downloads)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("api_shutdown")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if cfg.CatalogPath != "" {
		g.Go(func() error {
			return catalog.Watch(gctx, cfg.CatalogPath, 500*time.Millisecond,
				func(c *catalog.Catalog) {
					if err := svc.Load(gctx, c); err != nil {
						logger.Warn("catalog_reload_error", zap.Error(err))
					}
				},
				func(err error) { logger.Warn("catalog_reload_error", zap.Error(err)) },
			)
		})
	}
	return g.Wait()
}
